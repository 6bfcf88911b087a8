package dating

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
)

type Action string

// Swipe actions
const (
	ActionPass      Action = "pass"
	ActionLike      Action = "like"
	ActionSuperLike Action = "superlike"
)

var AllActions = []string{string(ActionPass), string(ActionLike), string(ActionSuperLike)}

type (
	Profile struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"owner_id,omitempty"` // empty for seeded profiles
		Name      string    `json:"name"`
		Age       int       `json:"age"`
		Images    []string  `json:"images"`
		Interests []string  `json:"interests"`
		Bio       string    `json:"bio"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	Swipe struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		ProfileID string    `json:"profile_id"`
		Action    Action    `json:"action"`
		Matched   bool      `json:"matched"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	// Match links a user to a profile and opens their conversation.
	Match struct {
		ID             string    `json:"id"`
		UserID         string    `json:"user_id"`
		ProfileID      string    `json:"profile_id"`
		ProfileOwnerID string    `json:"profile_owner_id,omitempty"`
		ProfileName    string    `json:"profile_name"`
		CreatedAt      time.Time `json:"created_at"` // UTC
	}

	Message struct {
		ID       string    `json:"id"`
		MatchID  string    `json:"match_id"`
		SenderID string    `json:"sender_id"` // a user ID, or the profile ID for automatic replies
		Body     string    `json:"body"`
		SentAt   time.Time `json:"sent_at"` // UTC
	}

	SwipeResult struct {
		Swipe Swipe  `json:"swipe"`
		Match *Match `json:"match"`
	}
)

// HasParticipant reports whether userID takes part in the conversation.
func (m Match) HasParticipant(userID string) bool {
	return userID != "" && (m.UserID == userID || m.ProfileOwnerID == userID)
}

// Recipient is the participant who did not send the message, if that is a user.
func (m Match) Recipient(senderID string) string {
	if senderID == m.UserID {
		return m.ProfileOwnerID
	}
	return m.UserID
}

type (
	NewProfile struct {
		Name      string   `json:"name" validate:"required,notblank,max=64"`
		Age       int      `json:"age" validate:"required,min=17,max=99"`
		Images    []string `json:"images" validate:"max=6,dive,url"`
		Interests []string `json:"interests" validate:"max=10,dive,notblank"`
		Bio       string   `json:"bio" validate:"max=500"`
	}

	NewSwipe struct {
		ProfileID string `json:"profile_id" validate:"required"`
		Action    string `json:"action" validate:"required,swipeaction"`
	}

	NewMessage struct {
		Body string `json:"body" validate:"required,notblank,max=2000"`
	}
)

func (np *NewProfile) Validate(validate *validator.Validate) error {
	np.Name = core.CleanName(np.Name)
	np.Bio = core.CleanString(np.Bio)
	for i, in := range np.Interests {
		np.Interests[i] = core.CleanString(in)
	}
	return validate.Struct(np)
}

func (ns *NewSwipe) Validate(validate *validator.Validate) error {
	ns.Action = core.CleanLower(ns.Action)
	return validate.Struct(ns)
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Body = core.CleanString(nm.Body)
	return validate.Struct(nm)
}
