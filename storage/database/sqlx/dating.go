package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/dating"
)

type (
	profileRow struct {
		ID        string         `db:"id"`
		OwnerID   null.String    `db:"owner_id"`
		Name      string         `db:"name"`
		Age       int            `db:"age"`
		Images    pq.StringArray `db:"images"`
		Interests pq.StringArray `db:"interests"`
		Bio       string         `db:"bio"`
		CreatedAt time.Time      `db:"created_at"`
	}

	swipeRow struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		ProfileID string    `db:"profile_id"`
		Action    string    `db:"action"`
		Matched   bool      `db:"matched"`
		CreatedAt time.Time `db:"created_at"`
	}

	matchRow struct {
		ID             string      `db:"id"`
		UserID         string      `db:"user_id"`
		ProfileID      string      `db:"profile_id"`
		ProfileOwnerID null.String `db:"profile_owner_id"`
		ProfileName    string      `db:"profile_name"`
		CreatedAt      time.Time   `db:"created_at"`
	}

	messageRow struct {
		ID       string    `db:"id"`
		MatchID  string    `db:"match_id"`
		SenderID string    `db:"sender_id"`
		Body     string    `db:"body"`
		SentAt   time.Time `db:"sent_at"`
	}
)

func (r profileRow) profile() dating.Profile {
	return dating.Profile{
		ID:        r.ID,
		OwnerID:   r.OwnerID.String,
		Name:      r.Name,
		Age:       r.Age,
		Images:    fromTextArray(r.Images),
		Interests: fromTextArray(r.Interests),
		Bio:       r.Bio,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (r swipeRow) swipe() dating.Swipe {
	return dating.Swipe{
		ID:        r.ID,
		UserID:    r.UserID,
		ProfileID: r.ProfileID,
		Action:    dating.Action(r.Action),
		Matched:   r.Matched,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (r matchRow) match() dating.Match {
	return dating.Match{
		ID:             r.ID,
		UserID:         r.UserID,
		ProfileID:      r.ProfileID,
		ProfileOwnerID: r.ProfileOwnerID.String,
		ProfileName:    r.ProfileName,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

func (r messageRow) message() dating.Message {
	return dating.Message{ID: r.ID, MatchID: r.MatchID, SenderID: r.SenderID, Body: r.Body, SentAt: r.SentAt.UTC()}
}

const (
	profileColumns = "id, owner_id, name, age, images, interests, bio, created_at"
	matchColumns   = "id, user_id, profile_id, profile_owner_id, profile_name, created_at"
	messageColumns = "id, match_id, sender_id, body, sent_at"
)

type datingRepository struct {
	repository
}

var _ dating.Repository = (*datingRepository)(nil) // interface compliance check

func NewDatingRepository(exec core.DBExecutor) *datingRepository {
	return &datingRepository{repository{exec: exec}}
}

func (repo datingRepository) CreateProfile(ctx context.Context, p dating.Profile, exec ...core.DBExecutor) (dating.Profile, error) {
	var rows []profileRow
	err := query(ctx, repo.getExec(exec), &rows, `
		INSERT INTO dating_profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+profileColumns,
		p.ID, null.NewString(p.OwnerID, p.OwnerID != ""), p.Name, p.Age,
		textArray(p.Images), textArray(p.Interests), p.Bio, p.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dating.Profile{}, dating.ErrProfileExists
		}
		return dating.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return rows[0].profile(), nil
}

func (repo datingRepository) GetProfile(ctx context.Context, id string, exec ...core.DBExecutor) (dating.Profile, error) {
	var rows []profileRow
	if err := query(ctx, repo.getExec(exec), &rows, "SELECT "+profileColumns+" FROM dating_profiles WHERE id = ?", id); err != nil {
		return dating.Profile{}, errors.Wrap(err, "getting profile")
	}
	if len(rows) == 0 {
		return dating.Profile{}, dating.ErrProfileNotFound
	}
	return rows[0].profile(), nil
}

func (repo datingRepository) QueryProfiles(ctx context.Context, excludedOwner string, exec ...core.DBExecutor) ([]dating.Profile, error) {
	var w where
	if excludedOwner != "" {
		w.add("owner_id IS DISTINCT FROM ?", excludedOwner)
	}
	var rows []profileRow
	q := "SELECT " + profileColumns + " FROM dating_profiles" + w.String() + " ORDER BY created_at ASC, id ASC"
	if err := query(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	profiles := make([]dating.Profile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.profile())
	}
	return profiles, nil
}

func (repo datingRepository) CreateSwipe(ctx context.Context, s dating.Swipe, exec ...core.DBExecutor) (dating.Swipe, error) {
	var rows []swipeRow
	err := query(ctx, repo.getExec(exec), &rows, `
		INSERT INTO dating_swipes (id, user_id, profile_id, action, matched, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, user_id, profile_id, action, matched, created_at`,
		s.ID, s.UserID, s.ProfileID, string(s.Action), s.Matched, s.CreatedAt.UTC(),
	)
	if err != nil {
		return dating.Swipe{}, errors.Wrap(err, "inserting swipe")
	}
	return rows[0].swipe(), nil
}

func (repo datingRepository) CreateMatch(ctx context.Context, m dating.Match, exec ...core.DBExecutor) (dating.Match, error) {
	var rows []matchRow
	err := query(ctx, repo.getExec(exec), &rows, `
		INSERT INTO dating_matches (`+matchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+matchColumns,
		m.ID, m.UserID, m.ProfileID, null.NewString(m.ProfileOwnerID, m.ProfileOwnerID != ""), m.ProfileName, m.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dating.Match{}, dating.ErrAlreadyMatched
		}
		return dating.Match{}, errors.Wrap(err, "inserting match")
	}
	return rows[0].match(), nil
}

func (repo datingRepository) GetMatch(ctx context.Context, id string, exec ...core.DBExecutor) (dating.Match, error) {
	var rows []matchRow
	if err := query(ctx, repo.getExec(exec), &rows, "SELECT "+matchColumns+" FROM dating_matches WHERE id = ?", id); err != nil {
		return dating.Match{}, errors.Wrap(err, "getting match")
	}
	if len(rows) == 0 {
		return dating.Match{}, dating.ErrMatchNotFound
	}
	return rows[0].match(), nil
}

func (repo datingRepository) QueryMatches(ctx context.Context, userID string, exec ...core.DBExecutor) ([]dating.Match, error) {
	var rows []matchRow
	err := query(ctx, repo.getExec(exec), &rows,
		"SELECT "+matchColumns+" FROM dating_matches WHERE user_id = ? OR profile_owner_id = ? ORDER BY created_at DESC, id ASC",
		userID, userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying matches")
	}
	matches := make([]dating.Match, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, r.match())
	}
	return matches, nil
}

func (repo datingRepository) CreateMessage(ctx context.Context, msg dating.Message, exec ...core.DBExecutor) (dating.Message, error) {
	var rows []messageRow
	err := query(ctx, repo.getExec(exec), &rows, `
		INSERT INTO dating_messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+messageColumns,
		msg.ID, msg.MatchID, msg.SenderID, msg.Body, msg.SentAt.UTC(),
	)
	if err != nil {
		return dating.Message{}, errors.Wrap(err, "inserting message")
	}
	return rows[0].message(), nil
}

func (repo datingRepository) QueryMessages(ctx context.Context, matchID string, exec ...core.DBExecutor) ([]dating.Message, error) {
	var rows []messageRow
	err := query(ctx, repo.getExec(exec), &rows,
		"SELECT "+messageColumns+" FROM dating_messages WHERE match_id = ? ORDER BY sent_at ASC, id ASC", matchID)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	messages := make([]dating.Message, 0, len(rows))
	for _, r := range rows {
		messages = append(messages, r.message())
	}
	return messages, nil
}

