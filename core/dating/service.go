package dating

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

var (
	NowFunc = time.Now // mockable

	replyTimeout = 5 * time.Second

	// errors
	ErrProfileNotFound = core.NewNotFoundError("profile")
	ErrMatchNotFound   = core.NewNotFoundError("match")
	ErrDeckEmpty       = core.NewNotFoundError("profile to show")
	ErrOwnProfile      = core.NewConflictError("own_profile", "cannot swipe on your own profile")
	ErrAlreadyMatched  = core.NewConflictError("already_matched", "already matched with this profile")
	ErrProfileExists   = core.NewConflictError("profile_exists", "you already have a profile")
)

type (
	Repository interface {
		CreateProfile(ctx context.Context, p Profile, exec ...core.DBExecutor) (Profile, error)
		GetProfile(ctx context.Context, id string, exec ...core.DBExecutor) (Profile, error)
		// QueryProfiles lists every profile not owned by excludedOwner.
		QueryProfiles(ctx context.Context, excludedOwner string, exec ...core.DBExecutor) ([]Profile, error)
		CreateSwipe(ctx context.Context, s Swipe, exec ...core.DBExecutor) (Swipe, error)
		CreateMatch(ctx context.Context, m Match, exec ...core.DBExecutor) (Match, error)
		GetMatch(ctx context.Context, id string, exec ...core.DBExecutor) (Match, error)
		// QueryMatches lists the matches userID takes part in, newest first.
		QueryMatches(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Match, error)
		CreateMessage(ctx context.Context, msg Message, exec ...core.DBExecutor) (Message, error)
		QueryMessages(ctx context.Context, matchID string, exec ...core.DBExecutor) ([]Message, error)
	}

	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	// Notifier pushes events to connected users.
	Notifier interface {
		NotifyMatch(userID string, m Match)
		NotifyMessage(userID string, msg Message)
	}

	Service struct {
		repo      Repository
		users     UserFinder
		mailSvc   core.EmailService
		notifier  Notifier
		logger    core.Logger
		validate  *validator.Validate
		matcher   *Matcher
		responder *Responder

		decksMu sync.Mutex
		decks   map[string]*Deck

		replyDelay time.Duration
		timersMu   sync.Mutex
		timers     map[int]*time.Timer
		nextTimer  int
		closed     bool
		replying   sync.WaitGroup
	}
)

func NewService(
	repo Repository,
	users UserFinder,
	mailSvc core.EmailService,
	notifier Notifier,
	logger core.Logger,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		repo:       repo,
		users:      users,
		mailSvc:    mailSvc,
		notifier:   notifier,
		logger:     logger,
		validate:   validate,
		matcher:    NewMatcher(conf.Dating.LikeProbability, conf.Dating.SuperLikeProbability, nil),
		responder:  NewResponder(),
		decks:      make(map[string]*Deck),
		replyDelay: conf.Dating.ReplyDelay,
		timers:     make(map[int]*time.Timer),
	}
}

func (svc *Service) Matcher() *Matcher { return svc.matcher }

// CreateProfile gives the user a profile others can swipe on.
func (svc *Service) CreateProfile(ctx context.Context, ownerID string, np NewProfile) (Profile, error) {
	if err := np.Validate(svc.validate); err != nil {
		return Profile{}, err
	}
	profiles, err := svc.repo.QueryProfiles(ctx, "")
	if err != nil {
		return Profile{}, errors.Wrap(err, "querying profiles")
	}
	for _, p := range profiles {
		if p.OwnerID == ownerID {
			return Profile{}, ErrProfileExists
		}
	}
	p := Profile{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      np.Name,
		Age:       np.Age,
		Images:    nonNil(np.Images),
		Interests: nonNil(np.Interests),
		Bio:       np.Bio,
		CreatedAt: NowFunc().UTC(),
	}
	return svc.repo.CreateProfile(ctx, p)
}

// candidates lists the profiles userID may be shown: not their own and not yet matched.
func (svc *Service) candidates(ctx context.Context, userID string) (map[string]Profile, []string, error) {
	profiles, err := svc.repo.QueryProfiles(ctx, userID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying profiles")
	}
	matches, err := svc.repo.QueryMatches(ctx, userID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying matches")
	}
	matched := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if m.UserID == userID {
			matched[m.ProfileID] = struct{}{}
		}
	}

	byID := make(map[string]Profile, len(profiles))
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if _, ok := matched[p.ID]; !ok {
			byID[p.ID] = p
			ids = append(ids, p.ID)
		}
	}
	return byID, ids, nil
}

// NextProfile returns the profile on top of the user's deck without advancing it.
func (svc *Service) NextProfile(ctx context.Context, userID string) (Profile, error) {
	byID, ids, err := svc.candidates(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	svc.decksMu.Lock()
	defer svc.decksMu.Unlock()
	deck, ok := svc.decks[userID]
	if !ok {
		deck = NewDeck(ids)
		svc.decks[userID] = deck
	}
	id, ok := deck.Peek(ids)
	if !ok {
		return Profile{}, ErrDeckEmpty
	}
	return byID[id], nil
}

func (svc *Service) advanceDeck(userID, profileID string) {
	svc.decksMu.Lock()
	defer svc.decksMu.Unlock()
	if deck, ok := svc.decks[userID]; ok {
		deck.Advance(profileID)
	}
}

// Swipe records the user's action on a profile. Likes and super-likes may end in a match,
// which opens a conversation.
func (svc *Service) Swipe(ctx context.Context, userID string, ns NewSwipe) (SwipeResult, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return SwipeResult{}, err
	}
	p, err := svc.repo.GetProfile(ctx, ns.ProfileID)
	if err != nil {
		return SwipeResult{}, err
	}
	if p.OwnerID == userID {
		return SwipeResult{}, ErrOwnProfile
	}
	matches, err := svc.repo.QueryMatches(ctx, userID)
	if err != nil {
		return SwipeResult{}, errors.Wrap(err, "querying matches")
	}
	for _, m := range matches {
		if m.UserID == userID && m.ProfileID == p.ID {
			return SwipeResult{}, ErrAlreadyMatched
		}
	}

	action := Action(ns.Action)
	now := NowFunc().UTC()
	swipe, err := svc.repo.CreateSwipe(ctx, Swipe{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProfileID: p.ID,
		Action:    action,
		Matched:   svc.matcher.Decide(action),
		CreatedAt: now,
	})
	if err != nil {
		return SwipeResult{}, errors.Wrap(err, "creating swipe")
	}
	svc.advanceDeck(userID, p.ID)

	res := SwipeResult{Swipe: swipe}
	if !swipe.Matched {
		return res, nil
	}

	m, err := svc.repo.CreateMatch(ctx, Match{
		ID:             uuid.New().String(),
		UserID:         userID,
		ProfileID:      p.ID,
		ProfileOwnerID: p.OwnerID,
		ProfileName:    p.Name,
		CreatedAt:      now,
	})
	if err != nil {
		return SwipeResult{}, errors.Wrap(err, "creating match")
	}
	res.Match = &m

	svc.notifier.NotifyMatch(userID, m)
	if p.OwnerID != "" {
		svc.notifier.NotifyMatch(p.OwnerID, m)
	}
	svc.mailMatch(ctx, userID, m)
	return res, nil
}

type matchMailData struct {
	Name        string
	ProfileName string
	MatchID     string
}

func (svc *Service) mailMatch(ctx context.Context, userID string, m Match) {
	usr, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("finding matched user: %v", err), core.LogFields{"user_id": userID, "match_id": m.ID})
		return
	}
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:       []mail.Address{usr.MailAddress()},
		Subject:  "It's a match!",
		Template: core.TemplateMatch,
		Data:     matchMailData{Name: usr.Name, ProfileName: m.ProfileName, MatchID: m.ID},
	})
}

func (svc *Service) Matches(ctx context.Context, userID string) ([]Match, error) {
	return svc.repo.QueryMatches(ctx, userID)
}

func (svc *Service) getMatch(ctx context.Context, userID, matchID string) (Match, error) {
	m, err := svc.repo.GetMatch(ctx, matchID)
	if err != nil {
		return Match{}, err
	}
	if !m.HasParticipant(userID) {
		return Match{}, ErrMatchNotFound
	}
	return m, nil
}

func (svc *Service) Messages(ctx context.Context, userID, matchID string) ([]Message, error) {
	if _, err := svc.getMatch(ctx, userID, matchID); err != nil {
		return nil, err
	}
	return svc.repo.QueryMessages(ctx, matchID)
}

// SendMessage posts to the match conversation. Seeded profiles answer after the reply delay.
func (svc *Service) SendMessage(ctx context.Context, userID, matchID string, nm NewMessage) (Message, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return Message{}, err
	}
	m, err := svc.getMatch(ctx, userID, matchID)
	if err != nil {
		return Message{}, err
	}
	msg, err := svc.repo.CreateMessage(ctx, Message{
		ID:       uuid.New().String(),
		MatchID:  m.ID,
		SenderID: userID,
		Body:     nm.Body,
		SentAt:   NowFunc().UTC(),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}

	if recipient := m.Recipient(userID); recipient != "" {
		svc.notifier.NotifyMessage(recipient, msg)
	} else {
		svc.scheduleReply(m, msg.Body)
	}
	return msg, nil
}

func (svc *Service) scheduleReply(m Match, body string) {
	svc.timersMu.Lock()
	defer svc.timersMu.Unlock()
	if svc.closed {
		return
	}
	id := svc.nextTimer
	svc.nextTimer++
	svc.timers[id] = time.AfterFunc(svc.replyDelay, func() {
		svc.timersMu.Lock()
		_, pending := svc.timers[id]
		delete(svc.timers, id)
		if pending {
			svc.replying.Add(1)
		}
		svc.timersMu.Unlock()
		if pending {
			defer svc.replying.Done()
			svc.reply(m, body)
		}
	})
}

func (svc *Service) reply(m Match, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	msg, err := svc.repo.CreateMessage(ctx, Message{
		ID:       uuid.New().String(),
		MatchID:  m.ID,
		SenderID: m.ProfileID,
		Body:     svc.responder.Reply(body),
		SentAt:   NowFunc().UTC(),
	})
	if err != nil {
		svc.logger.Error("creating reply", err, core.LogFields{"match_id": m.ID})
		return
	}
	svc.notifier.NotifyMessage(m.UserID, msg)
}

// PendingReplies is the number of replies still waiting on their timer.
func (svc *Service) PendingReplies() int {
	svc.timersMu.Lock()
	defer svc.timersMu.Unlock()
	return len(svc.timers)
}

// Close cancels the pending replies and waits for the ones already running.
// No reply is scheduled afterwards.
func (svc *Service) Close() {
	svc.timersMu.Lock()
	svc.closed = true
	for id, t := range svc.timers {
		t.Stop()
		delete(svc.timers, id)
	}
	svc.timersMu.Unlock()
	svc.replying.Wait()
}

type nopNotifier struct{}

func (nopNotifier) NotifyMatch(string, Match)     {}
func (nopNotifier) NotifyMessage(string, Message) {}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
