package dating_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/dating"
	"github.com/trezcool/kampus/core/user"
	"github.com/trezcool/kampus/services/logger"
	"github.com/trezcool/kampus/storage/database/inmem"
)

type event struct {
	userID string
	kind   string
	id     string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event

	// when hold is set, NotifyMessage signals started then blocks until hold is closed
	started chan struct{}
	hold    chan struct{}
}

func (n *recordingNotifier) holdMessages() (started, release chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started, n.hold = make(chan struct{}, 1), make(chan struct{})
	return n.started, n.hold
}

func (n *recordingNotifier) NotifyMatch(userID string, m dating.Match) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{userID: userID, kind: "match", id: m.ID})
}

func (n *recordingNotifier) NotifyMessage(userID string, msg dating.Message) {
	n.mu.Lock()
	n.events = append(n.events, event{userID: userID, kind: "message", id: msg.ID})
	started, hold := n.started, n.hold
	n.mu.Unlock()

	if hold != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		<-hold
	}
}

func (n *recordingNotifier) all() []event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]event{}, n.events...)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *recordingMailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
}

type fixture struct {
	svc      *dating.Service
	users    *user.Service
	notifier *recordingNotifier
	mailer   *recordingMailer
}

func setup(t *testing.T, replyDelay time.Duration) fixture {
	conf := core.NewTestConfig()
	conf.Dating.ReplyDelay = replyDelay

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	dating.InitValidators(validate, translator)

	db := inmemdb.Open()
	require.NoError(t, inmemdb.Seed(context.Background(), db))

	f := fixture{
		users:    user.NewService(inmemdb.NewUserRepository(db), validate),
		notifier: &recordingNotifier{},
		mailer:   &recordingMailer{},
	}
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	f.svc = dating.NewService(inmemdb.NewDatingRepository(db), f.users, f.mailer, f.notifier, logger, validate, conf)
	t.Cleanup(f.svc.Close)

	orig := dating.RandFunc
	dating.RandFunc = func() float64 { return 0 }
	t.Cleanup(func() { dating.RandFunc = orig })
	return f
}

func (f fixture) ensureUser(t *testing.T, id, email string) {
	_, err := f.users.EnsureFromIdentity(context.Background(), user.Identity{Subject: id, Name: id, Email: email, Roles: []string{user.RoleStudent}})
	require.NoError(t, err)
}

func TestService_Swipe_notifiesBothUsers(t *testing.T) {
	f := setup(t, 0)
	ctx := context.Background()
	f.ensureUser(t, "stu-1", "")
	f.ensureUser(t, "stu-2", "ravi@kampus.test")

	p, err := f.svc.CreateProfile(ctx, "stu-1", dating.NewProfile{Name: "Asha", Age: 20})
	require.NoError(t, err)

	res, err := f.svc.Swipe(ctx, "stu-2", dating.NewSwipe{ProfileID: p.ID, Action: string(dating.ActionLike)})
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	assert.Equal(t, "stu-1", res.Match.ProfileOwnerID)
	assert.ElementsMatch(t, []event{
		{userID: "stu-2", kind: "match", id: res.Match.ID},
		{userID: "stu-1", kind: "match", id: res.Match.ID},
	}, f.notifier.all())

	// only the swiper is mailed
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "ravi@kampus.test", f.mailer.sent[0].To[0].Address)

	// the profile owner takes part in the match
	matches, err := f.svc.Matches(ctx, "stu-1")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	t.Run("users chat without auto replies", func(t *testing.T) {
		msg, err := f.svc.SendMessage(ctx, "stu-1", res.Match.ID, dating.NewMessage{Body: "hey!"})
		require.NoError(t, err)
		assert.Contains(t, f.notifier.all(), event{userID: "stu-2", kind: "message", id: msg.ID})
		assert.Equal(t, 0, f.svc.PendingReplies())

		msgs, err := f.svc.Messages(ctx, "stu-2", res.Match.ID)
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
	})
}

func TestService_replies(t *testing.T) {
	f := setup(t, time.Hour)
	ctx := context.Background()
	f.ensureUser(t, "stu-1", "")

	deck, err := f.svc.NextProfile(ctx, "stu-1")
	require.NoError(t, err)
	res, err := f.svc.Swipe(ctx, "stu-1", dating.NewSwipe{ProfileID: deck.ID, Action: string(dating.ActionSuperLike)})
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	assert.Empty(t, f.mailer.sent) // no email address

	_, err = f.svc.SendMessage(ctx, "stu-1", res.Match.ID, dating.NewMessage{Body: "hello"})
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, "stu-1", res.Match.ID, dating.NewMessage{Body: "coffee?"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.svc.PendingReplies())

	f.svc.Close()
	assert.Equal(t, 0, f.svc.PendingReplies())

	_, err = f.svc.SendMessage(ctx, "stu-1", res.Match.ID, dating.NewMessage{Body: "anyone?"})
	require.NoError(t, err)
	assert.Equal(t, 0, f.svc.PendingReplies())

	msgs, err := f.svc.Messages(ctx, "stu-1", res.Match.ID)
	require.NoError(t, err)
	for _, m := range msgs {
		assert.Equal(t, "stu-1", m.SenderID)
	}
}

func TestService_NextProfile_skipsMatched(t *testing.T) {
	f := setup(t, 0)
	ctx := context.Background()
	f.ensureUser(t, "stu-1", "")

	seen := make(map[string]bool)
	for {
		p, err := f.svc.NextProfile(ctx, "stu-1")
		if err == dating.ErrDeckEmpty {
			break
		}
		require.NoError(t, err)
		require.False(t, seen[p.ID], "profile %s dealt twice", p.ID)
		seen[p.ID] = true

		_, err = f.svc.Swipe(ctx, "stu-1", dating.NewSwipe{ProfileID: p.ID, Action: string(dating.ActionLike)})
		require.NoError(t, err)
	}
	assert.NotEmpty(t, seen)

	_, err := f.svc.Swipe(ctx, "stu-1", dating.NewSwipe{ProfileID: func() string {
		for id := range seen {
			return id
		}
		return ""
	}(), Action: string(dating.ActionLike)})
	assert.Equal(t, dating.ErrAlreadyMatched, err)
}

func TestService_Close_waitsForRunningReply(t *testing.T) {
	f := setup(t, time.Millisecond)
	ctx := context.Background()
	f.ensureUser(t, "stu-1", "")

	deck, err := f.svc.NextProfile(ctx, "stu-1")
	require.NoError(t, err)
	res, err := f.svc.Swipe(ctx, "stu-1", dating.NewSwipe{ProfileID: deck.ID, Action: string(dating.ActionSuperLike)})
	require.NoError(t, err)
	require.NotNil(t, res.Match)

	started, release := f.notifier.holdMessages()
	_, err = f.svc.SendMessage(ctx, "stu-1", res.Match.ID, dating.NewMessage{Body: "hello"})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("reply never ran")
	}

	closed := make(chan struct{})
	go func() {
		f.svc.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("Close returned while a reply was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the reply finished")
	}

	msgs, err := f.svc.Messages(ctx, "stu-1", res.Match.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}
