// Package cache stores user preferences in Redis, or in memory when Redis is not configured.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/prefs"
)

const prefsKeyPrefix = "kampus:prefs:"

var opTimeout = 2 * time.Second

type RedisPrefsStore struct {
	client redis.UniversalClient
}

var _ prefs.Store = (*RedisPrefsStore)(nil) // interface compliance check

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewRedisPrefsStore(client redis.UniversalClient) *RedisPrefsStore {
	return &RedisPrefsStore{client: client}
}

func (s *RedisPrefsStore) Get(ctx context.Context, userID string) (prefs.Preferences, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, prefsKeyPrefix+userID).Bytes()
	if err == redis.Nil {
		return prefs.Preferences{}, false, nil
	}
	if err != nil {
		return prefs.Preferences{}, false, errors.Wrap(err, "reading preferences")
	}
	p, err := prefs.Decode(data)
	if err != nil {
		return prefs.Preferences{}, false, errors.Wrap(err, "decoding preferences")
	}
	return p, true, nil
}

func (s *RedisPrefsStore) Set(ctx context.Context, userID string, p prefs.Preferences) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := p.Encode()
	if err != nil {
		return errors.Wrap(err, "encoding preferences")
	}
	return errors.Wrap(s.client.Set(ctx, prefsKeyPrefix+userID, data, 0).Err(), "writing preferences")
}

// MemoryPrefsStore keeps the encoded preferences in a map.
type MemoryPrefsStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ prefs.Store = (*MemoryPrefsStore)(nil) // interface compliance check

func NewMemoryPrefsStore() *MemoryPrefsStore {
	return &MemoryPrefsStore{data: make(map[string][]byte)}
}

func (s *MemoryPrefsStore) Get(_ context.Context, userID string) (prefs.Preferences, bool, error) {
	s.mu.RLock()
	data, ok := s.data[userID]
	s.mu.RUnlock()
	if !ok {
		return prefs.Preferences{}, false, nil
	}
	p, err := prefs.Decode(data)
	if err != nil {
		return prefs.Preferences{}, false, errors.Wrap(err, "decoding preferences")
	}
	return p, true, nil
}

func (s *MemoryPrefsStore) Set(_ context.Context, userID string, p prefs.Preferences) error {
	data, err := p.Encode()
	if err != nil {
		return errors.Wrap(err, "encoding preferences")
	}
	s.mu.Lock()
	s.data[userID] = data
	s.mu.Unlock()
	return nil
}

// NewPrefsStore picks Redis when it is configured and reachable.
func NewPrefsStore(ctx context.Context, conf *core.Config, logger core.Logger) (prefs.Store, func() error) {
	if conf.Redis.Addr == "" {
		return NewMemoryPrefsStore(), func() error { return nil }
	}
	client := NewRedisClient(conf)
	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, preferences are kept in memory", err)
		_ = client.Close()
		return NewMemoryPrefsStore(), func() error { return nil }
	}
	return NewRedisPrefsStore(client), client.Close
}
