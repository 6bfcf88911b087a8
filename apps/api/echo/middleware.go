package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// staffMiddleware only lets faculty and admins through.
func staffMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if usr.IsStaff() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

type (
	limitedUser struct {
		lim  *rate.Limiter
		seen time.Time
	}

	// userRateLimiter keeps one token bucket per user.
	userRateLimiter struct {
		mu    sync.Mutex
		users map[string]*limitedUser
		r     rate.Limit
		burst int
		ttl   time.Duration
	}
)

func newUserRateLimiter(perMinute float64, burst int) *userRateLimiter {
	return &userRateLimiter{
		users: make(map[string]*limitedUser),
		r:     rate.Limit(perMinute / 60),
		burst: burst,
		ttl:   3 * time.Minute,
	}
}

func (rl *userRateLimiter) get(userID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if u, ok := rl.users[userID]; ok {
		u.seen = now
		return u.lim
	}
	// drop idle buckets while we hold the lock
	for id, u := range rl.users {
		if now.Sub(u.seen) > rl.ttl {
			delete(rl.users, id)
		}
	}
	lim := rate.NewLimiter(rl.r, rl.burst)
	rl.users[userID] = &limitedUser{lim: lim, seen: now}
	return lim
}

// middleware must run after authentication.
func (rl *userRateLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if !rl.get(usr.ID).Allow() {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
