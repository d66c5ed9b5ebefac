package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"gatehouse/internal/apperror"
)

// storeTimeout bounds every counter-store round-trip. A slow Redis must not
// stall the whole admission pipeline.
const storeTimeout = 2 * time.Second

// Decision is the outcome of one limiter check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Limit is the policy's max requests per window.
	Limit int64

	// Remaining is how many requests are left in the current window.
	Remaining int64

	// RetryAfter is the time until the current window resets. Set on every
	// decision so callers can populate RateLimit-Reset.
	RetryAfter time.Duration
}

// Limiter decides admit/reject for one policy using fixed-window counters in
// the shared store.
type Limiter struct {
	store  Store
	policy Policy
}

// New creates a limiter for the given policy.
func New(store Store, policy Policy) *Limiter {
	return &Limiter{store: store, policy: policy}
}

// Policy returns the limiter's immutable policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Check records one request for key and decides whether to admit it.
//
// The limiter fails CLOSED: if the counter store is unreachable, the request
// is rejected with a one-window retry hint rather than silently admitted.
// Admission control correctness is worth more than availability here.
func (l *Limiter) Check(ctx context.Context, key string) Decision {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	count, ttl, err := l.store.Increment(ctx, l.policy.KeyPrefix+key, l.policy.Window)
	if err != nil {
		slog.Warn("counter store unavailable, failing closed",
			slog.String("policy", l.policy.Name),
			slog.Any("error", err),
		)
		return Decision{
			Allowed:    false,
			Limit:      l.policy.MaxRequests,
			Remaining:  0,
			RetryAfter: l.policy.Window,
		}
	}

	remaining := l.policy.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:    count <= l.policy.MaxRequests,
		Limit:      l.policy.MaxRequests,
		Remaining:  remaining,
		RetryAfter: ttl,
	}
}

// Refund gives back one slot for key. Called after a successful request under
// a SkipOnSuccess policy. A refund failure only widens the quota error by one
// request, so it is logged and swallowed.
func (l *Limiter) Refund(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := l.store.Decrement(ctx, l.policy.KeyPrefix+key); err != nil {
		slog.Warn("failed to refund rate limit slot",
			slog.String("policy", l.policy.Name),
			slog.Any("error", err),
		)
	}
}

// Middleware returns Echo middleware that applies the limiter keyed by the
// caller's IP. It sets RateLimit-* headers on every response it evaluates and
// rejects over-limit requests with 429 before the next stage runs.
func Middleware(l *Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			dec := l.Check(c.Request().Context(), key)

			h := c.Response().Header()
			h.Set("RateLimit-Limit", strconv.FormatInt(dec.Limit, 10))
			h.Set("RateLimit-Remaining", strconv.FormatInt(dec.Remaining, 10))
			h.Set("RateLimit-Reset", strconv.FormatInt(int64(dec.RetryAfter.Seconds()+0.999), 10))

			if !dec.Allowed {
				return apperror.NewRateLimited(
					"Too many requests, please try again later",
					dec.RetryAfter,
				)
			}

			err := next(c)

			// Refund successful requests under skip-on-success policies so
			// only failures consume quota (e.g. failed login attempts).
			if l.policy.SkipOnSuccess && err == nil && c.Response().Status < 400 {
				l.Refund(c.Request().Context(), key)
			}

			return err
		}
	}
}
