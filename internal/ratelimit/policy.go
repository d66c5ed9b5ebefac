// Package ratelimit implements distributed fixed-window rate limiting backed
// by a shared Redis counter store. Counters are only ever mutated through a
// single atomic increment operation, so the limits hold across any number of
// gateway instances without local state.
package ratelimit

import "time"

// Policy is the static configuration for one named limiter. Policies are
// built at startup and never mutated afterwards.
type Policy struct {
	// Name identifies the policy in logs.
	Name string

	// KeyPrefix namespaces this policy's counters in the store.
	KeyPrefix string

	// Window is the fixed window length. A counter's TTL equals the window,
	// so a new window starts exactly when the previous key expires.
	Window time.Duration

	// MaxRequests is the number of requests admitted per window per key.
	MaxRequests int64

	// SkipOnSuccess refunds the counter after the wrapped handler completes
	// with a successful status. Used on the auth policy so only failed login
	// attempts count against the quota.
	SkipOnSuccess bool
}

// GeneralPolicy limits every route: 100 requests per 15 minutes per client.
func GeneralPolicy() Policy {
	return Policy{
		Name:        "general",
		KeyPrefix:   "rl:general:",
		Window:      15 * time.Minute,
		MaxRequests: 100,
	}
}

// AuthPolicy limits login and registration: 5 attempts per 15 minutes per
// client, with successful logins refunded.
func AuthPolicy() Policy {
	return Policy{
		Name:          "auth",
		KeyPrefix:     "rl:auth:",
		Window:        15 * time.Minute,
		MaxRequests:   5,
		SkipOnSuccess: true,
	}
}

// UploadPolicy limits file submission: 10 uploads per hour per client.
func UploadPolicy() Policy {
	return Policy{
		Name:        "upload",
		KeyPrefix:   "rl:upload:",
		Window:      time.Hour,
		MaxRequests: 10,
	}
}
