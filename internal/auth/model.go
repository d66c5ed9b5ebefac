// Package auth handles caller identity for the gateway: user registration,
// login with bearer-token issuance, and per-request authentication of the
// Authorization header against the identity store.
package auth

import (
	"regexp"
	"time"
)

// User is a registered account row in the identity store.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the authenticated identity attached to a request. It is
// resolved fresh from the identity store on every authenticated request and
// discarded when the response is written -- a deleted account is locked out
// immediately, with no cache window.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// --- Service input DTOs (passed from handler to service) ---

// RegisterInput is the validated input for creating a new user.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 6

// emailPattern is a light-weight shape check: something@something.something.
// Deliverability is not our problem; this only rejects obvious garbage.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// validEmail reports whether the address passes the shape check.
func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}
