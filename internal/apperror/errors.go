// Package apperror defines the closed error taxonomy for the gateway. Every
// failure surfaced to a client is one of these types; raw transport or
// database errors must never cross a component boundary. The Echo error
// handler maps AppErrors to HTTP responses automatically.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Machine-readable error type codes. Clients branch on Type, never on the
// message text.
const (
	TypeValidation    = "validation_error"
	TypeConflict      = "conflict"
	TypeUnauthorized  = "unauthorized"
	TypeRateLimited   = "rate_limit_exceeded"
	TypeUpstreamDown  = "upstream_unavailable"
	TypeInternal      = "internal_error"
	TypePayloadTooBig = "payload_too_large"

	// Bearer-authentication rejections. All map to 401 but carry distinct
	// type codes so callers can tell a stale token from a deleted account.
	TypeAuthMissing       = "auth_missing_token"
	TypeAuthMalformed     = "auth_malformed_header"
	TypeAuthExpired       = "auth_token_expired"
	TypeAuthInvalid       = "auth_token_invalid"
	TypeAuthPrincipalGone = "auth_principal_gone"
)

// AppError is the base error type for all gateway errors. It carries an HTTP
// status code, a machine-readable type, and a message safe to show clients.
type AppError struct {
	// Code is the HTTP status code (e.g., 401, 429, 503).
	Code int `json:"-"`

	// Type is the machine-readable classifier (one of the Type* constants).
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// RetryAfter is set on rate-limit rejections: how long until the
	// current window resets. Zero for all other error types.
	RetryAfter time.Duration `json:"-"`

	// Internal holds the underlying error for logging. Never exposed.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// --- Constructors ---

// NewValidation creates a 400 Bad Request error for malformed or missing input.
func NewValidation(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Type: TypeValidation, Message: message}
}

// NewConflict creates a 409 Conflict error for duplicate resources.
func NewConflict(message string) *AppError {
	return &AppError{Code: http.StatusConflict, Type: TypeConflict, Message: message}
}

// NewUnauthorized creates a generic 401 error (e.g., wrong login credentials).
func NewUnauthorized(message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Type: TypeUnauthorized, Message: message}
}

// NewPayloadTooLarge creates a 413 error for oversized request bodies.
func NewPayloadTooLarge(message string) *AppError {
	return &AppError{Code: http.StatusRequestEntityTooLarge, Type: TypePayloadTooBig, Message: message}
}

// NewRateLimited creates a 429 Too Many Requests error. retryAfter is the
// time remaining in the current window and is surfaced both as a Retry-After
// header and a retryAfter body field.
func NewRateLimited(message string, retryAfter time.Duration) *AppError {
	return &AppError{
		Code:       http.StatusTooManyRequests,
		Type:       TypeRateLimited,
		Message:    message,
		RetryAfter: retryAfter,
	}
}

// NewUpstreamUnavailable creates a 503 error for a downstream dependency that
// produced no HTTP response at all (unreachable, timed out, refused). Distinct
// from a relayed downstream error response, which passes through verbatim.
func NewUpstreamUnavailable(err error) *AppError {
	return &AppError{
		Code:     http.StatusServiceUnavailable,
		Type:     TypeUpstreamDown,
		Message:  "Service unavailable",
		Internal: err,
	}
}

// errMissingContext is the shared internal error for nil precondition checks.
var errMissingContext = errors.New("missing required context")

// NewMissingContext creates a 500 error for handler nil-context guards
// (e.g. principal not set because a middleware was not wired). Provides a
// meaningful Internal error for logging instead of nil.
func NewMissingContext() *AppError {
	return NewInternal(errMissingContext)
}

// NewInternal creates a 500 error. The real cause is kept in Internal for
// logging; the client only ever sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeInternal,
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// --- Bearer-authentication constructors ---

// NewAuthMissing rejects a request with no Authorization header.
func NewAuthMissing() *AppError {
	return &AppError{Code: http.StatusUnauthorized, Type: TypeAuthMissing, Message: "No authorization token provided"}
}

// NewAuthMalformed rejects an Authorization header that is not exactly
// "Bearer <token>".
func NewAuthMalformed() *AppError {
	return &AppError{Code: http.StatusUnauthorized, Type: TypeAuthMalformed, Message: "Invalid token format. Use: Bearer <token>"}
}

// NewAuthExpired rejects a token whose expiry has passed.
func NewAuthExpired() *AppError {
	return &AppError{Code: http.StatusUnauthorized, Type: TypeAuthExpired, Message: "Token has expired"}
}

// NewAuthInvalid rejects a token with a bad signature or malformed payload.
func NewAuthInvalid() *AppError {
	return &AppError{Code: http.StatusUnauthorized, Type: TypeAuthInvalid, Message: "Invalid token"}
}

// NewAuthPrincipalGone rejects a valid token whose subject no longer exists.
// Accounts deleted after token issuance are locked out immediately.
func NewAuthPrincipalGone() *AppError {
	return &AppError{Code: http.StatusUnauthorized, Type: TypeAuthPrincipalGone, Message: "User no longer exists"}
}
