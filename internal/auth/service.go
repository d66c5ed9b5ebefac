package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gatehouse/internal/apperror"
	"gatehouse/internal/sanitize"
	"gatehouse/internal/token"
)

// bcryptCost matches the work factor the identity store's existing hashes
// were created with.
const bcryptCost = 10

// identityTimeout bounds every identity-store round-trip made on the hot
// authentication path.
const identityTimeout = 3 * time.Second

// Service defines the business logic contract for identity. Handlers and
// middleware call these methods -- they never touch the repository directly.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, input LoginInput) (signed string, user *User, err error)
	Authenticate(ctx context.Context, authorizationHeader string) (*Principal, error)
}

// service implements Service with bcrypt hashing and signed bearer tokens.
type service struct {
	repo  UserRepository
	codec *token.Codec
}

// NewService creates an identity service with the given dependencies.
func NewService(repo UserRepository, codec *token.Codec) Service {
	return &service{repo: repo, codec: codec}
}

// Register creates a new user account. It checks uniqueness, hashes the
// password with bcrypt, assigns a UUID, and persists the user.
func (s *service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Check the email before doing expensive hashing. The insert still maps
	// a unique violation to a conflict, so a race here loses nothing.
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("User with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         sanitize.Text(input.Name),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login authenticates a user by email and password. On success it issues a
// signed bearer token carrying the user's id and email.
func (s *service) Login(ctx context.Context, input LoginInput) (string, *User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		// Don't reveal whether the email exists -- same message either way.
		if errors.Is(err, errNotFound) {
			return "", nil, apperror.NewUnauthorized("Invalid email or password")
		}
		return "", nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return "", nil, apperror.NewUnauthorized("Invalid email or password")
	}

	signed, err := s.codec.Issue(user.ID, user.Email)
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("issuing token: %w", err))
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return signed, user, nil
}

// Authenticate turns a raw Authorization header value into a verified
// Principal, or a typed 401 rejection. Every failure is terminal for the
// request; there are no retries.
//
// The identity lookup happens on every call: a token alone is never enough,
// the subject must still exist in the identity store right now.
func (s *service) Authenticate(ctx context.Context, authorizationHeader string) (*Principal, error) {
	if authorizationHeader == "" {
		return nil, apperror.NewAuthMissing()
	}

	// Exactly two space-separated fields with a literal "Bearer" scheme.
	parts := strings.Split(authorizationHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, apperror.NewAuthMalformed()
	}

	claims, err := s.codec.Verify(parts[1])
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, apperror.NewAuthExpired()
		}
		return nil, apperror.NewAuthInvalid()
	}

	ctx, cancel := context.WithTimeout(ctx, identityTimeout)
	defer cancel()

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, apperror.NewAuthPrincipalGone()
		}
		return nil, apperror.NewInternal(fmt.Errorf("resolving principal: %w", err))
	}

	return &Principal{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}, nil
}
