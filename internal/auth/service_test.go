package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gatehouse/internal/apperror"
	"gatehouse/internal/token"
)

// --- Mock Repository ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn      func(ctx context.Context, user *User) error
	findByIDFn    func(ctx context.Context, id string) (*User, error)
	findByEmailFn func(ctx context.Context, email string) (*User, error)
	emailExistsFn func(ctx context.Context, email string) (bool, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, errNotFound
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, errNotFound
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.emailExistsFn != nil {
		return m.emailExistsFn(ctx, email)
	}
	return false, nil
}

// --- Test Helpers ---

func testCodec() *token.Codec {
	return token.NewCodec("test-secret-for-auth-service-tests", time.Hour)
}

func newTestService(repo *mockUserRepo) Service {
	return NewService(repo, testCodec())
}

// assertErrType checks that err is an *apperror.AppError with the expected
// type code.
func assertErrType(t *testing.T, err error, expectedType string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of type %s, got nil", expectedType)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Type != expectedType {
		t.Errorf("expected type %s, got %s (message: %s)", expectedType, appErr.Type, appErr.Message)
	}
}

// hashPassword produces a bcrypt hash at the minimum cost to keep tests fast.
func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}
	return string(hash)
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			if user.Email != "alice@example.com" {
				t.Errorf("expected lowercased email alice@example.com, got %s", user.Email)
			}
			if user.Name != "Alice" {
				t.Errorf("expected name Alice, got %s", user.Name)
			}
			if user.PasswordHash == "" {
				t.Error("expected password hash to be set")
			}
			if user.PasswordHash == "secure-password-123" {
				t.Error("password stored in plaintext")
			}
			return nil
		},
	}

	svc := newTestService(repo)
	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Alice@Example.com",
		Password: "secure-password-123",
		Name:     "Alice",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.ID == "" {
		t.Error("expected user ID to be generated")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		emailExistsFn: func(ctx context.Context, email string) (bool, error) {
			return true, nil
		},
	}

	svc := newTestService(repo)
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "taken@example.com",
		Password: "secure-password-123",
		Name:     "Taken",
	})
	assertErrType(t, err, apperror.TypeConflict)
}

func TestRegister_DuplicateRaceOnInsert(t *testing.T) {
	// The existence check passed, but a concurrent registration won the
	// insert. The repository's conflict error must reach the caller as-is.
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			return apperror.NewConflict("User with this email already exists")
		},
	}

	svc := newTestService(repo)
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "raced@example.com",
		Password: "secure-password-123",
		Name:     "Raced",
	})
	assertErrType(t, err, apperror.TypeConflict)
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	codec := testCodec()
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{
				ID:           "user-1",
				Email:        "alice@example.com",
				Name:         "Alice",
				PasswordHash: hashPassword(t, "secure-password-123"),
			}, nil
		},
	}

	svc := NewService(repo, codec)
	signed, user, err := svc.Login(context.Background(), LoginInput{
		Email:    "Alice@Example.com",
		Password: "secure-password-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("expected user-1, got %s", user.ID)
	}

	// The issued token must verify and carry the user's identity.
	claims, err := codec.Verify(signed)
	if err != nil {
		t.Fatalf("issued token did not verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("expected token subject user-1, got %s", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("expected token email alice@example.com, got %s", claims.Email)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, _, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	assertErrType(t, err, apperror.TypeUnauthorized)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{
				ID:           "user-1",
				Email:        "alice@example.com",
				PasswordHash: hashPassword(t, "the-real-password"),
			}, nil
		},
	}

	svc := newTestService(repo)
	_, _, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "not-the-password",
	})
	assertErrType(t, err, apperror.TypeUnauthorized)

	// Wrong password and unknown email must be indistinguishable.
	var appErr *apperror.AppError
	errors.As(err, &appErr)
	if appErr.Message != "Invalid email or password" {
		t.Errorf("unexpected message: %s", appErr.Message)
	}
}

// --- Authenticate Tests ---

func TestAuthenticate_Success(t *testing.T) {
	codec := testCodec()
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*User, error) {
			if id != "user-1" {
				t.Errorf("expected lookup of user-1, got %s", id)
			}
			return &User{ID: "user-1", Email: "alice@example.com", Name: "Alice"}, nil
		},
	}

	signed, err := codec.Issue("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	svc := NewService(repo, codec)
	principal, err := svc.Authenticate(context.Background(), "Bearer "+signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if principal.ID != "user-1" || principal.Email != "alice@example.com" || principal.Name != "Alice" {
		t.Errorf("unexpected principal: %+v", principal)
	}
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Authenticate(context.Background(), "")
	assertErrType(t, err, apperror.TypeAuthMissing)
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	cases := []string{
		"Bearer",            // No token.
		"Bearer a b",        // Too many fields.
		"Token abc",         // Wrong scheme.
		"bearer abc",        // Scheme is case-sensitive.
		"Bearer  ",          // Extra separator splits into three fields.
		"just-a-bare-token", // No scheme at all.
	}
	for _, header := range cases {
		_, err := svc.Authenticate(context.Background(), header)
		assertErrType(t, err, apperror.TypeAuthMalformed)
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	expired := token.NewCodec("test-secret-for-auth-service-tests", -time.Minute)
	signed, err := expired.Issue("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	svc := newTestService(&mockUserRepo{})
	_, err = svc.Authenticate(context.Background(), "Bearer "+signed)
	assertErrType(t, err, apperror.TypeAuthExpired)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Authenticate(context.Background(), "Bearer not-a-real-token")
	assertErrType(t, err, apperror.TypeAuthInvalid)
}

func TestAuthenticate_WrongSigningSecret(t *testing.T) {
	other := token.NewCodec("a-completely-different-secret", time.Hour)
	signed, err := other.Issue("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	svc := newTestService(&mockUserRepo{})
	_, err = svc.Authenticate(context.Background(), "Bearer "+signed)
	assertErrType(t, err, apperror.TypeAuthInvalid)
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	// A valid token whose subject was deleted after issuance is locked out.
	codec := testCodec()
	signed, err := codec.Issue("user-gone", "gone@example.com")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	svc := NewService(&mockUserRepo{}, codec)
	_, err = svc.Authenticate(context.Background(), "Bearer "+signed)
	assertErrType(t, err, apperror.TypeAuthPrincipalGone)
}
