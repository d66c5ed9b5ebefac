package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatehouse/internal/apperror"
)

// slowCheckoutThreshold is how long a connection may be checked out before
// we log it as a pool-exhaustion warning. The operation itself is allowed to
// proceed; the log is a diagnostic signal, not a limit.
const slowCheckoutThreshold = 5 * time.Second

// pgUniqueViolation is the PostgreSQL error code for a unique constraint hit.
const pgUniqueViolation = "23505"

// UserRepository defines the data access contract for user records.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// userRepository implements UserRepository with hand-written PostgreSQL
// queries over a pgx pool.
type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a user repository backed by the given pool.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// acquire checks a connection out of the pool with a slow-checkout watchdog.
// The returned release function must be called on every exit path; it stops
// the watchdog and returns the connection.
func (r *userRepository) acquire(ctx context.Context, op string) (*pgxpool.Conn, func(), error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquiring connection: %w", err)
	}

	watchdog := time.AfterFunc(slowCheckoutThreshold, func() {
		slog.Warn("database connection checked out for more than 5 seconds",
			slog.String("operation", op),
		)
	})

	release := func() {
		watchdog.Stop()
		conn.Release()
	}
	return conn, release, nil
}

// Create inserts a new user row. A unique-constraint race on email maps to a
// conflict error, same as the pre-insert existence check.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	conn, release, err := r.acquire(ctx, "create user")
	if err != nil {
		return err
	}
	defer release()

	query := `INSERT INTO users (id, email, name, password_hash, created_at)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err = conn.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperror.NewConflict("User with this email already exists")
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by ID. Returns a not-found AppError if no user
// exists -- the caller decides whether that means 404 or a revoked principal.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	conn, release, err := r.acquire(ctx, "find user by id")
	if err != nil {
		return nil, err
	}
	defer release()

	query := `SELECT id, email, name, password_hash, created_at
	          FROM users WHERE id = $1`

	user := &User{}
	err = conn.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}

	return user, nil
}

// FindByEmail retrieves a user by email address.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	conn, release, err := r.acquire(ctx, "find user by email")
	if err != nil {
		return nil, err
	}
	defer release()

	query := `SELECT id, email, name, password_hash, created_at
	          FROM users WHERE email = $1`

	user := &User{}
	err = conn.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}

	return user, nil
}

// EmailExists returns true if a user with the given email already exists.
// Used during registration to reject duplicates before hashing the password.
func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	conn, release, err := r.acquire(ctx, "check email exists")
	if err != nil {
		return false, err
	}
	defer release()

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := conn.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}

	return exists, nil
}

// errNotFound is the repository-level miss sentinel. The service maps it to
// the right client-facing error for each call site.
var errNotFound = errors.New("user not found")
