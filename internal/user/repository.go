// Package user manages user accounts and their persistence.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User represents a registered user.
type User struct {
	ID          string    `json:"id"`
	Phone       string    `json:"phone"`
	AccountType string    `json:"accountType"`
	FullName    *string   `json:"fullName,omitempty"`
	AvatarKey   *string   `json:"-"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists is returned when a phone number is already registered.
var ErrAlreadyExists = errors.New("user already exists")

const userColumns = `id, phone, account_type, full_name, avatar_key, created_at, updated_at`

// Repository handles all user database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Count returns the number of user records. Errors from the driver are
// returned unwrapped.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Create inserts a new user and returns the created record.
func (r *Repository) Create(ctx context.Context, phone, accountType string) (*User, error) {
	u := &User{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (phone, account_type)
		 VALUES ($1, $2)
		 RETURNING `+userColumns,
		phone, accountType,
	).Scan(&u.ID, &u.Phone, &u.AccountType, &u.FullName, &u.AvatarKey, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetByID fetches a user by their UUID.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "id", id)
}

// GetByPhone fetches a user by their phone number.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (*User, error) {
	return r.getOne(ctx, "phone", phone)
}

// SetAvatar records the media storage key of the user's avatar.
func (r *Repository) SetAvatar(ctx context.Context, id, key string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET avatar_key = $2, updated_at = NOW() WHERE id = $1`,
		id, key,
	)
	if err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// getOne fetches a single user by an indexed column. column is never user input.
func (r *Repository) getOne(ctx context.Context, column, value string) (*User, error) {
	u := &User{}
	err := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`,
		value,
	).Scan(&u.ID, &u.Phone, &u.AccountType, &u.FullName, &u.AvatarKey, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return u, nil
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
