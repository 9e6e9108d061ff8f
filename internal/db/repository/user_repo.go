package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillgauge/assessment-platform/internal/auth"
)

// UserRepository persists accounts in Postgres.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new account and returns the stored row.
func (r *UserRepository) Create(ctx context.Context, params auth.CreateUserParams) (*auth.User, error) {
	const query = `
		INSERT INTO users (email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id, email, password_hash, display_name, role, created_at, last_login_at`

	var user auth.User
	err := r.pool.QueryRow(ctx, query,
		params.Email, params.PasswordHash, params.DisplayName, params.Role,
	).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName,
		&user.Role, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &user, nil
}

// GetByEmail fetches an account by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	const query = `
		SELECT user_id, email, password_hash, display_name, role, created_at, last_login_at
		FROM users
		WHERE email = $1`

	var user auth.User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName,
		&user.Role, &user.CreatedAt, &user.LastLoginAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

// GetByID fetches an account by ID.
func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*auth.User, error) {
	const query = `
		SELECT user_id, email, password_hash, display_name, role, created_at, last_login_at
		FROM users
		WHERE user_id = $1`

	var user auth.User
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName,
		&user.Role, &user.CreatedAt, &user.LastLoginAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

// UpdateLastLogin stamps the account's last login time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	const query = `UPDATE users SET last_login_at = now() WHERE user_id = $1`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
