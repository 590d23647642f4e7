package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// Repository persists user accounts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, name, email, role, is_active, password_hash, failed_attempts, locked_until, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.PasswordHash, &u.FailedAttempts, &u.LockedUntil, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, name, email, passwordHash, role string) (*User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (name, email, role, is_active, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, TRUE, $4, NOW(), NOW()) RETURNING `+userColumns, name, email, role, passwordHash)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("auth: email taken: %w", shared.ErrDuplicate)
		}
		return nil, err
	}
	return user, nil
}

// FindByEmail loads a user including lockout state.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// FindByID loads a user by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// RecordFailedAttempt bumps the failure counter and locks the account once the
// threshold is reached. Returns the updated counter.
func (r *Repository) RecordFailedAttempt(ctx context.Context, id int64, threshold int, lockFor time.Duration) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx, `UPDATE users
SET failed_attempts = failed_attempts + 1,
    locked_until = CASE WHEN failed_attempts + 1 >= $2 THEN NOW() + $3::interval ELSE locked_until END,
    updated_at = NOW()
WHERE id = $1
RETURNING failed_attempts`, id, threshold, lockFor.String()).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("auth: record failed attempt: %w", err)
	}
	return attempts, nil
}

// ResetAttempts clears the failure counter after a successful login.
func (r *Repository) ResetAttempts(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET failed_attempts = 0, locked_until = NULL, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// UpdatePassword replaces the stored password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns all users, newest first.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.PasswordHash, &u.FailedAttempts, &u.LockedUntil, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update applies role/active changes.
func (r *Repository) Update(ctx context.Context, id int64, role *string, isActive *bool) (*User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users
SET role = COALESCE($2, role),
    is_active = COALESCE($3, is_active),
    updated_at = NOW()
WHERE id = $1
RETURNING `+userColumns, id, role, isActive)
	return scanUser(row)
}

// Deactivate soft-disables an account.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
