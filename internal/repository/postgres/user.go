// Package postgres implements the repository interfaces over PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"time"

	"campuskey/internal/models"
	"campuskey/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a postgres-backed user repository
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, full_name, password_hash, role, status, email_verified,
	ban_reason, last_login_at, last_login_ip, login_count, created_at, updated_at`

func (r *userRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.EmailVerified,
		&user.BanReason,
		&user.LastLoginAt,
		&user.LastLoginIP,
		&user.LoginCount,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, full_name, password_hash, role, status, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.EmailVerified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return repository.ErrEmailExists
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	query := `
		UPDATE users
		SET password_hash = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, hashedPassword, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func (r *userRepository) UpdateLoginInfo(ctx context.Context, id uuid.UUID, loginAt time.Time, ip string) error {
	query := `
		UPDATE users
		SET last_login_at = $1, last_login_ip = $2, login_count = login_count + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, loginAt, ip, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET email_verified = true,
		    status = CASE WHEN status = $1 THEN $2 ELSE status END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, models.StatusPendingVerification, models.StatusActive, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus, banReason *string) error {
	query := `
		UPDATE users
		SET status = $1, ban_reason = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, status, banReason, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}
