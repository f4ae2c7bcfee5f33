package postgres

import (
	"context"
	"database/sql"
	"time"

	"campuskey/internal/repository"

	"github.com/google/uuid"
)

type loginHistoryRepository struct {
	db *sql.DB
}

// NewLoginHistoryRepository creates a postgres-backed login history repository
func NewLoginHistoryRepository(db *sql.DB) repository.LoginHistoryRepository {
	return &loginHistoryRepository{db: db}
}

func (r *loginHistoryRepository) Create(ctx context.Context, userID uuid.UUID, success bool, ipAddress string, at time.Time) error {
	query := `
		INSERT INTO login_history (user_id, success, ip_address, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, userID, success, ipAddress, at)
	return err
}

func (r *loginHistoryRepository) CountRecentFailures(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_history
		WHERE user_id = $1 AND success = false AND created_at >= $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&count)
	return count, err
}

func (r *loginHistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM login_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
