package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LoginHistoryRepository records login outcomes for auditing
type LoginHistoryRepository interface {
	Create(ctx context.Context, userID uuid.UUID, success bool, ipAddress string, at time.Time) error
	CountRecentFailures(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
