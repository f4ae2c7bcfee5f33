// Package repository defines the persistence interfaces for permanent
// records. Session state does not live here; it belongs to the session
// store.
package repository

import (
	"context"
	"time"

	"campuskey/internal/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user record operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error
	UpdateLoginInfo(ctx context.Context, id uuid.UUID, loginAt time.Time, ip string) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus, banReason *string) error
}
