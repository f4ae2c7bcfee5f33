package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginHistoryEntry records one login outcome for a user
type LoginHistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Success   bool      `json:"success"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}
