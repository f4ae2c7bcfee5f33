package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"campuskey/internal/models"
	"campuskey/internal/repository"

	"github.com/google/uuid"
)

// FakeUserRepository is an in-memory repository.UserRepository for tests
type FakeUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

// NewFakeUserRepository creates an empty in-memory user repository
func NewFakeUserRepository() *FakeUserRepository {
	return &FakeUserRepository{users: make(map[uuid.UUID]*models.User)}
}

var _ repository.UserRepository = (*FakeUserRepository)(nil)

func (r *FakeUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrEmailExists
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *FakeUserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *FakeUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *FakeUserRepository) UpdatePassword(_ context.Context, id uuid.UUID, hashedPassword string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = hashedPassword
	user.UpdatedAt = time.Now()
	return nil
}

func (r *FakeUserRepository) UpdateLoginInfo(_ context.Context, id uuid.UUID, loginAt time.Time, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LastLoginAt = &loginAt
	user.LastLoginIP = &ip
	user.LoginCount++
	user.UpdatedAt = time.Now()
	return nil
}

func (r *FakeUserRepository) MarkEmailVerified(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.EmailVerified = true
	if user.Status == models.StatusPendingVerification {
		user.Status = models.StatusActive
	}
	user.UpdatedAt = time.Now()
	return nil
}

// SetRole overrides the user's role directly
func (r *FakeUserRepository) SetRole(id uuid.UUID, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.users[id]; ok {
		user.Role = role
	}
}

// SetEmailVerified overrides the verification flag directly; MarkEmailVerified
// only ever flips it on.
func (r *FakeUserRepository) SetEmailVerified(id uuid.UUID, verified bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.users[id]; ok {
		user.EmailVerified = verified
	}
}

func (r *FakeUserRepository) UpdateStatus(_ context.Context, id uuid.UUID, status models.UserStatus, banReason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Status = status
	user.BanReason = banReason
	user.UpdatedAt = time.Now()
	return nil
}

// HistoryEntry is one recorded login outcome
type HistoryEntry struct {
	UserID  uuid.UUID
	Success bool
	IP      string
	At      time.Time
}

// FakeLoginHistoryRepository is an in-memory repository.LoginHistoryRepository
type FakeLoginHistoryRepository struct {
	mu      sync.Mutex
	Entries []HistoryEntry
}

// NewFakeLoginHistoryRepository creates an empty in-memory history repository
func NewFakeLoginHistoryRepository() *FakeLoginHistoryRepository {
	return &FakeLoginHistoryRepository{}
}

var _ repository.LoginHistoryRepository = (*FakeLoginHistoryRepository)(nil)

func (r *FakeLoginHistoryRepository) Create(_ context.Context, userID uuid.UUID, success bool, ipAddress string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Entries = append(r.Entries, HistoryEntry{UserID: userID, Success: success, IP: ipAddress, At: at})
	return nil
}

func (r *FakeLoginHistoryRepository) CountRecentFailures(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, e := range r.Entries {
		if e.UserID == userID && !e.Success && e.At.After(since) {
			count++
		}
	}
	return count, nil
}

func (r *FakeLoginHistoryRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.Entries[:0]
	var deleted int64
	for _, e := range r.Entries {
		if e.At.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.Entries = kept
	return deleted, nil
}
