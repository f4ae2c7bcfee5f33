// Package testutil provides utilities for testing
package testutil

import (
	"context"
	"testing"
	"time"

	"campuskey/internal/auth"
	"campuskey/internal/config"
	"campuskey/internal/models"
	"campuskey/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestContext holds common test dependencies wired over in-memory fakes
type TestContext struct {
	T            *testing.T
	Config       *config.Config
	KV           *MemoryKV
	Sessions     *session.Store
	UserRepo     *FakeUserRepository
	HistoryRepo  *FakeLoginHistoryRepository
	EmailService *MockEmailService
	AuthService  *auth.Service
}

// TestConfig returns a configuration suitable for unit tests
func TestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.API.Port = "8080"
	cfg.Auth = config.AuthConfig{
		JWTSecret:            "test-secret",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		MaxFailedAttempts:    5,
		FailWindow:           15 * time.Minute,
		LockDuration:         15 * time.Minute,
		ResetTokenTTL:        15 * time.Minute,
		ResetMaxRequests:     3,
		ResetWindow:          15 * time.Minute,
		VerifyTokenTTL:       24 * time.Hour,
	}
	return cfg
}

// NewTestContext creates a new test context with all dependencies
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := TestConfig()
	kv := NewMemoryKV()
	sessions := session.NewStore(kv, session.Config{
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
		FailWindow:        cfg.Auth.FailWindow,
		LockDuration:      cfg.Auth.LockDuration,
		RefreshLifetime:   cfg.Auth.RefreshTokenDuration,
	})
	userRepo := NewFakeUserRepository()
	historyRepo := NewFakeLoginHistoryRepository()
	emailService := NewMockEmailService()

	return &TestContext{
		T:            t,
		Config:       cfg,
		KV:           kv,
		Sessions:     sessions,
		UserRepo:     userRepo,
		HistoryRepo:  historyRepo,
		EmailService: emailService,
		AuthService:  auth.NewService(cfg, userRepo, historyRepo, sessions, emailService),
	}
}

// CreateTestUser creates an active, verified user with the given credentials
func (tc *TestContext) CreateTestUser(userEmail, password string) *models.User {
	tc.T.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(tc.T, err, "Failed to hash password")

	user := &models.User{
		Email:         userEmail,
		FullName:      "Test User",
		PasswordHash:  string(hash),
		Role:          models.RoleStudent,
		Status:        models.StatusActive,
		EmailVerified: true,
	}
	require.NoError(tc.T, tc.UserRepo.Create(context.Background(), user), "Failed to create test user")
	return user
}

// CreateTestUserWithStatus creates a user in the given lifecycle state
func (tc *TestContext) CreateTestUserWithStatus(userEmail, password string, status models.UserStatus, verified bool) *models.User {
	tc.T.Helper()

	user := tc.CreateTestUser(userEmail, password)
	require.NoError(tc.T, tc.UserRepo.UpdateStatus(context.Background(), user.ID, status, nil))
	tc.UserRepo.SetEmailVerified(user.ID, verified)

	stored, err := tc.UserRepo.GetByID(context.Background(), user.ID)
	require.NoError(tc.T, err)
	return stored
}

// GetTestJWT generates an access token for the user at their current
// token version.
func (tc *TestContext) GetTestJWT(user *models.User) string {
	tc.T.Helper()

	version, err := tc.Sessions.GetTokenVersion(context.Background(), user.ID)
	require.NoError(tc.T, err, "Failed to read token version")

	token, err := tc.AuthService.GenerateAccessToken(user, version)
	require.NoError(tc.T, err, "Failed to generate test JWT")
	return token
}
