// Package auth orchestrates the credential lifecycle: login with lockout,
// refresh token rotation, logout, email verification and password
// reset/change. It composes the user repository, the session store and the
// mail service; all session state lives in the session store.
package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"campuskey/internal/config"
	"campuskey/internal/email"
	"campuskey/internal/models"
	"campuskey/internal/repository"
	"campuskey/internal/session"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service provides the authentication flows
type Service struct {
	cfg      *config.Config
	users    repository.UserRepository
	history  repository.LoginHistoryRepository
	sessions *session.Store
	mail     email.EmailSender
}

// NewService creates a new authentication service
func NewService(
	cfg *config.Config,
	users repository.UserRepository,
	history repository.LoginHistoryRepository,
	sessions *session.Store,
	mail email.EmailSender,
) *Service {
	return &Service{
		cfg:      cfg,
		users:    users,
		history:  history,
		sessions: sessions,
		mail:     mail,
	}
}

// Sessions exposes the session store for the request validator middleware
func (s *Service) Sessions() *session.Store {
	return s.sessions
}

// HashPassword hashes a password using bcrypt
func (s *Service) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// ComparePasswords compares a hashed password with a plain text password
func (s *Service) ComparePasswords(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkAccountStatus gates login and refresh on the account state. These
// checks run before password verification and never consume a failed
// attempt.
func checkAccountStatus(user *models.User) error {
	if user.Status == models.StatusPendingVerification || !user.EmailVerified {
		return ErrEmailNotVerified
	}
	if user.Status == models.StatusBlocked {
		return ErrAccountBlocked
	}
	if user.Status == models.StatusInactive {
		return ErrAccountNotActive
	}
	return nil
}

// Login authenticates a user by email and password and issues an access
// and refresh token pair. Failed attempts count toward a per-email lockout;
// a locked email fails immediately without recording another attempt.
func (s *Service) Login(ctx context.Context, rawEmail, password, clientIP string) (*models.LoginResponse, error) {
	userEmail := normalizeEmail(rawEmail)

	locked, err := s.sessions.IsLoginLocked(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, userEmail)
	if errors.Is(err, repository.ErrUserNotFound) {
		// Unknown emails consume an attempt too, so attempt counting
		// cannot be used to probe which accounts exist
		if _, recordErr := s.sessions.RecordFailedAttempt(ctx, userEmail); recordErr != nil {
			return nil, recordErr
		}
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	if err := checkAccountStatus(user); err != nil {
		return nil, err
	}

	if err := s.ComparePasswords(user.PasswordHash, password); err != nil {
		remaining, recordErr := s.sessions.RecordFailedAttempt(ctx, userEmail)
		if recordErr != nil {
			return nil, recordErr
		}
		log.Printf("Login failed for %s, %d attempts remaining", userEmail, remaining)
		s.recordHistory(ctx, user.ID, false, clientIP)
		return nil, ErrUnauthenticated
	}

	if err := s.sessions.ResetFailedAttempts(ctx, userEmail); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.users.UpdateLoginInfo(ctx, user.ID, now, clientIP); err != nil {
		return nil, err
	}
	s.recordHistory(ctx, user.ID, true, clientIP)

	return s.issueTokenPair(ctx, user)
}

// Refresh exchanges a refresh token for a new token pair. The presented
// token is consumed: it is revoked before the replacement is issued and can
// never be reused.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrTokenRequired
	}

	userID, err := s.sessions.ResolveRefreshToken(ctx, refreshToken)
	if errors.Is(err, session.ErrKeyNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}

	// A session must not survive the account being blocked after issuance
	if err := checkAccountStatus(user); err != nil {
		return nil, err
	}

	if err := s.sessions.RevokeRefreshToken(ctx, userID, refreshToken); err != nil {
		return nil, err
	}

	return s.issueTokenPair(ctx, user)
}

// issueTokenPair mints an access token stamped with the user's current
// token version and registers a fresh refresh token.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User) (*models.LoginResponse, error) {
	version, err := s.sessions.GetTokenVersion(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.GenerateAccessToken(user, version)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.sessions.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.Auth.AccessTokenDuration.Seconds()),
	}, nil
}

// Logout revokes the presented refresh token and blacklists the presented
// access token for its remaining lifetime. Missing, expired or malformed
// tokens are not errors: a client must always be able to clear its local
// state. Only store connectivity failures propagate.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if strings.TrimSpace(refreshToken) != "" {
		if err := s.sessions.RevokeRefreshToken(ctx, uuid.Nil, refreshToken); err != nil {
			return err
		}
	}

	if strings.TrimSpace(accessToken) == "" {
		return nil
	}

	claims, err := s.peekAccessToken(accessToken)
	if err != nil {
		log.Printf("Ignoring unparsable access token on logout: %v", err)
		return nil
	}
	return s.blacklistClaims(ctx, claims)
}

// LogoutAll revokes every refresh token of the user and blacklists the
// presented access token, returning how many sessions were terminated.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID, accessToken string) (int, error) {
	count, err := s.sessions.RevokeAllRefreshTokens(ctx, userID)
	if err != nil {
		return 0, err
	}

	if strings.TrimSpace(accessToken) != "" {
		claims, err := s.peekAccessToken(accessToken)
		if err == nil {
			if err := s.blacklistClaims(ctx, claims); err != nil {
				return count, err
			}
		}
	}
	return count, nil
}

func (s *Service) blacklistClaims(ctx context.Context, claims *Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	return s.sessions.BlacklistAccessToken(ctx, claims.ID, remaining)
}

// ForgotPassword issues a password reset token and mails it to the user.
// The request counter is bumped before the user lookup so enumeration
// attempts hit the cooldown too; unknown emails return success without a
// token ever being created.
func (s *Service) ForgotPassword(ctx context.Context, rawEmail string) error {
	userEmail := normalizeEmail(rawEmail)

	count, err := s.sessions.IncrementResetRequestCount(ctx, userEmail, s.cfg.Auth.ResetWindow)
	if err != nil {
		return err
	}
	if count > s.cfg.Auth.ResetMaxRequests {
		return ErrPasswordResetCooldown
	}

	user, err := s.users.GetByEmail(ctx, userEmail)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.sessions.IssueResetToken(ctx, user.ID, s.cfg.Auth.ResetTokenTTL)
	if err != nil {
		return err
	}

	return s.mail.SendPasswordResetEmail(user.Email, user.FullName, token)
}

// ResetPassword completes a password reset. The token is one-time use and
// every existing session of the user is terminated.
func (s *Service) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		return ErrTokenRequired
	}

	userID, err := s.sessions.ResolveResetToken(ctx, token)
	if errors.Is(err, session.ErrKeyNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}

	hash, err := s.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	if err := s.sessions.InvalidateResetToken(ctx, user.ID); err != nil {
		return err
	}

	// A password reset always terminates every existing session
	if _, err := s.sessions.RevokeAllRefreshTokens(ctx, user.ID); err != nil {
		return err
	}
	return nil
}

// ChangePassword updates the caller's password. The token version is always
// bumped, invalidating every previously issued access token including the
// caller's own; when logoutOtherDevices is set the refresh tokens are
// revoked as well and the count is returned.
func (s *Service) ChangePassword(ctx context.Context, user *models.User, currentPassword, newPassword string, logoutOtherDevices bool) (int, error) {
	if err := s.ComparePasswords(user.PasswordHash, currentPassword); err != nil {
		return 0, ErrIncorrectPassword
	}
	if s.ComparePasswords(user.PasswordHash, newPassword) == nil {
		return 0, ErrSamePassword
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return 0, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return 0, err
	}

	if err := s.sessions.IncrementTokenVersion(ctx, user.ID); err != nil {
		return 0, err
	}

	loggedOut := 0
	if logoutOtherDevices {
		loggedOut, err = s.sessions.RevokeAllRefreshTokens(ctx, user.ID)
		if err != nil {
			return 0, err
		}
	}
	return loggedOut, nil
}

// RequestVerification issues a fresh email verification token and mails
// it. Unknown and already-verified emails return success without a token,
// mirroring ForgotPassword's no-leak behavior.
func (s *Service) RequestVerification(ctx context.Context, rawEmail string) error {
	userEmail := normalizeEmail(rawEmail)

	user, err := s.users.GetByEmail(ctx, userEmail)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}

	token, err := s.sessions.IssueVerificationToken(ctx, user.ID, s.cfg.Auth.VerifyTokenTTL)
	if err != nil {
		return err
	}
	return s.mail.SendVerificationEmail(user.Email, user.FullName, token)
}

// VerifyEmail consumes a verification token, marks the account verified
// and activates it if it was pending.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenRequired
	}

	userID, err := s.sessions.ResolveVerificationToken(ctx, token)
	if errors.Is(err, session.ErrKeyNotFound) {
		return ErrInvalidVerificationToken
	}
	if err != nil {
		return err
	}

	if err := s.users.MarkEmailVerified(ctx, userID); err != nil {
		return err
	}
	return s.sessions.InvalidateVerificationToken(ctx, userID)
}

// ValidateAccess rejects access tokens that have been blacklisted or whose
// embedded version has fallen behind the user's current token version. Both
// checks are pure reads; signature and expiry are assumed already verified.
func (s *Service) ValidateAccess(ctx context.Context, claims *Claims) error {
	if claims.ID != "" {
		listed, err := s.sessions.IsAccessTokenBlacklisted(ctx, claims.ID)
		if err != nil {
			return err
		}
		if listed {
			return ErrTokenInvalid
		}
	}

	userID, err := claims.UserID()
	if err != nil {
		return ErrTokenInvalid
	}
	current, err := s.sessions.GetTokenVersion(ctx, userID)
	if err != nil {
		return err
	}
	if claims.Version < current {
		return ErrTokenInvalid
	}
	return nil
}

// recordHistory inserts a login history row; failures are logged, never
// fatal to the flow.
func (s *Service) recordHistory(ctx context.Context, userID uuid.UUID, success bool, ip string) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, userID, success, ip, time.Now()); err != nil {
		log.Printf("Failed to record login history: %v", err)
	}
}
