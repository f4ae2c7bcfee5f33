package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key namespaces. Callers outside this package never build these keys
// directly; every access goes through a Store operation.
const (
	failKeyPrefix         = "auth:login:fail:"
	lockKeyPrefix         = "auth:login:lock:"
	refreshKeyPrefix      = "auth:refresh:"
	refreshIndexKeyPrefix = "auth:refresh:index:"
	blacklistKeyPrefix    = "auth:blacklist:"
	resetCountKeyPrefix   = "auth:reset:count:"
	resetTokenKeyPrefix   = "auth:reset:token:"
	resetUserKeyPrefix    = "auth:reset:user:"
	verifyTokenKeyPrefix  = "auth:verify:token:"
	verifyUserKeyPrefix   = "auth:verify:user:"
	versionKeyPrefix      = "auth:version:"
)

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

// Config holds the lockout and lifetime settings for the session store
type Config struct {
	MaxFailedAttempts int
	FailWindow        time.Duration
	LockDuration      time.Duration
	RefreshLifetime   time.Duration
}

// Store wraps the key-value store with the session lifecycle operations.
// It holds no mutable state of its own, so a single instance is shared by
// all request handlers across any number of backend instances.
type Store struct {
	kv  KV
	cfg Config
	now func() time.Time
}

// NewStore creates a session store over the given key-value client
func NewStore(kv KV, cfg Config) *Store {
	return &Store{kv: kv, cfg: cfg, now: time.Now}
}

// normalizeEmail trims and lower-cases an email before key construction
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLoginLocked reports whether the email is currently locked out
func (s *Store) IsLoginLocked(ctx context.Context, email string) (bool, error) {
	return s.kv.Exists(ctx, lockKeyPrefix+normalizeEmail(email))
}

// RecordFailedAttempt increments the failed-login counter for the email and
// returns the number of attempts remaining before lockout. The counter's
// window starts on the increment that creates it. Reaching the maximum
// replaces the counter with a lock for the configured duration.
//
// Two concurrent first increments may both observe count 1 and both set the
// TTL; that is idempotent and tolerated rather than paying for a
// transaction.
func (s *Store) RecordFailedAttempt(ctx context.Context, email string) (int, error) {
	normalized := normalizeEmail(email)
	failKey := failKeyPrefix + normalized

	count, err := s.kv.Increment(ctx, failKey)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.kv.Expire(ctx, failKey, s.cfg.FailWindow); err != nil {
			return 0, err
		}
	}

	remaining := s.cfg.MaxFailedAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if int(count) >= s.cfg.MaxFailedAttempts {
		if err := s.kv.Set(ctx, lockKeyPrefix+normalized, "1", s.cfg.LockDuration); err != nil {
			return 0, err
		}
		if err := s.kv.Delete(ctx, failKey); err != nil {
			return 0, err
		}
		return 0, nil
	}

	return remaining, nil
}

// ResetFailedAttempts clears the failed-login counter and any lock for the
// email. Idempotent.
func (s *Store) ResetFailedAttempts(ctx context.Context, email string) error {
	normalized := normalizeEmail(email)
	return s.kv.Delete(ctx, failKeyPrefix+normalized, lockKeyPrefix+normalized)
}

// IssueRefreshToken creates a fresh opaque refresh token for the user,
// records the token-to-user mapping with the refresh lifetime, and adds the
// token to the user's reverse index with its expiry timestamp as the sort
// score. Expired index members are swept on every issuance; an index entry
// may outlive its forward record until then, never the other way around.
func (s *Store) IssueRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := generateOpaqueToken()
	if err != nil {
		return "", err
	}

	expiresAt := s.now().Add(s.cfg.RefreshLifetime)
	if err := s.kv.Set(ctx, refreshKeyPrefix+token, userID.String(), s.cfg.RefreshLifetime); err != nil {
		return "", err
	}

	indexKey := refreshIndexKeyPrefix + userID.String()
	if err := s.kv.SortedSetAdd(ctx, indexKey, token, float64(expiresAt.Unix())); err != nil {
		return "", err
	}
	if err := s.sweepRefreshIndex(ctx, indexKey); err != nil {
		return "", err
	}

	return token, nil
}

// ResolveRefreshToken returns the user id a refresh token was issued to, or
// ErrKeyNotFound if the token is unknown or expired. No side effects.
func (s *Store) ResolveRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := s.kv.Get(ctx, refreshKeyPrefix+token)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}
	return userID, nil
}

// RevokeRefreshToken deletes a single refresh token and its index entry.
// The owning user is resolved from the forward record when not supplied.
// Unknown or already-expired tokens are a no-op.
func (s *Store) RevokeRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	if userID == uuid.Nil {
		resolved, err := s.ResolveRefreshToken(ctx, token)
		if errors.Is(err, ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		userID = resolved
	}

	if err := s.kv.Delete(ctx, refreshKeyPrefix+token); err != nil {
		return err
	}

	indexKey := refreshIndexKeyPrefix + userID.String()
	if err := s.kv.SortedSetRemove(ctx, indexKey, token); err != nil {
		return err
	}
	return s.sweepRefreshIndex(ctx, indexKey)
}

// RevokeAllRefreshTokens deletes every refresh token issued to the user and
// the reverse index itself, returning how many live records were removed.
// Expired index members are swept before counting so stale entries never
// inflate the result. The read-then-delete is not atomic as a whole: a token
// issued concurrently may or may not survive, which callers must tolerate.
func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) (int, error) {
	indexKey := refreshIndexKeyPrefix + userID.String()
	now := float64(s.now().Unix())
	if err := s.kv.SortedSetRemoveByScoreRange(ctx, indexKey, negInf, now); err != nil {
		return 0, err
	}

	tokens, err := s.kv.SortedSetRange(ctx, indexKey, negInf, posInf)
	if err != nil {
		return 0, err
	}

	revoked := 0
	for _, token := range tokens {
		if err := s.kv.Delete(ctx, refreshKeyPrefix+token); err != nil {
			return revoked, err
		}
		revoked++
	}

	if err := s.kv.Delete(ctx, indexKey); err != nil {
		return revoked, err
	}
	return revoked, nil
}

// sweepRefreshIndex removes index members whose expiry score has passed and
// drops the index key once it is empty, so rotations cannot leak stale
// entries indefinitely.
func (s *Store) sweepRefreshIndex(ctx context.Context, indexKey string) error {
	now := float64(s.now().Unix())
	if err := s.kv.SortedSetRemoveByScoreRange(ctx, indexKey, negInf, now); err != nil {
		return err
	}
	n, err := s.kv.SortedSetCardinality(ctx, indexKey)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.kv.Delete(ctx, indexKey)
	}
	return nil
}

// BlacklistAccessToken marks an access token id as revoked for its
// remaining lifetime. A non-positive TTL means the token has already
// expired and nothing needs recording.
func (s *Store) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.kv.Set(ctx, blacklistKeyPrefix+tokenID, "1", ttl)
}

// IsAccessTokenBlacklisted reports whether the token id has been revoked
func (s *Store) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	return s.kv.Exists(ctx, blacklistKeyPrefix+tokenID)
}

// IncrementResetRequestCount bumps the password-reset request counter for
// the email inside a rolling window and returns the new count.
func (s *Store) IncrementResetRequestCount(ctx context.Context, email string, window time.Duration) (int, error) {
	key := resetCountKeyPrefix + normalizeEmail(email)
	count, err := s.kv.Increment(ctx, key)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.kv.Expire(ctx, key, window); err != nil {
			return 0, err
		}
	}
	return int(count), nil
}

// IssueResetToken creates a one-time password-reset token for the user.
// Any previous reset token for the same user is invalidated first: at most
// one reset token is live per user.
func (s *Store) IssueResetToken(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, error) {
	if err := s.InvalidateResetToken(ctx, userID); err != nil {
		return "", err
	}

	token, err := generateOpaqueToken()
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, resetTokenKeyPrefix+token, userID.String(), ttl); err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, resetUserKeyPrefix+userID.String(), token, ttl); err != nil {
		return "", err
	}
	return token, nil
}

// InvalidateResetToken deletes the user's current reset token in both
// directions. Idempotent when no token is live.
func (s *Store) InvalidateResetToken(ctx context.Context, userID uuid.UUID) error {
	userKey := resetUserKeyPrefix + userID.String()
	token, err := s.kv.Get(ctx, userKey)
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.kv.Delete(ctx, resetTokenKeyPrefix+token, userKey)
}

// ResolveResetToken returns the user id a reset token belongs to, or
// ErrKeyNotFound if it is unknown, consumed, or expired.
func (s *Store) ResolveResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := s.kv.Get(ctx, resetTokenKeyPrefix+token)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt reset token record: %w", err)
	}
	return userID, nil
}

// IssueVerificationToken creates an email-verification token for the user,
// replacing any previous one. Same dual-mapping shape as reset tokens.
func (s *Store) IssueVerificationToken(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, error) {
	if err := s.InvalidateVerificationToken(ctx, userID); err != nil {
		return "", err
	}

	token, err := generateOpaqueToken()
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, verifyTokenKeyPrefix+token, userID.String(), ttl); err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, verifyUserKeyPrefix+userID.String(), token, ttl); err != nil {
		return "", err
	}
	return token, nil
}

// InvalidateVerificationToken deletes the user's current verification token
func (s *Store) InvalidateVerificationToken(ctx context.Context, userID uuid.UUID) error {
	userKey := verifyUserKeyPrefix + userID.String()
	token, err := s.kv.Get(ctx, userKey)
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.kv.Delete(ctx, verifyTokenKeyPrefix+token, userKey)
}

// ResolveVerificationToken returns the user id a verification token belongs to
func (s *Store) ResolveVerificationToken(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := s.kv.Get(ctx, verifyTokenKeyPrefix+token)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt verification token record: %w", err)
	}
	return userID, nil
}

// GetTokenVersion returns the user's current token version. A user that has
// never changed their password has version 0 (no key).
func (s *Store) GetTokenVersion(ctx context.Context, userID uuid.UUID) (int64, error) {
	val, err := s.kv.Get(ctx, versionKeyPrefix+userID.String())
	if errors.Is(err, ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	version, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt token version record: %w", err)
	}
	return version, nil
}

// IncrementTokenVersion bumps the user's token version, invalidating every
// access token minted with a lower version. The counter has no TTL.
func (s *Store) IncrementTokenVersion(ctx context.Context, userID uuid.UUID) error {
	_, err := s.kv.Increment(ctx, versionKeyPrefix+userID.String())
	return err
}

// generateOpaqueToken returns 32 bytes of randomness as URL-safe base64
func generateOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
