package auth

import "errors"

// Domain error kinds returned by the authentication flows. The HTTP layer
// maps these to status codes; infrastructure failures (store unreachable,
// signer failure) are never folded into these and propagate as-is.
var (
	// ErrRateLimited indicates too many failed logins; the account is temporarily locked
	ErrRateLimited = errors.New("too many failed login attempts")
	// ErrUnauthenticated covers bad credentials and unknown accounts alike
	ErrUnauthenticated = errors.New("invalid credentials")

	// Account-state gates, checked before password verification
	ErrEmailNotVerified = errors.New("email not verified")
	ErrAccountBlocked   = errors.New("account is blocked")
	ErrAccountNotActive = errors.New("account is not active")

	// Token errors
	ErrTokenRequired            = errors.New("token required")
	ErrTokenInvalid             = errors.New("invalid token")
	ErrTokenExpired             = errors.New("token expired")
	ErrInvalidResetToken        = errors.New("invalid or expired reset token")
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")

	// Password-change gates
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrIncorrectPassword = errors.New("current password is incorrect")
	ErrSamePassword      = errors.New("new password must differ from the current one")

	// ErrPasswordResetCooldown indicates the reset-request rate limit was exceeded
	ErrPasswordResetCooldown = errors.New("too many password reset requests")
)
