package auth_test

import (
	"context"
	"testing"

	"campuskey/internal/auth"
	"campuskey/internal/models"
	"campuskey/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	user := tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	resp, err := tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)

	stored, err := tc.UserRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LoginCount)
	require.NotNil(t, stored.LastLoginIP)
	assert.Equal(t, "10.0.0.1", *stored.LastLoginIP)

	require.Len(t, tc.HistoryRepo.Entries, 1)
	assert.True(t, tc.HistoryRepo.Entries[0].Success)
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	tc := testutil.NewTestContext(t)
	tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	_, err := tc.AuthService.Login(context.Background(), "  Jane@University.EDU ", "correct-horse-1", "10.0.0.1")
	require.NoError(t, err)
}

func TestLogin_WrongPasswordTriggersLockout(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	for i := 0; i < 5; i++ {
		_, err := tc.AuthService.Login(ctx, "jane@university.edu", "wrong", "10.0.0.1")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	}

	// Locked now, even with the correct password
	_, err := tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
	assert.ErrorIs(t, err, auth.ErrRateLimited)
}

func TestLogin_UnknownEmailCountsTowardLockout(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := tc.AuthService.Login(ctx, "ghost@university.edu", "whatever", "10.0.0.1")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	}

	_, err := tc.AuthService.Login(ctx, "ghost@university.edu", "whatever", "10.0.0.1")
	assert.ErrorIs(t, err, auth.ErrRateLimited)
}

func TestLogin_SuccessResetsAttemptCounter(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	for i := 0; i < 4; i++ {
		_, err := tc.AuthService.Login(ctx, "jane@university.edu", "wrong", "10.0.0.1")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	}
	_, err := tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
	require.NoError(t, err)

	// The counter restarted, so four more failures still leave headroom
	for i := 0; i < 4; i++ {
		_, err := tc.AuthService.Login(ctx, "jane@university.edu", "wrong", "10.0.0.1")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	}
	_, err = tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
	require.NoError(t, err)
}

func TestLogin_AccountStatusGates(t *testing.T) {
	tests := []struct {
		name     string
		status   models.UserStatus
		verified bool
		wantErr  error
	}{
		{"pending verification", models.StatusPendingVerification, false, auth.ErrEmailNotVerified},
		{"unverified active", models.StatusActive, false, auth.ErrEmailNotVerified},
		{"blocked", models.StatusBlocked, true, auth.ErrAccountBlocked},
		{"inactive", models.StatusInactive, true, auth.ErrAccountNotActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t)
			ctx := context.Background()
			tc.CreateTestUserWithStatus("jane@university.edu", "correct-horse-1", tt.status, tt.verified)

			_, err := tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
			assert.ErrorIs(t, err, tt.wantErr)

			// Status failures never count as failed attempts
			locked, err := tc.Sessions.IsLoginLocked(ctx, "jane@university.edu")
			require.NoError(t, err)
			assert.False(t, locked)
		})
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	first, err := tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
	require.NoError(t, err)

	second, err := tc.AuthService.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The consumed token can never be used again
	_, err = tc.AuthService.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)

	// The replacement still works
	_, err = tc.AuthService.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_InvalidTokens(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()

	_, err := tc.AuthService.Refresh(ctx, "")
	assert.ErrorIs(t, err, auth.ErrTokenRequired)

	_, err = tc.AuthService.Refresh(ctx, "   ")
	assert.ErrorIs(t, err, auth.ErrTokenRequired)

	_, err = tc.AuthService.Refresh(ctx, "no-such-token")
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestRefresh_BlockedAfterIssuance(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	user := tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	resp, err := tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
	require.NoError(t, err)

	reason := "misconduct"
	require.NoError(t, tc.UserRepo.UpdateStatus(ctx, user.ID, models.StatusBlocked, &reason))

	_, err = tc.AuthService.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrAccountBlocked)
}

func TestLogout_RevokesBothTokens(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	resp, err := tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, tc.AuthService.Logout(ctx, resp.AccessToken, resp.RefreshToken))

	_, err = tc.AuthService.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)

	claims, err := tc.AuthService.ParseAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.ErrorIs(t, tc.AuthService.ValidateAccess(ctx, claims), auth.ErrTokenInvalid)
}

func TestLogout_ToleratesGarbage(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()

	assert.NoError(t, tc.AuthService.Logout(ctx, "", ""))
	assert.NoError(t, tc.AuthService.Logout(ctx, "not-a-jwt", "unknown-refresh"))
}

func TestLogoutAll_TerminatesEverySession(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	user := tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	var sessions []*models.LoginResponse
	for i := 0; i < 3; i++ {
		resp, err := tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
		require.NoError(t, err)
		sessions = append(sessions, resp)
	}

	count, err := tc.AuthService.LogoutAll(ctx, user.ID, sessions[2].AccessToken)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	for _, s := range sessions {
		_, err := tc.AuthService.Refresh(ctx, s.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	}
}

func TestForgotPassword_Cooldown(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	for i := 0; i < 3; i++ {
		require.NoError(t, tc.AuthService.ForgotPassword(ctx, "jane@university.edu"))
	}
	assert.Len(t, tc.EmailService.Sent, 3)

	err := tc.AuthService.ForgotPassword(ctx, "jane@university.edu")
	assert.ErrorIs(t, err, auth.ErrPasswordResetCooldown)
	assert.Len(t, tc.EmailService.Sent, 3)
}

func TestForgotPassword_UnknownEmailDoesNotLeak(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()

	require.NoError(t, tc.AuthService.ForgotPassword(ctx, "ghost@university.edu"))
	assert.Empty(t, tc.EmailService.Sent)

	// Enumeration attempts hit the cooldown like everyone else
	require.NoError(t, tc.AuthService.ForgotPassword(ctx, "ghost@university.edu"))
	require.NoError(t, tc.AuthService.ForgotPassword(ctx, "ghost@university.edu"))
	err := tc.AuthService.ForgotPassword(ctx, "ghost@university.edu")
	assert.ErrorIs(t, err, auth.ErrPasswordResetCooldown)
}

func TestResetPassword_Flow(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	tc.CreateTestUser("jane@university.edu", "old-password-1")

	login, err := tc.AuthService.Login(ctx, "jane@university.edu", "old-password-1", "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, tc.AuthService.ForgotPassword(ctx, "jane@university.edu"))
	token := tc.EmailService.LastToken("reset")
	require.NotEmpty(t, token)

	err = tc.AuthService.ResetPassword(ctx, models.ResetPasswordRequest{
		Token:           token,
		NewPassword:     "new-password-1",
		ConfirmPassword: "different",
	})
	assert.ErrorIs(t, err, auth.ErrPasswordMismatch)

	require.NoError(t, tc.AuthService.ResetPassword(ctx, models.ResetPasswordRequest{
		Token:           token,
		NewPassword:     "new-password-1",
		ConfirmPassword: "new-password-1",
	}))

	// Token is one-time use
	err = tc.AuthService.ResetPassword(ctx, models.ResetPasswordRequest{
		Token:           token,
		NewPassword:     "another-one-1",
		ConfirmPassword: "another-one-1",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidResetToken)

	// Every pre-reset session is gone
	_, err = tc.AuthService.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)

	_, err = tc.AuthService.Login(ctx, "jane@university.edu", "old-password-1", "10.0.0.1")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	_, err = tc.AuthService.Login(ctx, "jane@university.edu", "new-password-1", "10.0.0.1")
	require.NoError(t, err)
}

func TestResetPassword_OnlyLatestTokenWorks(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	tc.CreateTestUser("jane@university.edu", "old-password-1")

	require.NoError(t, tc.AuthService.ForgotPassword(ctx, "jane@university.edu"))
	first := tc.EmailService.LastToken("reset")
	require.NoError(t, tc.AuthService.ForgotPassword(ctx, "jane@university.edu"))
	second := tc.EmailService.LastToken("reset")
	require.NotEqual(t, first, second)

	err := tc.AuthService.ResetPassword(ctx, models.ResetPasswordRequest{
		Token:           first,
		NewPassword:     "new-password-1",
		ConfirmPassword: "new-password-1",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidResetToken)

	require.NoError(t, tc.AuthService.ResetPassword(ctx, models.ResetPasswordRequest{
		Token:           second,
		NewPassword:     "new-password-1",
		ConfirmPassword: "new-password-1",
	}))
}

func TestChangePassword(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	user := tc.CreateTestUser("jane@university.edu", "old-password-1")

	login, err := tc.AuthService.Login(ctx, "jane@university.edu", "old-password-1", "10.0.0.1")
	require.NoError(t, err)

	_, err = tc.AuthService.ChangePassword(ctx, user, "wrong", "new-password-1", true)
	assert.ErrorIs(t, err, auth.ErrIncorrectPassword)

	_, err = tc.AuthService.ChangePassword(ctx, user, "old-password-1", "old-password-1", true)
	assert.ErrorIs(t, err, auth.ErrSamePassword)

	count, err := tc.AuthService.ChangePassword(ctx, user, "old-password-1", "new-password-1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The version bump invalidates every previously issued access token
	claims, err := tc.AuthService.ParseAccessToken(login.AccessToken)
	require.NoError(t, err)
	assert.ErrorIs(t, tc.AuthService.ValidateAccess(ctx, claims), auth.ErrTokenInvalid)

	_, err = tc.AuthService.Login(ctx, "jane@university.edu", "new-password-1", "10.0.0.1")
	require.NoError(t, err)
}

func TestChangePassword_KeepOtherDevices(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	user := tc.CreateTestUser("jane@university.edu", "old-password-1")

	login, err := tc.AuthService.Login(ctx, "jane@university.edu", "old-password-1", "10.0.0.1")
	require.NoError(t, err)

	count, err := tc.AuthService.ChangePassword(ctx, user, "old-password-1", "new-password-1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Refresh tokens survive when logout of other devices is declined
	_, err = tc.AuthService.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
}

func TestVerifyEmail_Flow(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	user := tc.CreateTestUserWithStatus("jane@university.edu", "correct-horse-1", models.StatusPendingVerification, false)

	_, err := tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
	assert.ErrorIs(t, err, auth.ErrEmailNotVerified)

	require.NoError(t, tc.AuthService.RequestVerification(ctx, "jane@university.edu"))
	token := tc.EmailService.LastToken("verification")
	require.NotEmpty(t, token)

	require.NoError(t, tc.AuthService.VerifyEmail(ctx, token))

	stored, err := tc.UserRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
	assert.Equal(t, models.StatusActive, stored.Status)

	// Token is consumed
	assert.ErrorIs(t, tc.AuthService.VerifyEmail(ctx, token), auth.ErrInvalidVerificationToken)

	_, err = tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
	require.NoError(t, err)
}

func TestRequestVerification_NoLeak(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	tc.CreateTestUser("verified@university.edu", "correct-horse-1")

	require.NoError(t, tc.AuthService.RequestVerification(ctx, "ghost@university.edu"))
	require.NoError(t, tc.AuthService.RequestVerification(ctx, "verified@university.edu"))
	assert.Empty(t, tc.EmailService.Sent)
}

func TestVerifyEmail_MissingOrUnknownToken(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()

	assert.ErrorIs(t, tc.AuthService.VerifyEmail(ctx, ""), auth.ErrTokenRequired)
	assert.ErrorIs(t, tc.AuthService.VerifyEmail(ctx, "nope"), auth.ErrInvalidVerificationToken)
}

func TestValidateAccess_FreshTokenPasses(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()
	tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	resp, err := tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
	require.NoError(t, err)

	claims, err := tc.AuthService.ParseAccessToken(resp.AccessToken)
	require.NoError(t, err)
	require.NoError(t, tc.AuthService.ValidateAccess(ctx, claims))
}
