package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"campuskey/internal/api/middleware"
	"campuskey/internal/models"
	"campuskey/internal/testutil"
	"campuskey/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(tc *testutil.TestContext) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validation.Initialize()

	authHandler := NewAuthHandler(tc.AuthService)
	userHandler := NewUserHandler(tc.AuthService)
	authMiddleware := middleware.NewAuthMiddleware(tc.AuthService, tc.UserRepo)

	r := gin.New()
	v1 := r.Group("/api/v1")

	authRoutes := v1.Group("/auth")
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/refresh", authHandler.Refresh)
	authRoutes.POST("/logout", authHandler.Logout)
	authRoutes.POST("/logout-all", authMiddleware.AuthRequired(), authHandler.LogoutAll)
	authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
	authRoutes.POST("/reset-password", authHandler.ResetPassword)
	authRoutes.GET("/verify-email", authHandler.VerifyEmail)
	authRoutes.POST("/resend-verification", authHandler.ResendVerification)

	users := v1.Group("/users")
	users.Use(authMiddleware.AuthRequired())
	users.GET("/me", userHandler.Me)
	users.PUT("/me/password", userHandler.ChangePassword)

	return r
}

func postJSON(r *gin.Engine, path string, body any, token string) *httptest.ResponseRecorder {
	return requestJSON(r, http.MethodPost, path, body, token)
}

func requestJSON(r *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginEndpoint(t *testing.T) {
	tc := testutil.NewTestContext(t)
	r := setupRouter(tc)
	tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	t.Run("success", func(t *testing.T) {
		w := postJSON(r, "/api/v1/auth/login", models.LoginRequest{
			Email:    "jane@university.edu",
			Password: "correct-horse-1",
		}, "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, int64(900), resp.ExpiresIn)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := postJSON(r, "/api/v1/auth/login", models.LoginRequest{
			Email:    "jane@university.edu",
			Password: "wrong",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := postJSON(r, "/api/v1/auth/login", gin.H{"email": "jane@university.edu"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid email format", func(t *testing.T) {
		w := postJSON(r, "/api/v1/auth/login", gin.H{"email": "not-an-email", "password": "x"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLoginEndpoint_Lockout(t *testing.T) {
	tc := testutil.NewTestContext(t)
	r := setupRouter(tc)
	tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	for i := 0; i < 5; i++ {
		w := postJSON(r, "/api/v1/auth/login", models.LoginRequest{
			Email:    "jane@university.edu",
			Password: "wrong",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := postJSON(r, "/api/v1/auth/login", models.LoginRequest{
		Email:    "jane@university.edu",
		Password: "correct-horse-1",
	}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestLoginEndpoint_BlockedAccount(t *testing.T) {
	tc := testutil.NewTestContext(t)
	r := setupRouter(tc)
	tc.CreateTestUserWithStatus("jane@university.edu", "correct-horse-1", models.StatusBlocked, true)

	w := postJSON(r, "/api/v1/auth/login", models.LoginRequest{
		Email:    "jane@university.edu",
		Password: "correct-horse-1",
	}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	tc := testutil.NewTestContext(t)
	r := setupRouter(tc)
	tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	login, err := tc.AuthService.Login(context.Background(), "jane@university.edu", "correct-horse-1", "10.0.0.1")
	require.NoError(t, err)

	w := postJSON(r, "/api/v1/auth/refresh", models.RefreshRequest{RefreshToken: login.RefreshToken}, "")
	require.Equal(t, http.StatusOK, w.Code)

	// Rotation consumed the old token
	w = postJSON(r, "/api/v1/auth/refresh", models.RefreshRequest{RefreshToken: login.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(r, "/api/v1/auth/refresh", gin.H{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutEndpoint_AlwaysSucceeds(t *testing.T) {
	tc := testutil.NewTestContext(t)
	r := setupRouter(tc)

	w := postJSON(r, "/api/v1/auth/logout", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(r, "/api/v1/auth/logout", models.LogoutRequest{RefreshToken: "unknown"}, "garbage-token")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutAllEndpoint(t *testing.T) {
	tc := testutil.NewTestContext(t)
	r := setupRouter(tc)
	tc.CreateTestUser("jane@university.edu", "correct-horse-1")
	ctx := context.Background()

	first, err := tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
	require.NoError(t, err)
	_, err = tc.AuthService.Login(ctx, "jane@university.edu", "correct-horse-1", "10.0.0.1")
	require.NoError(t, err)

	w := postJSON(r, "/api/v1/auth/logout-all", nil, first.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.LogoutAllResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.LoggedOutDevices)

	// Requires authentication
	w = postJSON(r, "/api/v1/auth/logout-all", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestForgotPasswordEndpoint(t *testing.T) {
	tc := testutil.NewTestContext(t)
	r := setupRouter(tc)
	tc.CreateTestUser("jane@university.edu", "correct-horse-1")

	for i := 0; i < 3; i++ {
		w := postJSON(r, "/api/v1/auth/forgot-password", models.ForgotPasswordRequest{Email: "jane@university.edu"}, "")
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := postJSON(r, "/api/v1/auth/forgot-password", models.ForgotPasswordRequest{Email: "jane@university.edu"}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Unknown emails get the same generic success
	w = postJSON(r, "/api/v1/auth/forgot-password", models.ForgotPasswordRequest{Email: "ghost@university.edu"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResetPasswordEndpoint(t *testing.T) {
	tc := testutil.NewTestContext(t)
	r := setupRouter(tc)
	tc.CreateTestUser("jane@university.edu", "old-password-1")

	require.NoError(t, tc.AuthService.ForgotPassword(context.Background(), "jane@university.edu"))
	token := tc.EmailService.LastToken("reset")
	require.NotEmpty(t, token)

	w := postJSON(r, "/api/v1/auth/reset-password", models.ResetPasswordRequest{
		Token:           token,
		NewPassword:     "new-password-1",
		ConfirmPassword: "mismatch",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(r, "/api/v1/auth/reset-password", models.ResetPasswordRequest{
		Token:           "bogus",
		NewPassword:     "new-password-1",
		ConfirmPassword: "new-password-1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(r, "/api/v1/auth/reset-password", models.ResetPasswordRequest{
		Token:           token,
		NewPassword:     "new-password-1",
		ConfirmPassword: "new-password-1",
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyEmailEndpoint(t *testing.T) {
	tc := testutil.NewTestContext(t)
	r := setupRouter(tc)
	tc.CreateTestUserWithStatus("jane@university.edu", "correct-horse-1", models.StatusPendingVerification, false)

	w := postJSON(r, "/api/v1/auth/resend-verification", models.ForgotPasswordRequest{Email: "jane@university.edu"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	token := tc.EmailService.LastToken("verification")
	require.NotEmpty(t, token)

	w = requestJSON(r, http.MethodGet, "/api/v1/auth/verify-email?token="+token, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// Consumed tokens and missing tokens are both rejected
	w = requestJSON(r, http.MethodGet, "/api/v1/auth/verify-email?token="+token, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = requestJSON(r, http.MethodGet, "/api/v1/auth/verify-email", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
