// Package handlers implements the HTTP request handlers
package handlers

import (
	"errors"
	"net/http"

	"campuskey/internal/api/middleware"
	"campuskey/internal/auth"
	"campuskey/internal/models"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles HTTP requests for the authentication flows
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// respondAuthError maps domain error kinds to HTTP statuses. Anything not
// in the taxonomy is an infrastructure failure and surfaces as a 500.
func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrRateLimited), errors.Is(err, auth.ErrPasswordResetCooldown):
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrIncorrectPassword):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrEmailNotVerified),
		errors.Is(err, auth.ErrAccountBlocked),
		errors.Is(err, auth.ErrAccountNotActive):
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrTokenRequired),
		errors.Is(err, auth.ErrInvalidResetToken),
		errors.Is(err, auth.ErrInvalidVerificationToken),
		errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrSamePassword):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
	}
}

// currentUser retrieves the authenticated user set by the auth middleware
func currentUser(c *gin.Context) *models.User {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// Login godoc
// @Summary User login
// @Description Authenticate by email and password and return access and refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse "Login successful"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.ErrorResponse "Invalid credentials"
// @Failure 403 {object} models.ErrorResponse "Account blocked, inactive or email not verified"
// @Failure 429 {object} models.ErrorResponse "Too many failed attempts"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange a refresh token for a new token pair. The presented token is consumed.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshRequest true "Refresh token"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Invalid or expired refresh token"
// @Failure 403 {object} models.ErrorResponse "Account blocked, inactive or email not verified"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout godoc
// @Summary Logout
// @Description Revoke the presented refresh token and blacklist the presented access token. Always succeeds for missing or invalid tokens so a client can clear local state.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LogoutRequest false "Refresh token to revoke"
// @Success 200 {object} models.SuccessResponse
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.LogoutRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	accessToken := bearerToken(c)
	if err := h.authService.Logout(c.Request.Context(), accessToken, req.RefreshToken); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "logged out"})
}

// LogoutAll godoc
// @Summary Logout everywhere
// @Description Revoke every refresh token of the authenticated user and blacklist the current access token
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} models.LogoutAllResponse
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}

	count, err := h.authService.LogoutAll(c.Request.Context(), user.ID, c.GetString(middleware.ContextTokenKey))
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LogoutAllResponse{LoggedOutDevices: count})
}

// ForgotPassword godoc
// @Summary Request password reset
// @Description Issue a password reset token and email it. Returns the same generic success whether or not the email exists.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ForgotPasswordRequest true "User's email"
// @Success 200 {object} models.SuccessResponse "Reset link will be sent if the email exists"
// @Failure 400 {object} models.ErrorResponse "Invalid email format"
// @Failure 429 {object} models.ErrorResponse "Too many reset requests"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "if the email exists, a reset link will be sent"})
}

// ResetPassword godoc
// @Summary Complete password reset
// @Description Set a new password using a reset token. The token is one-time use and every existing session is terminated.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ResetPasswordRequest true "Reset completion details"
// @Success 200 {object} models.SuccessResponse "Password reset successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid request, token, or password mismatch"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "password reset successfully"})
}

// VerifyEmail godoc
// @Summary Verify email address
// @Description Verify a user's email address using the verification token
// @Tags auth
// @Accept json
// @Produce json
// @Param token query string true "Email verification token"
// @Success 200 {object} models.SuccessResponse "Email verified successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid, expired, or missing token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	if err := h.authService.VerifyEmail(c.Request.Context(), c.Query("token")); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "email verified successfully"})
}

// ResendVerification godoc
// @Summary Resend verification email
// @Description Issue a fresh verification token and email it. Returns generic success regardless of whether the email exists or is already verified.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ForgotPasswordRequest true "User's email"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse "Invalid email format"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.authService.RequestVerification(c.Request.Context(), req.Email); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "if the email exists, a verification link will be sent"})
}

// bearerToken extracts the raw bearer token from the Authorization header,
// or empty when absent or malformed.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
