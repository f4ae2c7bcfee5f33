package handlers

import (
	"net/http"

	"campuskey/internal/auth"
	"campuskey/internal/models"

	"github.com/gin-gonic/gin"
)

// UserHandler handles HTTP requests for the authenticated user's account
type UserHandler struct {
	authService *auth.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService *auth.Service) *UserHandler {
	return &UserHandler{authService: authService}
}

// Me godoc
// @Summary Current user profile
// @Description Return the authenticated user's account record
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change the authenticated user's password. All previously issued access tokens are invalidated; other devices are logged out unless logout_other_devices is false.
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.ChangePasswordRequest true "Password change details"
// @Success 200 {object} models.ChangePasswordResponse
// @Failure 400 {object} models.ErrorResponse "Invalid request or same password"
// @Failure 401 {object} models.ErrorResponse "Current password is incorrect"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /users/me/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	logoutOthers := true
	if req.LogoutOtherDevices != nil {
		logoutOthers = *req.LogoutOtherDevices
	}

	count, err := h.authService.ChangePassword(c.Request.Context(), user, req.CurrentPassword, req.NewPassword, logoutOthers)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ChangePasswordResponse{
		Message:          "password changed successfully",
		LoggedOutDevices: count,
	})
}
