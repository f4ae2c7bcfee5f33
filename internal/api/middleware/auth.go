package middleware

import (
	"errors"
	"net/http"
	"strings"

	"campuskey/internal/auth"
	"campuskey/internal/repository"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthRequired
const (
	ContextUserKey   = "user"
	ContextClaimsKey = "claims"
	ContextTokenKey  = "access_token"
)

// AuthMiddleware validates the access token on every authenticated
// request. Beyond signature and expiry, a token is rejected if its id has
// been blacklisted or its embedded version has been superseded by a
// password change. Both checks are reads against the session store.
type AuthMiddleware struct {
	authService *auth.Service
	userRepo    repository.UserRepository
}

// NewAuthMiddleware creates the access-token validation middleware
func NewAuthMiddleware(authService *auth.Service, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		userRepo:    userRepo,
	}
}

// AuthRequired rejects requests without a valid, non-revoked access token
func (m *AuthMiddleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			c.Abort()
			return
		}

		claims, err := m.authService.ParseAccessToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		if err := m.authService.ValidateAccess(c.Request.Context(), claims); err != nil {
			if errors.Is(err, auth.ErrTokenInvalid) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate token"})
			}
			c.Abort()
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id in token"})
			c.Abort()
			return
		}

		user, err := m.userRepo.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextClaimsKey, claims)
		c.Set(ContextTokenKey, parts[1])
		c.Set("is_admin", user.IsAdmin())

		c.Next()
	}
}

// AdminRequired gates a route on the admin role; must run after AuthRequired
func (m *AuthMiddleware) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, exists := c.Get("is_admin")
		if !exists || !isAdmin.(bool) {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
