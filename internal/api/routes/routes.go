// Package routes handles the setup and configuration of API routes
package routes

import (
	"database/sql"

	_ "campuskey/docs" // Import swagger docs
	"campuskey/internal/api/handlers"
	"campuskey/internal/api/middleware"
	"campuskey/internal/auth"
	"campuskey/internal/config"
	"campuskey/internal/email"
	"campuskey/internal/repository/postgres"
	"campuskey/internal/session"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRoutes configures all API routes and their handlers
func SetupRoutes(cfg *config.Config, db *sql.DB, sessions *session.Store) *gin.Engine {
	// Create router
	r := gin.Default()

	// Initialize health handler for basic routes
	healthHandler := handlers.NewHealthHandler(db)

	// Routes without rate limiting
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Apply rate limiting to all other routes
	r.Use(middleware.NewRateLimiter(cfg).Middleware())

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	historyRepo := postgres.NewLoginHistoryRepository(db)

	// Initialize services
	emailService := email.NewService(cfg.Email)
	authService := auth.NewService(cfg, userRepo, historyRepo, sessions, emailService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, userRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(authService)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Health check (no authentication required)
		v1.GET("/health", healthHandler.Health)

		// Auth routes
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.POST("/logout-all", authMiddleware.AuthRequired(), authHandler.LogoutAll)
			authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
			authRoutes.POST("/reset-password", authHandler.ResetPassword)
			authRoutes.GET("/verify-email", authHandler.VerifyEmail)
			authRoutes.POST("/resend-verification", authHandler.ResendVerification)
		}

		// User routes (requires authentication)
		users := v1.Group("/users")
		users.Use(authMiddleware.AuthRequired())
		{
			users.GET("/me", userHandler.Me)
			users.PUT("/me/password", userHandler.ChangePassword)
		}
	}

	return r
}
