// Package config loads the application configuration from the environment
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// API contains API server configuration
	API APIConfig
	// Auth contains authentication configuration
	Auth AuthConfig
	// Database contains database configuration
	Database DatabaseConfig
	// Redis contains key-value store configuration
	Redis RedisConfig
	// Email contains email service configuration
	Email EmailConfig
	// Maintenance contains background job configuration
	Maintenance MaintenanceConfig

	// Rate Limiting Configuration (per-IP request throttle)
	RateLimit struct {
		Requests int // Number of requests allowed per window
		Window   int // Time window in seconds
		Burst    int // Maximum burst size
	}
}

// APIConfig contains API server settings
type APIConfig struct {
	// Port is the server port to listen on
	Port string
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	// JWTSecret is the secret key used to sign access tokens
	JWTSecret string
	// AccessTokenDuration is the access token lifetime
	AccessTokenDuration time.Duration
	// RefreshTokenDuration is the refresh token lifetime
	RefreshTokenDuration time.Duration
	// MaxFailedAttempts is the failed-login count that triggers a lockout
	MaxFailedAttempts int
	// FailWindow is the rolling window for failed-login counting
	FailWindow time.Duration
	// LockDuration is how long a lockout lasts
	LockDuration time.Duration
	// ResetTokenTTL is the password reset token lifetime
	ResetTokenTTL time.Duration
	// ResetMaxRequests caps reset requests per email per ResetWindow
	ResetMaxRequests int
	// ResetWindow is the rolling window for reset-request counting
	ResetWindow time.Duration
	// VerifyTokenTTL is the email verification token lifetime
	VerifyTokenTTL time.Duration
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname
	Host string
	// Port is the database server port
	Port int
	// User is the database username
	User string
	// Password is the database password
	Password string
	// DBName is the database name
	DBName string
	// SSLMode is the SSL mode for the database connection
	SSLMode string
	// MigrationsPath is the path to database migrations
	MigrationsPath string
}

// RedisConfig contains key-value store settings
type RedisConfig struct {
	// URL is the redis connection URL (redis://host:port/db)
	URL string
}

// EmailConfig contains email service settings
type EmailConfig struct {
	// SMTPHost is the SMTP server hostname
	SMTPHost string
	// SMTPPort is the SMTP server port
	SMTPPort int
	// SMTPUsername is the SMTP authentication username
	SMTPUsername string
	// SMTPPassword is the SMTP authentication password
	SMTPPassword string
	// FromAddress is the email address used as sender
	FromAddress string
	// AppURL is the base URL of the application
	AppURL string
}

// MaintenanceConfig contains background job settings
type MaintenanceConfig struct {
	// LoginHistorySchedule is the cron schedule for pruning login history
	LoginHistorySchedule string
	// LoginHistoryRetention is how long login history rows are kept
	LoginHistoryRetention time.Duration
}

// LoadFromEnv retrieves configuration from environment variables
func (c *Config) LoadFromEnv() error {
	c.API = APIConfig{
		Port: getEnvOrDefault("API_PORT", "8080"),
	}
	c.Database = DatabaseConfig{
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvAsInt("DB_PORT", 5432),
		User:           getEnvOrDefault("DB_USER", "postgres"),
		Password:       getEnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:         getEnvOrDefault("DB_NAME", "campuskey"),
		SSLMode:        getEnvOrDefault("DB_SSL_MODE", "disable"),
		MigrationsPath: "migrations",
	}
	c.Redis = RedisConfig{
		URL: getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
	}
	c.Auth = AuthConfig{
		JWTSecret:            os.Getenv("JWT_SECRET"),
		AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
		RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 168*time.Hour),
		MaxFailedAttempts:    getEnvAsInt("MAX_FAILED_ATTEMPTS", 5),
		FailWindow:           getEnvAsDuration("FAIL_WINDOW", 15*time.Minute),
		LockDuration:         getEnvAsDuration("LOCK_DURATION", 15*time.Minute),
		ResetTokenTTL:        getEnvAsDuration("RESET_TOKEN_TTL", 15*time.Minute),
		ResetMaxRequests:     getEnvAsInt("RESET_MAX_REQUESTS", 3),
		ResetWindow:          getEnvAsDuration("RESET_WINDOW", 15*time.Minute),
		VerifyTokenTTL:       getEnvAsDuration("VERIFY_TOKEN_TTL", 24*time.Hour),
	}
	c.Email = EmailConfig{
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromAddress:  os.Getenv("SMTP_FROM"),
		AppURL:       os.Getenv("APP_URL"),
	}
	c.Maintenance = MaintenanceConfig{
		LoginHistorySchedule:  getEnvOrDefault("LOGIN_HISTORY_SCHEDULE", "30 3 * * *"),
		LoginHistoryRetention: getEnvAsDuration("LOGIN_HISTORY_RETENTION", 90*24*time.Hour),
	}

	// Load rate limit configuration
	c.RateLimit.Requests = getEnvAsInt("RATE_LIMIT_REQUESTS", 1000)
	c.RateLimit.Window = getEnvAsInt("RATE_LIMIT_WINDOW", 60)
	c.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 50)

	// Validate required fields
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	return nil
}

// getEnvAsInt retrieves an environment variable and converts it to an integer
func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvAsDuration retrieves an environment variable and parses it as a duration
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvOrDefault(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
