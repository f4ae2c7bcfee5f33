// Package main provides the entry point for the CampusKey API server
// @title CampusKey API
// @version 1.0
// @description University administration API server.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token authentication
// @Security BearerAuth
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"campuskey/internal/api/routes"
	"campuskey/internal/config"
	"campuskey/internal/database"
	"campuskey/internal/maintenance"
	"campuskey/internal/repository/postgres"
	"campuskey/internal/session"
	"campuskey/internal/validation"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command line flags
	envFile := flag.String("env", ".env", "Path to env file")
	flag.Parse()

	// Load environment file
	if err := godotenv.Load(*envFile); err != nil && *envFile == ".env" {
		log.Printf("Warning: %v", err)
	}

	// Load configuration
	cfg := &config.Config{}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to the session store
	kv, err := session.NewRedisKV(context.Background(), cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	sessions := session.NewStore(kv, session.Config{
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
		FailWindow:        cfg.Auth.FailWindow,
		LockDuration:      cfg.Auth.LockDuration,
		RefreshLifetime:   cfg.Auth.RefreshTokenDuration,
	})

	// Initialize validators
	validation.Initialize()

	// Start background maintenance jobs
	maintenanceCtx, stopMaintenance := context.WithCancel(context.Background())
	defer stopMaintenance()

	scheduler := maintenance.NewScheduler()
	scheduler.Register(maintenance.NewLoginHistoryPruner(
		postgres.NewLoginHistoryRepository(db),
		cfg.Maintenance,
	))
	go func() {
		if err := scheduler.Start(maintenanceCtx); err != nil {
			log.Printf("Maintenance scheduler stopped: %v", err)
		}
	}()

	// Setup routes
	router := routes.SetupRoutes(cfg, db, sessions)

	// Convert port string to int
	port, err := strconv.Atoi(cfg.API.Port)
	if err != nil {
		log.Fatalf("Invalid port number: %v", err)
	}

	// Create server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on port %d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stopMaintenance()

	// Give outstanding requests 5 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
