package maintenance

import (
	"context"
	"log"
	"time"

	"campuskey/internal/config"
	"campuskey/internal/repository"
)

// LoginHistoryPruner deletes login history rows older than the configured
// retention period.
type LoginHistoryPruner struct {
	history repository.LoginHistoryRepository
	cfg     config.MaintenanceConfig
}

// NewLoginHistoryPruner creates the login history pruning job
func NewLoginHistoryPruner(history repository.LoginHistoryRepository, cfg config.MaintenanceConfig) *LoginHistoryPruner {
	return &LoginHistoryPruner{
		history: history,
		cfg:     cfg,
	}
}

// Name returns the unique name of the job
func (j *LoginHistoryPruner) Name() string {
	return "login-history-pruner"
}

// Schedule returns the job's cron expression
func (j *LoginHistoryPruner) Schedule() string {
	return j.cfg.LoginHistorySchedule
}

// Run deletes all login history entries past the retention cutoff
func (j *LoginHistoryPruner) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.cfg.LoginHistoryRetention)

	deleted, err := j.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		log.Printf("Pruned %d login history entries older than %s", deleted, cutoff.Format(time.RFC3339))
	}
	return nil
}
