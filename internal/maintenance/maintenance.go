// Package maintenance runs recurring housekeeping jobs on cron schedules
package maintenance

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Job is a unit of recurring housekeeping work
type Job interface {
	// Name returns the unique name of the job
	Name() string
	// Schedule returns the job's cron expression
	Schedule() string
	// Run executes the job once
	Run(ctx context.Context) error
}

// Scheduler registers jobs and runs them on their cron schedules
type Scheduler struct {
	jobs []Job
	cron *cron.Cron
}

// NewScheduler creates a new maintenance scheduler
func NewScheduler() *Scheduler {
	// Standard five-field cron expressions, no seconds
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)))

	return &Scheduler{
		jobs: make([]Job, 0),
		cron: c,
	}
}

// Register adds a job to the scheduler
func (s *Scheduler) Register(j Job) {
	s.jobs = append(s.jobs, j)
}

// RunJob executes a specific job by name, outside its schedule
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	for _, j := range s.jobs {
		if j.Name() == name {
			return j.Run(ctx)
		}
	}
	return ErrJobNotFound
}

// Start schedules all registered jobs and blocks until the context is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, j := range s.jobs {
		if j.Schedule() == "" {
			return fmt.Errorf("job %s has no schedule configured", j.Name())
		}

		job := j
		_, err := s.cron.AddFunc(job.Schedule(), func() {
			log.Printf("Running scheduled execution of job %s", job.Name())
			if err := job.Run(ctx); err != nil {
				log.Printf("Error running job %s: %v", job.Name(), err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", j.Name(), err)
		}

		log.Printf("Scheduled job %s with schedule %s", j.Name(), j.Schedule())
	}

	s.cron.Start()
	log.Println("Maintenance scheduler started")

	<-ctx.Done()
	log.Println("Stopping maintenance scheduler...")
	s.cron.Stop()

	return nil
}
