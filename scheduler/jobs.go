// Package scheduler wraps the single-shot ETL runner in a daily schedule for
// long-lived deployments. Invocation cadence stays outside the runner itself;
// a failed scheduled run is logged and the process keeps waiting for the next
// slot.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"go_etl_project/services/etl"

	"github.com/go-co-op/gocron"
)

// Scheduler manages the daily ETL job
type Scheduler struct {
	cron       *gocron.Scheduler
	runner     *etl.Runner
	at         string
	runTimeout time.Duration
}

// NewScheduler creates a scheduler that runs the ETL daily at the given
// UTC wall-clock time (e.g. "16:30").
func NewScheduler(runner *etl.Runner, at string, runTimeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:       gocron.NewScheduler(time.UTC),
		runner:     runner,
		at:         at,
		runTimeout: runTimeout,
	}
}

// Start registers the daily job and starts the scheduler asynchronously.
func (s *Scheduler) Start() error {
	log.Println("Starting scheduler...")

	if _, err := s.cron.Every(1).Day().At(s.at).Do(s.runOnce); err != nil {
		return fmt.Errorf("failed to schedule daily ETL at %q: %w", s.at, err)
	}

	s.cron.StartAsync()
	log.Printf("Scheduler started: daily ETL at %s UTC", s.at)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	if err := s.runner.Run(ctx); err != nil {
		log.Printf("Scheduled ETL run failed: %v", err)
	}
}
