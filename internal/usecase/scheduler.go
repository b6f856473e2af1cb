package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"CanonCurator/internal/ports"
)

// Scheduler wires the cron driver with the enrichment pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger

	// running keeps overlapping triggers from starting a second run.
	running sync.Mutex
}

// NewScheduler returns a helper to start/stop recurring enrichment runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		s.runOnce(ctx, trigger)
	})
}

func (s *Scheduler) runOnce(ctx context.Context, trigger time.Time) {
	if !s.running.TryLock() {
		s.logger.Warn("previous enrichment run still in progress, skipping trigger", "trigger", trigger)
		return
	}
	defer s.running.Unlock()

	if _, err := s.pipeline.Run(ctx); err != nil {
		s.logger.Error("scheduled enrichment run failed", "trigger", trigger, "error", err)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
