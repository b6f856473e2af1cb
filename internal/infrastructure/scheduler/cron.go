package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"CanonCurator/internal/ports"
)

// CronScheduler triggers jobs on a standard 5-field cron expression.
type CronScheduler struct {
	spec   string
	loc    *time.Location
	parser cron.Parser
	logger *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for spec evaluated in loc.
func NewCronScheduler(spec string, loc *time.Location, logger *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CronScheduler{
		spec:   spec,
		loc:    loc,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger: logger,
	}
}

// Validate reports whether the expression parses.
func (c *CronScheduler) Validate() error {
	if _, err := c.parser.Parse(c.spec); err != nil {
		return fmt.Errorf("parse cron expression %q: %w", c.spec, err)
	}
	return nil
}

// Next returns the first activation after from.
func (c *CronScheduler) Next(from time.Time) (time.Time, error) {
	schedule, err := c.parser.Parse(c.spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", c.spec, err)
	}
	return schedule.Next(from.In(c.loc)), nil
}

// Start registers job and starts the cron loop. The loop also stops when ctx is done.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cr := cron.New(
		cron.WithParser(c.parser),
		cron.WithLocation(c.loc),
		cron.WithChain(cron.Recover(cronLogger{c.logger}), cron.SkipIfStillRunning(cronLogger{c.logger})),
	)
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now().In(c.loc)) }); err != nil {
		return fmt.Errorf("schedule %q: %w", c.spec, err)
	}
	cr.Start()
	c.cron = cr

	c.logger.Info("cron scheduler started", "spec", c.spec, "timezone", c.loc.String())

	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			_ = c.Stop(context.Background())
		}()
	}
	return nil
}

// Stop halts the cron loop and waits for a running job up to ctx's deadline.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()
	if cr == nil {
		return nil
	}

	select {
	case <-cr.Stop().Done():
		c.logger.Info("cron scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running job: %w", ctx.Err())
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
