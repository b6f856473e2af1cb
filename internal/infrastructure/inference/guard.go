package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"CanonCurator/internal/domain"
	"CanonCurator/internal/infrastructure/llm"
)

// BreakerConfig holds configuration for the circuit breaker.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// GuardConfig bounds the outbound call budget of a backend.
type GuardConfig struct {
	RequestsPerSecond float64
	Burst             int
	Breaker           BreakerConfig
}

// DefaultGuardConfig returns a conservative call budget.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		RequestsPerSecond: 2,
		Burst:             5,
		Breaker: BreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 0.6,
			MinRequests:      5,
		},
	}
}

// Guarded rate-limits a backend and trips a circuit breaker when it keeps failing.
type Guarded struct {
	next    Backend
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

var _ Backend = (*Guarded)(nil)

// Guard wraps next. A non-positive rate disables limiting.
func Guard(next Backend, cfg GuardConfig, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	g := &Guarded{next: next}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	bc := cfg.Breaker
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("inference circuit breaker state changed", "backend", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// a reachable backend that answered badly, or a caller that gave up, is not an outage
			return err == nil ||
				errors.Is(err, llm.ErrUnparseableResponse) ||
				errors.Is(err, context.Canceled)
		},
	})
	return g
}

// Name reports the wrapped backend's name.
func (g *Guarded) Name() string { return g.next.Name() }

// State exposes the breaker state for health reporting.
func (g *Guarded) State() gobreaker.State { return g.breaker.State() }

// EnrichDates waits for the rate limiter, then calls through the breaker.
func (g *Guarded) EnrichDates(ctx context.Context, sources []domain.SourceRef, authorName string) ([]domain.EnrichedSourceDate, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.EnrichDates(ctx, sources, authorName)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("inference backend %s unavailable: %w", g.next.Name(), err)
		}
		return nil, err
	}
	results, _ := out.([]domain.EnrichedSourceDate)
	return results, nil
}
