package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSchedulerNext(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("0 6 * * *", time.UTC, nil)
	require.NoError(t, s.Validate())

	next, err := s.Next(time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 20, 6, 0, 0, 0, time.UTC), next)
}

func TestCronSchedulerRejectsBadExpression(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("every day", time.UTC, nil)
	assert.ErrorContains(t, s.Validate(), "parse cron expression")
	assert.Error(t, s.Start(context.Background(), func(time.Time) {}))
}

func TestCronSchedulerStartStop(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("@every 1s", time.UTC, nil)
	fired := make(chan time.Time, 4)

	require.NoError(t, s.Start(context.Background(), func(at time.Time) {
		select {
		case fired <- at:
		default:
		}
	}))

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("job never fired")
	}

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()), "second stop is a no-op")
}

func TestCronSchedulerStopsWithContext(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("0 6 * * *", time.UTC, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx, func(time.Time) {}))

	cancel()
	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cron == nil
	}, time.Second, 10*time.Millisecond)
}
