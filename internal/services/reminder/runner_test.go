package reminder

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGuard(t *testing.T) {
	g := NewGuard()
	require.True(t, g.tryAcquire())
	assert.False(t, g.tryAcquire(), "second acquire while held must fail")
	g.release()
	assert.True(t, g.tryAcquire())
}

func TestRunnerFiresImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	fired := make(chan struct{})
	job := func(context.Context) error {
		if runs.Add(1) == 1 {
			close(fired)
		}
		return nil
	}

	r := NewRunner(zap.NewNop(), "test_immediate", time.Hour, NewGuard(), job)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("first fire did not happen before the first tick")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.EqualValues(t, 1, runs.Load())
}

func TestRunnerSkipsWhileJobInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started atomic.Int32
	release := make(chan struct{})
	job := func(context.Context) error {
		started.Add(1)
		<-release
		return nil
	}

	guard := NewGuard()
	r := NewRunner(zap.NewNop(), "test_skip", 10*time.Millisecond, guard, job)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// several ticks land while the first run is still blocked
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 1, started.Load(), "overlapping fires must be skipped, not queued")

	close(release)
	cancel()
	<-done
}

func TestSharedGuardSuppressesBothRunners(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started atomic.Int32
	release := make(chan struct{})
	job := func(context.Context) error {
		started.Add(1)
		<-release
		return nil
	}

	guard := NewGuard()
	a := NewRunner(zap.NewNop(), "test_shared_a", 10*time.Millisecond, guard, job)
	b := NewRunner(zap.NewNop(), "test_shared_b", 10*time.Millisecond, guard, job)

	done := make(chan error, 2)
	go func() { done <- a.Run(ctx) }()
	go func() { done <- b.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 1, started.Load(), "one guard must serialize both schedules")

	close(release)
	cancel()
	<-done
	<-done
}
