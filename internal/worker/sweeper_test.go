package worker

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReconciler struct {
	calls   atomic.Int32
	applied int
	err     error

	lastCutoff time.Time
	lastLimit  int
}

func (f *fakeReconciler) ReconcileStale(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	f.calls.Add(1)
	f.lastCutoff = cutoff
	f.lastLimit = limit
	return f.applied, f.err
}

func TestSweeperRunOnce(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	t.Run("passes the stale cutoff and batch size", func(t *testing.T) {
		fake := &fakeReconciler{applied: 2}
		sweeper := NewSweeper(fake, time.Minute, 15*time.Minute, 50, logger)

		before := time.Now().Add(-15 * time.Minute)
		sweeper.RunOnce(context.Background())

		require.Equal(t, int32(1), fake.calls.Load())
		assert.Equal(t, 50, fake.lastLimit)
		assert.WithinDuration(t, before, fake.lastCutoff, 2*time.Second)
	})

	t.Run("a failed cycle does not panic", func(t *testing.T) {
		fake := &fakeReconciler{err: context.DeadlineExceeded}
		sweeper := NewSweeper(fake, time.Minute, 15*time.Minute, 50, logger)

		sweeper.RunOnce(context.Background())
		assert.Equal(t, int32(1), fake.calls.Load())
	})
}

func TestSweeperStopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	fake := &fakeReconciler{}
	sweeper := NewSweeper(fake, 10*time.Millisecond, time.Minute, 10, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
	assert.GreaterOrEqual(t, fake.calls.Load(), int32(1))
}
