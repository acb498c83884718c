// Package worker runs the background verification sweep. Providers drop
// webhooks; the sweep is what guarantees every pending payment
// eventually reaches a terminal state.
package worker

import (
	"context"
	"log/slog"
	"time"
)

type reconciler interface {
	ReconcileStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// Sweeper periodically re-verifies orders that have been pending longer
// than staleAge.
type Sweeper struct {
	reconcile reconciler
	interval  time.Duration
	staleAge  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewSweeper(reconcile reconciler, interval, staleAge time.Duration, batchSize int, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		reconcile: reconcile,
		interval:  interval,
		staleAge:  staleAge,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("starting verification sweeper",
		"interval", s.interval,
		"stale_age", s.staleAge,
		"batch_size", s.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping verification sweeper")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep cycle.
func (s *Sweeper) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.staleAge)
	applied, err := s.reconcile.ReconcileStale(ctx, cutoff, s.batchSize)
	if err != nil {
		s.logger.Error("sweep cycle failed", "error", err)
		return
	}
	if applied > 0 {
		s.logger.Info("sweep applied outcomes", "count", applied)
	}
}
