package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper reconciles live sessions and pushes a fresh snapshot to admins.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// SnapshotWorker periodically runs the ghost sweep while an admin watches.
type SnapshotWorker struct {
	sweeper  Sweeper
	interval time.Duration
	log      zerolog.Logger
}

// NewSnapshotWorker creates a new SnapshotWorker.
func NewSnapshotWorker(sweeper Sweeper, interval time.Duration, log zerolog.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		sweeper:  sweeper,
		interval: interval,
		log:      log.With().Str("component", "snapshot_worker").Logger(),
	}
}

// Start ticks until ctx is done. Call in a goroutine.
func (w *SnapshotWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info().Msg("Snapshot sweeper disabled")
		return
	}
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, w.interval)
			if err := w.sweeper.Sweep(sweepCtx); err != nil {
				w.log.Warn().Err(err).Msg("Sweep failed")
			}
			cancel()
		}
	}
}
