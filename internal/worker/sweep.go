package worker

import (
	"context"
	"log/slog"
	"time"
)

// SweepQueue is the slice of the job queue the periodic sweep needs.
type SweepQueue interface {
	RecoverStaleJobs(ctx context.Context) (int64, error)
	DetectOrphanVideos(ctx context.Context) (int64, error)
}

// Sweeper periodically recovers stale jobs and re-enqueues embedding work
// for orphan videos. It is the subsystem's only self-healing mechanism, so
// a sweep failure is logged and retried on the next tick rather than
// stopping the loop.
type Sweeper struct {
	queue    SweepQueue
	interval time.Duration
}

func NewSweeper(queue SweepQueue, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{queue: queue, interval: interval}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one recovery pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	if _, err := s.queue.RecoverStaleJobs(ctx); err != nil {
		slog.Error("stale job recovery failed", "error", err)
	}
	if _, err := s.queue.DetectOrphanVideos(ctx); err != nil {
		slog.Error("orphan video detection failed", "error", err)
	}
}
