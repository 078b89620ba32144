// Package worker runs the claim → process → resolve loops around the job
// queue, plus the periodic self-healing sweep and channel feed refresh.
package worker

import (
	"context"
	"log/slog"
	"time"

	"mindreel.dev/mindreel/internal/db"
)

// Queue is the slice of the job queue a worker loop needs.
type Queue interface {
	ClaimNext(ctx context.Context, types ...db.JobType) (*db.Job, error)
	Complete(ctx context.Context, jobID int64) error
	Fail(ctx context.Context, jobID int64, errMsg string) error
	FailEmbeddingJob(ctx context.Context, jobID int64, errMsg string) error
}

// Processor runs one claimed job and returns its error for the worker to
// account for.
type Processor interface {
	Process(ctx context.Context, job *db.Job) error
}

type Worker struct {
	queue Queue
	proc  Processor
	wake  <-chan struct{}
	poll  time.Duration
}

// New creates a worker loop. wake may be nil; the poll interval alone then
// paces idle claims.
func New(queue Queue, proc Processor, wake <-chan struct{}, poll time.Duration) *Worker {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &Worker{queue: queue, proc: proc, wake: wake, poll: poll}
}

// Run claims and processes jobs until ctx is done. When the queue runs dry
// it blocks on the wake channel with a poll fallback.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		// Drain as many jobs as we can
		for {
			job, err := w.queue.ClaimNext(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("failed to claim job", "error", err)
				time.Sleep(2 * time.Second)
				break
			}
			if job == nil {
				break
			}

			w.runJob(ctx, job)
		}

		select {
		case <-ctx.Done():
			return
		case <-w.wake:
			// new job notification
		case <-time.After(w.poll):
			// periodic poll
		}
	}
}

// runJob processes one claimed job and routes the outcome. Embedding jobs
// use the retry-forever policy; every other type gets finite retry.
func (w *Worker) runJob(ctx context.Context, job *db.Job) {
	start := time.Now()
	err := w.proc.Process(ctx, job)
	if err == nil {
		if err := w.queue.Complete(ctx, job.ID); err != nil {
			slog.Error("failed to mark job completed", "job_id", job.ID, "error", err)
			return
		}
		slog.Info("job completed", "job_id", job.ID, "type", job.Type, "duration", time.Since(start))
		return
	}

	slog.Error("job failed", "job_id", job.ID, "type", job.Type, "attempts", job.Attempts, "error", err)

	var resolveErr error
	if job.Type == db.JobTypeGenerateEmbeddings {
		resolveErr = w.queue.FailEmbeddingJob(ctx, job.ID, err.Error())
	} else {
		resolveErr = w.queue.Fail(ctx, job.ID, err.Error())
	}
	if resolveErr != nil {
		// The job stays in processing; the stale sweep will recover it.
		slog.Error("failed to record job failure", "job_id", job.ID, "error", resolveErr)
	}
}
