// Package queue exposes the durable ingestion job queue: enqueue, atomic
// claim, completion/failure accounting, stale-job recovery and orphan-video
// detection. All state lives in the jobs table; safety under concurrent
// workers comes from the skip-locked claim in the db layer.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"mindreel.dev/mindreel/internal/db"
)

// StaleJobThreshold is how long a job may sit in processing before the sweep
// presumes its worker crashed and recovers it. There is no heartbeat
// protocol; this is the sole liveness mechanism.
const StaleJobThreshold = 10 * time.Minute

type Queue struct {
	dbc *db.DatabaseConnection

	// workerID is stamped into jobs.claimed_by on every claim so recovered
	// stale jobs can be traced back to the process that abandoned them.
	workerID pgtype.UUID
}

func NewQueue(dbc *db.DatabaseConnection) *Queue {
	id := uuid.New()
	return &Queue{
		dbc:      dbc,
		workerID: pgtype.UUID{Bytes: id, Valid: true},
	}
}

// Enqueue inserts a pending job and returns its id.
func (q *Queue) Enqueue(ctx context.Context, jobType db.JobType, payload any) (int64, error) {
	job, err := q.dbc.Queries(ctx).EnqueueJob(ctx, &db.EnqueueJobParams{
		Type:    jobType,
		Payload: payload,
	})
	if err != nil {
		return 0, fmt.Errorf("enqueue %s job: %w", jobType, err)
	}

	slog.Info("enqueued job", "job_id", job.ID, "type", job.Type)
	return job.ID, nil
}

// ClaimNext atomically claims the oldest eligible pending job, optionally
// restricted to the given types. Returns (nil, nil) when no job is
// available; that is a normal condition, not an error.
func (q *Queue) ClaimNext(ctx context.Context, types ...db.JobType) (*db.Job, error) {
	job, err := q.dbc.Queries(ctx).ClaimNextJob(ctx, q.workerID, types)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	return job, nil
}

// Complete marks a job completed. Safe to call more than once.
func (q *Queue) Complete(ctx context.Context, jobID int64) error {
	return q.dbc.Queries(ctx).CompleteJob(ctx, jobID)
}

// Fail records a failure under the finite-retry policy: the job returns to
// pending for an immediate re-claim until attempts reaches max_attempts,
// then fails terminally.
func (q *Queue) Fail(ctx context.Context, jobID int64, errMsg string) error {
	status, err := q.dbc.Queries(ctx).FailJob(ctx, jobID, errMsg)
	if err != nil {
		return fmt.Errorf("fail job %d: %w", jobID, err)
	}

	if status == db.JobStatusFailed {
		slog.Warn("job failed terminally", "job_id", jobID, "error", errMsg)
	} else {
		slog.Info("job re-queued after failure", "job_id", jobID, "error", errMsg)
	}
	return nil
}

// FailEmbeddingJob records a failure under the retry-forever policy used for
// embedding work: the job always returns to pending, and started_at is reset
// so the next claim waits out the backoff window. Embedding is cheap local
// work, so permanent failure is never desired, only throttled retry.
func (q *Queue) FailEmbeddingJob(ctx context.Context, jobID int64, errMsg string) error {
	if err := q.dbc.Queries(ctx).FailEmbeddingJob(ctx, jobID, errMsg); err != nil {
		return fmt.Errorf("fail embedding job %d: %w", jobID, err)
	}

	slog.Info("embedding job re-queued with backoff", "job_id", jobID, "error", errMsg)
	return nil
}

// RecoverStaleJobs resets jobs processing for longer than StaleJobThreshold
// back to pending and returns the count recovered.
func (q *Queue) RecoverStaleJobs(ctx context.Context) (int64, error) {
	msg := fmt.Sprintf("recovered: worker did not resolve job within %s", StaleJobThreshold)
	n, err := q.dbc.Queries(ctx).RecoverStaleJobs(ctx, StaleJobThreshold.Seconds(), msg)
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}

	if n > 0 {
		slog.Warn("recovered stale jobs", "count", n)
	}
	return n, nil
}

// DetectOrphanVideos enqueues a generate_embeddings job for every video that
// has a transcript but no chunks and no active embedding job, healing videos
// whose pipeline died between transcript write and embedding completion.
// Returns the number of jobs enqueued.
func (q *Queue) DetectOrphanVideos(ctx context.Context) (int64, error) {
	n, err := q.dbc.Queries(ctx).InsertOrphanEmbeddingJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("detect orphan videos: %w", err)
	}

	if n > 0 {
		slog.Info("enqueued embedding jobs for orphan videos", "count", n)
	}
	return n, nil
}

// GetJobsByStatus lists jobs for operator inspection.
func (q *Queue) GetJobsByStatus(ctx context.Context, status db.JobStatus) ([]*db.Job, error) {
	return q.dbc.Queries(ctx).GetJobsByStatus(ctx, status)
}

// Stats returns per-status job counts.
func (q *Queue) Stats(ctx context.Context) (*db.JobStatusCounts, error) {
	return q.dbc.Queries(ctx).CountJobsByStatus(ctx)
}
