package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const jobColumns = `id, type, payload, status, attempts, max_attempts, error, claimed_by, created_at, started_at, completed_at`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(
		&j.ID,
		&j.Type,
		&j.Payload,
		&j.Status,
		&j.Attempts,
		&j.MaxAttempts,
		&j.Error,
		&j.ClaimedBy,
		&j.CreatedAt,
		&j.StartedAt,
		&j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

type EnqueueJobParams struct {
	Type    JobType
	Payload any
}

// EnqueueJob inserts a fresh pending job. The insert trigger fires a NOTIFY
// on the ingest_jobs channel so idle workers wake up immediately.
func (q *Queries) EnqueueJob(ctx context.Context, params *EnqueueJobParams) (*Job, error) {
	payload, err := json.Marshal(params.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	row := q.db.QueryRow(ctx, `
		INSERT INTO jobs (type, payload)
		VALUES ($1, $2)
		RETURNING `+jobColumns,
		params.Type, payload,
	)
	return scanJob(row)
}

// ClaimNextJob atomically claims the oldest eligible pending job for a
// worker. Selection and mutation happen in one statement: the CTE takes the
// row lock with SKIP LOCKED so concurrent claimants pass over candidates
// already being claimed instead of blocking, and the UPDATE flips the row to
// processing before any other caller can see it.
//
// Eligibility excludes retried generate_embeddings jobs still inside their
// backoff window (5min * 2^(attempts-1), capped at one hour, anchored on
// started_at). The exponent is clamped at 4 (already past the cap) because
// embedding jobs retry forever and an unbounded power would overflow the
// interval type on high-attempt rows, poisoning every claim scan. Other
// pending jobs are claimable immediately.
//
// Returns pgx.ErrNoRows when nothing is eligible.
func (q *Queries) ClaimNextJob(ctx context.Context, claimedBy pgtype.UUID, types []JobType) (*Job, error) {
	filter := make([]string, len(types))
	for i, t := range types {
		filter[i] = string(t)
	}

	row := q.db.QueryRow(ctx, `
		WITH next_job AS (
			SELECT id
			FROM jobs
			WHERE status = 'pending'
			  AND (cardinality($2::text[]) = 0 OR type = ANY($2::text[]))
			  AND (
				type <> 'generate_embeddings'
				OR attempts = 0
				OR started_at IS NULL
				OR now() - started_at > LEAST(interval '5 minutes' * power(2, LEAST(attempts - 1, 4)), interval '1 hour')
			  )
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE jobs
		SET status     = 'processing',
		    started_at = now(),
		    attempts   = attempts + 1,
		    claimed_by = $1
		FROM next_job
		WHERE jobs.id = next_job.id
		RETURNING `+prefixedJobColumns(),
		claimedBy, filter,
	)
	return scanJob(row)
}

func prefixedJobColumns() string {
	return `jobs.id, jobs.type, jobs.payload, jobs.status, jobs.attempts, jobs.max_attempts, jobs.error, jobs.claimed_by, jobs.created_at, jobs.started_at, jobs.completed_at`
}

// CompleteJob marks a job completed. Calling it again for an already
// completed job is a no-op.
func (q *Queries) CompleteJob(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `
		UPDATE jobs
		SET status = 'completed', completed_at = now()
		WHERE id = $1 AND completed_at IS NULL`,
		id,
	)
	return err
}

// FailJob applies the finite-retry policy: once attempts reaches
// max_attempts the job is terminally failed, otherwise it goes straight back
// to pending with no backoff. Returns the resulting status.
func (q *Queries) FailJob(ctx context.Context, id int64, errMsg string) (JobStatus, error) {
	var status JobStatus
	err := q.db.QueryRow(ctx, `
		UPDATE jobs
		SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
		    error  = $2
		WHERE id = $1
		RETURNING status`,
		id, errMsg,
	).Scan(&status)
	return status, err
}

// FailEmbeddingJob applies the retry-forever policy used for embedding work:
// the job always returns to pending, and started_at is reset so the next
// claim attempt is gated by the backoff window.
func (q *Queries) FailEmbeddingJob(ctx context.Context, id int64, errMsg string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE jobs
		SET status = 'pending', error = $2, started_at = now()
		WHERE id = $1`,
		id, errMsg,
	)
	return err
}

// RecoverStaleJobs resets jobs stuck in processing longer than olderThan
// seconds back to pending. Covers workers that died without calling
// complete/fail. Returns the number of jobs recovered.
func (q *Queries) RecoverStaleJobs(ctx context.Context, olderThanSeconds float64, errMsg string) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE jobs
		SET status = 'pending', error = $2
		WHERE status = 'processing'
		  AND started_at < now() - make_interval(secs => $1)`,
		olderThanSeconds, errMsg,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertOrphanEmbeddingJobs enqueues a generate_embeddings job for every
// video that has a transcript but no chunks and no pending/processing
// embedding job. One statement so a concurrent sweep cannot double-enqueue.
func (q *Queries) InsertOrphanEmbeddingJobs(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO jobs (type, payload)
		SELECT 'generate_embeddings', jsonb_build_object('videoId', v.id)
		FROM videos v
		WHERE v.transcript IS NOT NULL
		  AND btrim(v.transcript) <> ''
		  AND NOT EXISTS (SELECT 1 FROM chunks c WHERE c.video_id = v.id)
		  AND NOT EXISTS (
			SELECT 1 FROM jobs j
			WHERE j.type = 'generate_embeddings'
			  AND j.status IN ('pending', 'processing')
			  AND (j.payload ->> 'videoId')::bigint = v.id
		  )`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) GetJobByID(ctx context.Context, id int64) (*Job, error) {
	row := q.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

func (q *Queries) GetJobsByStatus(ctx context.Context, status JobStatus) ([]*Job, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = $1
		ORDER BY created_at DESC`,
		status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type JobStatusCounts struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

func (q *Queries) CountJobsByStatus(ctx context.Context) (*JobStatusCounts, error) {
	rows, err := q.db.Query(ctx, `SELECT status, count(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := &JobStatusCounts{}
	for rows.Next() {
		var status JobStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		switch status {
		case JobStatusPending:
			counts.Pending = n
		case JobStatusProcessing:
			counts.Processing = n
		case JobStatusCompleted:
			counts.Completed = n
		case JobStatusFailed:
			counts.Failed = n
		}
	}
	return counts, rows.Err()
}

// RetryJob re-queues a terminally failed job with a fresh attempt budget.
// Returns false if the job was not in failed state.
func (q *Queries) RetryJob(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE jobs
		SET status = 'pending', attempts = 0, error = NULL
		WHERE id = $1 AND status = 'failed'`,
		id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListenIngestJobs subscribes the current connection to enqueue
// notifications. Only meaningful on a dedicated *pgx.Conn.
func (q *Queries) ListenIngestJobs(ctx context.Context) error {
	_, err := q.db.Exec(ctx, `LISTEN ingest_jobs`)
	return err
}

// IsNoRows reports whether err is the pgx "no rows" sentinel.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
