package db

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// The job state machine lives in SQL, so these tests need a real Postgres.
// Set TEST_DATABASE_DSN to run them; they are skipped otherwise.
func newTestDB(t *testing.T) *DatabaseConnection {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	dbc := &DatabaseConnection{pool}
	require.NoError(t, dbc.Migrate(ctx))

	_, err = pool.Exec(ctx, `TRUNCATE jobs, chunks, videos, channels RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return dbc
}

func testWorkerID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

// seedJob inserts a job row in an arbitrary state, bypassing the enqueue
// path so tests can stage retries and stuck workers directly.
func seedJob(t *testing.T, dbc *DatabaseConnection, typ JobType, status JobStatus, attempts int32, startedAgo time.Duration) int64 {
	t.Helper()

	startedAt := pgtype.Timestamptz{}
	if startedAgo != 0 {
		startedAt = Timestamptz(time.Now().Add(-startedAgo))
	}

	var id int64
	err := dbc.QueryRow(context.Background(), `
		INSERT INTO jobs (type, payload, status, attempts, started_at)
		VALUES ($1, '{}', $2, $3, $4)
		RETURNING id`,
		typ, status, attempts, startedAt,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestClaimNextJob_BackoffSurvivesHighAttemptCounts(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()
	q := dbc.Queries(ctx)

	// An embedding job deep into retry-forever territory. The backoff
	// arithmetic must stay inside interval range or this row poisons every
	// claim scan for every worker.
	hotID := seedJob(t, dbc, JobTypeGenerateEmbeddings, JobStatusPending, 40, time.Minute)
	otherID := seedJob(t, dbc, JobTypeFetchTranscript, JobStatusPending, 0, 0)

	// The embedding job is inside its (capped one hour) window, so the
	// transcript job must come out, without any SQL error.
	job, err := q.ClaimNextJob(ctx, testWorkerID(), nil)
	require.NoError(t, err)
	require.Equal(t, otherID, job.ID)

	// Nothing else eligible yet.
	_, err = q.ClaimNextJob(ctx, testWorkerID(), nil)
	require.Error(t, err)
	require.True(t, IsNoRows(err))

	// Once the capped window has elapsed the high-attempt job is claimable.
	_, err = dbc.Exec(ctx, `UPDATE jobs SET started_at = now() - interval '2 hours' WHERE id = $1`, hotID)
	require.NoError(t, err)

	job, err = q.ClaimNextJob(ctx, testWorkerID(), nil)
	require.NoError(t, err)
	require.Equal(t, hotID, job.ID)
	require.Equal(t, JobStatusProcessing, job.Status)
	require.Equal(t, int32(41), job.Attempts)
}

func TestClaimNextJob_RespectsBackoffWindow(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()
	q := dbc.Queries(ctx)

	// attempts=2 puts the window at 10 minutes.
	id := seedJob(t, dbc, JobTypeGenerateEmbeddings, JobStatusPending, 2, 5*time.Minute)

	_, err := q.ClaimNextJob(ctx, testWorkerID(), nil)
	require.True(t, IsNoRows(err))

	_, err = dbc.Exec(ctx, `UPDATE jobs SET started_at = now() - interval '11 minutes' WHERE id = $1`, id)
	require.NoError(t, err)

	job, err := q.ClaimNextJob(ctx, testWorkerID(), nil)
	require.NoError(t, err)
	require.Equal(t, id, job.ID)
}

func TestClaimNextJob_TypeFilter(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()
	q := dbc.Queries(ctx)

	seedJob(t, dbc, JobTypeFetchTranscript, JobStatusPending, 0, 0)
	embedID := seedJob(t, dbc, JobTypeGenerateEmbeddings, JobStatusPending, 0, 0)

	job, err := q.ClaimNextJob(ctx, testWorkerID(), []JobType{JobTypeGenerateEmbeddings})
	require.NoError(t, err)
	require.Equal(t, embedID, job.ID)
}

func TestClaimNextJob_ConcurrentClaimsNeverShareAJob(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	const jobs = 20
	for range jobs {
		seedJob(t, dbc, JobTypeFetchTranscript, JobStatusPending, 0, 0)
	}

	var mu sync.Mutex
	claimed := make(map[int64]int)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := dbc.Queries(ctx)
			worker := testWorkerID()
			for {
				job, err := q.ClaimNextJob(ctx, worker, nil)
				if err != nil {
					return
				}
				mu.Lock()
				claimed[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, claimed, jobs)
	for id, n := range claimed {
		require.Equal(t, 1, n, "job %d claimed %d times", id, n)
	}
}

func TestFailJob_FiniteRetryExhaustsAttempts(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()
	q := dbc.Queries(ctx)

	enqueued, err := q.EnqueueJob(ctx, &EnqueueJobParams{Type: JobTypeFetchTranscript, Payload: map[string]any{"videoId": 1}})
	require.NoError(t, err)

	// Default max_attempts is 3: the first two failures re-queue, the third
	// is terminal.
	for i, want := range []JobStatus{JobStatusPending, JobStatusPending, JobStatusFailed} {
		job, err := q.ClaimNextJob(ctx, testWorkerID(), nil)
		require.NoError(t, err)
		require.Equal(t, enqueued.ID, job.ID)

		status, err := q.FailJob(ctx, job.ID, "boom")
		require.NoError(t, err)
		require.Equal(t, want, status, "failure %d", i+1)
	}

	final, err := q.GetJobByID(ctx, enqueued.ID)
	require.NoError(t, err)
	require.Equal(t, JobStatusFailed, final.Status)
	require.NotNil(t, final.Error)
	require.Equal(t, int32(3), final.Attempts)

	// Terminal means terminal: nothing left to claim.
	_, err = q.ClaimNextJob(ctx, testWorkerID(), nil)
	require.True(t, IsNoRows(err))
}

func TestFailEmbeddingJob_AlwaysPendingWithFreshStartedAt(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()
	q := dbc.Queries(ctx)

	id := seedJob(t, dbc, JobTypeGenerateEmbeddings, JobStatusPending, 0, 0)

	job, err := q.ClaimNextJob(ctx, testWorkerID(), nil)
	require.NoError(t, err)
	require.Equal(t, id, job.ID)

	// Age the claim so the reset is observable.
	_, err = dbc.Exec(ctx, `UPDATE jobs SET started_at = now() - interval '30 minutes' WHERE id = $1`, id)
	require.NoError(t, err)

	require.NoError(t, q.FailEmbeddingJob(ctx, id, "model not loaded"))

	failed, err := q.GetJobByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, JobStatusPending, failed.Status)
	require.NotNil(t, failed.Error)
	require.True(t, failed.StartedAt.Valid)
	require.WithinDuration(t, time.Now(), failed.StartedAt.Time, time.Minute)
}

func TestRecoverStaleJobs_ThresholdBoundary(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()
	q := dbc.Queries(ctx)

	staleID := seedJob(t, dbc, JobTypeFetchTranscript, JobStatusProcessing, 1, 11*time.Minute)
	freshID := seedJob(t, dbc, JobTypeFetchTranscript, JobStatusProcessing, 1, 9*time.Minute)

	n, err := q.RecoverStaleJobs(ctx, (10 * time.Minute).Seconds(), "recovered")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	stale, err := q.GetJobByID(ctx, staleID)
	require.NoError(t, err)
	require.Equal(t, JobStatusPending, stale.Status)
	require.NotNil(t, stale.Error)

	fresh, err := q.GetJobByID(ctx, freshID)
	require.NoError(t, err)
	require.Equal(t, JobStatusProcessing, fresh.Status)
}

func TestInsertOrphanEmbeddingJobs_ThreeConditionFilter(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()
	q := dbc.Queries(ctx)

	seedVideo := func(youtubeID string, transcript *string) int64 {
		var id int64
		err := dbc.QueryRow(ctx, `
			INSERT INTO videos (youtube_id, title, transcript)
			VALUES ($1, $1, $2)
			RETURNING id`,
			youtubeID, transcript,
		).Scan(&id)
		require.NoError(t, err)
		return id
	}
	text := "hello world"

	orphanID := seedVideo(t.Name()+"-orphan", &text)
	chunkedID := seedVideo(t.Name()+"-chunked", &text)
	activeID := seedVideo(t.Name()+"-active", &text)
	seedVideo(t.Name()+"-bare", nil)

	_, err := dbc.Exec(ctx, `
		INSERT INTO chunks (video_id, content) VALUES ($1, 'chunk')`, chunkedID)
	require.NoError(t, err)

	_, err = dbc.Exec(ctx, `
		INSERT INTO jobs (type, payload) VALUES ('generate_embeddings', jsonb_build_object('videoId', $1::bigint))`, activeID)
	require.NoError(t, err)

	n, err := q.InsertOrphanEmbeddingJobs(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	// Exactly one new job, pointing at the orphan.
	var gotVideoID int64
	err = dbc.QueryRow(ctx, `
		SELECT (payload ->> 'videoId')::bigint
		FROM jobs
		WHERE type = 'generate_embeddings' AND (payload ->> 'videoId')::bigint = $1`,
		orphanID,
	).Scan(&gotVideoID)
	require.NoError(t, err)
	require.Equal(t, orphanID, gotVideoID)

	// Re-running detects nothing new.
	n, err = q.InsertOrphanEmbeddingJobs(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCompleteJob_Idempotent(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()
	q := dbc.Queries(ctx)

	id := seedJob(t, dbc, JobTypeFetchTranscript, JobStatusProcessing, 1, time.Second)

	require.NoError(t, q.CompleteJob(ctx, id))

	first, err := q.GetJobByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, JobStatusCompleted, first.Status)
	require.True(t, first.CompletedAt.Valid)

	require.NoError(t, q.CompleteJob(ctx, id))

	second, err := q.GetJobByID(ctx, id)
	require.NoError(t, err)
	require.True(t, first.CompletedAt.Time.Equal(second.CompletedAt.Time))
}
