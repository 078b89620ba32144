package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"mindreel.dev/mindreel/internal/db"
)

type fakeQueue struct {
	completed     []int64
	failed        []int64
	failedEmbed   []int64
	lastErrMsg    string
	completeErr   error
	claimResponse []*db.Job
}

func (q *fakeQueue) ClaimNext(ctx context.Context, types ...db.JobType) (*db.Job, error) {
	if len(q.claimResponse) == 0 {
		return nil, nil
	}
	job := q.claimResponse[0]
	q.claimResponse = q.claimResponse[1:]
	return job, nil
}

func (q *fakeQueue) Complete(ctx context.Context, jobID int64) error {
	q.completed = append(q.completed, jobID)
	return q.completeErr
}

func (q *fakeQueue) Fail(ctx context.Context, jobID int64, errMsg string) error {
	q.failed = append(q.failed, jobID)
	q.lastErrMsg = errMsg
	return nil
}

func (q *fakeQueue) FailEmbeddingJob(ctx context.Context, jobID int64, errMsg string) error {
	q.failedEmbed = append(q.failedEmbed, jobID)
	q.lastErrMsg = errMsg
	return nil
}

type fakeProcessor struct {
	mu        sync.Mutex
	err       error
	processed []*db.Job
}

func (p *fakeProcessor) Process(ctx context.Context, job *db.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, job)
	return p.err
}

func (p *fakeProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.processed)
}

func TestRunJob_SuccessCompletes(t *testing.T) {
	q := &fakeQueue{}
	p := &fakeProcessor{}
	w := New(q, p, nil, 0)

	w.runJob(context.Background(), &db.Job{ID: 7, Type: db.JobTypeFetchTranscript})

	require.Equal(t, []int64{7}, q.completed)
	require.Empty(t, q.failed)
	require.Empty(t, q.failedEmbed)
}

func TestRunJob_TranscriptFailureUsesFinitePolicy(t *testing.T) {
	q := &fakeQueue{}
	p := &fakeProcessor{err: errors.New("fetch failed")}
	w := New(q, p, nil, 0)

	w.runJob(context.Background(), &db.Job{ID: 7, Type: db.JobTypeFetchTranscript})

	require.Equal(t, []int64{7}, q.failed)
	require.Empty(t, q.failedEmbed)
	require.Equal(t, "fetch failed", q.lastErrMsg)
}

func TestRunJob_EmbeddingFailureUsesRetryForeverPolicy(t *testing.T) {
	q := &fakeQueue{}
	p := &fakeProcessor{err: errors.New("model not loaded")}
	w := New(q, p, nil, 0)

	w.runJob(context.Background(), &db.Job{ID: 7, Type: db.JobTypeGenerateEmbeddings})

	require.Equal(t, []int64{7}, q.failedEmbed)
	require.Empty(t, q.failed)
}

func TestRun_DrainsQueueThenStops(t *testing.T) {
	q := &fakeQueue{claimResponse: []*db.Job{
		{ID: 1, Type: db.JobTypeFetchTranscript},
		{ID: 2, Type: db.JobTypeFetchTranscript},
	}}
	p := &fakeProcessor{}
	w := New(q, p, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	require.Equal(t, []int64{1, 2}, q.completed)
}
