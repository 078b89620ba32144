// Package processor routes claimed jobs to their handlers. It always
// returns errors to the caller; the worker loop owns the decision of how a
// failure is accounted for (finite retry vs retry-forever).
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mindreel.dev/mindreel/internal/db"
	"mindreel.dev/mindreel/internal/embedder"
	"mindreel.dev/mindreel/internal/transcripts"
	"mindreel.dev/mindreel/pkg/utils/langtag"
)

// Store is the slice of the db layer the processor needs.
type Store interface {
	GetVideoByID(ctx context.Context, id int64) (*db.Video, error)
	SetVideoTranscript(ctx context.Context, params *db.SetVideoTranscriptParams) error
	CountVideoChunks(ctx context.Context, videoID int64) (int64, error)
}

// Enqueuer chains follow-on jobs. Only the transcript handler uses it, to
// keep each job small and independently retriable.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType db.JobType, payload any) (int64, error)
}

// TranscriptFetcher is the transcript-fetching collaborator.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, youtubeID string) (*transcripts.Result, error)
}

// Chunker is the chunking collaborator.
type Chunker interface {
	ChunkTranscript(ctx context.Context, segments []transcripts.Segment) ([]embedder.Chunk, error)
}

// Embedder is the embedding collaborator. EmbedChunks performs an atomic
// replace-all of stored chunks for the video.
type Embedder interface {
	EmbedChunks(ctx context.Context, chunks []embedder.Chunk, modelHint string, videoID int64) (*embedder.EmbedResult, error)
}

type Processor struct {
	store       Store
	queue       Enqueuer
	transcripts TranscriptFetcher
	chunker     Chunker
	embedder    Embedder
	modelHint   string
}

func New(store Store, queue Enqueuer, tf TranscriptFetcher, chunker Chunker, emb Embedder, modelHint string) *Processor {
	return &Processor{
		store:       store,
		queue:       queue,
		transcripts: tf,
		chunker:     chunker,
		embedder:    emb,
		modelHint:   modelHint,
	}
}

// Process dispatches a claimed job to its handler.
func (p *Processor) Process(ctx context.Context, job *db.Job) error {
	switch job.Type {
	case db.JobTypeFetchTranscript:
		return p.fetchTranscript(ctx, job)
	case db.JobTypeGenerateEmbeddings:
		return p.generateEmbeddings(ctx, job)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}
}

// fetchTranscript pulls the transcript for a video, persists it, and chains
// a generate_embeddings job. It never calls the embedding collaborator.
func (p *Processor) fetchTranscript(ctx context.Context, job *db.Job) error {
	payload, err := decodeFetchTranscriptPayload(job.Payload)
	if err != nil {
		return err
	}

	res, err := p.transcripts.Fetch(ctx, payload.YoutubeID)
	if err != nil {
		return &RetriableError{Op: "fetch transcript", Err: err}
	}
	if !res.Success {
		return &RetriableError{Op: "fetch transcript", Err: fmt.Errorf("service failed: %s", res.Error)}
	}

	lang := langtag.Und
	if res.Language != "" {
		parsed, err := langtag.Parse(res.Language)
		if err != nil {
			slog.Warn("transcript service returned unparsable language", "job_id", job.ID, "language", res.Language)
		} else {
			lang = parsed
		}
	}

	if err := p.store.SetVideoTranscript(ctx, &db.SetVideoTranscriptParams{
		ID:         payload.VideoID,
		Transcript: res.Transcript,
		Language:   lang,
	}); err != nil {
		return fmt.Errorf("persist transcript for video %d: %w", payload.VideoID, err)
	}

	if _, err := p.queue.Enqueue(ctx, db.JobTypeGenerateEmbeddings, GenerateEmbeddingsPayload{VideoID: payload.VideoID}); err != nil {
		return fmt.Errorf("enqueue embedding job for video %d: %w", payload.VideoID, err)
	}

	slog.Info("transcript stored", "job_id", job.ID, "video_id", payload.VideoID, "youtube_id", payload.YoutubeID, "transcript_bytes", len(res.Transcript))
	return nil
}

// generateEmbeddings chunks a video's transcript and hands the chunks to the
// embedding collaborator, unless a previous run already stored them.
func (p *Processor) generateEmbeddings(ctx context.Context, job *db.Job) error {
	payload, err := decodeGenerateEmbeddingsPayload(job.Payload)
	if err != nil {
		return err
	}

	video, err := p.store.GetVideoByID(ctx, payload.VideoID)
	if err != nil {
		if db.IsNoRows(err) {
			return fmt.Errorf("video %d not found", payload.VideoID)
		}
		return fmt.Errorf("load video %d: %w", payload.VideoID, err)
	}
	if video.Transcript == nil || strings.TrimSpace(*video.Transcript) == "" {
		return fmt.Errorf("video %d has no transcript", payload.VideoID)
	}

	segments := transcripts.ParseSegments(*video.Transcript)
	chunks, err := p.chunker.ChunkTranscript(ctx, segments)
	if err != nil {
		return &RetriableError{Op: "chunk transcript", Err: err}
	}
	if len(chunks) == 0 {
		return fmt.Errorf("chunking produced no chunks for video %d", payload.VideoID)
	}

	// Idempotence guard: chunk storage is an atomic replace-all per video,
	// so an equal or higher stored count means a previous run already did
	// the expensive part. This read can race another worker benignly; the
	// worst case is one redundant embedding run.
	stored, err := p.store.CountVideoChunks(ctx, payload.VideoID)
	if err != nil {
		return fmt.Errorf("count chunks for video %d: %w", payload.VideoID, err)
	}
	if stored >= int64(len(chunks)) {
		slog.Info("embeddings already stored, skipping", "job_id", job.ID, "video_id", payload.VideoID, "stored_chunks", stored)
		return nil
	}

	res, err := p.embedder.EmbedChunks(ctx, chunks, p.modelHint, payload.VideoID)
	if err != nil {
		return &RetriableError{Op: "embed chunks", Err: err}
	}

	slog.Info("embeddings generated",
		"job_id", job.ID,
		"video_id", payload.VideoID,
		"total_chunks", res.TotalChunks,
		"success", res.SuccessCount,
		"errors", res.ErrorCount,
		"duration_ms", res.DurationMs)
	return nil
}
