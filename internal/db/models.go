package db

import (
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"
	"mindreel.dev/mindreel/pkg/utils/langtag"
	"mindreel.dev/mindreel/pkg/utils/markdown"
)

// JobType is the closed set of job kinds the processor knows how to run.
type JobType string

const (
	JobTypeFetchTranscript    JobType = "fetch_transcript"
	JobTypeGenerateEmbeddings JobType = "generate_embeddings"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is one durable unit of asynchronous ingestion work.
//
// StartedAt doubles as the anchor for backoff gating on retried embedding
// jobs: FailEmbeddingJob resets it so the claim query can compare elapsed
// time against the backoff window.
type Job struct {
	ID          int64
	Type        JobType
	Payload     json.RawMessage
	Status      JobStatus
	Attempts    int32
	MaxAttempts int32
	Error       *string
	ClaimedBy   pgtype.UUID
	CreatedAt   pgtype.Timestamptz
	StartedAt   pgtype.Timestamptz
	CompletedAt pgtype.Timestamptz
}

// Video is an archived YouTube video. Transcript stays nil until the
// fetch_transcript job persists it.
type Video struct {
	ID                 int64
	YoutubeID          string
	ChannelID          *string
	Title              string
	Description        markdown.Markdown
	PublishedAt        pgtype.Timestamptz
	Transcript         *string
	TranscriptLanguage langtag.Tag
	CreatedAt          pgtype.Timestamptz
}

// Channel is a followed YouTube channel polled by the feed refresh sweep.
type Channel struct {
	ID        int64
	ChannelID string
	Name      string
	AddedAt   pgtype.Timestamptz
}
