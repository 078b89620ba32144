package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"mindreel.dev/mindreel/pkg/utils/langtag"
)

const videoColumns = `id, youtube_id, channel_id, title, description, published_at, transcript, transcript_language, created_at`

func scanVideo(row pgx.Row) (*Video, error) {
	var v Video
	err := row.Scan(
		&v.ID,
		&v.YoutubeID,
		&v.ChannelID,
		&v.Title,
		&v.Description,
		&v.PublishedAt,
		&v.Transcript,
		&v.TranscriptLanguage,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type InsertVideoParams struct {
	YoutubeID   string
	ChannelID   *string
	Title       string
	Description string
	PublishedAt pgtype.Timestamptz
}

// InsertVideo persists a new video record. A conflicting youtube_id inserts
// nothing and surfaces as pgx.ErrNoRows; callers treat that as an invariant
// violation since the delta detector filters known ids first.
func (q *Queries) InsertVideo(ctx context.Context, params *InsertVideoParams) (*Video, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO videos (youtube_id, channel_id, title, description, published_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (youtube_id) DO NOTHING
		RETURNING `+videoColumns,
		params.YoutubeID, params.ChannelID, params.Title, params.Description, params.PublishedAt,
	)
	return scanVideo(row)
}

func (q *Queries) GetVideoByID(ctx context.Context, id int64) (*Video, error) {
	row := q.db.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	return scanVideo(row)
}

type SetVideoTranscriptParams struct {
	ID         int64
	Transcript string
	Language   langtag.Tag
}

func (q *Queries) SetVideoTranscript(ctx context.Context, params *SetVideoTranscriptParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE videos
		SET transcript = $2, transcript_language = $3
		WHERE id = $1`,
		params.ID, params.Transcript, params.Language,
	)
	return err
}

// FilterExistingYoutubeIDs returns the subset of ids already persisted.
func (q *Queries) FilterExistingYoutubeIDs(ctx context.Context, youtubeIDs []string) ([]string, error) {
	rows, err := q.db.Query(ctx, `
		SELECT youtube_id FROM videos WHERE youtube_id = ANY($1)`,
		youtubeIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var existing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing = append(existing, id)
	}
	return existing, rows.Err()
}

// CountVideoChunks reports how many chunks the embedding collaborator has
// stored for a video. Used purely as the idempotence check before
// re-running expensive embedding work.
func (q *Queries) CountVideoChunks(ctx context.Context, videoID int64) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE video_id = $1`, videoID).Scan(&n)
	return n, err
}

func (q *Queries) ListVideos(ctx context.Context, limit int32) ([]*Video, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+videoColumns+`
		FROM videos
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}
