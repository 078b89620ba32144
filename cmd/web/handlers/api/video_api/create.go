package video_api

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"mindreel.dev/mindreel/cmd/web/handlers/common"
	"mindreel.dev/mindreel/internal/db"
	"mindreel.dev/mindreel/internal/processor"
	"mindreel.dev/mindreel/pkg/utils/youtube"
)

// Enqueuer inserts the first pipeline job for a manually added video.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType db.JobType, payload any) (int64, error)
}

type createRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// HandleCreate archives a single video by URL or bare video id and starts
// its ingestion pipeline.
func HandleCreate(dbc *db.DatabaseConnection, queue Enqueuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createRequest
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid request body")
		}

		youtubeID, err := youtube.ExtractVideoID(strings.TrimSpace(req.URL))
		if err != nil {
			return common.ErrBadRequest("could not extract a video id from url")
		}

		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = youtubeID
		}

		ctx := c.Request().Context()
		video, err := dbc.Queries(ctx).InsertVideo(ctx, &db.InsertVideoParams{
			YoutubeID:   youtubeID,
			Title:       title,
			PublishedAt: db.Timestamptz(time.Now()),
		})
		if err != nil {
			if db.IsNoRows(err) {
				return common.ErrBadRequest("video already archived")
			}
			slog.Error("failed to insert video", "youtube_id", youtubeID, "error", err)
			return common.ErrInternal("failed to archive video")
		}

		jobID, err := queue.Enqueue(ctx, db.JobTypeFetchTranscript, processor.FetchTranscriptPayload{
			VideoID:   video.ID,
			YoutubeID: video.YoutubeID,
		})
		if err != nil {
			slog.Error("failed to enqueue transcript job", "video_id", video.ID, "error", err)
			return common.ErrInternal("video archived but transcript job could not be enqueued")
		}

		slog.Info("video archived by operator", "video_id", video.ID, "youtube_id", youtubeID, "job_id", jobID)
		return c.JSON(201, map[string]any{"video": toVideoView(video), "jobId": jobID})
	}
}
