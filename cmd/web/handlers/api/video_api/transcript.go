package video_api

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"mindreel.dev/mindreel/cmd/web/handlers/common"
	"mindreel.dev/mindreel/internal/db"
	"mindreel.dev/mindreel/internal/processor"
	"mindreel.dev/mindreel/pkg/utils/langtag"
)

type transcriptRequest struct {
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
}

// HandleSetTranscript stores an operator-supplied transcript and enqueues
// embedding generation, bypassing the fetch step.
func HandleSetTranscript(dbc *db.DatabaseConnection, queue Enqueuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := common.RequireInt64Param(c, "id")
		if err != nil {
			return err
		}

		var req transcriptRequest
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid request body")
		}
		if strings.TrimSpace(req.Transcript) == "" {
			return common.ErrBadRequest("transcript is empty")
		}

		lang := langtag.Und
		if s := strings.TrimSpace(req.Language); s != "" {
			parsed, err := langtag.Parse(s)
			if err != nil {
				return common.ErrBadRequest("invalid language tag")
			}
			lang = parsed
		}

		ctx := c.Request().Context()
		if _, err := dbc.Queries(ctx).GetVideoByID(ctx, videoID); err != nil {
			if db.IsNoRows(err) {
				return common.ErrNotFound("video not found")
			}
			slog.Error("failed to load video", "video_id", videoID, "error", err)
			return common.ErrInternal("failed to load video")
		}

		if err := dbc.Queries(ctx).SetVideoTranscript(ctx, &db.SetVideoTranscriptParams{
			ID:         videoID,
			Transcript: req.Transcript,
			Language:   lang,
		}); err != nil {
			slog.Error("failed to store transcript", "video_id", videoID, "error", err)
			return common.ErrInternal("failed to store transcript")
		}

		jobID, err := queue.Enqueue(ctx, db.JobTypeGenerateEmbeddings, processor.GenerateEmbeddingsPayload{
			VideoID: videoID,
		})
		if err != nil {
			slog.Error("failed to enqueue embedding job", "video_id", videoID, "error", err)
			return common.ErrInternal("transcript stored but embedding job could not be enqueued")
		}

		slog.Info("transcript stored by operator", "video_id", videoID, "job_id", jobID)
		return c.JSON(200, map[string]any{"videoId": videoID, "jobId": jobID})
	}
}
