package job_api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"mindreel.dev/mindreel/cmd/web/handlers/common"
	"mindreel.dev/mindreel/internal/db"
)

// HandleRetry re-queues a terminally failed job with a fresh attempt budget.
func HandleRetry(dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := common.RequireInt64Param(c, "id")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		job, err := dbc.Queries(ctx).GetJobByID(ctx, jobID)
		if err != nil {
			if db.IsNoRows(err) {
				return common.ErrNotFound("job not found")
			}
			slog.Error("failed to load job", "job_id", jobID, "error", err)
			return common.ErrInternal("failed to load job")
		}

		retried, err := dbc.Queries(ctx).RetryJob(ctx, jobID)
		if err != nil {
			slog.Error("failed to retry job", "job_id", jobID, "error", err)
			return common.ErrInternal("failed to retry job")
		}
		if !retried {
			return common.ErrBadRequest("job is not in failed state")
		}

		slog.Info("job re-queued by operator", "job_id", jobID, "type", job.Type)
		return c.JSON(200, map[string]any{"status": "queued"})
	}
}
