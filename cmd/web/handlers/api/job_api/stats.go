package job_api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"mindreel.dev/mindreel/cmd/web/handlers/common"
	"mindreel.dev/mindreel/internal/db"
)

// HandleStats reports per-status job counts.
func HandleStats(dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		counts, err := dbc.Queries(ctx).CountJobsByStatus(ctx)
		if err != nil {
			slog.Error("failed to count jobs", "error", err)
			return common.ErrInternal("failed to count jobs")
		}

		return c.JSON(200, counts)
	}
}
