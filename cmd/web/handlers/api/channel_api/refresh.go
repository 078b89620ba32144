package channel_api

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"mindreel.dev/mindreel/cmd/web/handlers/common"
	"mindreel.dev/mindreel/internal/db"
)

// ChannelRefresher runs one on-demand feed refresh for a channel.
type ChannelRefresher interface {
	RefreshChannel(ctx context.Context, channelID string) (int, error)
}

// HandleRefresh fetches a followed channel's feed right away instead of
// waiting for the periodic sweep.
func HandleRefresh(dbc *db.DatabaseConnection, refresher ChannelRefresher) echo.HandlerFunc {
	return func(c echo.Context) error {
		channelID := c.Param("channelId")

		ctx := c.Request().Context()
		if _, err := dbc.Queries(ctx).GetChannelByExternalID(ctx, channelID); err != nil {
			if db.IsNoRows(err) {
				return common.ErrNotFound("channel not followed")
			}
			slog.Error("failed to load channel", "channel_id", channelID, "error", err)
			return common.ErrInternal("failed to load channel")
		}

		created, err := refresher.RefreshChannel(ctx, channelID)
		if err != nil {
			slog.Error("on-demand channel refresh failed", "channel_id", channelID, "error", err)
			return common.ErrInternal("channel refresh failed")
		}

		return c.JSON(200, map[string]any{"channelId": channelID, "newVideos": created})
	}
}
