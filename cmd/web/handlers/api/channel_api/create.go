// package channel_api provides followed-channel API handlers.
package channel_api

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"mindreel.dev/mindreel/cmd/web/handlers/common"
	"mindreel.dev/mindreel/internal/db"
	"mindreel.dev/mindreel/pkg/utils/youtube"
)

type createRequest struct {
	ChannelID string `json:"channelId"`
	Name      string `json:"name"`
}

// HandleCreate follows a channel. Following an already-followed channel
// just refreshes its stored name.
func HandleCreate(dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createRequest
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid request body")
		}

		req.ChannelID = strings.TrimSpace(req.ChannelID)
		if !youtube.IsValidChannelID(req.ChannelID) {
			return common.ErrBadRequest("invalid channel id")
		}
		if strings.TrimSpace(req.Name) == "" {
			req.Name = req.ChannelID
		}

		ctx := c.Request().Context()
		channel, err := dbc.Queries(ctx).InsertChannel(ctx, &db.InsertChannelParams{
			ChannelID: req.ChannelID,
			Name:      req.Name,
		})
		if err != nil {
			slog.Error("failed to follow channel", "channel_id", req.ChannelID, "error", err)
			return common.ErrInternal("failed to follow channel")
		}

		slog.Info("channel followed", "channel_id", channel.ChannelID, "name", channel.Name)
		return c.JSON(201, toChannelView(channel))
	}
}
