package channel_api

import (
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"mindreel.dev/mindreel/cmd/web/handlers/common"
	"mindreel.dev/mindreel/internal/db"
)

type channelView struct {
	ID        int64  `json:"id"`
	ChannelID string `json:"channelId"`
	Name      string `json:"name"`
	AddedAt   string `json:"addedAt"`
	Followed  string `json:"followed"`
}

func toChannelView(ch *db.Channel) channelView {
	v := channelView{
		ID:        ch.ID,
		ChannelID: ch.ChannelID,
		Name:      ch.Name,
	}
	if ch.AddedAt.Valid {
		v.AddedAt = ch.AddedAt.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
		v.Followed = humanize.Time(ch.AddedAt.Time)
	}
	return v
}

// HandleIndex lists the followed channels.
func HandleIndex(dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		channels, err := dbc.Queries(ctx).ListChannels(ctx)
		if err != nil {
			slog.Error("failed to list channels", "error", err)
			return common.ErrInternal("failed to list channels")
		}

		views := make([]channelView, 0, len(channels))
		for _, ch := range channels {
			views = append(views, toChannelView(ch))
		}
		return c.JSON(200, map[string]any{"channels": views})
	}
}
