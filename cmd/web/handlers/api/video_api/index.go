// package video_api provides archived-video API handlers.
package video_api

import (
	"html/template"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"mindreel.dev/mindreel/cmd/web/handlers/common"
	"mindreel.dev/mindreel/internal/db"
)

type videoView struct {
	ID            int64         `json:"id"`
	YoutubeID     string        `json:"youtubeId"`
	ChannelID     *string       `json:"channelId,omitempty"`
	Title         string        `json:"title"`
	Description   template.HTML `json:"description"`
	PublishedAt   string        `json:"publishedAt,omitempty"`
	HasTranscript bool          `json:"hasTranscript"`
	Language      string        `json:"language,omitempty"`
	Added         string        `json:"added,omitempty"`
}

func toVideoView(v *db.Video) videoView {
	view := videoView{
		ID:            v.ID,
		YoutubeID:     v.YoutubeID,
		ChannelID:     v.ChannelID,
		Title:         v.Title,
		Description:   v.Description.Render(),
		HasTranscript: v.Transcript != nil,
		Language:      v.TranscriptLanguage.String(),
	}
	if v.PublishedAt.Valid {
		view.PublishedAt = v.PublishedAt.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if v.CreatedAt.Valid {
		view.Added = humanize.Time(v.CreatedAt.Time)
	}
	return view
}

// HandleIndex lists the most recently archived videos.
func HandleIndex(dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := common.OptionalIntQuery(c, "limit", 50)
		if limit > 500 {
			limit = 500
		}

		ctx := c.Request().Context()
		videos, err := dbc.Queries(ctx).ListVideos(ctx, int32(limit))
		if err != nil {
			slog.Error("failed to list videos", "error", err)
			return common.ErrInternal("failed to list videos")
		}

		views := make([]videoView, 0, len(videos))
		for _, v := range videos {
			views = append(views, toVideoView(v))
		}
		return c.JSON(200, map[string]any{"videos": views})
	}
}
