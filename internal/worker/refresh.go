package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mindreel.dev/mindreel/internal/db"
	"mindreel.dev/mindreel/internal/processor"
	"mindreel.dev/mindreel/internal/rss"
)

// FeedFetcher is the channel feed collaborator.
type FeedFetcher interface {
	FetchChannelFeed(ctx context.Context, channelID string) (*rss.ChannelFeed, error)
}

// ChannelStore lists the followed channels that drive the refresh sweep and
// upserts the feed-level channel name back onto them.
type ChannelStore interface {
	ListChannels(ctx context.Context) ([]*db.Channel, error)
	InsertChannel(ctx context.Context, params *db.InsertChannelParams) (*db.Channel, error)
}

// DeltaDetector finds and persists genuinely new feed videos.
type DeltaDetector interface {
	FindNewVideos(ctx context.Context, feedVideos []rss.FeedVideo) ([]rss.FeedVideo, error)
	CreateVideoFromRSS(ctx context.Context, feedVideo rss.FeedVideo, channelID string) (int64, error)
}

// Enqueuer inserts the fetch_transcript job for each new video.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType db.JobType, payload any) (int64, error)
}

// Refresher polls followed channel feeds and feeds new videos into the
// ingestion pipeline.
type Refresher struct {
	channels ChannelStore
	feeds    FeedFetcher
	detector DeltaDetector
	queue    Enqueuer
	interval time.Duration
}

func NewRefresher(channels ChannelStore, feeds FeedFetcher, detector DeltaDetector, queue Enqueuer, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Refresher{
		channels: channels,
		feeds:    feeds,
		detector: detector,
		queue:    queue,
		interval: interval,
	}
}

func (r *Refresher) Run(ctx context.Context) {
	// First pass right away so a fresh deployment doesn't idle for a full
	// interval.
	r.RefreshAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// RefreshAll refreshes every followed channel. A failing channel is logged
// and skipped; it never aborts the sweep. Returns the total number of new
// videos ingested.
func (r *Refresher) RefreshAll(ctx context.Context) int {
	channels, err := r.channels.ListChannels(ctx)
	if err != nil {
		slog.Error("failed to list channels for refresh", "error", err)
		return 0
	}

	total := 0
	for _, ch := range channels {
		if ctx.Err() != nil {
			return total
		}

		n, err := r.RefreshChannel(ctx, ch.ChannelID)
		if err != nil {
			slog.Error("channel refresh failed", "channel_id", ch.ChannelID, "error", err)
			continue
		}
		total += n
	}

	if total > 0 {
		slog.Info("channel refresh complete", "channels", len(channels), "new_videos", total)
	}
	return total
}

// RefreshChannel fetches one channel's feed, persists unseen videos, and
// enqueues a fetch_transcript job for each. Returns the number of new
// videos.
func (r *Refresher) RefreshChannel(ctx context.Context, channelID string) (int, error) {
	feed, err := r.feeds.FetchChannelFeed(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("fetch feed: %w", err)
	}

	// The feed carries the channel's current display name; keep the stored
	// one in sync.
	if feed.ChannelName != "" {
		if _, err := r.channels.InsertChannel(ctx, &db.InsertChannelParams{
			ChannelID: channelID,
			Name:      feed.ChannelName,
		}); err != nil {
			slog.Warn("failed to refresh channel name", "channel_id", channelID, "error", err)
		}
	}

	fresh, err := r.detector.FindNewVideos(ctx, feed.Videos)
	if err != nil {
		return 0, fmt.Errorf("detect new videos: %w", err)
	}

	created := 0
	for _, v := range fresh {
		videoID, err := r.detector.CreateVideoFromRSS(ctx, v, channelID)
		if err != nil {
			return created, fmt.Errorf("create video %s: %w", v.YoutubeID, err)
		}

		_, err = r.queue.Enqueue(ctx, db.JobTypeFetchTranscript, processor.FetchTranscriptPayload{
			VideoID:   videoID,
			YoutubeID: v.YoutubeID,
		})
		if err != nil {
			return created, fmt.Errorf("enqueue transcript job for video %s: %w", v.YoutubeID, err)
		}

		created++
		slog.Info("new video ingested", "channel_id", channelID, "youtube_id", v.YoutubeID, "video_id", videoID, "title", v.Title)
	}

	return created, nil
}
