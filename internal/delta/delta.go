// Package delta compares channel feed results against persisted videos to
// find genuinely new uploads.
package delta

import (
	"context"
	"fmt"

	"mindreel.dev/mindreel/internal/db"
	"mindreel.dev/mindreel/internal/rss"
)

// Store is the slice of the db layer the detector needs.
type Store interface {
	FilterExistingYoutubeIDs(ctx context.Context, youtubeIDs []string) ([]string, error)
	InsertVideo(ctx context.Context, params *db.InsertVideoParams) (*db.Video, error)
}

type Detector struct {
	store Store
}

func NewDetector(store Store) *Detector {
	return &Detector{store: store}
}

// FindNewVideos returns the feed videos not already persisted, preserving
// input order. Pure set difference on youtube id; no network calls.
func (d *Detector) FindNewVideos(ctx context.Context, feedVideos []rss.FeedVideo) ([]rss.FeedVideo, error) {
	if len(feedVideos) == 0 {
		return []rss.FeedVideo{}, nil
	}

	ids := make([]string, len(feedVideos))
	for i, v := range feedVideos {
		ids[i] = v.YoutubeID
	}

	existing, err := d.store.FilterExistingYoutubeIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("filter existing videos: %w", err)
	}

	known := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}

	fresh := make([]rss.FeedVideo, 0, len(feedVideos))
	for _, v := range feedVideos {
		if _, ok := known[v.YoutubeID]; !ok {
			fresh = append(fresh, v)
		}
	}
	return fresh, nil
}

// CreateVideoFromRSS persists one feed video and returns the new row id.
// The insert returning no row means a video the detector just filtered as
// unseen already exists; that breaks the pipeline's assumptions, so it
// surfaces as an error rather than being papered over.
func (d *Detector) CreateVideoFromRSS(ctx context.Context, feedVideo rss.FeedVideo, channelID string) (int64, error) {
	video, err := d.store.InsertVideo(ctx, &db.InsertVideoParams{
		YoutubeID:   feedVideo.YoutubeID,
		ChannelID:   &channelID,
		Title:       feedVideo.Title,
		Description: feedVideo.Description,
		PublishedAt: db.Timestamptz(feedVideo.PublishedAt),
	})
	if err != nil {
		if db.IsNoRows(err) {
			return 0, fmt.Errorf("insert for video %s returned no row", feedVideo.YoutubeID)
		}
		return 0, fmt.Errorf("insert video %s: %w", feedVideo.YoutubeID, err)
	}

	return video.ID, nil
}
