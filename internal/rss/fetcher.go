// Package rss fetches and parses a YouTube channel's video feed. Pure
// fetch + parse; persistence and delta detection live elsewhere.
package rss

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"
)

const defaultBaseURL = "https://www.youtube.com"

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// FeedVideo is one entry extracted from a channel feed.
type FeedVideo struct {
	YoutubeID   string
	Title       string
	Description string
	ChannelName string
	PublishedAt time.Time
}

// ChannelFeed is the parsed result of one feed fetch.
type ChannelFeed struct {
	ChannelID   string
	ChannelName string
	Videos      []FeedVideo
	FetchedAt   time.Time
}

// FeedURL derives the feed address purely from the channel's external id.
func (c *Client) FeedURL(channelID string) string {
	return c.baseURL + "/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)
}

// FetchChannelFeed GETs and parses a channel's video feed. Entries missing a
// video id, title, or valid publish date are dropped without failing the
// whole feed. Errors are categorized: *NetworkError, *StatusError,
// *ParseError.
func (c *Client) FetchChannelFeed(ctx context.Context, channelID string) (*ChannelFeed, error) {
	feedURL := c.FeedURL(channelID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &NetworkError{URL: feedURL, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: feedURL, StatusCode: resp.StatusCode}
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		return nil, &ParseError{URL: feedURL, Err: err}
	}

	feed, err := parseFeed(doc, feedURL)
	if err != nil {
		return nil, err
	}

	feed.ChannelID = channelID
	feed.FetchedAt = time.Now().UTC()
	return feed, nil
}

func parseFeed(doc *etree.Document, feedURL string) (*ChannelFeed, error) {
	root := doc.Root()
	if root == nil || root.Tag != "feed" {
		return nil, &ParseError{URL: feedURL, Err: errNotAFeed}
	}

	feed := &ChannelFeed{
		ChannelName: elementText(root, "title"),
		Videos:      []FeedVideo{},
	}

	for _, entry := range root.SelectElements("entry") {
		video, ok := parseEntry(entry, feed.ChannelName)
		if !ok {
			slog.Debug("dropping malformed feed entry", "feed_url", feedURL)
			continue
		}
		feed.Videos = append(feed.Videos, video)
	}

	return feed, nil
}

func parseEntry(entry *etree.Element, feedChannelName string) (FeedVideo, bool) {
	videoID := elementText(entry, "yt:videoId")
	title := elementText(entry, "title")
	published := elementText(entry, "published")

	if videoID == "" || title == "" {
		return FeedVideo{}, false
	}
	publishedAt, err := time.Parse(time.RFC3339, published)
	if err != nil {
		return FeedVideo{}, false
	}

	description := ""
	if group := entry.SelectElement("media:group"); group != nil {
		description = elementText(group, "media:description")
	}

	channelName := feedChannelName
	if author := entry.SelectElement("author"); author != nil {
		if name := elementText(author, "name"); name != "" {
			channelName = name
		}
	}

	return FeedVideo{
		YoutubeID:   videoID,
		Title:       title,
		Description: description,
		ChannelName: channelName,
		PublishedAt: publishedAt,
	}, true
}

func elementText(parent *etree.Element, tag string) string {
	el := parent.SelectElement(tag)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

type notAFeedError struct{}

func (notAFeedError) Error() string { return "document root is not a feed element" }

var errNotAFeed = notAFeedError{}
