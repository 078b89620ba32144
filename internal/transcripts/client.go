// Package transcripts talks to the transcript-fetching sidecar service and
// parses stored transcript text back into timestamped segments.
package transcripts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8091"

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
			Timeout: 60 * time.Second,
		},
	}
}

// Segment is one timestamped slice of transcript text.
type Segment struct {
	Text     string `json:"text"`
	OffsetMs int64  `json:"offsetMs"`
}

// Result is the transcript service response. Success false means the
// service could not produce a transcript (no captions, upstream throttling);
// Error carries its reason.
type Result struct {
	Success    bool      `json:"success"`
	Transcript string    `json:"transcript"`
	Segments   []Segment `json:"segments"`
	Language   string    `json:"language"`
	Error      string    `json:"error"`
}

// Fetch requests the transcript for a YouTube video id. A transport or
// non-2xx failure returns an error; a well-formed negative response returns
// a Result with Success "= false".
func (c *Client) Fetch(ctx context.Context, youtubeID string) (*Result, error) {
	youtubeID = strings.TrimSpace(youtubeID)
	if youtubeID == "" {
		return nil, fmt.Errorf("youtubeID is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/transcripts/"+youtubeID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		return nil, fmt.Errorf("transcripts: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	return &out, nil
}
