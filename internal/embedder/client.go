// Package embedder talks to the chunking/embedding sidecar: one endpoint
// splits transcript segments into embeddable chunks, the other computes and
// stores embeddings. Chunk storage is contractually an atomic replace-all
// per video, which is what makes the processor's chunk-count idempotence
// check sound.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mindreel.dev/mindreel/internal/transcripts"
)

const defaultBaseURL = "http://localhost:8092"

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
			Timeout: 5 * time.Minute,
		},
	}
}

// Chunk is a bounded, timestamped slice of transcript prepared for
// embedding.
type Chunk struct {
	Content        string `json:"content"`
	StartTimeMs    int64  `json:"startTimeMs"`
	EndTimeMs      int64  `json:"endTimeMs"`
	SegmentIndices []int  `json:"segmentIndices"`
}

// EmbedResult summarizes one embedding run.
type EmbedResult struct {
	TotalChunks  int   `json:"totalChunks"`
	SuccessCount int   `json:"successCount"`
	ErrorCount   int   `json:"errorCount"`
	DurationMs   int64 `json:"durationMs"`
}

// ChunkTranscript splits timestamped segments into embeddable chunks.
func (c *Client) ChunkTranscript(ctx context.Context, segments []transcripts.Segment) ([]Chunk, error) {
	var out struct {
		Chunks []Chunk `json:"chunks"`
	}
	err := c.post(ctx, "/api/chunk", map[string]any{"segments": segments}, &out)
	if err != nil {
		return nil, err
	}
	return out.Chunks, nil
}

// EmbedChunks computes embeddings for chunks and stores them for videoID,
// replacing any previously stored chunks for that video.
func (c *Client) EmbedChunks(ctx context.Context, chunks []Chunk, modelHint string, videoID int64) (*EmbedResult, error) {
	body := map[string]any{
		"videoId": videoID,
		"chunks":  chunks,
	}
	if modelHint != "" {
		body["model"] = modelHint
	}

	var out EmbedResult
	if err := c.post(ctx, "/api/embed", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		return fmt.Errorf("embedder: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
