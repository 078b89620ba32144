package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"mindreel.dev/mindreel/internal/transcripts"
)

func TestChunkTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chunk", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Segments []transcripts.Segment `json:"segments"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Segments, 2)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chunks":[{"content":"hello world","startTimeMs":0,"endTimeMs":5000,"segmentIndices":[0,1]}]}`))
	}))
	defer srv.Close()

	chunks, err := NewClient(srv.URL).ChunkTranscript(context.Background(), []transcripts.Segment{
		{Text: "hello", OffsetMs: 0},
		{Text: "world", OffsetMs: 3000},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "hello world", chunks[0].Content)
	require.Equal(t, []int{0, 1}, chunks[0].SegmentIndices)
}

func TestEmbedChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, float64(42), req["videoId"])
		require.Equal(t, "nomic-embed-text", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"totalChunks":3,"successCount":3,"errorCount":0,"durationMs":1200}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).EmbedChunks(context.Background(), []Chunk{{Content: "a"}}, "nomic-embed-text", 42)
	require.NoError(t, err)
	require.Equal(t, 3, res.TotalChunks)
	require.Equal(t, 3, res.SuccessCount)
	require.Equal(t, 0, res.ErrorCount)
}

func TestEmbedChunks_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).EmbedChunks(context.Background(), nil, "", 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 503")
}
