package transcripts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/transcripts/ggLajT7aMMk", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"transcript":"[0:01] hi","segments":[{"text":"hi","offsetMs":1000}],"language":"en"}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Fetch(context.Background(), "ggLajT7aMMk")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "[0:01] hi", res.Transcript)
	require.Len(t, res.Segments, 1)
	require.Equal(t, "en", res.Language)
}

func TestFetch_ServiceReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"no captions available"}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Fetch(context.Background(), "ggLajT7aMMk")
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "no captions available", res.Error)
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Fetch(context.Background(), "ggLajT7aMMk")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 500")
}

func TestFetch_EmptyID(t *testing.T) {
	_, err := NewClient("http://unused").Fetch(context.Background(), "  ")
	require.Error(t, err)
}
