package processor

import (
	"encoding/json"
	"fmt"
)

// Job payloads are loose JSON documents in the store; each type is decoded
// into its own struct at the dispatch boundary and rejected there if the
// shape is wrong, before any handler logic runs.

type FetchTranscriptPayload struct {
	VideoID   int64  `json:"videoId"`
	YoutubeID string `json:"youtubeId"`
}

type GenerateEmbeddingsPayload struct {
	VideoID int64 `json:"videoId"`
}

func decodeFetchTranscriptPayload(raw json.RawMessage) (*FetchTranscriptPayload, error) {
	var p FetchTranscriptPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &PayloadError{Reason: fmt.Sprintf("decode fetch_transcript payload: %v", err)}
	}
	if p.VideoID <= 0 {
		return nil, &PayloadError{Reason: "fetch_transcript payload missing videoId"}
	}
	if p.YoutubeID == "" {
		return nil, &PayloadError{Reason: "fetch_transcript payload missing youtubeId"}
	}
	return &p, nil
}

func decodeGenerateEmbeddingsPayload(raw json.RawMessage) (*GenerateEmbeddingsPayload, error) {
	var p GenerateEmbeddingsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &PayloadError{Reason: fmt.Sprintf("decode generate_embeddings payload: %v", err)}
	}
	if p.VideoID <= 0 {
		return nil, &PayloadError{Reason: "generate_embeddings payload missing videoId"}
	}
	return &p, nil
}
