package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// SearchRequest queries indexed transcript utterances.
type SearchRequest struct {
	Query        string
	TranscriptID string
	From         int
	Size         int
	Highlight    bool
}

// UtteranceHit is one matched transcript line.
type UtteranceHit struct {
	TranscriptID string   `json:"transcript_id"`
	Line         int      `json:"line"`
	Speaker      string   `json:"speaker"`
	Text         string   `json:"text"`
	Score        float64  `json:"score"`
	Highlights   []string `json:"highlights,omitempty"`
}

// SearchResult is a page of utterance hits.
type SearchResult struct {
	Total int64          `json:"total"`
	Hits  []UtteranceHit `json:"hits"`
}

// SearchUtterances runs a full-text search over indexed utterances.
func (c *Client) SearchUtterances(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	q := url.Values{"q": {req.Query}}
	if req.TranscriptID != "" {
		q.Set("transcript_id", req.TranscriptID)
	}
	if req.From > 0 {
		q.Set("from", strconv.Itoa(req.From))
	}
	if req.Size > 0 {
		q.Set("size", strconv.Itoa(req.Size))
	}
	if req.Highlight {
		q.Set("highlight", "true")
	}

	var out SearchResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/transcripts/search", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
