package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// DictationRequest submits free dictation text for scoring.
type DictationRequest struct {
	DictationID string `json:"dictation_id,omitempty"`
	CCPack      string `json:"cc_pack,omitempty"`
	Text        string `json:"text"`
}

// DictationReport is the dictation scoring outcome.  Sufficient false means
// the gatekeeper refused to grade; that is still a successful call.
type DictationReport struct {
	DictationID string          `json:"dictation_id"`
	CCPack      string          `json:"cc_pack"`
	Sufficient  bool            `json:"sufficient"`
	Reason      string          `json:"reason"`
	Analysis    json.RawMessage `json:"analysis,omitempty"`
	Scorecard   json.RawMessage `json:"scorecard,omitempty"`
	EPA         json.RawMessage `json:"epa,omitempty"`
	Feedback    json.RawMessage `json:"feedback,omitempty"`
	ScoredAt    time.Time       `json:"scored_at"`
}

// ScoreDictation scores a dictation transcript.
func (c *Client) ScoreDictation(ctx context.Context, req *DictationRequest) (*DictationReport, error) {
	var out DictationReport
	if err := c.do(ctx, http.MethodPost, "/api/v1/dictations/score", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
