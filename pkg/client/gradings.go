package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// GradingRequest submits one transcript for grading.
type GradingRequest struct {
	RubricID      string `json:"rubric_id"`
	RubricVersion string `json:"rubric_version,omitempty"`
	TranscriptID  string `json:"transcript_id"`
	RawText       string `json:"raw_text"`
}

// GradingResult is a finished grading.  Component payloads stay raw so the
// SDK does not chase every server-side schema change.
type GradingResult struct {
	GradingID       string                     `json:"grading_id"`
	TranscriptID    string                     `json:"transcript_id"`
	RubricID        string                     `json:"rubric_id"`
	RubricVersion   string                     `json:"rubric_version"`
	OverallScore    float64                    `json:"overall_score"`
	ComponentScores map[string]float64         `json:"component_scores"`
	ScoreBreakdown  map[string]json.RawMessage `json:"score_breakdown"`
	Structure       json.RawMessage            `json:"structure"`
	KeyQuestions    json.RawMessage            `json:"key_questions"`
	Reasoning       json.RawMessage            `json:"reasoning"`
	Summary         json.RawMessage            `json:"summary"`
	Feedback        json.RawMessage            `json:"feedback"`
	GradedAt        time.Time                  `json:"graded_at"`
}

// Grade grades a transcript synchronously and returns the full result.
func (c *Client) Grade(ctx context.Context, req *GradingRequest) (*GradingResult, error) {
	var out GradingResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/gradings", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetGrading fetches a previously computed grading result by ID.
func (c *Client) GetGrading(ctx context.Context, gradingID string) (*GradingResult, error) {
	var out GradingResult
	path := "/api/v1/gradings/" + url.PathEscape(gradingID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
