package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// Rubric is one versioned rubric.  The scoring configuration is kept raw;
// callers that author rubrics usually round-trip JSON documents anyway.
type Rubric struct {
	RubricID  string    `json:"rubric_id"`
	Version   string    `json:"version"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Weights            json.RawMessage `json:"weights,omitempty"`
	Structure          json.RawMessage `json:"structure,omitempty"`
	KeyQuestions       json.RawMessage `json:"key_questions,omitempty"`
	KeyQuestionsPolicy json.RawMessage `json:"key_questions_policy,omitempty"`
	Reasoning          json.RawMessage `json:"reasoning,omitempty"`
	Summary            json.RawMessage `json:"summary,omitempty"`
	Communication      json.RawMessage `json:"communication,omitempty"`
}

// RubricIssue is one finding from the rubric QA gate.
type RubricIssue struct {
	Severity string `json:"severity"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// RubricReport is the outcome of validating a rubric.
type RubricReport struct {
	Valid    bool          `json:"is_valid"`
	Errors   []RubricIssue `json:"errors"`
	Warnings []RubricIssue `json:"warnings"`
}

// RubricVersions lists every stored version of one rubric.
type RubricVersions struct {
	RubricID string    `json:"rubric_id"`
	Versions []*Rubric `json:"versions"`
}

func rubricPath(rubricID string, parts ...string) string {
	p := "/api/v1/rubrics/" + url.PathEscape(rubricID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// CreateRubric stores a new rubric as a draft.
func (c *Client) CreateRubric(ctx context.Context, r *Rubric) (*Rubric, error) {
	var out Rubric
	if err := c.do(ctx, http.MethodPost, "/api/v1/rubrics", nil, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRubric fetches one rubric.  An empty version resolves to the latest
// approved version.
func (c *Client) GetRubric(ctx context.Context, rubricID, version string) (*Rubric, error) {
	var q url.Values
	if version != "" {
		q = url.Values{"version": {version}}
	}
	var out Rubric
	if err := c.do(ctx, http.MethodGet, rubricPath(rubricID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRubricVersions returns every version of a rubric, oldest first.
func (c *Client) ListRubricVersions(ctx context.Context, rubricID string) (*RubricVersions, error) {
	var out RubricVersions
	if err := c.do(ctx, http.MethodGet, rubricPath(rubricID, "versions"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRubric stores a full replacement of baseVersion as a new draft
// version and returns it.
func (c *Client) UpdateRubric(ctx context.Context, rubricID, baseVersion string, r *Rubric) (*Rubric, error) {
	var out Rubric
	path := rubricPath(rubricID, "versions", url.PathEscape(baseVersion))
	if err := c.do(ctx, http.MethodPut, path, nil, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchRubric applies an RFC 6902 JSON patch to baseVersion and stores the
// outcome as a new draft version.
func (c *Client) PatchRubric(ctx context.Context, rubricID, baseVersion string, patch []byte) (*Rubric, error) {
	var out Rubric
	path := rubricPath(rubricID, "versions", url.PathEscape(baseVersion))
	if err := c.do(ctx, http.MethodPatch, path, nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateRubric runs the QA gate without storing anything.
func (c *Client) ValidateRubric(ctx context.Context, r *Rubric) (*RubricReport, error) {
	var out RubricReport
	if err := c.do(ctx, http.MethodPost, "/api/v1/rubrics/validate", nil, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveRubric promotes a draft version to approved.
func (c *Client) ApproveRubric(ctx context.Context, rubricID, version string) error {
	return c.do(ctx, http.MethodPost, rubricPath(rubricID, "versions", url.PathEscape(version), "approve"), nil, nil, nil)
}

// ArchiveRubric retires an approved version.
func (c *Client) ArchiveRubric(ctx context.Context, rubricID, version string) error {
	return c.do(ctx, http.MethodPost, rubricPath(rubricID, "versions", url.PathEscape(version), "archive"), nil, nil, nil)
}

// DeleteRubric removes a draft or archived version.  Approved versions are
// refused by the server.
func (c *Client) DeleteRubric(ctx context.Context, rubricID, version string) error {
	return c.do(ctx, http.MethodDelete, rubricPath(rubricID, "versions", url.PathEscape(version)), nil, nil, nil)
}
