// Package rubric defines the grading rubric aggregate, its validation rules,
// and the repository contract for versioned rubric storage.
package rubric

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/opgrader/pkg/errors"
)

// Status is the lifecycle state of a rubric version.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusArchived Status = "archived"
)

// weightTolerance is the allowed floating-point slack when checking that the
// category weights sum to 1.0.
const weightTolerance = 0.001

var versionRe = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Weights distributes the overall score across grading categories.
// Communication stays at zero until the communication evaluator ships.
type Weights struct {
	Structure     float64 `json:"structure"`
	KeyQuestions  float64 `json:"key_questions"`
	Reasoning     float64 `json:"reasoning"`
	Summary       float64 `json:"summary"`
	Communication float64 `json:"communication"`
}

// Sum returns the total of all category weights.
func (w Weights) Sum() float64 {
	return w.Structure + w.KeyQuestions + w.Reasoning + w.Summary + w.Communication
}

// Validate checks non-negativity and that the weights sum to 1.0 within
// tolerance.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"structure":     w.Structure,
		"key_questions": w.KeyQuestions,
		"reasoning":     w.Reasoning,
		"summary":       w.Summary,
		"communication": w.Communication,
	} {
		if v < 0 || v > 1 {
			return errors.Newf(errors.ErrCodeWeightsInvalid, "weight %s must be in [0, 1], got %g", name, v)
		}
	}
	if total := w.Sum(); total < 1.0-weightTolerance || total > 1.0+weightTolerance {
		return errors.Newf(errors.ErrCodeWeightsInvalid, "weights must sum to 1.0, got %.4f", total)
	}
	return nil
}

// Penalty is a structure-order deduction.  Value is zero or negative.
//
// The penalty ID encodes when it fires: "missing_<section>" fires when the
// section is absent from the detected order, and
// "swap_<later>_before_<earlier>" fires when <later> was presented before
// <earlier>.  IDs of any other shape never fire.
type Penalty struct {
	ID          string  `json:"id"`
	Anchor      string  `json:"anchor"`
	Description string  `json:"description"`
	Value       float64 `json:"value"`
}

// StructureConfig drives the structure evaluator.
type StructureConfig struct {
	Anchor        string    `json:"anchor"`
	ExpectedOrder []string  `json:"expected_order"`
	Penalties     []Penalty `json:"penalties"`
}

// KeyQuestion is one question the student is expected to ask, matched against
// the transcript through its phrase list.
type KeyQuestion struct {
	ID       string   `json:"id"`
	Anchor   string   `json:"anchor"`
	Label    string   `json:"label"`
	Critical bool     `json:"critical"`
	Phrases  []string `json:"phrases"`
}

// KeyQuestionsPolicy tunes key-question scoring.
type KeyQuestionsPolicy struct {
	Anchor            string  `json:"anchor"`
	CriticalWeight    float64 `json:"critical_weight"`
	NoncriticalWeight float64 `json:"noncritical_weight"`
	CoverageThreshold float64 `json:"coverage_threshold"`
}

// ReasoningLink is one required clinical reasoning connection, detected via a
// case-insensitive regex over the student's summary.
type ReasoningLink struct {
	ID          string `json:"id"`
	Anchor      string `json:"anchor"`
	Description string `json:"description"`
	Pattern     string `json:"pattern"`
}

// ReasoningConfig drives the reasoning evaluator.
type ReasoningConfig struct {
	Anchor          string          `json:"anchor"`
	RequiredLinks   []ReasoningLink `json:"required_links"`
	MajorGapPenalty float64         `json:"major_gap_penalty"`
}

// SummaryElement is one element the closing summary must contain.  A nil
// Pattern means the element can never be auto-detected and always counts as
// missing.
type SummaryElement struct {
	ID          string  `json:"id"`
	Anchor      string  `json:"anchor"`
	Description string  `json:"description"`
	Pattern     *string `json:"pattern,omitempty"`
	Critical    bool    `json:"critical"`
}

// SummaryConfig drives the summary evaluator.
type SummaryConfig struct {
	Anchor           string           `json:"anchor"`
	MinTokens        int              `json:"min_tokens"`
	MaxTokens        int              `json:"max_tokens"`
	RequiredElements []SummaryElement `json:"required_elements"`
}

// CommunicationRule is a placeholder for the future communication evaluator.
type CommunicationRule struct {
	ID          string `json:"id"`
	Anchor      string `json:"anchor"`
	Description string `json:"description"`
}

// CommunicationConfig is carried in the rubric but not yet scored; its weight
// must stay zero.
type CommunicationConfig struct {
	Anchor string              `json:"anchor"`
	Weight float64             `json:"weight"`
	Rules  []CommunicationRule `json:"rules"`
}

// Rubric is a complete versioned grading rubric.
type Rubric struct {
	RubricID  string    `json:"rubric_id"`
	Version   string    `json:"version"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Weights            Weights             `json:"weights"`
	Structure          StructureConfig     `json:"structure"`
	KeyQuestions       []KeyQuestion       `json:"key_questions"`
	KeyQuestionsPolicy KeyQuestionsPolicy  `json:"key_questions_policy"`
	Reasoning          ReasoningConfig     `json:"reasoning"`
	Summary            SummaryConfig       `json:"summary"`
	Communication      CommunicationConfig `json:"communication"`
}

// Validate performs construction-level checks: identity, version format,
// status, anchors, weights, and per-item constraints.  Deeper QA rules
// (duplicate anchors, critical-question coverage) live in the Validator.
func (r *Rubric) Validate() error {
	if strings.TrimSpace(r.RubricID) == "" {
		return errors.InvalidParam("rubric_id must not be empty")
	}
	if !versionRe.MatchString(r.Version) {
		return errors.Newf(errors.ErrCodeRubricVersionInvalid, "invalid semantic version %q, expected X.Y.Z", r.Version)
	}
	switch r.Status {
	case StatusDraft, StatusApproved, StatusArchived:
	default:
		return errors.Newf(errors.ErrCodeRubricInvalid, "invalid status %q", r.Status)
	}
	if err := r.Weights.Validate(); err != nil {
		return err
	}
	for _, anchor := range r.AllAnchors() {
		if !strings.HasPrefix(anchor, "#") {
			return errors.Newf(errors.ErrCodeRubricInvalid, "anchor %q must start with #", anchor)
		}
	}
	for _, q := range r.KeyQuestions {
		if len(q.Phrases) == 0 {
			return errors.Newf(errors.ErrCodeRubricInvalid, "question %s has no phrases", q.ID)
		}
	}
	for _, p := range r.Structure.Penalties {
		if p.Value > 0 {
			return errors.Newf(errors.ErrCodeRubricInvalid, "penalty %s value must be zero or negative", p.ID)
		}
	}
	if r.Communication.Weight != 0 {
		return errors.New(errors.ErrCodeRubricInvalid, "communication weight must be zero")
	}
	return nil
}

// AllAnchors returns every anchor defined anywhere in the rubric, in a stable
// order, including duplicates.  The QA validator relies on duplicates being
// preserved.
func (r *Rubric) AllAnchors() []string {
	anchors := []string{
		r.Structure.Anchor,
		r.KeyQuestionsPolicy.Anchor,
		r.Reasoning.Anchor,
		r.Summary.Anchor,
		r.Communication.Anchor,
	}
	for _, p := range r.Structure.Penalties {
		anchors = append(anchors, p.Anchor)
	}
	for _, q := range r.KeyQuestions {
		anchors = append(anchors, q.Anchor)
	}
	for _, l := range r.Reasoning.RequiredLinks {
		anchors = append(anchors, l.Anchor)
	}
	for _, e := range r.Summary.RequiredElements {
		anchors = append(anchors, e.Anchor)
	}
	for _, c := range r.Communication.Rules {
		anchors = append(anchors, c.Anchor)
	}
	return anchors
}

// CriticalQuestionCount returns the number of critical key questions.
func (r *Rubric) CriticalQuestionCount() int {
	n := 0
	for _, q := range r.KeyQuestions {
		if q.Critical {
			n++
		}
	}
	return n
}

// NextPatchVersion increments the patch component of a semantic version.
func NextPatchVersion(version string) (string, error) {
	if !versionRe.MatchString(version) {
		return "", errors.Newf(errors.ErrCodeRubricVersionInvalid, "invalid semantic version %q", version)
	}
	parts := strings.Split(version, ".")
	patch, _ := strconv.Atoi(parts[2])
	return fmt.Sprintf("%s.%s.%d", parts[0], parts[1], patch+1), nil
}

// CompareVersions orders two semantic versions: -1 when a < b, 0 when equal,
// +1 when a > b.  Both inputs must already be valid X.Y.Z strings.
func CompareVersions(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	for i := 0; i < 3; i++ {
		na, _ := strconv.Atoi(pa[i])
		nb, _ := strconv.Atoi(pb[i])
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return 0
}
