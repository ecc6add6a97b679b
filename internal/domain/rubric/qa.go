package rubric

import (
	"fmt"
	"strings"
)

// IssueSeverity distinguishes blocking errors from advisory warnings.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single QA finding against a rubric.
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Category string        `json:"category"`
	Message  string        `json:"message"`
}

// Report is the outcome of a QA validation run.  A rubric is valid when it
// produced no errors; warnings never block approval.
type Report struct {
	Valid    bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Issues returns errors followed by warnings.
func (r *Report) Issues() []Issue {
	out := make([]Issue, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

// Validator runs the approval-gate QA checks over a rubric:
// weights sum to 1.0, at least one critical question, globally unique
// anchors, sane summary token bounds, and phrase hygiene.
type Validator struct{}

// NewValidator constructs a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs every check and collects the findings into a Report.
func (v *Validator) Validate(r *Rubric) *Report {
	rep := &Report{}
	addError := func(category, message string) {
		rep.Errors = append(rep.Errors, Issue{SeverityError, category, message})
	}
	addWarning := func(category, message string) {
		rep.Warnings = append(rep.Warnings, Issue{SeverityWarning, category, message})
	}

	// Weights.
	if total := r.Weights.Sum(); total < 1.0-weightTolerance || total > 1.0+weightTolerance {
		addError("weights", fmt.Sprintf("weights must sum to 1.0, got %.4f", total))
	}
	for _, w := range []float64{r.Weights.Structure, r.Weights.KeyQuestions, r.Weights.Reasoning, r.Weights.Summary, r.Weights.Communication} {
		if w < 0 {
			addError("weights", "all weights must be non-negative")
			break
		}
	}

	// Critical question coverage.
	if r.CriticalQuestionCount() == 0 {
		addError("questions", "at least one critical question must be defined")
	}

	// Anchor uniqueness.
	seen := map[string]bool{}
	var dups []string
	for _, anchor := range r.AllAnchors() {
		if seen[anchor] {
			dups = append(dups, anchor)
		}
		seen[anchor] = true
	}
	if len(dups) > 0 {
		addError("anchors", "duplicate anchors found: "+strings.Join(dups, ", "))
	}

	// Summary token bounds.
	if r.Summary.MinTokens < 20 {
		addWarning("summary", fmt.Sprintf("min_tokens (%d) is very low, consider at least 40", r.Summary.MinTokens))
	}
	if r.Summary.MaxTokens > 150 {
		addWarning("summary", fmt.Sprintf("max_tokens (%d) is very high, consider at most 120", r.Summary.MaxTokens))
	}
	if r.Summary.MinTokens >= r.Summary.MaxTokens {
		addError("summary", fmt.Sprintf("min_tokens (%d) must be less than max_tokens (%d)", r.Summary.MinTokens, r.Summary.MaxTokens))
	}

	// Phrase hygiene.
	phrases := map[string]bool{}
	var dupPhrases []string
	for _, q := range r.KeyQuestions {
		if len(q.Phrases) == 0 {
			addError("questions", fmt.Sprintf("question %s has no phrases defined", q.ID))
		}
		for _, p := range q.Phrases {
			key := strings.ToLower(strings.TrimSpace(p))
			if phrases[key] {
				dupPhrases = append(dupPhrases, p)
			}
			phrases[key] = true
		}
	}
	if len(dupPhrases) > 0 {
		if len(dupPhrases) > 5 {
			dupPhrases = dupPhrases[:5]
		}
		addWarning("questions", "duplicate phrases found: "+strings.Join(dupPhrases, ", "))
	}

	rep.Valid = len(rep.Errors) == 0
	return rep
}
