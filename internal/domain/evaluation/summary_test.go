package evaluation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/opgrader/internal/domain/evaluation"
	"github.com/turtacn/opgrader/internal/domain/rubric"
	"github.com/turtacn/opgrader/internal/domain/transcript"
	"github.com/turtacn/opgrader/internal/testutil"
)

func summarySeg(text string) *transcript.SegmentedTranscript {
	return &transcript.SegmentedTranscript{
		Sections: []transcript.Section{
			{Label: transcript.SectionSummary, Utterances: []transcript.Utterance{
				studentUtterance("02:00", text),
			}},
		},
		DetectedOrder: []string{transcript.SectionSummary},
	}
}

// wordsOfCount builds a summary with an exact token count.
func wordsOfCount(n int) string {
	return strings.TrimSpace(strings.Repeat("finding ", n))
}

func TestSummary_SuccinctnessBands(t *testing.T) {
	t.Parallel()

	cfg := rubric.SummaryConfig{Anchor: "#summary", MinTokens: 40, MaxTokens: 80}
	e := evaluation.NewSummaryEvaluator("stroke-oral")

	testCases := []struct {
		name   string
		tokens int
		want   float64
	}{
		{name: "below band ramps linearly", tokens: 20, want: 0.5},
		{name: "inside band", tokens: 60, want: 1.0},
		{name: "at lower bound", tokens: 40, want: 1.0},
		{name: "at upper bound", tokens: 80, want: 1.0},
		{name: "past band decays", tokens: 100, want: 0.75},
		{name: "far past band floors at zero", tokens: 200, want: 0.0},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res := e.Evaluate(cfg, summarySeg(wordsOfCount(tc.tokens)))
			assert.Equal(t, tc.tokens, res.TokenCount)
			assert.InDelta(t, tc.want, res.SuccinctScore, 1e-9)
		})
	}
}

func TestSummary_ElementsDetected(t *testing.T) {
	t.Parallel()

	e := evaluation.NewSummaryEvaluator("stroke-oral")
	res := e.Evaluate(testutil.ValidRubric().Summary, strokeSegmented(t))

	assert.Equal(t, []string{"elem_age_sex", "elem_chief"}, res.MatchedElements)
	assert.Empty(t, res.MissingElements)
	assert.Equal(t, 1.0, res.ElementsScore)

	require.Len(t, res.Successes, 2)
	assert.Equal(t, []string{"rubric://stroke-oral#summary-age-sex"}, res.Successes[0].RubricCitations)
	require.Len(t, res.Successes[0].StudentCitations, 1)
	assert.True(t, strings.HasPrefix(res.Successes[0].StudentCitations[0], "student://summary#tokens="))
}

func TestSummary_MissingElementSeverityFollowsCritical(t *testing.T) {
	t.Parallel()

	cfg := rubric.SummaryConfig{
		Anchor:    "#summary",
		MinTokens: 1,
		MaxTokens: 200,
		RequiredElements: []rubric.SummaryElement{
			{ID: "e_crit", Anchor: "#e-crit", Description: "Critical element", Pattern: strPtr(`never-said`), Critical: true},
			{ID: "e_soft", Anchor: "#e-soft", Description: "Optional element", Pattern: strPtr(`also-never-said`), Critical: false},
		},
	}

	e := evaluation.NewSummaryEvaluator("stroke-oral")
	res := e.Evaluate(cfg, summarySeg("a short closing statement"))

	assert.Equal(t, []string{"e_crit", "e_soft"}, res.MissingElements)
	require.Len(t, res.Violations, 2)
	assert.Equal(t, evaluation.SeverityMajor, res.Violations[0].Severity)
	assert.Equal(t, evaluation.SeverityMinor, res.Violations[1].Severity)
	assert.Equal(t, 0.0, res.ElementsScore)
	// Succinctness 1.0, elements 0.0.
	assert.InDelta(t, 0.5, res.Score, 1e-9)
}

func TestSummary_NilPatternCountsAsMissing(t *testing.T) {
	t.Parallel()

	cfg := rubric.SummaryConfig{
		Anchor:    "#summary",
		MinTokens: 1,
		MaxTokens: 200,
		RequiredElements: []rubric.SummaryElement{
			{ID: "e_manual", Anchor: "#e-manual", Description: "Reviewer-only element", Pattern: nil},
		},
	}

	e := evaluation.NewSummaryEvaluator("stroke-oral")
	res := e.Evaluate(cfg, summarySeg("anything at all"))
	assert.Equal(t, []string{"e_manual"}, res.MissingElements)
}

func TestSummary_InvalidPatternCountsAsMissing(t *testing.T) {
	t.Parallel()

	cfg := rubric.SummaryConfig{
		Anchor:    "#summary",
		MinTokens: 1,
		MaxTokens: 200,
		RequiredElements: []rubric.SummaryElement{
			{ID: "e_bad", Anchor: "#e-bad", Description: "Broken pattern", Pattern: strPtr(`([`)},
		},
	}

	e := evaluation.NewSummaryEvaluator("stroke-oral")
	res := e.Evaluate(cfg, summarySeg("anything at all"))
	assert.Equal(t, []string{"e_bad"}, res.MissingElements)
}

func TestSummary_TooLongViolation(t *testing.T) {
	t.Parallel()

	cfg := rubric.SummaryConfig{Anchor: "#summary", MinTokens: 40, MaxTokens: 80}
	e := evaluation.NewSummaryEvaluator("stroke-oral")
	res := e.Evaluate(cfg, summarySeg(wordsOfCount(100)))

	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, "Summary too long: 100 tokens (max: 80)", v.Description)
	assert.Equal(t, evaluation.SeverityMinor, v.Severity)
	assert.Equal(t, []string{"rubric://stroke-oral#summary"}, v.RubricCitations)
	assert.Equal(t, []string{"student://summary#tokens=100"}, v.StudentCitations)
}

func TestSummary_TooShortViolation(t *testing.T) {
	t.Parallel()

	cfg := rubric.SummaryConfig{Anchor: "#summary", MinTokens: 40, MaxTokens: 80}
	e := evaluation.NewSummaryEvaluator("stroke-oral")
	res := e.Evaluate(cfg, summarySeg(wordsOfCount(10)))

	require.Len(t, res.Violations, 1)
	assert.Equal(t, "Summary too short: 10 tokens (min: 40)", res.Violations[0].Description)
}

func TestSummary_NoSummarySectionScoresLengthAsZeroTokens(t *testing.T) {
	t.Parallel()

	seg := &transcript.SegmentedTranscript{
		Sections: []transcript.Section{
			{Label: transcript.SectionHPI, Utterances: []transcript.Utterance{
				studentUtterance("00:10", "When did it start?"),
			}},
		},
		DetectedOrder: []string{transcript.SectionHPI},
	}

	cfg := rubric.SummaryConfig{Anchor: "#summary", MinTokens: 40, MaxTokens: 80}
	e := evaluation.NewSummaryEvaluator("stroke-oral")
	res := e.Evaluate(cfg, seg)

	assert.Equal(t, 0, res.TokenCount)
	assert.Equal(t, 0.0, res.SuccinctScore)
	// No required elements configured, so elements score stays 1.0.
	assert.InDelta(t, 0.5, res.Score, 1e-9)
}

func strPtr(s string) *string { return &s }
