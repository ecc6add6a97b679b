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

func reasoningConfig(links ...rubric.ReasoningLink) rubric.ReasoningConfig {
	return rubric.ReasoningConfig{Anchor: "#reasoning", RequiredLinks: links, MajorGapPenalty: -0.5}
}

func studentUtterance(ts, text string) transcript.Utterance {
	return transcript.Utterance{Speaker: transcript.SpeakerStudent, Text: text, TimestampStart: ts, TimestampEnd: ts}
}

func TestReasoning_LinkDetectedInSummary(t *testing.T) {
	t.Parallel()

	e := evaluation.NewReasoningEvaluator("stroke-oral")
	res := e.Evaluate(testutil.ValidRubric().Reasoning, strokeSegmented(t))

	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, 1, res.RequiredCount)
	assert.Equal(t, 1, res.DetectedCount)
	require.Len(t, res.DetectedLinks, 1)

	link := res.DetectedLinks[0]
	assert.Equal(t, "link_tpa_window", link.LinkID)
	assert.Equal(t, "rubric://stroke-oral#reasoning-tpa", link.RubricCitation)
	assert.Equal(t, "student://oral#02:00–02:00", link.StudentCitation)
	assert.NotEmpty(t, link.Context)

	require.Len(t, res.Successes, 1)
	assert.Len(t, res.Successes[0].StudentCitations, 1)
}

func TestReasoning_FallsBackToAllStudentUtterances(t *testing.T) {
	t.Parallel()

	// No Summary section: reasoning spoken mid-encounter still counts.
	seg := &transcript.SegmentedTranscript{
		TranscriptID: "tr",
		Sections: []transcript.Section{
			{Label: transcript.SectionHPI, Utterances: []transcript.Utterance{
				studentUtterance("00:10", "Given the onset two hours ago she is inside the tPA window."),
			}},
		},
		DetectedOrder: []string{transcript.SectionHPI},
	}

	e := evaluation.NewReasoningEvaluator("stroke-oral")
	res := e.Evaluate(reasoningConfig(rubric.ReasoningLink{
		ID: "link_tpa_window", Anchor: "#reasoning-tpa", Description: "Links onset to thrombolysis window", Pattern: `(?:tpa|thrombolysis|window)`,
	}), seg)

	assert.Equal(t, 1.0, res.Score)
	require.Len(t, res.DetectedLinks, 1)
	assert.Equal(t, "student://oral#00:10–00:10", res.DetectedLinks[0].StudentCitation)
}

func TestReasoning_MissingLinkIsMajorViolation(t *testing.T) {
	t.Parallel()

	e := evaluation.NewReasoningEvaluator("stroke-oral")
	res := e.Evaluate(reasoningConfig(rubric.ReasoningLink{
		ID: "link_ddx", Anchor: "#reasoning-ddx", Description: "States a differential", Pattern: `differential`,
	}), strokeSegmented(t))

	assert.Equal(t, 0.0, res.Score)
	require.Len(t, res.MissingLinks, 1)
	assert.Equal(t, "link_ddx", res.MissingLinks[0].LinkID)

	require.Len(t, res.Violations, 1)
	assert.Equal(t, evaluation.SeverityMajor, res.Violations[0].Severity)
	assert.Empty(t, res.Violations[0].StudentCitations, "a missing link cites the rubric only")
}

func TestReasoning_InvalidPatternNeverMatches(t *testing.T) {
	t.Parallel()

	e := evaluation.NewReasoningEvaluator("stroke-oral")
	res := e.Evaluate(reasoningConfig(rubric.ReasoningLink{
		ID: "link_bad", Anchor: "#reasoning-bad", Description: "Broken pattern", Pattern: `([unclosed`,
	}), strokeSegmented(t))

	assert.Equal(t, 0.0, res.Score)
	assert.Len(t, res.MissingLinks, 1)
}

func TestReasoning_PatternIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	seg := &transcript.SegmentedTranscript{
		Sections: []transcript.Section{
			{Label: transcript.SectionSummary, Utterances: []transcript.Utterance{
				studentUtterance("01:00", "She may qualify for TPA given the timeline."),
			}},
		},
	}

	e := evaluation.NewReasoningEvaluator("stroke-oral")
	res := e.Evaluate(reasoningConfig(rubric.ReasoningLink{
		ID: "l1", Anchor: "#a", Description: "tPA mention", Pattern: `tpa`,
	}), seg)
	assert.Equal(t, 1, res.DetectedCount)
}

func TestReasoning_ContextIsTruncated(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("the deficit localizes to the right MCA territory ", 10)
	seg := &transcript.SegmentedTranscript{
		Sections: []transcript.Section{
			{Label: transcript.SectionSummary, Utterances: []transcript.Utterance{
				studentUtterance("01:00", long),
				studentUtterance("01:10", "so thrombolysis should be considered"),
				studentUtterance("01:20", long),
			}},
		},
	}

	e := evaluation.NewReasoningEvaluator("stroke-oral")
	res := e.Evaluate(reasoningConfig(rubric.ReasoningLink{
		ID: "l1", Anchor: "#a", Description: "Thrombolysis", Pattern: `thrombolysis`,
	}), seg)

	require.Len(t, res.DetectedLinks, 1)
	assert.LessOrEqual(t, len(res.DetectedLinks[0].Context), 200)
}

func TestReasoning_NoRequiredLinksScoresOne(t *testing.T) {
	t.Parallel()

	e := evaluation.NewReasoningEvaluator("stroke-oral")
	res := e.Evaluate(reasoningConfig(), strokeSegmented(t))
	assert.Equal(t, 1.0, res.Score)
	assert.Empty(t, res.Violations)
}
