package evaluation

import (
	"regexp"
	"strings"

	"github.com/turtacn/opgrader/internal/domain/rubric"
	"github.com/turtacn/opgrader/internal/domain/transcript"
)

// reasoningContextWindow is how many utterances on each side of a match are
// captured as context.
const reasoningContextWindow = 2

// reasoningContextLimit bounds the recorded context length in bytes.
const reasoningContextLimit = 200

// ReasoningEvaluator detects required clinical reasoning links via
// case-insensitive regex patterns.  It searches the student's Summary-section
// utterances when a summary exists, otherwise every student utterance, so a
// student who reasons aloud mid-encounter still gets credit.
type ReasoningEvaluator struct {
	rubricID string
}

// NewReasoningEvaluator constructs an evaluator bound to one rubric.
func NewReasoningEvaluator(rubricID string) *ReasoningEvaluator {
	return &ReasoningEvaluator{rubricID: rubricID}
}

// Evaluate runs the reasoning evaluation.
func (e *ReasoningEvaluator) Evaluate(cfg rubric.ReasoningConfig, seg *transcript.SegmentedTranscript) *ReasoningResult {
	searchUtterances := summaryStudentUtterances(seg)
	if len(searchUtterances) == 0 {
		searchUtterances = seg.AllStudentUtterances()
	}

	res := &ReasoningResult{RequiredCount: len(cfg.RequiredLinks)}
	for _, link := range cfg.RequiredLinks {
		rubricCitation := NewRubricCitation(e.rubricID, link.Anchor).URI()

		utterance, context, found := findPattern(link.Pattern, searchUtterances)
		if !found {
			res.MissingLinks = append(res.MissingLinks, MissingLink{
				LinkID:         link.ID,
				Anchor:         link.Anchor,
				Description:    link.Description,
				RubricCitation: rubricCitation,
			})
			res.Violations = append(res.Violations, Violation{
				Description:     "Missing clinical reasoning: " + link.Description,
				RubricCitations: []string{rubricCitation},
				Severity:        SeverityMajor,
			})
			continue
		}

		studentCitation := NewOralCitation(utterance.TimestampStart, utterance.TimestampEnd).URI()
		res.DetectedLinks = append(res.DetectedLinks, DetectedLink{
			LinkID:          link.ID,
			Anchor:          link.Anchor,
			Description:     link.Description,
			RubricCitation:  rubricCitation,
			StudentCitation: studentCitation,
			Context:         truncate(context, reasoningContextLimit),
		})
		res.Successes = append(res.Successes, Success{
			Description:      "Demonstrated reasoning: " + link.Description,
			RubricCitations:  []string{rubricCitation},
			StudentCitations: []string{studentCitation},
		})
	}

	res.DetectedCount = len(res.DetectedLinks)
	if res.RequiredCount > 0 {
		res.Score = float64(res.DetectedCount) / float64(res.RequiredCount)
	} else {
		res.Score = 1.0
	}
	return res
}

// findPattern locates the first utterance matching the pattern and builds the
// surrounding context.  A pattern that does not compile never matches.
func findPattern(pattern string, utterances []transcript.Utterance) (transcript.Utterance, string, bool) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return transcript.Utterance{}, "", false
	}
	for i, u := range utterances {
		if !re.MatchString(u.Text) {
			continue
		}
		start := i - reasoningContextWindow
		if start < 0 {
			start = 0
		}
		end := i + reasoningContextWindow + 1
		if end > len(utterances) {
			end = len(utterances)
		}
		parts := make([]string, 0, end-start)
		for _, cu := range utterances[start:end] {
			parts = append(parts, cu.Text)
		}
		return u, strings.Join(parts, " "), true
	}
	return transcript.Utterance{}, "", false
}

func summaryStudentUtterances(seg *transcript.SegmentedTranscript) []transcript.Utterance {
	if s := seg.Section(transcript.SectionSummary); s != nil {
		return s.StudentUtterances()
	}
	return nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
