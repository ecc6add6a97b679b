package evaluation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/turtacn/opgrader/internal/domain/rubric"
	"github.com/turtacn/opgrader/internal/domain/transcript"
	"github.com/turtacn/opgrader/pkg/textutil"
)

// SummaryEvaluator grades the closing summary on two equally weighted axes:
// succinctness (token count against the rubric's band) and required-element
// coverage (regex detection).
type SummaryEvaluator struct {
	rubricID string
}

// NewSummaryEvaluator constructs an evaluator bound to one rubric.
func NewSummaryEvaluator(rubricID string) *SummaryEvaluator {
	return &SummaryEvaluator{rubricID: rubricID}
}

// Evaluate runs the summary evaluation.
func (e *SummaryEvaluator) Evaluate(cfg rubric.SummaryConfig, seg *transcript.SegmentedTranscript) *SummaryResult {
	summaryText := ""
	if s := seg.Section(transcript.SectionSummary); s != nil {
		summaryText = s.StudentText()
	}

	tokenCount := textutil.CountTokensAdvanced(summaryText)
	succinctScore := succinctness(tokenCount, cfg.MinTokens, cfg.MaxTokens)

	res := &SummaryResult{
		TokenCount:    tokenCount,
		MaxTokens:     cfg.MaxTokens,
		SuccinctScore: succinctScore,
	}

	tokensCitation := NewSummaryTokensCitation(tokenCount).URI()
	for _, elem := range cfg.RequiredElements {
		rubricCitation := NewRubricCitation(e.rubricID, elem.Anchor).URI()
		if detectElement(elem, summaryText) {
			res.MatchedElements = append(res.MatchedElements, elem.ID)
			res.Successes = append(res.Successes, Success{
				Description:      "Included required element: " + elem.Description,
				RubricCitations:  []string{rubricCitation},
				StudentCitations: []string{tokensCitation},
			})
			continue
		}
		res.MissingElements = append(res.MissingElements, elem.ID)
		severity := SeverityMinor
		if elem.Critical {
			severity = SeverityMajor
		}
		res.Violations = append(res.Violations, Violation{
			Description:     "Missing required element: " + elem.Description,
			RubricCitations: []string{rubricCitation},
			Severity:        severity,
		})
	}

	if len(cfg.RequiredElements) > 0 {
		res.ElementsScore = float64(len(res.MatchedElements)) / float64(len(cfg.RequiredElements))
	} else {
		res.ElementsScore = 1.0
	}

	// Length violations are advisory on top of the succinctness score.
	anchorCitation := NewRubricCitation(e.rubricID, cfg.Anchor).URI()
	if tokenCount > cfg.MaxTokens {
		res.Violations = append(res.Violations, Violation{
			Description:      fmt.Sprintf("Summary too long: %d tokens (max: %d)", tokenCount, cfg.MaxTokens),
			RubricCitations:  []string{anchorCitation},
			StudentCitations: []string{tokensCitation},
			Severity:         SeverityMinor,
		})
	} else if tokenCount < cfg.MinTokens {
		res.Violations = append(res.Violations, Violation{
			Description:      fmt.Sprintf("Summary too short: %d tokens (min: %d)", tokenCount, cfg.MinTokens),
			RubricCitations:  []string{anchorCitation},
			StudentCitations: []string{tokensCitation},
			Severity:         SeverityMinor,
		})
	}

	res.Score = 0.5*succinctScore + 0.5*res.ElementsScore
	return res
}

// succinctness ramps up below the band, holds 1.0 inside it, and decays
// linearly past it:
//
//	count < min:          count / min
//	min <= count <= max:  1.0
//	count > max:          max(0, 1 - (count - max) / max)
func succinctness(count, minTokens, maxTokens int) float64 {
	switch {
	case count < minTokens:
		return float64(count) / float64(minTokens)
	case count <= maxTokens:
		return 1.0
	default:
		excess := float64(count - maxTokens)
		score := 1.0 - excess/float64(maxTokens)
		if score < 0 {
			return 0
		}
		return score
	}
}

// detectElement reports whether the element's pattern matches the summary.
// Elements without a pattern cannot be auto-detected and count as missing;
// an invalid pattern behaves the same way.
func detectElement(elem rubric.SummaryElement, summaryText string) bool {
	if elem.Pattern == nil || strings.TrimSpace(*elem.Pattern) == "" {
		return false
	}
	re, err := regexp.Compile("(?i)" + *elem.Pattern)
	if err != nil {
		return false
	}
	return re.MatchString(summaryText)
}
