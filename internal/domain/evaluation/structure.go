package evaluation

import (
	"fmt"
	"strings"

	"github.com/turtacn/opgrader/internal/domain/rubric"
	"github.com/turtacn/opgrader/internal/domain/transcript"
	"github.com/turtacn/opgrader/pkg/align"
)

// StructureEvaluator scores how well the detected section order matches the
// rubric's expected order.  The base score is the LCS ratio; penalty rules
// then subtract from it, and the final score clamps to [0, 1].
type StructureEvaluator struct {
	rubricID string
}

// NewStructureEvaluator constructs an evaluator bound to one rubric for
// citation generation.
func NewStructureEvaluator(rubricID string) *StructureEvaluator {
	return &StructureEvaluator{rubricID: rubricID}
}

// Evaluate runs the structure evaluation.
func (e *StructureEvaluator) Evaluate(cfg rubric.StructureConfig, seg *transcript.SegmentedTranscript) *StructureResult {
	expected := cfg.ExpectedOrder
	detected := seg.DetectedOrder

	lcsScore := align.Score(detected, expected)
	lcsElements := align.LCSElements(detected, expected)

	res := &StructureResult{
		LCSScore:      lcsScore,
		DetectedOrder: detected,
		ExpectedOrder: expected,
	}

	// Rule-based penalties.
	totalPenalty := 0.0
	for _, p := range cfg.Penalties {
		v := checkPenalty(e.rubricID, p, detected)
		if v == nil {
			continue
		}
		res.Violations = append(res.Violations, *v)
		res.PenaltiesApplied = append(res.PenaltiesApplied, AppliedPenalty{ID: p.ID, Value: p.Value, Description: p.Description})
		totalPenalty += p.Value
	}

	// Success feedback for what the student did keep in order.
	if len(lcsElements) > 0 {
		res.Successes = append(res.Successes, Success{
			Description:     "Correctly ordered sections: " + strings.Join(lcsElements, ", "),
			RubricCitations: []string{NewRubricCitation(e.rubricID, cfg.Anchor).URI()},
		})
	}

	// Generic violations for missing sections with no covering rule.
	// Walking the expected order keeps output deterministic.
	detectedSet := map[string]bool{}
	for _, s := range detected {
		detectedSet[strings.ToLower(s)] = true
	}
	for _, section := range expected {
		if detectedSet[strings.ToLower(section)] {
			continue
		}
		if hasMissingRule(cfg.Penalties, section) {
			continue
		}
		res.Violations = append(res.Violations, Violation{
			Description:     fmt.Sprintf("Missing %s section", section),
			RubricCitations: []string{NewRubricCitation(e.rubricID, cfg.Anchor).URI()},
			Severity:        SeverityMajor,
		})
	}

	// Generic minor violations for adjacent detected pairs presented in the
	// wrong order, unless a swap rule already covers the pair.
	for _, pair := range detectOutOfOrder(detected, expected) {
		if hasSwapRule(cfg.Penalties, pair.later, pair.earlier) {
			continue
		}
		res.Violations = append(res.Violations, Violation{
			Description: fmt.Sprintf("%s appears before %s (expected order: %s → %s)",
				pair.later, pair.earlier, pair.earlier, pair.later),
			RubricCitations: []string{NewRubricCitation(e.rubricID, cfg.Anchor).URI()},
			Severity:        SeverityMinor,
		})
	}

	res.Score = clamp01(lcsScore + totalPenalty)
	return res
}

// checkPenalty evaluates a single penalty rule against the detected order.
// Rule IDs follow two shapes: "missing_<section>" and
// "swap_<later>_before_<earlier>".  Any other shape is inert.
func checkPenalty(rubricID string, p rubric.Penalty, detected []string) *Violation {
	if section, ok := strings.CutPrefix(p.ID, "missing_"); ok {
		if indexFold(detected, section) == -1 {
			return &Violation{
				Description:     p.Description,
				RubricCitations: []string{NewRubricCitation(rubricID, p.Anchor).URI()},
				Severity:        SeverityMajor,
			}
		}
		return nil
	}

	if rest, ok := strings.CutPrefix(p.ID, "swap_"); ok {
		parts := strings.SplitN(rest, "_before_", 2)
		if len(parts) != 2 {
			return nil
		}
		later, earlier := parts[0], parts[1]
		idxEarlier := indexFold(detected, earlier)
		idxLater := indexFold(detected, later)
		if idxEarlier != -1 && idxLater != -1 && idxLater < idxEarlier {
			return &Violation{
				Description:     p.Description,
				RubricCitations: []string{NewRubricCitation(rubricID, p.Anchor).URI()},
				Severity:        SeverityMajor,
			}
		}
	}
	return nil
}

type orderedPair struct {
	earlier string // section expected to come first
	later   string // section the student presented first
}

// detectOutOfOrder finds adjacent detected pairs whose expected positions are
// inverted.  Sections absent from the expected order are skipped.
func detectOutOfOrder(detected, expected []string) []orderedPair {
	positions := make(map[string]int, len(expected))
	for i, s := range expected {
		positions[s] = i
	}

	var out []orderedPair
	for i := 0; i+1 < len(detected); i++ {
		first, second := detected[i], detected[i+1]
		p1, ok1 := positions[first]
		p2, ok2 := positions[second]
		if !ok1 || !ok2 {
			continue
		}
		if p1 > p2 {
			out = append(out, orderedPair{earlier: second, later: first})
		}
	}
	return out
}

func hasMissingRule(penalties []rubric.Penalty, section string) bool {
	needle := "missing_" + strings.ToLower(section)
	for _, p := range penalties {
		if strings.Contains(strings.ToLower(p.ID), needle) {
			return true
		}
	}
	return false
}

func hasSwapRule(penalties []rubric.Penalty, later, earlier string) bool {
	needle := fmt.Sprintf("swap_%s_before_%s", strings.ToLower(later), strings.ToLower(earlier))
	for _, p := range penalties {
		if strings.Contains(strings.ToLower(p.ID), needle) {
			return true
		}
	}
	return false
}

func indexFold(haystack []string, needle string) int {
	for i, s := range haystack {
		if strings.EqualFold(s, needle) {
			return i
		}
	}
	return -1
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
