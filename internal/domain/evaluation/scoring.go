package evaluation

import "github.com/turtacn/opgrader/internal/domain/rubric"

// Component names used in score breakdowns and feedback categories.
const (
	ComponentStructure     = "structure"
	ComponentKeyQuestions  = "key_questions"
	ComponentReasoning     = "reasoning"
	ComponentSummary       = "summary"
	ComponentCommunication = "communication"
)

// ComponentScores carries the per-category scores produced by the evaluators.
type ComponentScores struct {
	Structure     float64 `json:"structure"`
	KeyQuestions  float64 `json:"key_questions"`
	Reasoning     float64 `json:"reasoning"`
	Summary       float64 `json:"summary"`
	Communication float64 `json:"communication"`
}

// ScoreBreakdown is one component's share of the overall score.
type ScoreBreakdown struct {
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// Aggregate computes the weighted overall score and its breakdown.
// Components with zero weight are omitted from the breakdown entirely, so a
// rubric that does not grade communication produces no communication entry.
// The overall score is clamped to [0, 1] after summation.
func Aggregate(weights rubric.Weights, scores ComponentScores) (float64, map[string]ScoreBreakdown) {
	breakdown := map[string]ScoreBreakdown{}
	add := func(name string, weight, score float64) {
		if weight == 0 {
			return
		}
		breakdown[name] = ScoreBreakdown{Score: score, Weight: weight, Contribution: weight * score}
	}
	add(ComponentStructure, weights.Structure, scores.Structure)
	add(ComponentKeyQuestions, weights.KeyQuestions, scores.KeyQuestions)
	add(ComponentReasoning, weights.Reasoning, scores.Reasoning)
	add(ComponentSummary, weights.Summary, scores.Summary)
	add(ComponentCommunication, weights.Communication, scores.Communication)

	overall := 0.0
	for _, b := range breakdown {
		overall += b.Contribution
	}
	return clamp01(overall), breakdown
}
