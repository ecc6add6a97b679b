package grading

import (
	"fmt"

	"github.com/turtacn/opgrader/internal/domain/evaluation"
	domainRubric "github.com/turtacn/opgrader/internal/domain/rubric"
)

// Feedback item types.
const (
	ItemViolation = "violation"
	ItemSuccess   = "success"
)

// FeedbackItem is one piece of feedback.  Every item carries at least one
// rubric citation so a reviewer can always trace it to the grading criterion.
type FeedbackItem struct {
	Type             string   `json:"type"`
	Text             string   `json:"text"`
	RubricCitations  []string `json:"rubric_citations"`
	StudentCitations []string `json:"student_citations,omitempty"`
}

// FeedbackSection groups feedback items under one grading category.
type FeedbackSection struct {
	Category string         `json:"category"`
	Items    []FeedbackItem `json:"items"`
}

// Feedback is the composed natural-language feedback for one grading run.
type Feedback struct {
	OverallSummary string            `json:"overall_summary"`
	Sections       []FeedbackSection `json:"sections"`
}

// FeedbackComposer turns evaluation results into reviewer-facing feedback.
// Sections always appear in the fixed order structure, key_questions,
// reasoning, summary; within a section violations precede successes.
type FeedbackComposer struct{}

// NewFeedbackComposer constructs a composer.
func NewFeedbackComposer() *FeedbackComposer {
	return &FeedbackComposer{}
}

// Compose builds the full feedback document.
func (c *FeedbackComposer) Compose(
	r *domainRubric.Rubric,
	overall float64,
	structureRes *evaluation.StructureResult,
	questionsRes *evaluation.QuestionMatchingResult,
	reasoningRes *evaluation.ReasoningResult,
	summaryRes *evaluation.SummaryResult,
) *Feedback {
	return &Feedback{
		OverallSummary: overallSummary(overall),
		Sections: []FeedbackSection{
			c.structureSection(r, structureRes),
			c.questionsSection(r, questionsRes),
			c.reasoningSection(r, reasoningRes),
			c.summarySection(r, summaryRes),
		},
	}
}

// overallSummary maps the overall score to a quality tier sentence.
func overallSummary(overall float64) string {
	percentage := int(overall * 100)
	var quality string
	switch {
	case overall >= 0.9:
		quality = "Excellent work"
	case overall >= 0.8:
		quality = "Strong performance"
	case overall >= 0.7:
		quality = "Good effort"
	case overall >= 0.6:
		quality = "Satisfactory"
	default:
		quality = "Needs improvement"
	}
	return fmt.Sprintf("%s. You scored %d%% on this presentation.", quality, percentage)
}

func (c *FeedbackComposer) structureSection(r *domainRubric.Rubric, res *evaluation.StructureResult) FeedbackSection {
	items := itemsFromResult(res.Result)
	if len(items) == 0 {
		items = append(items, FeedbackItem{
			Type:            ItemSuccess,
			Text:            "Your presentation structure was well-organized.",
			RubricCitations: []string{evaluation.NewRubricCitation(r.RubricID, r.Structure.Anchor).URI()},
		})
	}
	return FeedbackSection{Category: evaluation.ComponentStructure, Items: items}
}

func (c *FeedbackComposer) questionsSection(r *domainRubric.Rubric, res *evaluation.QuestionMatchingResult) FeedbackSection {
	var items []FeedbackItem
	for _, id := range res.UnmatchedQuestions {
		q := findQuestion(r, id)
		if q == nil {
			continue
		}
		items = append(items, FeedbackItem{
			Type:            ItemViolation,
			Text:            "You did not ask: " + q.Label,
			RubricCitations: []string{evaluation.NewRubricCitation(r.RubricID, q.Anchor).URI()},
		})
	}
	for _, match := range res.Matches {
		q := findQuestion(r, match.QuestionID)
		label := match.MatchedPhrase
		if q != nil {
			label = q.Label
		}
		item := FeedbackItem{
			Type:            ItemSuccess,
			Text:            "Good job asking about: " + label,
			RubricCitations: []string{evaluation.NewRubricCitation(r.RubricID, match.QuestionAnchor).URI()},
		}
		if match.StudentCitation != "" {
			item.StudentCitations = []string{match.StudentCitation}
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		items = append(items, FeedbackItem{
			Type:            ItemSuccess,
			Text:            "You covered the key questions for this case.",
			RubricCitations: []string{evaluation.NewRubricCitation(r.RubricID, r.KeyQuestionsPolicy.Anchor).URI()},
		})
	}
	return FeedbackSection{Category: evaluation.ComponentKeyQuestions, Items: items}
}

func (c *FeedbackComposer) reasoningSection(r *domainRubric.Rubric, res *evaluation.ReasoningResult) FeedbackSection {
	var items []FeedbackItem
	for _, missing := range res.MissingLinks {
		items = append(items, FeedbackItem{
			Type:            ItemViolation,
			Text:            "You did not demonstrate: " + missing.Description,
			RubricCitations: []string{missing.RubricCitation},
		})
	}
	for _, detected := range res.DetectedLinks {
		items = append(items, FeedbackItem{
			Type:             ItemSuccess,
			Text:             "Good clinical reasoning: " + detected.Description,
			RubricCitations:  []string{detected.RubricCitation},
			StudentCitations: []string{detected.StudentCitation},
		})
	}
	if len(items) == 0 {
		items = append(items, FeedbackItem{
			Type:            ItemSuccess,
			Text:            "Your clinical reasoning met expectations.",
			RubricCitations: []string{evaluation.NewRubricCitation(r.RubricID, r.Reasoning.Anchor).URI()},
		})
	}
	return FeedbackSection{Category: evaluation.ComponentReasoning, Items: items}
}

func (c *FeedbackComposer) summarySection(r *domainRubric.Rubric, res *evaluation.SummaryResult) FeedbackSection {
	items := itemsFromResult(res.Result)
	if len(items) == 0 {
		items = append(items, FeedbackItem{
			Type:            ItemSuccess,
			Text:            "Your closing summary was clear and complete.",
			RubricCitations: []string{evaluation.NewRubricCitation(r.RubricID, r.Summary.Anchor).URI()},
		})
	}
	return FeedbackSection{Category: evaluation.ComponentSummary, Items: items}
}

// itemsFromResult converts a result's violations and successes, violations
// first.
func itemsFromResult(res evaluation.Result) []FeedbackItem {
	var items []FeedbackItem
	for _, v := range res.Violations {
		items = append(items, FeedbackItem{
			Type:             ItemViolation,
			Text:             v.Description,
			RubricCitations:  v.RubricCitations,
			StudentCitations: v.StudentCitations,
		})
	}
	for _, s := range res.Successes {
		items = append(items, FeedbackItem{
			Type:             ItemSuccess,
			Text:             s.Description,
			RubricCitations:  s.RubricCitations,
			StudentCitations: s.StudentCitations,
		})
	}
	return items
}

func findQuestion(r *domainRubric.Rubric, id string) *domainRubric.KeyQuestion {
	for i := range r.KeyQuestions {
		if r.KeyQuestions[i].ID == id {
			return &r.KeyQuestions[i]
		}
	}
	return nil
}
