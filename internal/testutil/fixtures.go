// Package testutil provides shared fixtures for unit tests: a complete valid
// rubric and a realistic stroke-encounter transcript.
package testutil

import (
	"time"

	"github.com/turtacn/opgrader/internal/domain/rubric"
)

func strPtr(s string) *string { return &s }

// ValidRubric returns a complete stroke-presentation rubric that passes both
// construction validation and QA validation.
func ValidRubric() *rubric.Rubric {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	return &rubric.Rubric{
		RubricID:  "stroke-oral",
		Version:   "1.0.0",
		Status:    rubric.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
		Weights: rubric.Weights{
			Structure:     0.2,
			KeyQuestions:  0.3,
			Reasoning:     0.3,
			Summary:       0.2,
			Communication: 0.0,
		},
		Structure: rubric.StructureConfig{
			Anchor:        "#structure",
			ExpectedOrder: []string{"CC", "HPI", "ROS", "PMH", "Summary"},
			Penalties: []rubric.Penalty{
				{ID: "missing_Summary", Anchor: "#structure-missing-summary", Description: "No closing summary given", Value: -0.2},
				{ID: "swap_ROS_before_HPI", Anchor: "#structure-ros-order", Description: "ROS before HPI", Value: -0.1},
			},
		},
		KeyQuestions: []rubric.KeyQuestion{
			{
				ID:       "q_onset",
				Anchor:   "#kq-onset",
				Label:    "Time of symptom onset",
				Critical: true,
				Phrases:  []string{"when did the weakness start", "time of onset"},
			},
			{
				ID:       "q_anticoag",
				Anchor:   "#kq-anticoag",
				Label:    "Anticoagulant use",
				Critical: false,
				Phrases:  []string{"blood thinners", "anticoagulants"},
			},
		},
		KeyQuestionsPolicy: rubric.KeyQuestionsPolicy{
			Anchor:            "#key-questions",
			CriticalWeight:    2.0,
			NoncriticalWeight: 1.0,
			CoverageThreshold: 0.7,
		},
		Reasoning: rubric.ReasoningConfig{
			Anchor: "#reasoning",
			RequiredLinks: []rubric.ReasoningLink{
				{
					ID:          "link_tpa_window",
					Anchor:      "#reasoning-tpa",
					Description: "Links onset time to thrombolysis window",
					Pattern:     `(?:tpa|thrombolysis|window)`,
				},
			},
			MajorGapPenalty: -0.5,
		},
		Summary: rubric.SummaryConfig{
			Anchor:    "#summary",
			MinTokens: 40,
			MaxTokens: 80,
			RequiredElements: []rubric.SummaryElement{
				{
					ID:          "elem_age_sex",
					Anchor:      "#summary-age-sex",
					Description: "States patient age and sex",
					Pattern:     strPtr(`\d+[ -]?year[ -]?old`),
					Critical:    true,
				},
				{
					ID:          "elem_chief",
					Anchor:      "#summary-chief",
					Description: "Restates the chief concern",
					Pattern:     strPtr(`weakness|stroke`),
					Critical:    false,
				},
			},
		},
		Communication: rubric.CommunicationConfig{
			Anchor: "#communication",
			Weight: 0.0,
		},
	}
}

// StrokeTranscript returns a raw encounter transcript whose student covers
// CC, HPI, ROS and a closing summary.
func StrokeTranscript() string {
	return `[00:05] Student: What brings you in today?
[00:09] Patient: I suddenly got weak on my left side this morning.
[00:15] Student: When did the weakness start exactly?
[00:20] Patient: About two hours ago, around eight.
[00:40] Student: Are you taking any blood thinners?
[00:45] Patient: No, nothing like that.
[01:00] Student: Any headache or vision changes?
[01:05] Patient: No headache, my vision is fine.
[01:30] Student: Any medical conditions I should know about?
[01:35] Patient: High blood pressure, that is all.
[02:00] Student: So to summarize, this is a 68-year-old male with sudden left-sided weakness starting two hours ago, placing him within the thrombolysis window, with a history of hypertension and no anticoagulant use, and the exam and history so far are most concerning for an acute ischemic stroke.
`
}
