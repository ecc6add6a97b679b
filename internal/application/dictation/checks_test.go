package dictation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/opgrader/internal/application/dictation"
)

// fullAnalysis builds an analysis that earns full marks on every check.
func fullAnalysis() *dictation.Analysis {
	return &dictation.Analysis{
		Sections: []dictation.Section{
			{Name: "CC", StartLine: 1, EndLine: 1},
			{Name: "HPI", StartLine: 2, EndLine: 6},
			{Name: "ROS", StartLine: 7, EndLine: 7},
			{Name: "PMH", StartLine: 8, EndLine: 8},
			{Name: "Medications", StartLine: 9, EndLine: 9},
			{Name: "FH", StartLine: 10, EndLine: 10},
			{Name: "SH", StartLine: 11, EndLine: 11},
		},
		Timeline: dictation.Timeline{Events: []dictation.TimeEvent{
			{Type: "onset", TimeText: "08:30", Confidence: 0.9, Placement: "hpi", Evidence: []dictation.Span{{2, 2}}},
		}},
		Pertinents: []dictation.Pertinent{
			{Name: "forehead spared", Mandatory: true, Present: true, Placement: "hpi", Evidence: []dictation.Span{{4, 4}}},
			{Name: "no seizure", Mandatory: true, Present: true, Placement: "hpi", Evidence: []dictation.Span{{5, 5}}},
			{Name: "ear rash", Mandatory: true, Present: true, Placement: "hpi", Evidence: []dictation.Span{{5, 5}}},
			{Name: "dysarthria", Present: true, Placement: "hpi", Evidence: []dictation.Span{{3, 3}}},
		},
		Summary: dictation.SummaryCheck{
			HasTwoSentences: true,
			HistorySentence: "Sudden focal deficits began this morning.",
			ExamSentence:    "Exam shows a spared forehead.",
			Evidence:        []dictation.Span{{6, 6}},
		},
		DDx: []dictation.DDxItem{
			{Dx: "ischemic stroke", WhyFor: []string{"focal deficits"}, WhyAgainst: []string{}, Priority: 1},
			{Dx: "hemorrhagic stroke", WhyFor: []string{}, WhyAgainst: []string{"no severe headache"}, Priority: 2},
			{Dx: "Bell's palsy", WhyFor: []string{"facial droop"}, WhyAgainst: []string{"forehead spared"}, Priority: 3},
		},
	}
}

func checkByID(t *testing.T, card *dictation.Scorecard, id string) dictation.CheckResult {
	t.Helper()
	for _, step := range card.Steps {
		for _, c := range step.Sections {
			if c.ID == id {
				return c
			}
		}
	}
	t.Fatalf("check %q not found", id)
	return dictation.CheckResult{}
}

func TestRunChecks_FullMarks(t *testing.T) {
	t.Parallel()

	card := dictation.RunChecks(fullAnalysis())
	assert.Equal(t, 16, card.Sum)
	assert.Equal(t, 16, card.Max)

	require.Len(t, card.Steps, 2)
	assert.Equal(t, "history", card.Steps[0].ID)
	assert.Equal(t, "assessment_plan", card.Steps[1].ID)
	assert.Len(t, card.Steps[0].Sections, 6)
	assert.Len(t, card.Steps[1].Sections, 2)

	for _, step := range card.Steps {
		for _, c := range step.Sections {
			assert.Equal(t, 2, c.Score, c.ID)
			assert.NotEmpty(t, c.Evidence, c.ID)
		}
	}
}

func TestRunChecks_SectionsPresent(t *testing.T) {
	t.Parallel()

	a := fullAnalysis()
	card := dictation.RunChecks(a)
	assert.Equal(t, "All core sections present", checkByID(t, card, "sections_present").Rationale)

	// Drop ROS: one bucket missing.
	a.Sections = a.Sections[:2]
	a.Sections = append(a.Sections, dictation.Section{Name: "PMH", StartLine: 8, EndLine: 8},
		dictation.Section{Name: "FH", StartLine: 10, EndLine: 10},
		dictation.Section{Name: "SH", StartLine: 11, EndLine: 11})
	card = dictation.RunChecks(a)
	c := checkByID(t, card, "sections_present")
	assert.Equal(t, 1, c.Score)
	assert.Equal(t, "One core section missing", c.Rationale)

	// HPI only.
	a.Sections = []dictation.Section{{Name: "HPI", StartLine: 2, EndLine: 6}}
	c = checkByID(t, dictation.RunChecks(a), "sections_present")
	assert.Equal(t, 0, c.Score)
	assert.Equal(t, "5 core sections missing", c.Rationale)
}

func TestRunChecks_HPIQualityBands(t *testing.T) {
	t.Parallel()

	a := fullAnalysis()
	c := checkByID(t, dictation.RunChecks(a), "hpi_quality")
	assert.Equal(t, 2, c.Score)
	assert.Equal(t, []dictation.Span{{2, 2}}, c.Evidence)

	// Onset anchored but thin context.
	a.DDx = a.DDx[:1]
	c = checkByID(t, dictation.RunChecks(a), "hpi_quality")
	assert.Equal(t, 1, c.Score)

	// Low-confidence onset does not count.
	a = fullAnalysis()
	a.Timeline.Events[0].Confidence = 0.5
	c = checkByID(t, dictation.RunChecks(a), "hpi_quality")
	assert.Equal(t, 0, c.Score)
	assert.Equal(t, "Missing onset anchor (clock or LKW) in HPI", c.Rationale)
}

func TestRunChecks_PatientProfileBuckets(t *testing.T) {
	t.Parallel()

	a := fullAnalysis()
	assert.Equal(t, 2, checkByID(t, dictation.RunChecks(a), "patient_profile").Score)

	a.Sections = []dictation.Section{
		{Name: "HPI", StartLine: 2, EndLine: 6},
		{Name: "PMH", StartLine: 8, EndLine: 8},
	}
	assert.Equal(t, 1, checkByID(t, dictation.RunChecks(a), "patient_profile").Score)

	a.Sections = []dictation.Section{{Name: "HPI", StartLine: 2, EndLine: 6}}
	assert.Equal(t, 0, checkByID(t, dictation.RunChecks(a), "patient_profile").Score)
}

func TestRunChecks_ROSFocused(t *testing.T) {
	t.Parallel()

	a := fullAnalysis()
	assert.Equal(t, 2, checkByID(t, dictation.RunChecks(a), "ros_focused").Score)

	// ROS present but no HPI-placed pertinents.
	for i := range a.Pertinents {
		a.Pertinents[i].Placement = "other"
	}
	c := checkByID(t, dictation.RunChecks(a), "ros_focused")
	assert.Equal(t, 1, c.Score)
	assert.Equal(t, "ROS present but generic/superficial", c.Rationale)
}

func TestRunChecks_PertinentsROSPlacementCapsScore(t *testing.T) {
	t.Parallel()

	a := fullAnalysis()
	// Everything credited from the ROS instead of the HPI.
	for i := range a.Pertinents {
		a.Pertinents[i].Placement = "ros"
	}
	c := checkByID(t, dictation.RunChecks(a), "pertinents_in_hpi")
	assert.Equal(t, 1, c.Score)
	assert.Equal(t, "Pertinents found but credited outside HPI (capped)", c.Rationale)
}

func TestRunChecks_PertinentsMandatorySetIncomplete(t *testing.T) {
	t.Parallel()

	a := fullAnalysis()
	// Keep only one mandatory discriminator in the HPI.
	a.Pertinents = a.Pertinents[:1]
	c := checkByID(t, dictation.RunChecks(a), "pertinents_in_hpi")
	assert.Equal(t, 1, c.Score)
	assert.Equal(t, "Some HPI pertinents present but mandatory set incomplete", c.Rationale)
}

func TestRunChecks_PertinentsMissing(t *testing.T) {
	t.Parallel()

	a := fullAnalysis()
	a.Pertinents = nil
	c := checkByID(t, dictation.RunChecks(a), "pertinents_in_hpi")
	assert.Equal(t, 0, c.Score)
	assert.Equal(t, []dictation.Span{{2, 6}}, c.Evidence)
}

func TestRunChecks_SummaryBands(t *testing.T) {
	t.Parallel()

	a := fullAnalysis()
	assert.Equal(t, 2, checkByID(t, dictation.RunChecks(a), "summary_two_sentences").Score)

	a.Summary.HasTwoSentences = false
	a.Summary.ExamSentence = ""
	assert.Equal(t, 1, checkByID(t, dictation.RunChecks(a), "summary_two_sentences").Score)

	a.Summary = dictation.SummaryCheck{}
	c := checkByID(t, dictation.RunChecks(a), "summary_two_sentences")
	assert.Equal(t, 0, c.Score)
	assert.Equal(t, []dictation.Span{{1, 1}}, c.Evidence)
}

func TestRunChecks_DDxBands(t *testing.T) {
	t.Parallel()

	a := fullAnalysis()
	assert.Equal(t, 2, checkByID(t, dictation.RunChecks(a), "ddx").Score)
	assert.Equal(t, 2, checkByID(t, dictation.RunChecks(a), "problem_list").Score)

	// Incomplete entry downgrades the DDx check but not the problem list.
	a.DDx[1].WhyAgainst = nil
	assert.Equal(t, 1, checkByID(t, dictation.RunChecks(a), "ddx").Score)
	assert.Equal(t, 2, checkByID(t, dictation.RunChecks(a), "problem_list").Score)

	a.DDx = a.DDx[:1]
	assert.Equal(t, 1, checkByID(t, dictation.RunChecks(a), "problem_list").Score)

	a.DDx = nil
	assert.Equal(t, 0, checkByID(t, dictation.RunChecks(a), "ddx").Score)
	assert.Equal(t, 0, checkByID(t, dictation.RunChecks(a), "problem_list").Score)
}

func TestRunChecks_SectionScores(t *testing.T) {
	t.Parallel()

	scores := dictation.RunChecks(fullAnalysis()).SectionScores()
	assert.Len(t, scores, 8)
	assert.Equal(t, 2, scores["sections_present"])
	assert.Equal(t, 2, scores["ddx"])
}

func TestRunChecks_EmptyAnalysisScoresZero(t *testing.T) {
	t.Parallel()

	card := dictation.RunChecks(&dictation.Analysis{})
	assert.Equal(t, 0, card.Sum)
	for _, step := range card.Steps {
		for _, c := range step.Sections {
			assert.Equal(t, 0, c.Score, c.ID)
			assert.NotEmpty(t, c.Evidence, c.ID)
		}
	}
}
