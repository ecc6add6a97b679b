package grading_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/opgrader/internal/application/grading"
	"github.com/turtacn/opgrader/internal/domain/evaluation"
	domainRubric "github.com/turtacn/opgrader/internal/domain/rubric"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/internal/testutil"
	"github.com/turtacn/opgrader/pkg/errors"
)

// fakeRepo serves a single fixed rubric.
type fakeRepo struct {
	rubric *domainRubric.Rubric
}

func (f *fakeRepo) Create(context.Context, *domainRubric.Rubric) error { return nil }

func (f *fakeRepo) Get(_ context.Context, rubricID, _ string) (*domainRubric.Rubric, error) {
	if f.rubric == nil || f.rubric.RubricID != rubricID {
		return nil, errors.New(errors.ErrCodeRubricNotFound, "rubric not found")
	}
	return f.rubric, nil
}

func (f *fakeRepo) ListVersions(context.Context, string) ([]*domainRubric.Rubric, error) {
	return []*domainRubric.Rubric{f.rubric}, nil
}

func (f *fakeRepo) LatestVersion(context.Context, string) (string, error) {
	return f.rubric.Version, nil
}

func (f *fakeRepo) UpdateStatus(context.Context, string, string, domainRubric.Status) error {
	return nil
}

func (f *fakeRepo) Delete(context.Context, string, string) error { return nil }

type sideEffects struct {
	cached      int
	stored      int
	published   []*grading.CompletedEvent
	submissions []*grading.Submission
	durations   int
	statusIncs  []string
}

func (s *sideEffects) PutResult(_ context.Context, _ *grading.Response) error { s.cached++; return nil }

func (s *sideEffects) GetResult(context.Context, string) (*grading.Response, error) {
	return nil, errors.NotFound("no cached result")
}

func (s *sideEffects) PutTranscript(_ context.Context, transcriptID string, _ []byte) (string, error) {
	s.stored++
	return "transcripts/" + transcriptID, nil
}

func (s *sideEffects) PublishGradingCompleted(_ context.Context, e *grading.CompletedEvent) error {
	s.published = append(s.published, e)
	return nil
}

func (s *sideEffects) SaveSubmission(_ context.Context, sub *grading.Submission) error {
	s.submissions = append(s.submissions, sub)
	return nil
}

func (s *sideEffects) ObserveGradingDuration(float64) { s.durations++ }

func (s *sideEffects) IncGradings(status string) { s.statusIncs = append(s.statusIncs, status) }

func newService(t *testing.T, effects *sideEffects) grading.Service {
	t.Helper()
	opts := []grading.Option{}
	if effects != nil {
		opts = append(opts,
			grading.WithArtifactCache(effects),
			grading.WithTranscriptStore(effects),
			grading.WithEventPublisher(effects),
			grading.WithSubmissionStore(effects),
			grading.WithMetrics(effects),
		)
	}
	return grading.NewService(&fakeRepo{rubric: testutil.ValidRubric()}, logging.NewNopLogger(), opts...)
}

func strokeRequest() *grading.Request {
	return &grading.Request{
		RubricID:     "stroke-oral",
		TranscriptID: "tr-stroke",
		RawText:      testutil.StrokeTranscript(),
	}
}

func TestGrade_CompleteEncounter(t *testing.T) {
	t.Parallel()

	res, err := newService(t, nil).Grade(context.Background(), strokeRequest())
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.OverallScore)
	assert.Equal(t, "tr-stroke", res.TranscriptID)
	assert.Equal(t, "stroke-oral", res.RubricID)
	assert.Equal(t, "1.0.0", res.RubricVersion)
	assert.NotEmpty(t, res.GradingID)

	assert.Equal(t, 1.0, res.ComponentScores.Structure)
	assert.Equal(t, 1.0, res.ComponentScores.KeyQuestions)
	assert.Equal(t, 1.0, res.ComponentScores.Reasoning)
	assert.Equal(t, 1.0, res.ComponentScores.Summary)

	// Communication has zero weight in the fixture rubric.
	assert.Len(t, res.ScoreBreakdown, 4)
	assert.NotContains(t, res.ScoreBreakdown, evaluation.ComponentCommunication)
	assert.InDelta(t, 0.3, res.ScoreBreakdown[evaluation.ComponentReasoning].Contribution, 1e-9)

	require.NotNil(t, res.Feedback)
	assert.Equal(t, "Excellent work. You scored 100% on this presentation.", res.Feedback.OverallSummary)
}

func TestGrade_IsDeterministic(t *testing.T) {
	t.Parallel()

	svc := newService(t, nil)
	first, err := svc.Grade(context.Background(), strokeRequest())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := svc.Grade(context.Background(), strokeRequest())
		require.NoError(t, err)
		assert.Equal(t, first.OverallScore, again.OverallScore)
		assert.Equal(t, first.ComponentScores, again.ComponentScores)
		assert.Equal(t, first.ScoreBreakdown, again.ScoreBreakdown)
		assert.Equal(t, first.Structure.DetectedOrder, again.Structure.DetectedOrder)
		assert.Equal(t, first.Feedback, again.Feedback)
	}
}

func TestGrade_FeedbackSectionOrderIsFixed(t *testing.T) {
	t.Parallel()

	res, err := newService(t, nil).Grade(context.Background(), strokeRequest())
	require.NoError(t, err)

	var categories []string
	for _, s := range res.Feedback.Sections {
		categories = append(categories, s.Category)
	}
	assert.Equal(t, []string{"structure", "key_questions", "reasoning", "summary"}, categories)
}

func TestGrade_EveryFeedbackItemCitesTheRubric(t *testing.T) {
	t.Parallel()

	// An empty transcript produces violation-heavy feedback; even then every
	// item must trace back to a rubric criterion.
	res, err := newService(t, nil).Grade(context.Background(), &grading.Request{
		RubricID:     "stroke-oral",
		TranscriptID: "tr-empty",
		RawText:      "Student: Hello there.",
	})
	require.NoError(t, err)

	for _, section := range res.Feedback.Sections {
		require.NotEmpty(t, section.Items, section.Category)
		for _, item := range section.Items {
			assert.NotEmpty(t, item.RubricCitations, "%s: %s", section.Category, item.Text)
		}
	}
}

func TestGrade_ZeroSectionTranscriptStillGrades(t *testing.T) {
	t.Parallel()

	res, err := newService(t, nil).Grade(context.Background(), &grading.Request{
		RubricID:     "stroke-oral",
		TranscriptID: "tr-empty",
		RawText:      "Student: Hello there.",
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.ComponentScores.Structure)
	assert.Empty(t, res.Structure.DetectedOrder)
	assert.Less(t, res.OverallScore, 0.5)
}

func TestGrade_SideEffectsFire(t *testing.T) {
	t.Parallel()

	effects := &sideEffects{}
	res, err := newService(t, effects).Grade(context.Background(), strokeRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, effects.cached)
	assert.Equal(t, 1, effects.stored)
	require.Len(t, effects.published, 1)
	assert.Equal(t, res.GradingID, effects.published[0].GradingID)
	assert.Equal(t, res.OverallScore, effects.published[0].OverallScore)
	require.Len(t, effects.submissions, 1)
	assert.Equal(t, grading.SubmissionCompleted, effects.submissions[0].Status)
	assert.Equal(t, res.GradingID, effects.submissions[0].GradingID)
	assert.Same(t, res, effects.submissions[0].Result)
	assert.Equal(t, 1, effects.durations)
	assert.Equal(t, []string{"completed"}, effects.statusIncs)
}

func TestGrade_UnknownRubric(t *testing.T) {
	t.Parallel()

	_, err := newService(t, nil).Grade(context.Background(), &grading.Request{
		RubricID:     "no-such-rubric",
		TranscriptID: "tr",
		RawText:      "Student: hi",
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGrade_InputValidation(t *testing.T) {
	t.Parallel()

	svc := newService(t, nil)
	_, err := svc.Grade(context.Background(), &grading.Request{TranscriptID: "tr", RawText: "x"})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = svc.Grade(context.Background(), &grading.Request{RubricID: "stroke-oral", RawText: "x"})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestGrade_BreakdownContributionsSumToOverall(t *testing.T) {
	t.Parallel()

	res, err := newService(t, nil).Grade(context.Background(), strokeRequest())
	require.NoError(t, err)

	var components []string
	total := 0.0
	for name, b := range res.ScoreBreakdown {
		components = append(components, name)
		total += b.Contribution
	}
	sort.Strings(components)
	assert.Equal(t, []string{"key_questions", "reasoning", "structure", "summary"}, components)
	assert.InDelta(t, res.OverallScore, total, 1e-9)
}
