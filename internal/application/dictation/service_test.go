package dictation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/opgrader/internal/application/dictation"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

func TestService_RejectsEmptyText(t *testing.T) {
	t.Parallel()

	svc := dictation.NewService(nil, logging.NewNopLogger())
	_, err := svc.Score(context.Background(), &dictation.Request{})
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.CodeInvalidParam, appErr.Code)
}

func TestService_GatekeeperRejection(t *testing.T) {
	t.Parallel()

	svc := dictation.NewService(nil, logging.NewNopLogger())
	report, err := svc.Score(context.Background(), &dictation.Request{Text: "too short"})
	require.NoError(t, err)

	assert.False(t, report.Sufficient)
	assert.Contains(t, report.Reason, "Too few lines")
	assert.Nil(t, report.Analysis)
	assert.Nil(t, report.Scorecard)
	assert.Nil(t, report.EPA)
	assert.Empty(t, report.Feedback)
}

func TestService_ScoresStrokeDictation(t *testing.T) {
	t.Parallel()

	svc := dictation.NewService(nil, logging.NewNopLogger())
	report, err := svc.Score(context.Background(), &dictation.Request{
		DictationID: "dict-1",
		Text:        strokeDictation,
	})
	require.NoError(t, err)

	assert.True(t, report.Sufficient)
	assert.Equal(t, "OK", report.Reason)
	assert.Equal(t, "dict-1", report.DictationID)
	assert.Equal(t, "stroke", report.CCPack)
	require.NotNil(t, report.Scorecard)
	assert.Equal(t, 16, report.Scorecard.Max)
	assert.Positive(t, report.Scorecard.Sum)
	require.NotNil(t, report.EPA)
	assert.GreaterOrEqual(t, report.EPA.EPA6, 1)
	assert.LessOrEqual(t, report.EPA.EPA6, 5)
	assert.NotEmpty(t, report.Feedback)
	assert.False(t, report.ScoredAt.IsZero())
}

func TestService_AssignsDictationID(t *testing.T) {
	t.Parallel()

	svc := dictation.NewService(nil, logging.NewNopLogger())
	report, err := svc.Score(context.Background(), &dictation.Request{Text: strokeDictation})
	require.NoError(t, err)
	assert.NotEmpty(t, report.DictationID)
}

func TestService_IsDeterministicWithoutOracle(t *testing.T) {
	t.Parallel()

	svc := dictation.NewService(nil, logging.NewNopLogger())
	req := func() *dictation.Request {
		return &dictation.Request{DictationID: "dict-1", Text: strokeDictation}
	}

	first, err := svc.Score(context.Background(), req())
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		next, err := svc.Score(context.Background(), req())
		require.NoError(t, err)
		assert.Equal(t, first.Scorecard, next.Scorecard)
		assert.Equal(t, first.EPA, next.EPA)
		assert.Equal(t, first.Feedback, next.Feedback)
	}
}

func TestService_SumMatchesCheckScores(t *testing.T) {
	t.Parallel()

	svc := dictation.NewService(nil, logging.NewNopLogger())
	report, err := svc.Score(context.Background(), &dictation.Request{Text: strokeDictation})
	require.NoError(t, err)

	total := 0
	for _, step := range report.Scorecard.Steps {
		for _, c := range step.Sections {
			total += c.Score
		}
	}
	if total > 16 {
		total = 16
	}
	assert.Equal(t, total, report.Scorecard.Sum)
}

func TestService_OracleDrivesAnalysis(t *testing.T) {
	t.Parallel()

	o := &scriptedOracle{outputs: map[string]string{
		"sectioner": `{"sections":[
			{"name":"CC","start_line":1,"end_line":1},
			{"name":"HPI","start_line":2,"end_line":6},
			{"name":"ROS","start_line":7,"end_line":7},
			{"name":"PMH","start_line":8,"end_line":8},
			{"name":"FH","start_line":9,"end_line":9},
			{"name":"SH","start_line":10,"end_line":10}]}`,
		"epa": `{"epa6": 5, "epa2": 3}`,
	}}
	svc := dictation.NewService(o, logging.NewNopLogger())
	report, err := svc.Score(context.Background(), &dictation.Request{Text: strokeDictation})
	require.NoError(t, err)

	require.Len(t, report.Analysis.Sections, 6)
	scores := report.Scorecard.SectionScores()
	assert.Equal(t, 2, scores["sections_present"])

	// Full scores, so the oracle suggestion survives clipping.
	assert.Equal(t, 5, report.EPA.EPA6)
	assert.Equal(t, 3, report.EPA.EPA2)
}

func TestService_CustomGatekeeper(t *testing.T) {
	t.Parallel()

	svc := dictation.NewService(nil, logging.NewNopLogger(),
		dictation.WithGatekeeper(&dictation.Gatekeeper{MinLines: 1, MinTokens: 1}))
	report, err := svc.Score(context.Background(), &dictation.Request{Text: "HPI: sudden onset at 09:15."})
	require.NoError(t, err)
	assert.True(t, report.Sufficient)
	require.NotNil(t, report.Scorecard)
}
