package rubric_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/opgrader/internal/domain/rubric"
	"github.com/turtacn/opgrader/internal/testutil"
	"github.com/turtacn/opgrader/pkg/errors"
)

func TestWeights_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		weights rubric.Weights
		wantErr bool
	}{
		{"exact sum", rubric.Weights{Structure: 0.2, KeyQuestions: 0.3, Reasoning: 0.3, Summary: 0.2}, false},
		{"within tolerance", rubric.Weights{Structure: 0.2, KeyQuestions: 0.3, Reasoning: 0.3, Summary: 0.2004}, false},
		{"sum too low", rubric.Weights{Structure: 0.2, KeyQuestions: 0.2, Reasoning: 0.2, Summary: 0.2}, true},
		{"sum too high", rubric.Weights{Structure: 0.5, KeyQuestions: 0.5, Reasoning: 0.5, Summary: 0.5}, true},
		{"negative weight", rubric.Weights{Structure: -0.1, KeyQuestions: 0.5, Reasoning: 0.3, Summary: 0.3}, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.weights.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeWeightsInvalid))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRubric_Validate(t *testing.T) {
	t.Parallel()

	t.Run("fixture is valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, testutil.ValidRubric().Validate())
	})

	t.Run("empty rubric id", func(t *testing.T) {
		t.Parallel()
		r := testutil.ValidRubric()
		r.RubricID = "  "
		assert.Error(t, r.Validate())
	})

	t.Run("bad version", func(t *testing.T) {
		t.Parallel()
		r := testutil.ValidRubric()
		r.Version = "1.0"
		err := r.Validate()
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeRubricVersionInvalid))
	})

	t.Run("bad status", func(t *testing.T) {
		t.Parallel()
		r := testutil.ValidRubric()
		r.Status = rubric.Status("published")
		assert.Error(t, r.Validate())
	})

	t.Run("anchor without hash", func(t *testing.T) {
		t.Parallel()
		r := testutil.ValidRubric()
		r.Structure.Anchor = "structure"
		assert.Error(t, r.Validate())
	})

	t.Run("question without phrases", func(t *testing.T) {
		t.Parallel()
		r := testutil.ValidRubric()
		r.KeyQuestions[0].Phrases = nil
		assert.Error(t, r.Validate())
	})

	t.Run("positive penalty value", func(t *testing.T) {
		t.Parallel()
		r := testutil.ValidRubric()
		r.Structure.Penalties[0].Value = 0.2
		assert.Error(t, r.Validate())
	})

	t.Run("nonzero communication weight", func(t *testing.T) {
		t.Parallel()
		r := testutil.ValidRubric()
		r.Communication.Weight = 0.1
		assert.Error(t, r.Validate())
	})
}

func TestAllAnchors_CoversEveryCategory(t *testing.T) {
	t.Parallel()

	r := testutil.ValidRubric()
	anchors := r.AllAnchors()

	assert.Contains(t, anchors, "#structure")
	assert.Contains(t, anchors, "#structure-missing-summary")
	assert.Contains(t, anchors, "#kq-onset")
	assert.Contains(t, anchors, "#key-questions")
	assert.Contains(t, anchors, "#reasoning-tpa")
	assert.Contains(t, anchors, "#summary-age-sex")
	assert.Contains(t, anchors, "#communication")
}

func TestNextPatchVersion(t *testing.T) {
	t.Parallel()

	got, err := rubric.NextPatchVersion("1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", got)

	got, err = rubric.NextPatchVersion("2.3.9")
	require.NoError(t, err)
	assert.Equal(t, "2.3.10", got)

	_, err = rubric.NextPatchVersion("1.0")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRubricVersionInvalid))
}

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, rubric.CompareVersions("1.0.0", "1.0.0"))
	assert.Equal(t, -1, rubric.CompareVersions("1.0.9", "1.0.10"))
	assert.Equal(t, 1, rubric.CompareVersions("2.0.0", "1.9.9"))
	assert.Equal(t, -1, rubric.CompareVersions("1.2.3", "1.10.0"))
}

func TestCriticalQuestionCount(t *testing.T) {
	t.Parallel()

	r := testutil.ValidRubric()
	assert.Equal(t, 1, r.CriticalQuestionCount())
}
