package evaluation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/opgrader/internal/domain/evaluation"
)

func TestBM25Scorer_RanksExactPhraseHighest(t *testing.T) {
	t.Parallel()

	corpus := []string{
		"What brings you in today?",
		"When did the weakness start exactly?",
		"Are you taking any blood thinners?",
		"Any medical conditions I should know about?",
	}

	scores, err := evaluation.NewBM25Scorer().ScorePhrases(context.Background(),
		[]string{"when did the weakness start", "recent travel abroad"}, corpus)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	assert.Greater(t, scores[0], 0.0)
	assert.Greater(t, scores[0], scores[1])
	assert.LessOrEqual(t, scores[0], 1.0, "scores are capped at 1.0")
}

func TestBM25Scorer_EmptyCorpus(t *testing.T) {
	t.Parallel()

	scores, err := evaluation.NewBM25Scorer().ScorePhrases(context.Background(), []string{"anything"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0}, scores)
}

func TestBM25Scorer_UnseenTermsScoreZero(t *testing.T) {
	t.Parallel()

	scores, err := evaluation.NewBM25Scorer().ScorePhrases(context.Background(),
		[]string{"zebra quantum"}, []string{"any chest pain or palpitations"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, scores[0])
}

func TestBM25Scorer_Deterministic(t *testing.T) {
	t.Parallel()

	corpus := []string{"any chest pain", "any shortness of breath", "any fever or chills"}
	phrases := []string{"chest pain", "fever"}

	first, err := evaluation.NewBM25Scorer().ScorePhrases(context.Background(), phrases, corpus)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := evaluation.NewBM25Scorer().ScorePhrases(context.Background(), phrases, corpus)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
