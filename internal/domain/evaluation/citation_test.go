package evaluation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/opgrader/internal/domain/evaluation"
	"github.com/turtacn/opgrader/pkg/errors"
)

func TestRubricCitation_RoundTrip(t *testing.T) {
	t.Parallel()

	c := evaluation.NewRubricCitation("stroke-oral", "#kq-onset")
	assert.Equal(t, "rubric://stroke-oral#kq-onset", c.URI())

	parsed, err := evaluation.ParseRubricCitation(c.URI())
	require.NoError(t, err)
	assert.Equal(t, "stroke-oral", parsed.RubricID)
	assert.Equal(t, "#kq-onset", parsed.Anchor)
}

func TestNewRubricCitation_ToleratesMissingHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rubric://r1#a", evaluation.NewRubricCitation("r1", "a").URI())
	assert.Equal(t, "rubric://r1#a", evaluation.NewRubricCitation("r1", "#a").URI())
}

func TestParseRubricCitation_Invalid(t *testing.T) {
	t.Parallel()

	for _, uri := range []string{"", "rubric://no-anchor", "student://oral#00:00–00:05", "rubric://#x"} {
		_, err := evaluation.ParseRubricCitation(uri)
		require.Error(t, err, uri)
		assert.True(t, errors.IsCode(err, errors.ErrCodeCitationInvalid))
	}
}

func TestStudentCitation_OralRoundTrip(t *testing.T) {
	t.Parallel()

	c := evaluation.NewOralCitation("00:15", "00:20")
	assert.Equal(t, "student://oral#00:15–00:20", c.URI())

	parsed, err := evaluation.ParseStudentCitation(c.URI())
	require.NoError(t, err)
	assert.Equal(t, "oral", parsed.Source)
	assert.Equal(t, evaluation.CitationTimestamp, parsed.Type)
	assert.Equal(t, "00:15", parsed.TimestampStart)
	assert.Equal(t, "00:20", parsed.TimestampEnd)
}

func TestStudentCitation_TokensRoundTrip(t *testing.T) {
	t.Parallel()

	c := evaluation.NewSummaryTokensCitation(57)
	assert.Equal(t, "student://summary#tokens=57", c.URI())

	parsed, err := evaluation.ParseStudentCitation(c.URI())
	require.NoError(t, err)
	assert.Equal(t, "summary", parsed.Source)
	assert.Equal(t, evaluation.CitationTokens, parsed.Type)
	assert.Equal(t, 57, parsed.TokenCount)
}

func TestParseStudentCitation_Invalid(t *testing.T) {
	t.Parallel()

	for _, uri := range []string{
		"",
		"student://oral",
		"student://video#00:00–00:05",
		"student://oral#00:00-00:05", // hyphen, not en-dash
		"student://summary#tokens=abc",
	} {
		_, err := evaluation.ParseStudentCitation(uri)
		assert.Error(t, err, uri)
	}
}
