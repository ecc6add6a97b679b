package textutil_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/opgrader/pkg/errors"
	"github.com/turtacn/opgrader/pkg/textutil"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ts      string
		h, m, s int
		wantErr bool
	}{
		{"00:00", 0, 0, 0, false},
		{"01:30", 0, 1, 30, false},
		{"12:05", 0, 12, 5, false},
		{"1:05:30", 1, 5, 30, false},
		{"10:00:00", 10, 0, 0, false},
		{"", 0, 0, 0, true},
		{"1:2:3:4", 0, 0, 0, true},
		{"ab:cd", 0, 0, 0, true},
		{"00:75", 0, 0, 0, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(fmt.Sprintf("%q", tc.ts), func(t *testing.T) {
			t.Parallel()
			h, m, s, err := textutil.ParseTimestamp(tc.ts)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeTimestampInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.h, h)
			assert.Equal(t, tc.m, m)
			assert.Equal(t, tc.s, s)
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "01:30", textutil.FormatTimestamp(90))
	assert.Equal(t, "1:05:30", textutil.FormatTimestamp(3930))
	assert.Equal(t, "00:00", textutil.FormatTimestamp(0))
	assert.Equal(t, "00:00", textutil.FormatTimestamp(-5))
	assert.Equal(t, "59:59", textutil.FormatTimestamp(3599))
}

func TestTimestampRoundTrip(t *testing.T) {
	t.Parallel()

	for _, ts := range []string{"00:00", "01:30", "12:45", "59:59"} {
		secs, err := textutil.TimestampToSeconds(ts)
		require.NoError(t, err)
		assert.Equal(t, ts, textutil.FormatTimestamp(secs))
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	d, err := textutil.Duration("01:00", "02:30")
	require.NoError(t, err)
	assert.Equal(t, 90.0, d)

	d, err = textutil.Duration("02:30", "01:00")
	require.NoError(t, err)
	assert.Equal(t, -90.0, d)

	_, err = textutil.Duration("bogus", "01:00")
	require.Error(t, err)
}
