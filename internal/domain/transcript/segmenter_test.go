package transcript_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/opgrader/internal/domain/transcript"
)

func utter(speaker transcript.Speaker, text, ts string) transcript.Utterance {
	return transcript.Utterance{Speaker: speaker, Text: text, TimestampStart: ts, TimestampEnd: ts}
}

func TestDetectSection(t *testing.T) {
	t.Parallel()

	seg := transcript.NewSegmenter()

	cases := []struct {
		text string
		want string
	}{
		{"What brings you in today?", transcript.SectionCC},
		{"When did the weakness start?", transcript.SectionHPI},
		{"Do you have any other symptoms?", transcript.SectionROS},
		{"Tell me about your past medical history.", transcript.SectionCC}, // CC keyword checked first
		{"Any chronic conditions?", transcript.SectionPMH},
		{"Do you smoke?", transcript.SectionSH},
		{"Does anyone in your family have heart disease?", transcript.SectionFH},
		{"So to summarize, this is a 65-year-old male.", transcript.SectionSummary},
		{"I see.", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, seg.DetectSection(utter(transcript.SpeakerStudent, tc.text, "00:00")), tc.text)
	}
}

func TestSegment_TypicalEncounter(t *testing.T) {
	t.Parallel()

	utts := []transcript.Utterance{
		utter(transcript.SpeakerStudent, "What brings you in today?", "00:05"),
		utter(transcript.SpeakerPatient, "Sudden weakness on my left side.", "00:09"),
		utter(transcript.SpeakerStudent, "When did the weakness start?", "00:15"),
		utter(transcript.SpeakerPatient, "About two hours ago.", "00:20"),
		utter(transcript.SpeakerStudent, "Any headache or vision changes?", "01:00"),
		utter(transcript.SpeakerPatient, "No headache.", "01:05"),
		utter(transcript.SpeakerStudent, "So to summarize, this is sudden left-sided weakness.", "02:00"),
	}

	got := transcript.NewSegmenter().Segment(utts, "tr-1")

	require.Len(t, got.Sections, 4)
	assert.Equal(t, []string{
		transcript.SectionCC,
		transcript.SectionHPI,
		transcript.SectionROS,
		transcript.SectionSummary,
	}, got.DetectedOrder)

	cc := got.Sections[0]
	assert.Equal(t, transcript.SectionCC, cc.Label)
	require.Len(t, cc.Utterances, 2)
	assert.Equal(t, "00:05", cc.TimestampStart)
	assert.Equal(t, "00:09", cc.TimestampEnd)

	hpi := got.Sections[1]
	require.Len(t, hpi.Utterances, 2)
	assert.Equal(t, "00:15", hpi.TimestampStart)
	assert.Equal(t, "00:20", hpi.TimestampEnd)
}

func TestSegment_PreambleIsDropped(t *testing.T) {
	t.Parallel()

	utts := []transcript.Utterance{
		utter(transcript.SpeakerStudent, "Good morning, I am a third-year student.", "00:00"),
		utter(transcript.SpeakerPatient, "Morning.", "00:02"),
		utter(transcript.SpeakerStudent, "What brings you in today?", "00:05"),
	}

	got := transcript.NewSegmenter().Segment(utts, "tr-2")
	require.Len(t, got.Sections, 1)
	assert.Equal(t, transcript.SectionCC, got.Sections[0].Label)
	require.Len(t, got.Sections[0].Utterances, 1)
}

func TestSegment_RepeatedLabelReopens(t *testing.T) {
	t.Parallel()

	utts := []transcript.Utterance{
		utter(transcript.SpeakerStudent, "What brings you in today?", "00:05"),
		utter(transcript.SpeakerStudent, "When did it start?", "00:10"),
		utter(transcript.SpeakerStudent, "And again, what brings you in, beyond the weakness?", "00:30"),
	}

	got := transcript.NewSegmenter().Segment(utts, "tr-3")
	assert.Equal(t, []string{
		transcript.SectionCC,
		transcript.SectionHPI,
		transcript.SectionCC,
	}, got.DetectedOrder)
}

func TestSegment_SameLabelContinuesSection(t *testing.T) {
	t.Parallel()

	utts := []transcript.Utterance{
		utter(transcript.SpeakerStudent, "Any fever?", "00:05"),
		utter(transcript.SpeakerStudent, "Any headache?", "00:10"),
	}

	got := transcript.NewSegmenter().Segment(utts, "tr-4")
	require.Len(t, got.Sections, 1)
	assert.Len(t, got.Sections[0].Utterances, 2)
	assert.Equal(t, []string{transcript.SectionROS}, got.DetectedOrder)
}

func TestSegment_NoBoundaries(t *testing.T) {
	t.Parallel()

	utts := []transcript.Utterance{
		utter(transcript.SpeakerStudent, "Hello.", "00:00"),
		utter(transcript.SpeakerPatient, "Hi.", "00:01"),
	}

	got := transcript.NewSegmenter().Segment(utts, "tr-5")
	assert.Empty(t, got.Sections)
	assert.Empty(t, got.DetectedOrder)
}

func TestProcessor_EndToEnd(t *testing.T) {
	t.Parallel()

	raw := "[00:05] Student: What brings you in today?\n" +
		"[00:08] Patient: My left arm went weak.\n" +
		"[00:20] Student: When did that start?\n" +
		"[00:25] Patient: Two hours ago.\n"

	got := transcript.NewProcessor().Process(raw, "tr-e2e")
	assert.Equal(t, "tr-e2e", got.TranscriptID)
	assert.Equal(t, []string{transcript.SectionCC, transcript.SectionHPI}, got.DetectedOrder)
	assert.True(t, got.HasSection(transcript.SectionCC))
	assert.Nil(t, got.Section(transcript.SectionSummary))
	assert.Len(t, got.AllUtterances(), 4)
	assert.Len(t, got.AllStudentUtterances(), 2)
}
