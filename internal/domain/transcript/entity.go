// Package transcript contains the oral-presentation transcript model and the
// parsing and segmentation logic that turns raw text into clinical sections.
package transcript

import "strings"

// Speaker identifies who produced an utterance.
type Speaker string

const (
	SpeakerStudent  Speaker = "student"
	SpeakerPatient  Speaker = "patient"
	SpeakerExaminer Speaker = "examiner"
	SpeakerUnknown  Speaker = "unknown"
)

// Section labels in canonical presentation order.
const (
	SectionCC      = "CC"
	SectionHPI     = "HPI"
	SectionROS     = "ROS"
	SectionPMH     = "PMH"
	SectionSH      = "SH"
	SectionFH      = "FH"
	SectionSummary = "Summary"
)

// Utterance is a single line of the encounter attributed to one speaker.
// Start and end carry the same carried-forward timestamp at parse time; the
// segmenter does not refine them further.
type Utterance struct {
	Speaker        Speaker `json:"speaker"`
	Text           string  `json:"text"`
	TimestampStart string  `json:"timestamp_start"`
	TimestampEnd   string  `json:"timestamp_end"`
}

// Section groups consecutive utterances under one clinical section label.
type Section struct {
	Label          string      `json:"label"`
	Utterances     []Utterance `json:"utterances"`
	TimestampStart string      `json:"timestamp_start"`
	TimestampEnd   string      `json:"timestamp_end"`
}

// StudentUtterances returns only the student's utterances in this section.
func (s *Section) StudentUtterances() []Utterance {
	var out []Utterance
	for _, u := range s.Utterances {
		if u.Speaker == SpeakerStudent {
			out = append(out, u)
		}
	}
	return out
}

// Text joins every utterance's text with single spaces.
func (s *Section) Text() string {
	parts := make([]string, 0, len(s.Utterances))
	for _, u := range s.Utterances {
		parts = append(parts, u.Text)
	}
	return strings.Join(parts, " ")
}

// StudentText joins the student's utterance texts with single spaces.
func (s *Section) StudentText() string {
	var parts []string
	for _, u := range s.Utterances {
		if u.Speaker == SpeakerStudent {
			parts = append(parts, u.Text)
		}
	}
	return strings.Join(parts, " ")
}

// SegmentedTranscript is the segmenter's output: sections in encounter order
// plus the order in which section labels were detected.  DetectedOrder can
// contain a label more than once when the student returns to a section.
type SegmentedTranscript struct {
	TranscriptID  string    `json:"transcript_id"`
	Sections      []Section `json:"sections"`
	DetectedOrder []string  `json:"detected_order"`
}

// Section returns the first section with the given label, or nil.
func (t *SegmentedTranscript) Section(label string) *Section {
	for i := range t.Sections {
		if t.Sections[i].Label == label {
			return &t.Sections[i]
		}
	}
	return nil
}

// HasSection reports whether any section carries the given label.
func (t *SegmentedTranscript) HasSection(label string) bool {
	return t.Section(label) != nil
}

// AllUtterances returns every utterance across all sections in order.
func (t *SegmentedTranscript) AllUtterances() []Utterance {
	var out []Utterance
	for i := range t.Sections {
		out = append(out, t.Sections[i].Utterances...)
	}
	return out
}

// AllStudentUtterances returns every student utterance across all sections.
func (t *SegmentedTranscript) AllStudentUtterances() []Utterance {
	var out []Utterance
	for i := range t.Sections {
		for _, u := range t.Sections[i].Utterances {
			if u.Speaker == SpeakerStudent {
				out = append(out, u)
			}
		}
	}
	return out
}
