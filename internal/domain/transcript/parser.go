package transcript

import (
	"regexp"
	"strings"
)

// timestampMarkerRe matches [MM:SS], [HH:MM:SS], (MM:SS) or (HH:MM:SS).
var timestampMarkerRe = regexp.MustCompile(`[\[\(](\d{1,2}:\d{2}(?::\d{2})?)[\]\)]`)

// speakerLabelRe matches a leading speaker label.  Single-letter S/P are
// accepted as shorthand for student/patient.
var speakerLabelRe = regexp.MustCompile(`^(?i)(student|patient|examiner|s|p):\s*`)

// Parser turns raw transcript text into a flat utterance stream.
//
// Expected input shape:
//
//	[00:05] Student: Tell me what brings you in today?
//	[00:08] Patient: I have sudden weakness on my left side.
//
// Timestamps carry forward: a line without a marker inherits the most recent
// one, and lines before any marker get "00:00".  Lines whose text is empty
// after stripping markers and labels are dropped.  Parsing never fails;
// malformed lines degrade to speaker "unknown".
type Parser struct{}

// NewParser constructs a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse splits raw text into utterances.
func (p *Parser) Parse(rawText string) []Utterance {
	var utterances []Utterance
	currentTimestamp := "00:00"

	for _, line := range strings.Split(strings.TrimSpace(rawText), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := timestampMarkerRe.FindStringSubmatch(line); m != nil {
			currentTimestamp = m[1]
			line = strings.TrimSpace(timestampMarkerRe.ReplaceAllString(line, ""))
		}

		speaker := SpeakerUnknown
		text := line
		if m := speakerLabelRe.FindStringSubmatch(line); m != nil {
			switch strings.ToLower(m[1]) {
			case "student", "s":
				speaker = SpeakerStudent
			case "patient", "p":
				speaker = SpeakerPatient
			case "examiner":
				speaker = SpeakerExaminer
			}
			text = strings.TrimSpace(speakerLabelRe.ReplaceAllString(line, ""))
		}

		if text == "" {
			continue
		}
		utterances = append(utterances, Utterance{
			Speaker:        speaker,
			Text:           text,
			TimestampStart: currentTimestamp,
			TimestampEnd:   currentTimestamp,
		})
	}
	return utterances
}
