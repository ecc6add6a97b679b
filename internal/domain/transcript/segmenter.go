package transcript

import "strings"

// sectionKeywords maps each section label to the phrases that open it.
// Detection walks the labels in canonical order and returns the first label
// with a matching phrase, so earlier sections win when phrases overlap.
var sectionKeywords = []struct {
	label    string
	keywords []string
}{
	{SectionCC, []string{
		"what brings you in",
		"chief complaint",
		"what's going on",
		"what happened",
		"tell me about",
	}},
	{SectionHPI, []string{
		"when did",
		"how long",
		"describe the",
		"tell me more about",
		"history of present illness",
	}},
	{SectionROS, []string{
		"review of systems",
		"any other symptoms",
		"anything else bothering",
		"any fever",
		"any headache",
		"any chest pain",
		"any shortness of breath",
	}},
	{SectionPMH, []string{
		"past medical history",
		"any medical conditions",
		"any chronic conditions",
		"do you have diabetes",
		"do you have hypertension",
	}},
	{SectionSH, []string{
		"social history",
		"do you smoke",
		"do you drink",
		"what do you do for work",
		"who do you live with",
	}},
	{SectionFH, []string{
		"family history",
		"any family members",
		"does anyone in your family",
		"family medical history",
	}},
	{SectionSummary, []string{
		"so to summarize",
		"in summary",
		"let me summarize",
		"to recap",
		"so this is a",
	}},
}

// Segmenter groups parsed utterances into clinical sections.
//
// Only student utterances open sections.  Utterances before the first
// boundary have no section to belong to and are dropped.  Detecting a label
// different from the open one closes the open section (appending its label to
// DetectedOrder) and opens a new one; detecting the same label continues the
// open section.  Patient and examiner utterances always join the open section.
type Segmenter struct{}

// NewSegmenter constructs a Segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// DetectSection returns the section label whose keywords match the utterance
// text, or "" when no keyword matches.  Matching is case-insensitive
// substring containment.
func (s *Segmenter) DetectSection(u Utterance) string {
	textLower := strings.ToLower(u.Text)
	for _, entry := range sectionKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(textLower, kw) {
				return entry.label
			}
		}
	}
	return ""
}

// Segment groups utterances into sections and records detection order.
func (s *Segmenter) Segment(utterances []Utterance, transcriptID string) *SegmentedTranscript {
	var (
		sections      []Section
		detectedOrder []string

		currentLabel string
		currentUtts  []Utterance
		currentStart string
	)

	closeCurrent := func() {
		if currentLabel != "" && len(currentUtts) > 0 {
			sections = append(sections, Section{
				Label:          currentLabel,
				Utterances:     currentUtts,
				TimestampStart: currentStart,
				TimestampEnd:   currentUtts[len(currentUtts)-1].TimestampEnd,
			})
			detectedOrder = append(detectedOrder, currentLabel)
		}
	}

	for _, u := range utterances {
		if u.Speaker == SpeakerStudent {
			detected := s.DetectSection(u)
			if detected != "" && detected != currentLabel {
				closeCurrent()
				currentLabel = detected
				currentUtts = []Utterance{u}
				currentStart = u.TimestampStart
				continue
			}
			if currentLabel != "" {
				currentUtts = append(currentUtts, u)
			}
			continue
		}
		// Patient and examiner utterances belong to the open section.
		if currentLabel != "" {
			currentUtts = append(currentUtts, u)
		}
	}
	closeCurrent()

	return &SegmentedTranscript{
		TranscriptID:  transcriptID,
		Sections:      sections,
		DetectedOrder: detectedOrder,
	}
}

// Processor combines parsing and segmentation.
type Processor struct {
	parser    *Parser
	segmenter *Segmenter
}

// NewProcessor constructs a Processor.
func NewProcessor() *Processor {
	return &Processor{parser: NewParser(), segmenter: NewSegmenter()}
}

// Process parses raw text and segments the result.
func (p *Processor) Process(rawText, transcriptID string) *SegmentedTranscript {
	return p.segmenter.Segment(p.parser.Parse(rawText), transcriptID)
}
