package dictation

import (
	"context"
	"regexp"
	"strings"

	"github.com/turtacn/opgrader/internal/intelligence/oracle"
)

// Span is a 1-based inclusive line range used as evidence.
type Span [2]int

// Section is one document section located by the sectioner.
type Section struct {
	Name      string `json:"name"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Evidence  []Span `json:"evidence,omitempty"`
}

// TimeEvent is one temporal anchor found in the HPI.
type TimeEvent struct {
	Type       string  `json:"type"`
	TimeText   string  `json:"time_text"`
	Confidence float64 `json:"confidence"`
	Placement  string  `json:"placement"`
	Evidence   []Span  `json:"evidence,omitempty"`
}

// Timeline is the full temporal extraction.
type Timeline struct {
	Events    []TimeEvent      `json:"events"`
	Conflicts []map[string]any `json:"conflicts,omitempty"`
}

// Pertinent is one pertinent positive or negative finding.
type Pertinent struct {
	Name      string `json:"name"`
	Mandatory bool   `json:"mandatory"`
	Present   bool   `json:"present"`
	Placement string `json:"placement"`
	Evidence  []Span `json:"evidence,omitempty"`
}

// SummaryCheck captures whether the dictation closes its HPI with the
// expected two-sentence summary.
type SummaryCheck struct {
	HasTwoSentences bool   `json:"has_two_sentences"`
	HistorySentence string `json:"history_sentence,omitempty"`
	ExamSentence    string `json:"exam_sentence,omitempty"`
	Evidence        []Span `json:"evidence,omitempty"`
}

// DDxItem is one differential diagnosis entry with reasoning.
type DDxItem struct {
	Dx         string   `json:"dx"`
	WhyFor     []string `json:"why_for"`
	WhyAgainst []string `json:"why_against"`
	Priority   int      `json:"priority"`
	Evidence   []Span   `json:"evidence,omitempty"`
}

// Analysis is the complete extraction over one dictation.
type Analysis struct {
	Sections   []Section    `json:"sections"`
	Timeline   Timeline     `json:"timeline"`
	Pertinents []Pertinent  `json:"pertinents"`
	Summary    SummaryCheck `json:"summary"`
	DDx        []DDxItem    `json:"ddx"`
}

// HPIBounds returns the HPI section's line range, or (1, 1) when no HPI was
// located.
func (a *Analysis) HPIBounds() (int, int) {
	for _, s := range a.Sections {
		if strings.EqualFold(s.Name, "hpi") {
			return s.StartLine, s.EndLine
		}
	}
	return 1, 1
}

var (
	timeEventRe = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\b|last\s+known\s+well|sudden(?:ly)?|onset|this\s+morning|yesterday|timeline`)
	hpiMarkRe   = regexp.MustCompile(`(?i)\bHPI\b|history of present illness`)
	rosMarkRe   = regexp.MustCompile(`(?i)\bROS\b|review of systems`)
)

// pertinentPatterns is the stroke pertinent table, in a fixed order so the
// fallback extractor is deterministic.  The first three are the mandatory
// discriminator set.
var pertinentPatterns = []struct {
	name      string
	mandatory bool
	re        *regexp.Regexp
}{
	{"forehead spared", true, regexp.MustCompile(`(?i)forehead\s+spared`)},
	{"no seizure", true, regexp.MustCompile(`(?i)no\s+seizure|denies\s+seizure|without\s+seizure`)},
	{"ear rash", true, regexp.MustCompile(`(?i)ear\s+rash`)},
	{"aphasia", false, regexp.MustCompile(`(?i)aphasia`)},
	{"dysarthria", false, regexp.MustCompile(`(?i)dysarthria`)},
	{"vertigo", false, regexp.MustCompile(`(?i)vertigo`)},
	{"facial droop", false, regexp.MustCompile(`(?i)facial\s+droop`)},
}

// Analyzer runs the oracle-backed extractions, each with a deterministic
// fallback, so a missing or misbehaving oracle degrades the analysis instead
// of failing it.
type Analyzer struct {
	oracle oracle.Client
}

// NewAnalyzer constructs an analyzer.  A nil oracle means every extraction
// uses its deterministic fallback.
func NewAnalyzer(o oracle.Client) *Analyzer {
	return &Analyzer{oracle: o}
}

// Analyze runs the full extraction over one dictation.
func (a *Analyzer) Analyze(ctx context.Context, text, ccPack string) *Analysis {
	lines := splitLines(text)

	analysis := &Analysis{}
	analysis.Sections = a.FindSectionBounds(ctx, lines)
	start, end := analysis.HPIBounds()
	analysis.Timeline = a.FindTimeEvents(ctx, lines, start, end)
	analysis.Pertinents = a.ExtractPertinents(ctx, lines, start, end, ccPack)
	analysis.Summary = a.Summarize(ctx, lines, start, end)
	analysis.DDx = a.SuggestDDx(ctx, lines, start, end)
	return analysis
}

// FindSectionBounds locates the document sections, at minimum the HPI.
// Fallback: the HPI window runs from the first HPI marker to the line before
// the first subsequent ROS marker.
func (a *Analyzer) FindSectionBounds(ctx context.Context, lines []string) []Section {
	if a.oracle != nil {
		payload := map[string]any{"text": strings.Join(lines, "\n"), "lines_total": len(lines)}
		if out := a.oracle.Extract(ctx, "sectioner", payload); out.OK() {
			var decoded struct {
				Sections []Section `json:"sections"`
			}
			if err := out.Decode(&decoded); err == nil && len(decoded.Sections) > 0 {
				return clampSections(decoded.Sections, len(lines))
			}
		}
	}

	n := len(lines)
	start, end := 1, n
	var evidence []Span
	for i, ln := range lines {
		if hpiMarkRe.MatchString(ln) {
			start = i + 1
			evidence = append(evidence, Span{start, start})
			break
		}
	}
	for j := start; j <= n; j++ {
		if rosMarkRe.MatchString(lines[j-1]) {
			if j-1 > start {
				end = j - 1
			} else {
				end = start
			}
			break
		}
	}
	if len(evidence) == 0 {
		evidence = []Span{{start, minInt(start+1, end)}}
	}
	return []Section{{Name: "HPI", StartLine: start, EndLine: end, Evidence: evidence}}
}

// FindTimeEvents extracts temporal anchors inside the HPI window.
// Fallback: the first line matching a time expression becomes a single onset
// event with 0.8 confidence.
func (a *Analyzer) FindTimeEvents(ctx context.Context, lines []string, start, end int) Timeline {
	if a.oracle != nil {
		payload := map[string]any{"hpi_text": joinWindow(lines, start, end), "bounds": []int{start, end}}
		if out := a.oracle.Extract(ctx, "timeline", payload); out.OK() {
			var decoded Timeline
			if err := out.Decode(&decoded); err == nil {
				return decoded
			}
		}
	}

	for i := start; i <= end && i <= len(lines); i++ {
		if m := timeEventRe.FindString(lines[i-1]); m != "" {
			return Timeline{Events: []TimeEvent{{
				Type:       "onset",
				TimeText:   m,
				Confidence: 0.8,
				Placement:  "hpi",
				Evidence:   []Span{{i, i}},
			}}}
		}
	}
	return Timeline{}
}

// ExtractPertinents scans for the chief-complaint pack's pertinent findings.
// Placement is "hpi" when the first match falls inside the HPI window.
func (a *Analyzer) ExtractPertinents(ctx context.Context, lines []string, start, end int, ccPack string) []Pertinent {
	if a.oracle != nil {
		payload := map[string]any{"text": strings.Join(lines, "\n"), "bounds": []int{start, end}, "cc_pack": ccPack}
		if out := a.oracle.Extract(ctx, "pertinents", payload); out.OK() {
			var decoded struct {
				Items []Pertinent `json:"items"`
			}
			if err := out.Decode(&decoded); err == nil && len(decoded.Items) > 0 {
				return decoded.Items
			}
		}
	}

	var items []Pertinent
	for _, p := range pertinentPatterns {
		for i, ln := range lines {
			if !p.re.MatchString(ln) {
				continue
			}
			line := i + 1
			placement := "other"
			if line >= start && line <= end {
				placement = "hpi"
			}
			items = append(items, Pertinent{
				Name:      p.name,
				Mandatory: p.mandatory,
				Present:   true,
				Placement: placement,
				Evidence:  []Span{{line, line}},
			})
			break
		}
	}
	return items
}

// Summarize checks for the closing two-sentence summary (history + exam).
// Fallback: the first two non-blank HPI lines stand in for the sentences.
func (a *Analyzer) Summarize(ctx context.Context, lines []string, start, end int) SummaryCheck {
	if a.oracle != nil {
		payload := map[string]any{"hpi_text": joinWindow(lines, start, end), "bounds": []int{start, end}}
		if out := a.oracle.Extract(ctx, "summary", payload); out.OK() {
			var decoded SummaryCheck
			if err := out.Decode(&decoded); err == nil {
				return decoded
			}
		}
	}

	var hpiLines []string
	firstLine := 0
	for i := start; i <= end && i <= len(lines); i++ {
		if strings.TrimSpace(lines[i-1]) == "" {
			continue
		}
		if firstLine == 0 {
			firstLine = i
		}
		hpiLines = append(hpiLines, lines[i-1])
	}

	check := SummaryCheck{HasTwoSentences: len(hpiLines) >= 2}
	if len(hpiLines) > 0 {
		check.HistorySentence = hpiLines[0]
		check.Evidence = []Span{{firstLine, firstLine}}
	}
	if len(hpiLines) >= 2 {
		check.ExamSentence = hpiLines[1]
	}
	if len(check.Evidence) == 0 {
		check.Evidence = []Span{{start, minInt(start+1, end)}}
	}
	return check
}

// SuggestDDx proposes a differential.  The fallback is the stroke scaffold.
func (a *Analyzer) SuggestDDx(ctx context.Context, lines []string, start, end int) []DDxItem {
	if a.oracle != nil {
		payload := map[string]any{"hpi_text": joinWindow(lines, start, end), "bounds": []int{start, end}}
		if out := a.oracle.Extract(ctx, "ddx", payload); out.OK() {
			var decoded struct {
				Items []DDxItem `json:"items"`
			}
			if err := out.Decode(&decoded); err == nil && len(decoded.Items) > 0 {
				return decoded.Items
			}
		}
	}

	ev := []Span{{start, start}}
	return []DDxItem{
		{Dx: "ischemic stroke", WhyFor: []string{"focal deficits"}, WhyAgainst: []string{}, Priority: 1, Evidence: ev},
		{Dx: "hemorrhagic stroke", WhyFor: []string{}, WhyAgainst: []string{"no severe headache"}, Priority: 2, Evidence: ev},
		{Dx: "Bell's palsy", WhyFor: []string{"facial droop"}, WhyAgainst: []string{"forehead spared"}, Priority: 3, Evidence: ev},
	}
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, len(raw))
	for i, ln := range raw {
		out[i] = strings.TrimRight(ln, "\r")
	}
	return out
}

func joinWindow(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

func clampSections(sections []Section, total int) []Section {
	for i := range sections {
		if sections[i].StartLine < 1 {
			sections[i].StartLine = 1
		}
		if sections[i].EndLine > total && total > 0 {
			sections[i].EndLine = total
		}
		if sections[i].EndLine < sections[i].StartLine {
			sections[i].EndLine = sections[i].StartLine
		}
	}
	return sections
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
