package dictation

import (
	"fmt"
	"strings"
)

// mandatoryPertinents is the discriminator set that must appear inside the
// HPI for full pertinents credit.
var mandatoryPertinents = map[string]bool{
	"forehead spared": true,
	"no seizure":      true,
	"ear rash":        true,
}

// CheckResult is one graded check, scored 0-2 with line evidence.
type CheckResult struct {
	ID        string `json:"id"`
	Score     int    `json:"score"`
	Rationale string `json:"rationale"`
	Evidence  []Span `json:"evidence"`
	Action    string `json:"action"`
	Status    string `json:"status,omitempty"`
}

// Step groups checks under a rubric step.
type Step struct {
	ID       string        `json:"id"`
	Sections []CheckResult `json:"sections"`
}

// Scorecard is the full check run: steps plus the capped total.
type Scorecard struct {
	Steps []Step `json:"steps"`
	Sum   int    `json:"sum"`
	Max   int    `json:"max"`
}

// maxTotal caps the summed check scores.
const maxTotal = 16

// SectionScores returns check id -> score for downstream EPA clipping.
func (s *Scorecard) SectionScores() map[string]int {
	out := make(map[string]int)
	for _, step := range s.Steps {
		for _, c := range step.Sections {
			out[c.ID] = c.Score
		}
	}
	return out
}

// RunChecks grades the analysis against the eight dictation checks, grouped
// into the history and assessment_plan steps, with the total capped at 16.
func RunChecks(a *Analysis) *Scorecard {
	history := []CheckResult{
		checkSectionsPresent(a),
		checkHPIQuality(a),
		checkPatientProfile(a),
		checkROSFocused(a),
		checkPertinentsInHPI(a),
		checkSummaryTwoSentences(a),
	}
	assessmentPlan := []CheckResult{
		checkProblemList(a),
		checkDDx(a),
	}

	total := 0
	for _, c := range history {
		total += c.Score
	}
	for _, c := range assessmentPlan {
		total += c.Score
	}
	if total > maxTotal {
		total = maxTotal
	}

	return &Scorecard{
		Steps: []Step{
			{ID: "history", Sections: history},
			{ID: "assessment_plan", Sections: assessmentPlan},
		},
		Sum: total,
		Max: maxTotal,
	}
}

func sectionNames(a *Analysis) map[string]bool {
	names := make(map[string]bool, len(a.Sections))
	for _, s := range a.Sections {
		names[strings.ToLower(strings.TrimSpace(s.Name))] = true
	}
	return names
}

func hpiEvidence(a *Analysis) []Span {
	s, e := a.HPIBounds()
	return []Span{{s, e}}
}

// checkSectionsPresent counts the six core section buckets: CC, HPI,
// PMH/PSH, FH, SH, ROS.
func checkSectionsPresent(a *Analysis) CheckResult {
	names := sectionNames(a)

	have := make(map[string]bool)
	if names["cc"] || anyContains(names, "chief") {
		have["cc"] = true
	}
	if names["hpi"] {
		have["hpi"] = true
	}
	if names["pmh"] || names["psh"] || names["pmh/psh"] {
		have["pmh_psh"] = true
	}
	if names["fh"] {
		have["fh"] = true
	}
	if names["sh"] {
		have["sh"] = true
	}
	if names["ros"] {
		have["ros"] = true
	}

	missing := 6 - len(have)
	var score int
	var rationale string
	switch {
	case missing == 0:
		score, rationale = 2, "All core sections present"
	case missing == 1:
		score, rationale = 1, "One core section missing"
	default:
		score, rationale = 0, fmt.Sprintf("%d core sections missing", missing)
	}

	var ev []Span
	for _, s := range a.Sections {
		nm := strings.ToLower(strings.TrimSpace(s.Name))
		if (nm == "hpi" || nm == "cc" || nm == "ros") && s.StartLine > 0 && s.EndLine > 0 {
			ev = []Span{{s.StartLine, s.EndLine}}
			break
		}
	}
	if len(ev) == 0 {
		ev = hpiEvidence(a)
	}

	return CheckResult{
		ID:        "sections_present",
		Score:     score,
		Rationale: rationale,
		Evidence:  ev,
		Action:    "Ensure all core sections (CC, HPI, PMH/PSH, FH, SH, ROS) are documented.",
	}
}

// checkHPIQuality requires an onset anchor, and rewards associated HPI
// findings plus a considered differential.
func checkHPIQuality(a *Analysis) CheckResult {
	var onset *TimeEvent
	for i := range a.Timeline.Events {
		ev := &a.Timeline.Events[i]
		if ev.Type == "onset" && ev.Confidence >= 0.7 {
			onset = ev
			break
		}
	}

	hpiPertinents := 0
	for _, p := range a.Pertinents {
		if p.Placement == "hpi" {
			hpiPertinents++
		}
	}

	var ev []Span
	if onset != nil {
		ev = append(ev, onset.Evidence...)
	}

	var score int
	var rationale string
	switch {
	case onset != nil && hpiPertinents >= 2 && len(a.DDx) >= 3:
		score, rationale = 2, "Onset anchored with >=2 associated HPI findings and DDx considered"
	case onset != nil:
		score, rationale = 1, "Onset anchored but associated findings or DDx context are thin"
	default:
		score, rationale = 0, "Missing onset anchor (clock or LKW) in HPI"
	}

	if len(ev) == 0 {
		ev = hpiEvidence(a)
	}

	return CheckResult{
		ID:        "hpi_quality",
		Score:     score,
		Rationale: rationale,
		Evidence:  ev,
		Action:    "State onset/LKW with confidence and tie >=2 symptoms to DDx in HPI.",
	}
}

// checkPatientProfile counts the PMH, meds/allergies, FH, and SH buckets.
func checkPatientProfile(a *Analysis) CheckResult {
	names := sectionNames(a)
	have := 0
	if names["pmh"] || names["pmh/psh"] {
		have++
	}
	if names["meds"] || names["medications"] || names["allergies"] {
		have++
	}
	if names["fh"] {
		have++
	}
	if names["sh"] {
		have++
	}

	var score int
	var rationale string
	switch {
	case have >= 3:
		score, rationale = 2, "PMH/meds+allergies/FH/SH largely present"
	case have >= 1:
		score, rationale = 1, "Some patient profile elements are thin or missing"
	default:
		score, rationale = 0, "Patient profile largely missing"
	}

	return CheckResult{
		ID:        "patient_profile",
		Score:     score,
		Rationale: rationale,
		Evidence:  hpiEvidence(a),
		Action:    "Document PMH/meds/allergies/FH/SH succinctly and pertinently.",
	}
}

// checkROSFocused rewards a ROS that is present and anchored to HPI
// pertinents rather than a generic system dump.
func checkROSFocused(a *Analysis) CheckResult {
	names := sectionNames(a)
	hasROS := names["ros"]
	hasHPIPertinent := false
	for _, p := range a.Pertinents {
		if p.Placement == "hpi" {
			hasHPIPertinent = true
			break
		}
	}

	var score int
	var rationale string
	switch {
	case hasROS && hasHPIPertinent:
		score, rationale = 2, "ROS present and focused on CC domains"
	case hasROS:
		score, rationale = 1, "ROS present but generic/superficial"
	default:
		score, rationale = 0, "ROS missing"
	}

	return CheckResult{
		ID:        "ros_focused",
		Score:     score,
		Rationale: rationale,
		Evidence:  hpiEvidence(a),
		Action:    "Target ROS to complaint-specific systems; avoid exhaustive lists.",
	}
}

// checkPertinentsInHPI requires every mandatory discriminator inside the HPI
// plus at least one other pertinent.  Pertinents credited from the ROS cap
// the score at 1.
func checkPertinentsInHPI(a *Analysis) CheckResult {
	var hpiItems []Pertinent
	anyROSPlaced := false
	for _, p := range a.Pertinents {
		switch p.Placement {
		case "hpi":
			hpiItems = append(hpiItems, p)
		case "ros":
			anyROSPlaced = true
		}
	}

	namesInHPI := make(map[string]bool, len(hpiItems))
	for _, p := range hpiItems {
		namesInHPI[strings.ToLower(p.Name)] = true
	}
	allMandatoryInHPI := true
	for m := range mandatoryPertinents {
		if !namesInHPI[m] {
			allMandatoryInHPI = false
			break
		}
	}
	otherInHPI := 0
	for _, p := range hpiItems {
		if !mandatoryPertinents[strings.ToLower(p.Name)] {
			otherInHPI++
		}
	}

	var score int
	var rationale string
	switch {
	case allMandatoryInHPI && otherInHPI >= 1:
		score, rationale = 2, "Mandatory discriminators in HPI plus >=1 other"
	case anyROSPlaced:
		score, rationale = 1, "Pertinents found but credited outside HPI (capped)"
	case len(hpiItems) > 0:
		score, rationale = 1, "Some HPI pertinents present but mandatory set incomplete"
	default:
		score, rationale = 0, "Pertinents missing in HPI"
	}

	var ev []Span
	for _, p := range hpiItems {
		ev = append(ev, p.Evidence...)
	}
	if len(ev) == 0 {
		ev = hpiEvidence(a)
	}

	return CheckResult{
		ID:        "pertinents_in_hpi",
		Score:     score,
		Rationale: rationale,
		Evidence:  ev,
		Action:    "State mandatory discriminators inside HPI (forehead spared, no seizure, no ear rash).",
	}
}

// checkSummaryTwoSentences rewards the closing two-sentence summary.
func checkSummaryTwoSentences(a *Analysis) CheckResult {
	var score int
	var rationale string
	switch {
	case a.Summary.HasTwoSentences:
		score, rationale = 2, "Two-sentence summary present"
	case a.Summary.HistorySentence != "":
		score, rationale = 1, "Single-sentence summary present"
	default:
		score, rationale = 0, "Summary missing"
	}

	ev := a.Summary.Evidence
	if len(ev) == 0 {
		ev = []Span{{1, 1}}
	}

	return CheckResult{
		ID:        "summary_two_sentences",
		Score:     score,
		Rationale: rationale,
		Evidence:  ev,
		Action:    "End HPI with two-sentence summary (history + exam).",
	}
}

// checkProblemList counts problems framed via the differential.
func checkProblemList(a *Analysis) CheckResult {
	var score int
	var rationale string
	switch {
	case len(a.DDx) >= 3:
		score, rationale = 2, ">=2 problems framed via DDx"
	case len(a.DDx) >= 1:
		score, rationale = 1, "One problem identified"
	default:
		score, rationale = 0, "No problems identified"
	}

	return CheckResult{
		ID:        "problem_list",
		Score:     score,
		Rationale: rationale,
		Evidence:  hpiEvidence(a),
		Action:    "List >=2 specific problems framed diagnostically.",
	}
}

// checkDDx requires three complete differential entries: dx, why-for,
// why-against, and a priority.
func checkDDx(a *Analysis) CheckResult {
	allComplete := true
	for _, d := range a.DDx {
		if d.Dx == "" || d.WhyFor == nil || d.WhyAgainst == nil || d.Priority == 0 {
			allComplete = false
			break
		}
	}

	var score int
	var rationale string
	switch {
	case len(a.DDx) >= 3 && allComplete:
		score, rationale = 2, ">=3 DDx with why-for/against and priorities"
	case len(a.DDx) > 0:
		score, rationale = 1, "DDx present but incomplete (list-only or missing reasoning/priorities)"
	default:
		score, rationale = 0, "No differential diagnosis provided"
	}

	return CheckResult{
		ID:        "ddx",
		Score:     score,
		Rationale: rationale,
		Evidence:  hpiEvidence(a),
		Action:    "State >=3 DDx with why-for/against and clear priorities.",
	}
}

func anyContains(names map[string]bool, substr string) bool {
	for n := range names {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}
