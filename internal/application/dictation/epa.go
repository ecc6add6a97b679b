package dictation

import (
	"context"

	"github.com/turtacn/opgrader/internal/intelligence/oracle"
)

// EPASuggestion carries the entrustment levels: EPA-6 (history taking,
// 1-5) and EPA-2 (differential diagnosis, 1-3), after clipping.
type EPASuggestion struct {
	EPA6      int      `json:"epa6"`
	EPA2      int      `json:"epa2"`
	ClippedBy []string `json:"clipped_by"`
}

// SuggestEPA asks the oracle for entrustment levels, falls back to the
// score-driven heuristic, and applies the clipping rules either way.
func SuggestEPA(ctx context.Context, o oracle.Client, a *Analysis, scores map[string]int) EPASuggestion {
	epa6, epa2 := 0, 0

	if o != nil {
		hpiPertinents := 0
		for _, p := range a.Pertinents {
			if p.Placement == "hpi" {
				hpiPertinents++
			}
		}
		payload := map[string]any{
			"section_scores": scores,
			"analysis_preview": map[string]any{
				"timeline":         a.Timeline,
				"pertinents_count": len(a.Pertinents),
				"hpi_pertinents":   hpiPertinents,
				"ddx_count":        len(a.DDx),
				"summary_has_two":  a.Summary.HasTwoSentences,
			},
		}
		if out := o.Extract(ctx, "epa", payload); out.OK() {
			var decoded struct {
				EPA6 int `json:"epa6"`
				EPA2 int `json:"epa2"`
			}
			if err := out.Decode(&decoded); err == nil {
				epa6, epa2 = decoded.EPA6, decoded.EPA2
			}
		}
	}

	if epa6 == 0 || epa2 == 0 {
		epa6, epa2 = fallbackEPA(scores)
	}

	return applyClipping(epa6, epa2, scores)
}

// fallbackEPA is the heuristic used when the oracle is unavailable.
func fallbackEPA(scores map[string]int) (int, int) {
	epa6 := 3
	if scores["sections_present"] >= 1 && scores["hpi_quality"] >= 1 {
		epa6 = 4
	}
	epa2 := 2
	if scores["ddx"] >= 1 {
		epa2 = 3
	}
	return epa6, epa2
}

// applyClipping caps the entrustment levels when foundational checks
// scored zero, recording which rule fired.
func applyClipping(epa6, epa2 int, scores map[string]int) EPASuggestion {
	clippedBy := []string{}
	if scores["sections_present"] == 0 || scores["hpi_quality"] == 0 {
		if epa6 > 3 {
			epa6 = 3
			clippedBy = append(clippedBy, "presence_or_hpi_quality_zero")
		}
	}
	if scores["ddx"] == 0 {
		if epa2 > 2 {
			epa2 = 2
			clippedBy = append(clippedBy, "ddx_zero")
		}
	}
	return EPASuggestion{EPA6: epa6, EPA2: epa2, ClippedBy: clippedBy}
}
