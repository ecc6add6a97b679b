package dictation

// FeedbackItem is the student-facing rendering of one graded check.
type FeedbackItem struct {
	ID       string `json:"id"`
	Well     string `json:"well"`
	Action   string `json:"action"`
	Evidence []Span `json:"evidence"`
	Status   string `json:"status,omitempty"`
}

// Feedback summaries per the 0/1/2 check scores.
const (
	wellMeets     = "Meets key criteria"
	wellPartially = "Partially meets"
	wellNeeds     = "Needs improvement"
)

// ComposeFeedback renders each check as a feedback item.  A check without
// evidence is marked unsupported and its score is forced to zero before the
// rendering, so an ungrounded claim never earns credit.
func ComposeFeedback(card *Scorecard) []FeedbackItem {
	var items []FeedbackItem
	for si := range card.Steps {
		for ci := range card.Steps[si].Sections {
			check := &card.Steps[si].Sections[ci]
			status := ""
			if len(check.Evidence) == 0 {
				status = "unsupported"
				check.Score = 0
				check.Status = status
				if check.Action == "" {
					check.Action = "Re-state with evidence."
				}
				check.Evidence = []Span{{1, 1}}
			}

			well := wellNeeds
			switch check.Score {
			case 2:
				well = wellMeets
			case 1:
				well = wellPartially
			}

			action := check.Action
			if action == "" {
				action = "One specific next step"
			}

			items = append(items, FeedbackItem{
				ID:       check.ID,
				Well:     well,
				Action:   action,
				Evidence: check.Evidence,
				Status:   status,
			})
		}
	}
	return items
}
