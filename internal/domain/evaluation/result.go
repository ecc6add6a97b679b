package evaluation

// Severity grades how serious a violation is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Violation is a grading criterion the student failed.  Every violation
// carries at least one rubric citation; student citations are present when
// the transcript itself provides evidence (e.g. an overlong summary).
type Violation struct {
	Description      string   `json:"description"`
	RubricCitations  []string `json:"rubric_citations"`
	StudentCitations []string `json:"student_citations"`
	Severity         Severity `json:"severity"`
}

// Success is a grading criterion the student met.
type Success struct {
	Description      string   `json:"description"`
	RubricCitations  []string `json:"rubric_citations"`
	StudentCitations []string `json:"student_citations"`
}

// Result is the common shape of every evaluator's output.
type Result struct {
	Score      float64     `json:"score"`
	Violations []Violation `json:"violations"`
	Successes  []Success   `json:"successes"`
}

// AppliedPenalty records one structure penalty that fired.
type AppliedPenalty struct {
	ID          string  `json:"id"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// StructureResult is the structure evaluator's output.
type StructureResult struct {
	Result
	LCSScore         float64          `json:"lcs_score"`
	PenaltiesApplied []AppliedPenalty `json:"penalties_applied"`
	DetectedOrder    []string         `json:"detected_order"`
	ExpectedOrder    []string         `json:"expected_order"`
}

// QuestionMatch records one key question found in the transcript.
// Confidence is the raw combined score and can exceed 1.0 when the lexical
// and semantic weights sum past one; it is reported as computed.
type QuestionMatch struct {
	QuestionID      string  `json:"question_id"`
	QuestionAnchor  string  `json:"question_anchor"`
	MatchedPhrase   string  `json:"matched_phrase"`
	Confidence      float64 `json:"confidence"`
	StudentCitation string  `json:"student_citation"`
	Critical        bool    `json:"is_critical"`
	Weight          float64 `json:"weight"`
}

// QuestionMatchingResult is the question matcher's output.
type QuestionMatchingResult struct {
	Result
	Matches            []QuestionMatch `json:"matches"`
	UnmatchedQuestions []string        `json:"unmatched_questions"`
	TotalWeight        float64         `json:"total_weight"`
	MatchedWeight      float64         `json:"matched_weight"`
}

// DetectedLink records one reasoning link found in the transcript, with dual
// citations and the surrounding conversational context.
type DetectedLink struct {
	LinkID          string `json:"link_id"`
	Anchor          string `json:"anchor"`
	Description     string `json:"description"`
	RubricCitation  string `json:"rubric_citation"`
	StudentCitation string `json:"student_citation"`
	Context         string `json:"context"`
}

// MissingLink records one required reasoning link that was not found.
type MissingLink struct {
	LinkID         string `json:"link_id"`
	Anchor         string `json:"anchor"`
	Description    string `json:"description"`
	RubricCitation string `json:"rubric_citation"`
}

// ReasoningResult is the reasoning evaluator's output.
type ReasoningResult struct {
	Result
	DetectedLinks []DetectedLink `json:"detected_links"`
	MissingLinks  []MissingLink  `json:"missing_links"`
	RequiredCount int            `json:"required_count"`
	DetectedCount int            `json:"detected_count"`
}

// SummaryResult is the summary evaluator's output.
type SummaryResult struct {
	Result
	TokenCount      int      `json:"token_count"`
	MaxTokens       int      `json:"max_tokens"`
	SuccinctScore   float64  `json:"succinct_score"`
	ElementsScore   float64  `json:"elements_score"`
	MatchedElements []string `json:"matched_elements"`
	MissingElements []string `json:"missing_elements"`
}
