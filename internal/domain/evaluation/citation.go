// Package evaluation implements the four grading evaluators (structure, key
// questions, reasoning, summary), the weighted score aggregator, and the
// citation scheme shared by all of them.
package evaluation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/turtacn/opgrader/pkg/errors"
)

// Citation URI schemes.
//
//	rubric://<rubric_id>#<anchor>
//	student://oral#<start>–<end>
//	student://summary#tokens=<n>
//
// The timestamp separator is an en-dash, not a hyphen, so MM:SS ranges stay
// unambiguous.
const timestampSeparator = "–"

var (
	rubricCitationRe  = regexp.MustCompile(`^rubric://([^#]+)#(.+)$`)
	studentCitationRe = regexp.MustCompile(`^student://(oral|summary)#(.+)$`)
	tokenFragmentRe   = regexp.MustCompile(`^tokens=(\d+)$`)
)

// RubricCitation points at one anchored rubric criterion.
type RubricCitation struct {
	RubricID string `json:"rubric_id"`
	Anchor   string `json:"anchor"`
}

// NewRubricCitation builds a citation, tolerating anchors with or without the
// leading '#'.
func NewRubricCitation(rubricID, anchor string) RubricCitation {
	return RubricCitation{RubricID: rubricID, Anchor: "#" + strings.TrimPrefix(anchor, "#")}
}

// URI renders the citation in rubric:// form.
func (c RubricCitation) URI() string {
	return fmt.Sprintf("rubric://%s%s", c.RubricID, c.Anchor)
}

// ParseRubricCitation parses a rubric:// URI.
func ParseRubricCitation(uri string) (RubricCitation, error) {
	m := rubricCitationRe.FindStringSubmatch(uri)
	if m == nil {
		return RubricCitation{}, errors.New(errors.ErrCodeCitationInvalid, "invalid rubric citation URI").WithDetail(uri)
	}
	return RubricCitation{RubricID: m[1], Anchor: "#" + m[2]}, nil
}

// StudentCitationType distinguishes timestamp spans from token counts.
type StudentCitationType string

const (
	CitationTimestamp StudentCitationType = "timestamp"
	CitationTokens    StudentCitationType = "tokens"
)

// StudentCitation points at evidence in the student's presentation: either a
// timestamp span of the oral transcript or the token count of the summary.
type StudentCitation struct {
	Source         string              `json:"source"` // "oral" or "summary"
	Type           StudentCitationType `json:"citation_type"`
	TimestampStart string              `json:"timestamp_start,omitempty"`
	TimestampEnd   string              `json:"timestamp_end,omitempty"`
	TokenCount     int                 `json:"token_count,omitempty"`
}

// NewOralCitation builds a timestamp-span citation into the oral transcript.
func NewOralCitation(start, end string) StudentCitation {
	return StudentCitation{Source: "oral", Type: CitationTimestamp, TimestampStart: start, TimestampEnd: end}
}

// NewSummaryTokensCitation builds a token-count citation into the summary.
func NewSummaryTokensCitation(tokens int) StudentCitation {
	return StudentCitation{Source: "summary", Type: CitationTokens, TokenCount: tokens}
}

// URI renders the citation in student:// form.
func (c StudentCitation) URI() string {
	if c.Type == CitationTokens {
		return fmt.Sprintf("student://%s#tokens=%d", c.Source, c.TokenCount)
	}
	return fmt.Sprintf("student://%s#%s%s%s", c.Source, c.TimestampStart, timestampSeparator, c.TimestampEnd)
}

// ParseStudentCitation parses a student:// URI.
func ParseStudentCitation(uri string) (StudentCitation, error) {
	m := studentCitationRe.FindStringSubmatch(uri)
	if m == nil {
		return StudentCitation{}, errors.New(errors.ErrCodeCitationInvalid, "invalid student citation URI").WithDetail(uri)
	}
	source, fragment := m[1], m[2]

	if tm := tokenFragmentRe.FindStringSubmatch(fragment); tm != nil {
		n, _ := strconv.Atoi(tm[1])
		return StudentCitation{Source: source, Type: CitationTokens, TokenCount: n}, nil
	}

	parts := strings.SplitN(fragment, timestampSeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return StudentCitation{}, errors.New(errors.ErrCodeCitationInvalid, "invalid student citation fragment").WithDetail(fragment)
	}
	return StudentCitation{
		Source:         source,
		Type:           CitationTimestamp,
		TimestampStart: parts[0],
		TimestampEnd:   parts[1],
	}, nil
}
