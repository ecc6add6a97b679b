// Package dictation grades free-text clinical dictations: plain prose
// write-ups without timestamps or speaker labels.  The pipeline is
// gatekeeper -> analyzer -> graded checks -> EPA suggestion -> feedback.
package dictation

import (
	"fmt"
	"strings"
)

// Default sufficiency thresholds for a gradeable dictation.
const (
	defaultMinLines  = 8
	defaultMinTokens = 60
)

// Gatekeeper rejects dictations too thin to grade meaningfully.
type Gatekeeper struct {
	MinLines  int
	MinTokens int
}

// NewGatekeeper constructs a gatekeeper with the default thresholds.
func NewGatekeeper() *Gatekeeper {
	return &Gatekeeper{MinLines: defaultMinLines, MinTokens: defaultMinTokens}
}

// Sufficient reports whether the text clears the line and token floors,
// with a reason string for the rejection path.
func (g *Gatekeeper) Sufficient(text string) (bool, string) {
	var lines int
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) != "" {
			lines++
		}
	}
	tokens := len(strings.Fields(text))
	if lines < g.MinLines {
		return false, fmt.Sprintf("Too few lines: %d < %d", lines, g.MinLines)
	}
	if tokens < g.MinTokens {
		return false, fmt.Sprintf("Too few tokens: %d < %d", tokens, g.MinTokens)
	}
	return true, "OK"
}
