// Package oracle provides the extraction oracle: a schema-validated JSON
// extraction interface backed by an OpenAI-compatible chat endpoint.  Every
// extraction degrades explicitly — callers receive either a validated value
// or a fallback reason, never an error for a degraded path.
package oracle

import "encoding/json"

// Outcome is the two-branch result of an extraction.  Exactly one branch is
// populated: a schema-valid value, or the reason the caller should use its
// deterministic fallback.
type Outcome struct {
	value  json.RawMessage
	reason string
	ok     bool
}

// OK wraps a schema-validated extraction value.
func OK(value json.RawMessage) Outcome {
	return Outcome{value: value, ok: true}
}

// Fallback signals that the caller should use its deterministic fallback.
func Fallback(reason string) Outcome {
	return Outcome{reason: reason}
}

// OK reports whether the extraction produced a validated value.
func (o Outcome) OK() bool { return o.ok }

// Reason returns the fallback reason; empty for OK outcomes.
func (o Outcome) Reason() string { return o.reason }

// Value returns the raw validated JSON; nil for fallback outcomes.
func (o Outcome) Value() json.RawMessage { return o.value }

// Decode unmarshals the validated value into target.  Calling Decode on a
// fallback outcome is a programming error and returns the unmarshal error of
// empty input.
func (o Outcome) Decode(target any) error {
	return json.Unmarshal(o.value, target)
}
