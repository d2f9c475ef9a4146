package redact

import "regexp"

// Rule represents a single redaction rule: a compiled pattern and a
// replacement function applied to every match. Rule order is significant;
// later rules see text already rewritten by earlier ones.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace func(match string) string
}

// Result contains the outcome of redacting one object's content
type Result struct {
	Original      string `json:"-"` // Never serialize original text
	Redacted      string `json:"redactedText"`
	RowsProcessed int    `json:"rowsProcessed"`
}

// FormatError reports content that cannot be interpreted as tabular data.
// It is never retried; retrying will not help.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "content format: " + e.Reason
}
