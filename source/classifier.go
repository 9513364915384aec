package source

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultKeywords match ultrasound procedures in Vietnamese and English.
var DefaultKeywords = []string{"siêu âm", "sieu am", "ultrasound", "US"}

// DefaultStatuses are the appointment statuses that still need imaging.
var DefaultStatuses = []string{"pending", "scheduled"}

// Classifier decides which appointments belong on the ultrasound worklist.
//
// Matching is a case-insensitive substring test of the procedure text against
// a keyword list. It is a best-effort heuristic: service text that uses none
// of the keywords is left out, and short keywords such as "US" can match
// unrelated words. Procedure type is free text upstream, so there is nothing
// stricter to match on. Keywords and text are both folded to NFC first, so
// decomposed Vietnamese diacritics match their precomposed forms.
type Classifier struct {
	keywords []string
	statuses map[string]struct{}
}

// NewClassifier builds a classifier. Blank keywords and statuses are ignored;
// nil slices fall back to the defaults.
func NewClassifier(keywords, statuses []string) *Classifier {
	if keywords == nil {
		keywords = DefaultKeywords
	}
	if statuses == nil {
		statuses = DefaultStatuses
	}

	c := &Classifier{statuses: make(map[string]struct{}, len(statuses))}
	for _, k := range keywords {
		if k = fold(k); k != "" {
			c.keywords = append(c.keywords, k)
		}
	}
	for _, s := range statuses {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			c.statuses[s] = struct{}{}
		}
	}
	return c
}

// IsUltrasound reports whether the procedure text names an ultrasound study.
func (c *Classifier) IsUltrasound(procedureText string) bool {
	text := fold(procedureText)
	for _, k := range c.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// StatusInScope reports whether an appointment in this status is still
// waiting for its procedure.
func (c *Classifier) StatusInScope(status string) bool {
	_, ok := c.statuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// InScope combines the status and procedure checks.
func (c *Classifier) InScope(a *Appointment) bool {
	return c.StatusInScope(a.Status) && c.IsUltrasound(a.ProcedureText)
}

// Statuses returns the in-scope statuses, used to narrow source queries.
func (c *Classifier) Statuses() []string {
	out := make([]string, 0, len(c.statuses))
	for s := range c.statuses {
		out = append(out, s)
	}
	return out
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}
