package worklist

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Filter holds the matching keys of a worklist query. Empty fields match
// every entry.
type Filter struct {
	PatientName     string // may contain * and ? wildcards
	PatientID       string
	AccessionNumber string
	Modality        string
	DateFrom        string // inclusive, YYYYMMDD
	DateTo          string // inclusive, YYYYMMDD
}

// ParseDateRange parses a DA matching key: a single date, or a range
// "from-to" where either side may be omitted.
func ParseDateRange(value string) (from, to string, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", nil
	}

	from, to, isRange := strings.Cut(value, "-")
	if !isRange {
		to = from
	}
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return "", "", fmt.Errorf("invalid date %q in range %q", d, value)
		}
	}
	if from == "" && to == "" {
		return "", "", fmt.Errorf("empty date range %q", value)
	}
	if from != "" && to != "" && from > to {
		return "", "", fmt.Errorf("date range %q ends before it starts", value)
	}
	return from, to, nil
}

// Match reports whether e satisfies every non-empty key of f.
func (f Filter) Match(e *Entry) bool {
	if f.Modality != "" && !strings.EqualFold(f.Modality, e.Modality) {
		return false
	}
	if f.AccessionNumber != "" && !wildcardMatch(f.AccessionNumber, e.AccessionNumber, false) {
		return false
	}
	if f.PatientID != "" && !wildcardMatch(f.PatientID, e.PatientID, false) {
		return false
	}
	if f.PatientName != "" && !wildcardMatch(f.PatientName, e.PatientName, true) {
		return false
	}
	if f.DateFrom != "" && e.ScheduledDate < f.DateFrom {
		return false
	}
	if f.DateTo != "" && e.ScheduledDate > f.DateTo {
		return false
	}
	return true
}

// wildcardMatch implements DICOM wildcard matching (PS3.4 C.2.2.2.4):
// * matches any run of characters, ? matches exactly one.
func wildcardMatch(pattern, value string, foldCase bool) bool {
	if pattern == "*" {
		return true
	}
	if foldCase {
		pattern = strings.ToLower(pattern)
		value = strings.ToLower(value)
	}

	// Iterative matcher with single-star backtracking.
	p, v := 0, 0
	starP, starV := -1, 0
	for v < len(value) {
		if p < len(pattern) {
			pr, pw := utf8.DecodeRuneInString(pattern[p:])
			vr, vw := utf8.DecodeRuneInString(value[v:])
			switch {
			case pr == '*':
				starP, starV = p, v
				p += pw
				continue
			case pr == '?' || pr == vr:
				p += pw
				v += vw
				continue
			}
		}
		if starP < 0 {
			return false
		}
		// let the last star absorb one more rune
		_, vw := utf8.DecodeRuneInString(value[starV:])
		starV += vw
		p, v = starP+1, starV
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
