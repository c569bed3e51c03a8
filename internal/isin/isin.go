package isin

import (
	"regexp"
	"strings"
)

// Match is an identifier located in free text, with the surrounding context
// retained for downstream attribute extraction.
type Match struct {
	Identifier string `json:"identifier"`
	Position   int    `json:"position"`
	Context    string `json:"context"`
	Valid      bool   `json:"valid"`
}

const contextRadius = 50

var pattern = regexp.MustCompile(`\b[A-Z]{2}[A-Z0-9]{10}\b`)

// Validate reports whether the given string is a checksum-valid ISIN.
// Malformed input returns false, never an error.
func Validate(identifier string) bool {
	if len(identifier) != 12 {
		return false
	}
	for i, r := range identifier {
		switch {
		case r >= 'A' && r <= 'Z':
			if i >= 2 {
				continue
			}
		case r >= '0' && r <= '9':
			if i >= 2 {
				continue
			}
			return false
		default:
			return false
		}
	}

	// Expand letters to two-digit numerals (A=10 .. Z=35), then run a
	// Luhn-style mod-10 check over the resulting digit string.
	digits := make([]int, 0, 24)
	for _, r := range identifier {
		if r >= 'A' && r <= 'Z' {
			n := int(r-'A') + 10
			digits = append(digits, n/10, n%10)
		} else {
			digits = append(digits, int(r-'0'))
		}
	}

	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		// The rightmost digit is the check digit and is not doubled.
		if i == len(digits)-1 {
			sum += d
			continue
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// Detect finds ISIN-shaped codes in text and returns each with its position,
// surrounding context window and checksum validity. Returns an empty slice for
// empty or unmatchable input.
func Detect(text string) []Match {
	if text == "" {
		return nil
	}
	locs := pattern.FindAllStringIndex(text, -1)
	if locs == nil {
		return nil
	}
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		ctxStart := start - contextRadius
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := end + contextRadius
		if ctxEnd > len(text) {
			ctxEnd = len(text)
		}
		candidate := text[start:end]
		matches = append(matches, Match{
			Identifier: candidate,
			Position:   start,
			Context:    text[ctxStart:ctxEnd],
			Valid:      Validate(candidate),
		})
	}
	return matches
}

// CountryCode returns the two-letter prefix of an identifier, or "" when the
// identifier is too short.
func CountryCode(identifier string) string {
	if len(identifier) < 2 {
		return ""
	}
	return strings.ToUpper(identifier[:2])
}
