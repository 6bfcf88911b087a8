package core

import (
	"math"
	"strings"
	"unicode"
)

// CleanString trims leading and trailing whitespace.
func CleanString(s string) string {
	return strings.TrimSpace(s)
}

// CleanLower trims s and lowers it, for enum-like values and emails.
func CleanLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CleanName collapses every run of whitespace in a one-line name to a single space.
func CleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CourseCode normalizes a course code as typed by people: "cs 101" gives "CS101".
func CourseCode(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// Round2 rounds f to 2 decimal places. For display only.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
