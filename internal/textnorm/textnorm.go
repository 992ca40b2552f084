// Package textnorm canonicalizes scraped text so that judged and displayed
// content never disagree. The same normalization runs before every
// expected-vs-produced comparison and before display.
package textnorm

import "strings"

// Normalize converts non-breaking spaces to ordinary spaces, canonicalizes
// line endings to a single \n, and strips trailing whitespace from the whole
// string. Empty input yields empty output.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimRight(s, " \t\n\v\f")
}

// NormalizeLines normalizes the string and additionally strips trailing
// whitespace from each line. Used by the judge so that lines differing only
// in trailing spaces compare equal.
func NormalizeLines(s string) string {
	s = Normalize(s)
	if s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
