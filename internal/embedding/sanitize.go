package embedding

import (
	"regexp"
	"strings"
)

// MaxInputChars bounds the text sent to the embedding model.
const MaxInputChars = 2000

// spaces matches what unicode.IsSpace accepts; RE2's \s is ASCII only, and
// extracted PDF text is full of no-break spaces.
const spaces = `\s\v\x{85}\p{Z}`

var (
	disallowedChars = regexp.MustCompile(`[^\w` + spaces + `.,?!-]`)
	whitespaceRuns  = regexp.MustCompile(`[` + spaces + `]+`)
	punctuation     = regexp.MustCompile(`[.,?!-]`)
	digitRuns       = regexp.MustCompile(`\d+`)
)

// Sanitize keeps word characters, whitespace and basic punctuation, collapses
// whitespace runs to one space, trims, and truncates to MaxInputChars.
func Sanitize(text string) string {
	s := disallowedChars.ReplaceAllString(text, "")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return truncateRunes(s, MaxInputChars)
}

// Aggressive is the transform used after a content-safety rejection: on top
// of Sanitize it turns punctuation into spaces, replaces digit runs with "n"
// and lowercases. Whitespace is collapsed again so a punctuation-only input
// comes out empty.
func Aggressive(text string) string {
	s := Sanitize(text)
	s = punctuation.ReplaceAllString(s, " ")
	s = digitRuns.ReplaceAllString(s, "n")
	s = strings.ToLower(s)
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
