package embedding

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "Hello world.", "Hello world."},
		{"strips symbols", "Price: $100 (approx) #tag", "Price 100 approx tag"},
		{"keeps basic punctuation", "Yes, no? Maybe! Re-try.", "Yes, no? Maybe! Re-try."},
		{"collapses whitespace", "  a \n\n b\t\tc  ", "a b c"},
		{"symbols only", "@#$%^&*()", ""},
		{"whitespace only", " \n\t ", ""},
		{"underscore is a word char", "snake_case", "snake_case"},
		{"drops non-ascii letters", "café résumé", "caf rsum"},
		{"unicode spaces separate words", "Total\u00a0amount\u2003due\u2028now", "Total amount due now"},
		{"vertical tab and NEL", "a\vb\u0085c", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}

func TestSanitize_Truncates(t *testing.T) {
	long := strings.Repeat("abcde ", 1000)

	out := Sanitize(long)

	assert.Equal(t, MaxInputChars, utf8.RuneCountInString(out))
	assert.True(t, strings.HasPrefix(long, out))
}

func TestAggressive(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"punctuation to spaces", "Stop. Go, now!", "stop go now"},
		{"digit runs", "Chapter 12 has 3400 words", "chapter n has n words"},
		{"lowercases", "LOUD Text", "loud text"},
		{"no-break spaces", "Net\u00a030\u202fdays", "net n days"},
		{"punctuation only", "...,,,!!!---", ""},
		{"symbols and digits", "Call +1 (555) 010-9999!", "call n n n n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Aggressive(tt.input))
		})
	}
}
