package rag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrompts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPrompts_EmptyPathReturnsDefaults(t *testing.T) {
	p, err := LoadPrompts("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompts(), p)
	assert.NoError(t, p.Validate())
}

func TestLoadPrompts_PartialOverride(t *testing.T) {
	path := writePrompts(t, "rephrase: Rewrite the last question as a search query.\n")

	p, err := LoadPrompts(path)

	require.NoError(t, err)
	assert.Equal(t, "Rewrite the last question as a search query.", p.Rephrase)
	assert.Equal(t, DefaultPrompts().Answer, p.Answer)
}

func TestLoadPrompts_AnswerOverride(t *testing.T) {
	path := writePrompts(t, "answer: |\n  Use only these passages:\n  {context}\n")

	p, err := LoadPrompts(path)

	require.NoError(t, err)
	assert.Equal(t, "Use only these passages:\nA\n\nB", p.answerSystem([]string{"A", "B"}))
}

func TestLoadPrompts_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing placeholder", "answer: Answer from the document.\n"},
		{"malformed yaml", "rephrase: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPrompts(writePrompts(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
