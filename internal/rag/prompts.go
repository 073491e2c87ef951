package rag

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ContextPlaceholder marks where retrieved passages go in the answer prompt.
const ContextPlaceholder = "{context}"

// Prompts holds the instructions sent to the chat model.
type Prompts struct {
	// Rephrase is appended as a final user message after the history and the
	// new question.
	Rephrase string `yaml:"rephrase"`
	// Answer is the system message for synthesis and must contain
	// ContextPlaceholder.
	Answer string `yaml:"answer"`
}

// DefaultPrompts returns the built-in prompts.
func DefaultPrompts() Prompts {
	return Prompts{
		Rephrase: "Given the above conversation, generate a search query to look up in order to get information relevant to the conversation",
		Answer:   "Answer the user's questions based only on the below context:\n\n" + ContextPlaceholder,
	}
}

// LoadPrompts reads YAML overrides from path. Keys that are missing or blank
// keep their defaults; an empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Prompts{}, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	if s := strings.TrimSpace(override.Rephrase); s != "" {
		prompts.Rephrase = s
	}
	if s := strings.TrimSpace(override.Answer); s != "" {
		prompts.Answer = s
	}

	if err := prompts.Validate(); err != nil {
		return Prompts{}, fmt.Errorf("invalid prompts file %s: %w", path, err)
	}
	return prompts, nil
}

func (p Prompts) Validate() error {
	if strings.TrimSpace(p.Rephrase) == "" {
		return fmt.Errorf("rephrase prompt is required")
	}
	if !strings.Contains(p.Answer, ContextPlaceholder) {
		return fmt.Errorf("answer prompt must contain %s", ContextPlaceholder)
	}
	return nil
}

func (p Prompts) answerSystem(passages []string) string {
	return strings.ReplaceAll(p.Answer, ContextPlaceholder, strings.Join(passages, "\n\n"))
}
