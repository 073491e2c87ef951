package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoot() *cobra.Command {
	root := &cobra.Command{Use: "docchatd", Short: "Chat with your documents"}
	AddHelpJSONFlag(root)

	ask := &cobra.Command{Use: "ask <document-id> <question>", Short: "Ask a question", Run: func(*cobra.Command, []string) {}}
	ask.Flags().StringP("conversation", "c", "default", "Conversation ID")
	ask.Flags().String("owner", "", "Owner")
	_ = ask.MarkFlagRequired("owner")

	local := &cobra.Command{Use: "local <file> [question...]", Short: "Run locally", Run: func(*cobra.Command, []string) {}}
	hidden := &cobra.Command{Use: "debug", Hidden: true, Run: func(*cobra.Command, []string) {}}

	root.AddCommand(ask, local, hidden)
	return root
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(testRoot())

	assert.Equal(t, "docchatd", schema.Name)
	require.Len(t, schema.Subcommands, 2, "hidden commands are skipped")

	ask := schema.Subcommands[0]
	assert.Equal(t, "ask", ask.Name)
	assert.Equal(t, []ArgSchema{
		{Name: "document-id", Required: true},
		{Name: "question", Required: true},
	}, ask.Args)

	require.Len(t, ask.Flags, 2)
	byName := map[string]FlagSchema{}
	for _, f := range ask.Flags {
		byName[f.Name] = f
	}
	assert.Equal(t, "c", byName["conversation"].Shorthand)
	assert.Equal(t, "default", byName["conversation"].Default)
	assert.False(t, byName["conversation"].Required)
	assert.True(t, byName["owner"].Required)

	local := schema.Subcommands[1]
	assert.Equal(t, []ArgSchema{
		{Name: "file", Required: true},
		{Name: "question", Variadic: true},
	}, local.Args)
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, testRoot()))

	var decoded CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "docchatd", decoded.Name)
	for _, f := range decoded.Flags {
		assert.NotEqual(t, helpJSONFlag, f.Name)
	}
}

func TestHelpJSONTarget(t *testing.T) {
	root := testRoot()

	tests := []struct {
		name   string
		args   []string
		want   string
		wantOK bool
	}{
		{"absent", []string{"ask", "doc-1", "hi"}, "", false},
		{"root", []string{"--help-json"}, "docchatd", true},
		{"subcommand", []string{"ask", "--help-json"}, "ask", true},
		{"unknown falls back to parent", []string{"nope", "--help-json"}, "docchatd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := HelpJSONTarget(root, tt.args)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, cmd.Name())
			}
		})
	}
}
