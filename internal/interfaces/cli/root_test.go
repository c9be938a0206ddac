package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with the given args, returning stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"extract", "search", "graph", "export"} {
		assert.True(t, names[want], "expected subcommand %q", want)
	}
}

func TestRootCommand_VersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}

func TestGetCLIContext_MissingContext(t *testing.T) {
	cmd := &cobra.Command{Use: "orphan"}
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestFormatTable_AlignsColumns(t *testing.T) {
	out := FormatTable(
		[]string{"TERM", "FREQ"},
		[][]string{
			{"rushton turbine", "7"},
			{"ph", "12"},
		},
	)

	lines := bytes.Split([]byte(out), []byte("\n"))
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, string(lines[0]), "TERM")
	assert.Contains(t, string(lines[1]), "---")
	assert.Contains(t, string(lines[2]), "rushton turbine")

	// All rows padded to the same width.
	assert.Equal(t, len(lines[0]), len(lines[2]))
}

func TestFormatTable_EmptyHeaders(t *testing.T) {
	assert.Empty(t, FormatTable(nil, [][]string{{"a"}}))
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 3))
}

func TestInitClient_DefaultAddress(t *testing.T) {
	c, err := initClient(nil, &RootOptions{})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestInitClient_ServerFlagWins(t *testing.T) {
	c, err := initClient(nil, &RootOptions{ServerAddr: "http://api.internal:9090"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}
