package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvOverlay(t *testing.T) {
	overlay, err := parseEnvOverlay([]string{"COVERAGE_ENABLED=True", "EMPTY=", "WITH=EQ=SIGN"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"COVERAGE_ENABLED": "True",
		"EMPTY":            "",
		"WITH":             "EQ=SIGN",
	}, overlay)
}

func TestParseEnvOverlay_RejectsMalformedEntries(t *testing.T) {
	_, err := parseEnvOverlay([]string{"NOVALUE"})
	assert.Error(t, err)

	_, err = parseEnvOverlay([]string{"=value"})
	assert.Error(t, err)
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	expected := []string{"run", "discover", "view", "list", "init", "version"}

	for _, name := range expected {
		found := false

		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}

		assert.True(t, found, "missing subcommand %q", name)
	}
}

func TestRootCmd_OutputFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup(outputFlagName)
	require.NotNil(t, flag)
	assert.Equal(t, "o", flag.Shorthand)
}
