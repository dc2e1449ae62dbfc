package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "chrona", cmd.Use)
	assert.Contains(t, cmd.Long, "discrete-event")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "replay", "trace", "test", "validate", "watch"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	path := copyScenario(t, t.TempDir(), "reactive_counter")

	_, err := execute(t, "--format", "xml", "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := copyScenario(t, dir, "reactive_counter")

	t.Run("missing", func(t *testing.T) {
		_, err := execute(t, "--config", filepath.Join(dir, "nope.yaml"), "run", path)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "failed to load config")
	})

	t.Run("store path from config", func(t *testing.T) {
		dbPath := filepath.Join(dir, "from-config.db")
		cfg := writeFile(t, dir, "chrona.yaml", "store:\n  path: "+dbPath+"\n")

		out, err := execute(t, "--config", cfg, "run", path)
		require.NoError(t, err, out)
		assert.Contains(t, out, "Run ID:")
		assert.FileExists(t, dbPath)
	})
}
