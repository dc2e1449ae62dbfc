package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioDir copies every harness test scenario into a fresh directory.
func scenarioDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"entity_interleave", "entity_spawn_remove", "reactive_counter"} {
		copyScenario(t, dir, name)
	}
	return dir
}

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandGoldenMatch(t *testing.T) {
	dir := scenarioDir(t)
	for _, name := range []string{"entity_interleave", "entity_spawn_remove", "reactive_counter"} {
		copyGolden(t, filepath.Join(dir, "golden"), name)
	}

	out, err := runTestCommand(t, "json", dir)
	require.NoError(t, err, out)

	var res TestResult
	assert.Equal(t, "ok", decodeData(t, out, &res))
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Passed)
	for _, sr := range res.Scenarios {
		assert.Equal(t, "match", sr.Golden, sr.Name)
	}
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := scenarioDir(t)
	golden := copyGolden(t, filepath.Join(dir, "golden"), "reactive_counter")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(golden, bytes.Replace(data, []byte(`"state":"5"`), []byte(`"state":"6"`), 1), 0644))

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ reactive_counter")
	assert.Contains(t, out, "trace does not match golden file")
	assert.Contains(t, out, "✓ entity_interleave (no golden file)")
	assert.Contains(t, out, "2 passed, 1 failed, 3 total")
}

func TestTestCommandUpdate(t *testing.T) {
	dir := scenarioDir(t)
	goldenDir := filepath.Join(t.TempDir(), "goldens")

	out, err := runTestCommand(t, "text", "--update", "--golden", goldenDir, dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ entity_spawn_remove (golden updated)")

	// Written goldens are byte-identical to the harness package's.
	for _, name := range []string{"entity_interleave", "entity_spawn_remove", "reactive_counter"} {
		got, err := os.ReadFile(filepath.Join(goldenDir, name+".golden"))
		require.NoError(t, err)
		want, err := os.ReadFile(filepath.Join(harnessTestdata, "golden", name+".golden"))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), name)
	}

	// And a second run compares against them.
	out, err = runTestCommand(t, "text", "--golden", goldenDir, dir)
	require.NoError(t, err, out)
	assert.NotContains(t, out, "no golden file")
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenarioDir(t)

	out, err := runTestCommand(t, "json", "--filter", "entity_*", dir)
	require.NoError(t, err, out)

	var res TestResult
	decodeData(t, out, &res)
	require.Equal(t, 2, res.Total)
	for _, sr := range res.Scenarios {
		assert.Contains(t, sr.Name, "entity_")
	}

	_, err = runTestCommand(t, "text", "--filter", "[", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandReportsBrokenScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\nkind: sideways\n")

	out, err := runTestCommand(t, "json", dir)
	require.Error(t, err)

	var res TestResult
	assert.Equal(t, "error", decodeData(t, out, &res))
	require.Len(t, res.Scenarios, 1)
	assert.False(t, res.Scenarios[0].Pass)
	assert.Contains(t, res.Scenarios[0].Errors[0], "failed to load scenario")
}
