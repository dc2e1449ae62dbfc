package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chrona/internal/harness"
	"github.com/roach88/chrona/internal/store"
)

func TestRun_TextOutput(t *testing.T) {
	path := copyScenario(t, t.TempDir(), "reactive_counter")

	out, err := execute(t, "run", path)
	require.NoError(t, err, out)

	assert.Contains(t, out, "#1 t=0 seed plus4 due=3")
	assert.Contains(t, out, "#2 t=3 apply plus4 state=7")
	assert.Contains(t, out, "Scenario: reactive_counter (reactive)")
	assert.Contains(t, out, "Steps: 4, final time 19")
	assert.Contains(t, out, "Final state: 5")
	assert.Contains(t, out, "Digest: "+goldenDigest(t, "reactive_counter"))
	assert.Contains(t, out, "✓ assertions passed")
	assert.NotContains(t, out, "Run ID:")
}

func TestRun_JSONOutput(t *testing.T) {
	path := copyScenario(t, t.TempDir(), "entity_interleave")

	out, err := execute(t, "--format", "json", "run", path)
	require.NoError(t, err, out)

	var run RunOutput
	assert.Equal(t, "ok", decodeData(t, out, &run))
	assert.True(t, run.Pass)
	assert.Equal(t, "entity_interleave", run.Scenario)
	assert.Equal(t, harness.KindEntity, run.Kind)
	assert.Equal(t, 6, run.Steps)
	assert.Equal(t, "100", run.FinalTime)
	assert.Len(t, run.Trace, 15)
	assert.Equal(t, goldenDigest(t, "entity_interleave"), run.Digest)
	assert.Empty(t, run.RunID)
}

func TestRun_AssertionFailure(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wrong.yaml", `
name: wrong
kind: reactive
initial_state: 0
triggers:
  - state: 0
    actions:
      - { name: inc, op: add, operand: 1, delay: 5 }
assertions:
  - type: final_state
    state: 2
`)

	out, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ 1 assertion(s) failed")
	assert.Contains(t, out, "final_state")
}

func TestRun_MaxStepsTruncates(t *testing.T) {
	// pingpong never runs dry: each state re-arms the other.
	path := writeFile(t, t.TempDir(), "pingpong.yaml", `
name: pingpong
kind: reactive
initial_state: 0
triggers:
  - state: 0
    actions:
      - { name: ping, op: set, operand: 1, delay: 1 }
  - state: 1
    actions:
      - { name: pong, op: set, operand: 0, delay: 1 }
`)

	out, err := execute(t, "--format", "json", "run", "--max-steps", "7", path)
	require.NoError(t, err, out)

	var run RunOutput
	decodeData(t, out, &run)
	assert.True(t, run.Truncated)
	assert.Equal(t, 7, run.Steps)
	assert.Equal(t, "7", run.FinalTime)
}

func TestRun_WithDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chrona.db")
	path := copyScenario(t, dir, "entity_spawn_remove")

	runID := recordRun(t, dbPath, path)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, run.Status)
	assert.Equal(t, "entity_spawn_remove", run.Name)
	assert.Equal(t, 3, run.Steps)
	assert.Equal(t, "75", run.FinalTime)
	assert.Equal(t, goldenDigest(t, "entity_spawn_remove"), run.Digest)
	assert.Equal(t, harness.EngineVersion, run.EngineVersion)

	// The stored scenario carries the cooldown the run actually used.
	stored, err := harness.ParseScenario([]byte(run.Scenario))
	require.NoError(t, err)
	require.NotNil(t, stored.Cooldown)
	assert.Equal(t, 100.0, stored.Cooldown.Scale)

	events, err := st.ReadEvents(context.Background(), runID)
	require.NoError(t, err)
	assert.Len(t, events, 11)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	path := copyScenario(t, dir, "reactive_counter")

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing scenario", []string{"run", filepath.Join(dir, "missing.yaml")}, ErrCodeScenario},
		{"negative pace", []string{"run", "--pace", "-1", path}, ErrCodeGeneric},
		{"bad database", []string{"run", "--db", filepath.Join(dir, "no", "such", "dir", "x.db"), path}, ErrCodeStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			assert.Equal(t, "error", decodeData(t, out, nil))
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRun_Pace(t *testing.T) {
	path := copyScenario(t, t.TempDir(), "reactive_counter")

	start := time.Now()
	out, err := execute(t, "run", "--pace", "50", path)
	require.NoError(t, err, out)
	// 4 steps with a burst of 1 at 50/s wait at least 3 intervals of 20ms.
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRun_CancelledContext(t *testing.T) {
	path := copyScenario(t, t.TempDir(), "reactive_counter")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", path})
	err := cmd.ExecuteContext(ctx)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, context.Canceled)
}
