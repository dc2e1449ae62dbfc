package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chrona/internal/trace"
)

func TestTrace_ListRuns(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chrona.db")
	first := recordRun(t, dbPath, copyScenario(t, dir, "reactive_counter"))
	second := recordRun(t, dbPath, copyScenario(t, dir, "entity_interleave"))

	out, err := execute(t, "--format", "json", "trace", "--db", dbPath)
	require.NoError(t, err, out)

	var data struct {
		Runs []RunInfo `json:"runs"`
	}
	decodeData(t, out, &data)
	require.Len(t, data.Runs, 2)
	assert.Equal(t, first, data.Runs[0].ID)
	assert.Equal(t, second, data.Runs[1].ID)
	assert.Equal(t, "completed", data.Runs[1].Status)
	assert.Equal(t, 6, data.Runs[1].Steps)

	text, err := execute(t, "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, text, first)
	assert.Contains(t, text, "entity_interleave")
}

func TestTrace_EmptyDatabase(t *testing.T) {
	out, err := execute(t, "trace", "--db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")
}

func TestTrace_ShowRun(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chrona.db")
	runID := recordRun(t, dbPath, copyScenario(t, dir, "reactive_counter"))

	out, err := execute(t, "trace", "--db", dbPath, "--run", runID)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Run: "+runID+" (reactive_counter, reactive, completed)")
	assert.Contains(t, out, "#1 t=0 seed plus4 due=3")
	assert.Contains(t, out, "8 event(s)")
}

func TestTrace_Filters(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chrona.db")
	runID := recordRun(t, dbPath, copyScenario(t, dir, "entity_spawn_remove"))

	t.Run("kind", func(t *testing.T) {
		out, err := execute(t, "--format", "json", "trace", "--db", dbPath, "--run", runID, "--kind", "spawn")
		require.NoError(t, err, out)

		var res TraceResult
		decodeData(t, out, &res)
		require.Len(t, res.Events, 1)
		assert.Equal(t, string(trace.KindSpawn), res.Events[0].Kind)
		assert.Equal(t, "drone", res.Events[0].Subject)
		assert.Len(t, res.Events[0].Hash, 64)
	})

	t.Run("subject", func(t *testing.T) {
		out, err := execute(t, "--format", "json", "trace", "--db", dbPath, "--run", runID, "--subject", "hive")
		require.NoError(t, err, out)

		var res TraceResult
		decodeData(t, out, &res)
		require.NotEmpty(t, res.Events)
		for _, e := range res.Events {
			assert.Equal(t, "hive", e.Subject)
		}
		for i := 1; i < len(res.Events); i++ {
			assert.Less(t, res.Events[i-1].Seq, res.Events[i].Seq)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := execute(t, "trace", "--db", dbPath, "--run", runID, "--kind", "explode")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestTrace_RunNotFound(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chrona.db")

	_, err := execute(t, "trace", "--db", dbPath, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found")
}

func TestTrace_NoDatabase(t *testing.T) {
	_, err := execute(t, "trace")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no database")
}
