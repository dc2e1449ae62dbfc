package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const harnessTestdata = "../harness/testdata"

// copyScenario copies a harness test scenario into dir and returns its path.
func copyScenario(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(harnessTestdata, "scenarios", name+".yaml"))
	require.NoError(t, err)
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// copyGolden copies a harness golden file into dir.
func copyGolden(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(harnessTestdata, "golden", name+".golden"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name+".golden")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// goldenDigest reads the digest from a harness golden file header.
func goldenDigest(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(harnessTestdata, "golden", name+".golden"))
	require.NoError(t, err)
	header, _, _ := strings.Cut(string(data), "\n")
	var h struct {
		Digest string `json:"digest"`
	}
	require.NoError(t, json.Unmarshal([]byte(header), &h))
	return h.Digest
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeData unmarshals the data field of a JSON CLI response into v.
func decodeData(t *testing.T, out string, v any) string {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	if v != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
	return resp.Status
}

// recordRun runs a scenario into dbPath and returns the run ID.
func recordRun(t *testing.T, dbPath, scenarioPath string) string {
	t.Helper()
	out, err := execute(t, "--format", "json", "run", "--db", dbPath, scenarioPath)
	require.NoError(t, err, out)
	var run RunOutput
	decodeData(t, out, &run)
	require.NotEmpty(t, run.RunID)
	return run.RunID
}
