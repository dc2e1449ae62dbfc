package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/chrona/internal/trace"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun inserts a run with minimal required fields.
func createTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run := Run{
		ID:            id,
		Name:          "test-" + id,
		Kind:          "entity",
		Scenario:      "name: test\nkind: entity\n",
		ScenarioHash:  "test-hash",
		EngineVersion: "test",
		CreatedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, s.CreateRun(context.Background(), run))
	return run
}

func testEvents() []trace.Event {
	return []trace.Event{
		{Seq: 1, Time: 0, Kind: trace.KindAdmit, Subject: "a", Detail: map[string]string{"due": "50"}},
		{Seq: 2, Time: 50, Kind: trace.KindActivate, Subject: "a"},
		{Seq: 3, Time: 50, Kind: trace.KindAdmit, Subject: "b", Detail: map[string]string{"due": "83.33333333333333"}},
		{Seq: 4, Time: 83.33333333333333, Kind: trace.KindRetire, Subject: "b"},
	}
}
