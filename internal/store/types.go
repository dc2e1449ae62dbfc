package store

import (
	"errors"
	"time"

	"github.com/roach88/chrona/internal/trace"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunStatus tracks a run's lifecycle.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Run is one persisted scheduler run.
type Run struct {
	ID            string
	Name          string
	Kind          string // entity | reactive
	Scenario      string // scenario source, re-executed by replay
	ScenarioHash  string
	EngineVersion string
	Status        RunStatus
	Steps         int
	FinalTime     string // canonical simtime
	FinalState    string
	Digest        string
	Error         string
	CreatedAt     time.Time // display only; ordering never uses it
}

// Summary is written when a run finishes.
type Summary struct {
	Status     RunStatus
	Steps      int
	FinalTime  string
	FinalState string
	Digest     string
	Error      string
}

// EventRecord is a stored trace event with its content hash.
type EventRecord struct {
	trace.Event
	Hash string
}
