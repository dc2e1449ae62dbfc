package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/chrona/internal/simtime"
	"github.com/roach88/chrona/internal/trace"
)

const runColumns = `id, name, kind, scenario, scenario_hash, engine_version,
	status, steps, final_time, final_state, digest, error, created_at`

// ReadRun retrieves a single run by ID.
// Returns ErrRunNotFound if it does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// ListRuns returns every run in insertion order.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns a run's events ORDER BY seq ASC.
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]EventRecord, error) {
	return s.queryEvents(ctx, `
		SELECT seq, time, kind, subject, detail, hash
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadSubjectEvents returns the events of one subject (actor key or action
// name) ORDER BY seq ASC.
func (s *Store) ReadSubjectEvents(ctx context.Context, runID, subject string) ([]EventRecord, error) {
	return s.queryEvents(ctx, `
		SELECT seq, time, kind, subject, detail, hash
		FROM events
		WHERE run_id = ? AND subject = ?
		ORDER BY seq ASC
	`, runID, subject)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []EventRecord{}
	for rows.Next() {
		var (
			rec    EventRecord
			seq    int64
			tm     string
			kind   string
			detail string
		)
		if err := rows.Scan(&seq, &tm, &kind, &rec.Subject, &detail, &rec.Hash); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.Seq = uint64(seq)
		rec.Kind = trace.Kind(kind)
		if rec.Time, err = simtime.Parse(tm); err != nil {
			return nil, fmt.Errorf("event %d: %w", seq, err)
		}
		if err := unmarshalDetail(detail, &rec.Event); err != nil {
			return nil, fmt.Errorf("event %d: %w", seq, err)
		}
		events = append(events, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func unmarshalDetail(data string, e *trace.Event) error {
	var m map[string]string
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return fmt.Errorf("unmarshal detail: %w", err)
	}
	if len(m) > 0 {
		e.Detail = m
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run     Run
		status  string
		created string
	)
	err := row.Scan(
		&run.ID, &run.Name, &run.Kind, &run.Scenario, &run.ScenarioHash, &run.EngineVersion,
		&status, &run.Steps, &run.FinalTime, &run.FinalState, &run.Digest, &run.Error, &created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Run{}, fmt.Errorf("run %s: created_at: %w", run.ID, err)
	}
	return run, nil
}
