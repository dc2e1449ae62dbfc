package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/chrona/internal/trace"
)

// CreateRun inserts a run in the running state.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("create run: empty id")
	}
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, name, kind, scenario, scenario_hash, engine_version, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Name,
		run.Kind,
		run.Scenario,
		run.ScenarioHash,
		run.EngineVersion,
		string(StatusRunning),
		created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// AppendEvent stores one trace event for a run.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting (run_id, seq) is a no-op.
//
// Note: The run must exist (foreign key constraint).
func (s *Store) AppendEvent(ctx context.Context, runID string, e trace.Event) error {
	return s.AppendEvents(ctx, runID, []trace.Event{e})
}

// AppendEvents stores a batch of events in one transaction.
func (s *Store) AppendEvents(ctx context.Context, runID string, events []trace.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append events: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (run_id, seq, time, kind, subject, detail, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("append events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if err := insertEvent(ctx, stmt, runID, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append events: commit: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, stmt *sql.Stmt, runID string, e trace.Event) error {
	hash, err := trace.Hash(e)
	if err != nil {
		return fmt.Errorf("append event %d: %w", e.Seq, err)
	}
	detail, err := trace.MarshalDetail(e.Detail)
	if err != nil {
		return fmt.Errorf("append event %d: detail: %w", e.Seq, err)
	}
	_, err = stmt.ExecContext(ctx,
		runID,
		int64(e.Seq),
		e.Time.Canonical(),
		string(e.Kind),
		e.Subject,
		string(detail),
		hash,
	)
	if err != nil {
		return fmt.Errorf("append event %d: %w", e.Seq, err)
	}
	return nil
}

// FinishRun records a run's outcome.
// Returns ErrRunNotFound if the run does not exist.
func (s *Store) FinishRun(ctx context.Context, runID string, sum Summary) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, steps = ?, final_time = ?, final_state = ?, digest = ?, error = ?
		WHERE id = ?
	`,
		string(sum.Status),
		sum.Steps,
		sum.FinalTime,
		sum.FinalState,
		sum.Digest,
		sum.Error,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}
