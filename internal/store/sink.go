package store

import (
	"context"

	"github.com/roach88/chrona/internal/trace"
)

const defaultSinkBatch = 256

// Sink persists trace events as a scheduler emits them. It satisfies
// engine.Observer.
//
// Observers cannot return errors, so the sink remembers the first write
// failure and drops every event after it; check Err (or Flush) once the run
// is over.
type Sink struct {
	store *Store
	ctx   context.Context
	runID string
	batch []trace.Event
	size  int
	n     int
	err   error
}

// Sink returns an observer that appends events to runID in batches.
func (s *Store) Sink(ctx context.Context, runID string) *Sink {
	return &Sink{store: s, ctx: ctx, runID: runID, size: defaultSinkBatch}
}

// OnEvent buffers e and writes the batch when it is full.
func (k *Sink) OnEvent(e trace.Event) {
	if k.err != nil {
		return
	}
	k.batch = append(k.batch, e)
	if len(k.batch) >= k.size {
		k.flush()
	}
}

func (k *Sink) flush() {
	if k.err != nil || len(k.batch) == 0 {
		return
	}
	if err := k.store.AppendEvents(k.ctx, k.runID, k.batch); err != nil {
		k.err = err
		return
	}
	k.n += len(k.batch)
	k.batch = k.batch[:0]
}

// Flush writes any buffered events and returns the first error seen.
func (k *Sink) Flush() error {
	k.flush()
	return k.err
}

// Err returns the first write error, if any.
func (k *Sink) Err() error {
	return k.err
}

// Written returns how many events reached the database.
func (k *Sink) Written() int {
	return k.n
}
