package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chrona/internal/engine"
	"github.com/roach88/chrona/internal/entity"
	"github.com/roach88/chrona/internal/testutil"
)

var _ engine.Observer = (*Sink)(nil)

func TestSink_PersistsSchedulerTrace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	sink := s.Sink(ctx, "run-1")
	sink.size = 3 // force several batches

	sched, err := entity.New(entity.WithObserver(sink))
	require.NoError(t, err)
	require.NoError(t, sched.Add("a", testutil.NewScriptedActor(100, 3)))
	require.NoError(t, sched.Add("b", testutil.NewScriptedActor(0, 1)))
	_, err = sched.RunUntilEmpty(ctx)
	require.NoError(t, err)

	require.NoError(t, sink.Flush())

	recs, err := s.ReadEvents(ctx, "run-1")
	require.NoError(t, err)
	// 2 admits + a: 3 activations, 2 re-admits, 1 retire + b: 1 activation, 1 retire
	assert.Len(t, recs, 10)
	assert.Equal(t, 10, sink.Written())
}

func TestSink_RemembersFirstError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sink := s.Sink(ctx, "missing-run")
	sink.size = 1
	sink.OnEvent(testEvents()[0])
	sink.OnEvent(testEvents()[1])

	assert.Error(t, sink.Err())
	assert.Error(t, sink.Flush())
	assert.Equal(t, 0, sink.Written())
}
