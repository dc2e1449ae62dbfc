package reactive

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chrona/internal/engine"
	"github.com/roach88/chrona/internal/simtime"
	"github.com/roach88/chrona/internal/trace"
)

func add(n int) func(int) int { return func(x int) int { return x + n } }

// exampleTrigger is the lookup table from the package documentation example:
// 3 -> 7 -> (27 -> 6, 26) ... ending in 5 at t=19 when started at t=0.
func exampleTrigger(state int) []Action[int] {
	switch state {
	case 3:
		return []Action[int]{After("plus4", 3, add(4))}
	case 7:
		return []Action[int]{
			After("minus1", 13, add(-1)),
			After("plus20", 12, add(20)),
		}
	case 6:
		return []Action[int]{After("plus9", 0.1, add(9))}
	case 27:
		return []Action[int]{After("minus21", 4, add(-21))}
	default:
		return nil
	}
}

func none(int) []Action[int] { return nil }

func TestMachine_SingleSeededAction(t *testing.T) {
	m, err := New(3, exampleTrigger, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Pending())

	tr, ok, err := m.Step()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, simtime.Time(3), tr.Time)
	assert.Equal(t, 3, tr.Before)
	assert.Equal(t, 7, tr.After)
	assert.Equal(t, "plus4", tr.Name)
	assert.Equal(t, 2, tr.Admitted)
	assert.Equal(t, 7, m.State())
	assert.Equal(t, simtime.Time(3), m.Now())
}

func TestMachine_FullExample(t *testing.T) {
	rec := trace.NewRecorder()
	m, err := New(3, exampleTrigger, 0, WithObserver(rec))
	require.NoError(t, err)

	var got []Transition[int]
	for {
		tr, ok, err := m.Step()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, tr)
	}

	want := []struct {
		name  string
		time  simtime.Time
		state int
	}{
		{"plus4", 3, 7},
		{"plus20", 15, 27},
		{"minus1", 16, 26},
		{"minus21", 19, 5},
	}
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w.name, got[i].Name, "step %d", i+1)
		assert.Equal(t, w.time, got[i].Time, "step %d", i+1)
		assert.Equal(t, w.state, got[i].After, "step %d", i+1)
	}
	assert.Equal(t, 5, m.State())
	assert.Equal(t, simtime.Time(19), m.Now())

	var lines []string
	for _, e := range rec.Events() {
		lines = append(lines, e.String())
	}
	assert.Equal(t, []string{
		"#1 t=0 seed plus4 due=3",
		"#2 t=3 apply plus4 state=7",
		"#3 t=3 admit minus1 due=16",
		"#4 t=3 admit plus20 due=15",
		"#5 t=15 apply plus20 state=27",
		"#6 t=15 admit minus21 due=19",
		"#7 t=16 apply minus1 state=26",
		"#8 t=19 apply minus21 state=5",
	}, lines)
}

func TestMachine_StartTimeOffsetsSeeds(t *testing.T) {
	m, err := New(3, exampleTrigger, -100)
	require.NoError(t, err)

	n, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, simtime.Time(-81), m.Now())
	assert.Equal(t, 5, m.State())
}

func TestMachine_EmptyTriggerTerminates(t *testing.T) {
	seeded := false
	trigger := func(s int) []Action[int] {
		if seeded {
			return nil
		}
		seeded = true
		return []Action[int]{After("a", 1, add(1)), After("b", 2, add(10)), After("c", 0, add(100))}
	}
	m, err := New(0, trigger, 0)
	require.NoError(t, err)

	n, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n, "exactly the seeded actions run")
	assert.Equal(t, 111, m.State())
	assert.Equal(t, simtime.Time(2), m.Now())
	assert.Equal(t, 0, m.Pending())
}

func TestMachine_NoSeedsIsEmpty(t *testing.T) {
	m, err := New(42, none, 5)
	require.NoError(t, err)

	_, ok, err := m.Step()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 42, m.State())
	assert.Equal(t, simtime.Time(5), m.Now())
}

func TestMachine_NilApplyIsIdentity(t *testing.T) {
	m, err := New(1, func(s int) []Action[int] {
		if s == 1 {
			return []Action[int]{{Delay: 2}}
		}
		return nil
	}, 0, WithMaxSteps(3))
	require.NoError(t, err)

	tr, ok, err := m.Step()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "action", tr.Name)
	assert.Equal(t, 1, tr.After)
}

func TestMachine_InvalidSeedDelay(t *testing.T) {
	for _, d := range []simtime.Time{-1, simtime.Time(math.NaN()), simtime.Time(math.Inf(1))} {
		_, err := New(0, func(int) []Action[int] {
			return []Action[int]{After("ok", 1, add(1)), After("bad", d, add(1))}
		}, 0)
		require.Error(t, err)
		assert.True(t, engine.IsInvalidDelay(err), "delay %v: got %v", d, err)
	}

	_, err := New(0, none, simtime.Time(math.Inf(-1)))
	assert.True(t, engine.IsClockRegression(err))
}

func TestMachine_InvalidDelayPoisons(t *testing.T) {
	m, err := New(0, func(s int) []Action[int] {
		switch s {
		case 0:
			return []Action[int]{After("go", 1, add(1))}
		case 1:
			return []Action[int]{After("fine", 1, add(1)), After("broken", -5, add(1))}
		}
		return nil
	}, 0)
	require.NoError(t, err)

	_, ok, err := m.Step()
	assert.False(t, ok)
	assert.True(t, engine.IsInvalidDelay(err), "got %v", err)
	assert.Equal(t, 1, m.State(), "the applied action is not rolled back")
	assert.Equal(t, 0, m.Pending(), "nothing from the failing trigger is admitted")

	_, _, err = m.Step()
	assert.True(t, engine.IsAborted(err))
	assert.True(t, engine.IsAborted(m.Err()))
}

func TestMachine_PanicPoisons(t *testing.T) {
	m, err := New(0, func(s int) []Action[int] {
		if s == 0 {
			return []Action[int]{After("boom", 1, func(int) int { panic("boom") })}
		}
		return nil
	}, 0)
	require.NoError(t, err)

	assert.PanicsWithValue(t, "boom", func() { _, _, _ = m.Step() })
	_, err = m.Run(context.Background())
	assert.True(t, engine.IsAborted(err), "got %v", err)
}

func TestMachine_Reentrant(t *testing.T) {
	var m *Machine[int]
	var inner error
	var err error
	m, err = New(0, func(s int) []Action[int] {
		if s == 0 {
			return []Action[int]{After("nested", 1, func(x int) int {
				_, _, inner = m.Step()
				return x + 1
			})}
		}
		return nil
	}, 0)
	require.NoError(t, err)

	_, ok, err := m.Step()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, engine.IsReentrant(inner), "got %v", inner)
	assert.NoError(t, m.Err())
}

func TestMachine_UnboundedWithQuota(t *testing.T) {
	forever := func(int) []Action[int] { return []Action[int]{After("tick", 1, add(1))} }
	m, err := New(0, forever, 0, WithMaxSteps(10))
	require.NoError(t, err)

	n, err := m.Run(context.Background())
	assert.True(t, engine.IsQuotaError(err))
	assert.Equal(t, 10, n)
	assert.Equal(t, 10, m.State())
	assert.Equal(t, simtime.Time(10), m.Now())
}

func TestMachine_RunStepsAndCancel(t *testing.T) {
	forever := func(int) []Action[int] { return []Action[int]{After("tick", 0.5, add(1))} }
	m, err := New(0, forever, 0)
	require.NoError(t, err)

	n, err := m.RunSteps(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, simtime.Time(2), m.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err = m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, n)
}

func TestMachine_ZeroDelayRunsAtSameTime(t *testing.T) {
	m, err := New(0, func(s int) []Action[int] {
		if s < 3 {
			return []Action[int]{After("bump", 0, add(1))}
		}
		return nil
	}, 7)
	require.NoError(t, err)

	n, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, simtime.Time(7), m.Now(), "zero delays never move the clock")
}

func TestMachine_DeterministicDigest(t *testing.T) {
	run := func() string {
		rec := trace.NewRecorder()
		m, err := New(3, exampleTrigger, 0, WithObserver(rec))
		require.NoError(t, err)
		_, err = m.Run(context.Background())
		require.NoError(t, err)
		d, err := trace.Digest(rec.Events())
		require.NoError(t, err)
		return d
	}
	assert.Equal(t, run(), run())
}

func TestMachine_StateFormatter(t *testing.T) {
	rec := trace.NewRecorder()
	m, err := New(3, exampleTrigger, 0, WithObserver(rec),
		WithStateFormatter(func(v any) string { return "s" + simtime.Time(v.(int)).Canonical() }))
	require.NoError(t, err)
	_, _, err = m.Step()
	require.NoError(t, err)

	applies := trace.OfKind(rec.Events(), trace.KindApply)
	require.Len(t, applies, 1)
	assert.Equal(t, "s7", applies[0].Detail["state"])
}
