package reactive

import (
	"context"
	"errors"

	"github.com/roach88/chrona/internal/engine"
	"github.com/roach88/chrona/internal/logx"
	"github.com/roach88/chrona/internal/queue"
	"github.com/roach88/chrona/internal/simtime"
	"github.com/roach88/chrona/internal/trace"
)

var errPanicked = errors.New("action or trigger panicked")

// Machine owns a state and the queue of actions pending against it.
//
// Thread-safety: Machine is NOT safe for concurrent use.
type Machine[S any] struct {
	clock   *engine.Clock
	queue   *queue.Queue[Action[S]]
	emit    *engine.Emitter
	trigger Trigger[S]
	state   S

	logger logx.Logger
	quota  *engine.QuotaEnforcer
	format func(any) string

	stepping bool
	poisoned error
}

// New creates a machine in state initial at time t0 and seeds it with
// trigger(initial). It fails with INVALID_DELAY if a seeded action has a
// negative or non-finite delay, and with CLOCK_REGRESSION if t0 is not finite.
func New[S any](initial S, trigger Trigger[S], t0 simtime.Time, opts ...Option) (*Machine[S], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if !t0.IsFinite() {
		return nil, engine.NewClockRegressionError(simtime.Zero, t0)
	}

	m := &Machine[S]{
		clock:   engine.NewClock(t0),
		queue:   queue.New[Action[S]](),
		trigger: trigger,
		state:   initial,
		logger:  cfg.logger,
		format:  cfg.format,
	}
	m.emit = engine.NewEmitter(m.clock, cfg.observers...)
	if cfg.maxSteps > 0 {
		m.quota = engine.NewQuotaEnforcer(cfg.maxSteps)
	}

	seeds, err := m.fire(initial)
	if err != nil {
		return nil, err
	}
	for _, a := range seeds {
		due := t0.Add(a.Delay)
		m.queue.Push(a, due)
		m.emit.Emit(trace.KindSeed, a.label(), "due", due.Canonical())
	}
	return m, nil
}

// State returns the current state.
func (m *Machine[S]) State() S {
	return m.state
}

// Now returns the current logical time.
func (m *Machine[S]) Now() simtime.Time {
	return m.clock.Now()
}

// Pending returns the number of queued actions.
func (m *Machine[S]) Pending() int {
	return m.queue.Len()
}

// NextDue returns the due time of the next action.
func (m *Machine[S]) NextDue() (simtime.Time, bool) {
	return m.queue.PeekMinTime()
}

// Err returns an ABORTED error if the machine was poisoned, or nil.
func (m *Machine[S]) Err() error {
	if m.poisoned == nil {
		return nil
	}
	cause := m.poisoned
	if errors.Is(cause, errPanicked) {
		cause = nil
	}
	return engine.NewAbortedError(cause, m.clock.Now())
}

func (m *Machine[S]) guard() error {
	if m.poisoned != nil {
		return m.Err()
	}
	if m.stepping {
		return engine.NewReentrantError(m.clock.Now())
	}
	return nil
}

// fire runs the trigger and validates every delay it returns. Nothing is
// admitted here; an invalid delay rejects the whole batch.
func (m *Machine[S]) fire(state S) ([]Action[S], error) {
	var actions []Action[S]
	m.busy(func() { actions = m.trigger(state) })
	for _, a := range actions {
		if !a.Delay.IsFinite() || a.Delay < 0 {
			return nil, engine.NewInvalidDelayError(a.label(), a.Delay, m.clock.Now())
		}
	}
	return actions, nil
}

// busy runs user code with the machine marked as stepping. A panic poisons
// the machine and keeps unwinding.
func (m *Machine[S]) busy(fn func()) {
	m.stepping = true
	completed := false
	defer func() {
		m.stepping = false
		if !completed {
			m.poisoned = errPanicked
			m.logger.Error("callback panicked, machine aborted", logx.Time("t", m.clock.Now()))
		}
	}()
	fn()
	completed = true
}

// Step applies the next due action. It returns false with a nil error when
// nothing is pending.
func (m *Machine[S]) Step() (Transition[S], bool, error) {
	if err := m.guard(); err != nil {
		return Transition[S]{}, false, err
	}
	it, ok := m.queue.PopMin()
	if !ok {
		return Transition[S]{}, false, nil
	}
	action := it.Value

	if err := m.clock.AdvanceTo(it.Due); err != nil {
		return Transition[S]{}, false, m.poison(engine.NewInvariantError(action.label(), m.clock.Now(),
			"queued action is earlier than the clock"))
	}
	now := m.clock.Now()

	before := m.state
	var after S
	m.busy(func() { after = action.run(before) })
	m.state = after

	m.emit.Emit(trace.KindApply, action.label(), "state", m.format(after))
	m.logger.Debug("apply", logx.String("action", action.label()), logx.Time("t", now))

	next, err := m.fire(after)
	if err != nil {
		// The state already moved; the trigger's output cannot be admitted in
		// part, so the run cannot continue faithfully.
		return Transition[S]{}, false, m.poison(err)
	}
	for _, a := range next {
		due := now.Add(a.Delay)
		m.queue.Push(a, due)
		m.emit.Emit(trace.KindAdmit, a.label(), "due", due.Canonical())
	}

	return Transition[S]{
		Name:     action.label(),
		Time:     now,
		Before:   before,
		After:    after,
		Admitted: len(next),
	}, true, nil
}

func (m *Machine[S]) poison(err error) error {
	m.poisoned = err
	m.logger.Error("machine aborted", logx.Err(err))
	return err
}

func (m *Machine[S]) loop() engine.Loop {
	return engine.Loop{
		Name:    "reactive",
		Pending: m.Pending,
		Step: func() error {
			_, _, err := m.Step()
			return err
		},
		Quota: m.quota,
	}
}

// Run steps until no action is pending and returns the number of steps.
// It is not guaranteed to terminate; bound it with ctx or WithMaxSteps.
func (m *Machine[S]) Run(ctx context.Context) (int, error) {
	if err := m.guard(); err != nil {
		return 0, err
	}
	return m.loop().Run(ctx, -1)
}

// RunSteps runs at most n steps.
func (m *Machine[S]) RunSteps(ctx context.Context, n int) (int, error) {
	if n < 0 {
		n = 0
	}
	if err := m.guard(); err != nil {
		return 0, err
	}
	return m.loop().Run(ctx, n)
}
