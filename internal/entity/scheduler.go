package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/chrona/internal/engine"
	"github.com/roach88/chrona/internal/logx"
	"github.com/roach88/chrona/internal/queue"
	"github.com/roach88/chrona/internal/registry"
	"github.com/roach88/chrona/internal/simtime"
	"github.com/roach88/chrona/internal/trace"
)

// errPanicked poisons a scheduler whose actor panicked.
var errPanicked = errors.New("actor panicked during activation")

// Scheduler runs actors in order of their next due time.
//
// Thread-safety: Scheduler is NOT safe for concurrent use.
type Scheduler struct {
	clock   *engine.Clock
	queue   *queue.Queue[registry.Key]
	reg     *registry.Registry[Actor]
	pending map[registry.Key]*queue.Item[registry.Key]
	emit    *engine.Emitter

	curve     Curve
	logger    logx.Logger
	observers []engine.Observer
	quota     *engine.QuotaEnforcer
	keys      registry.KeyGenerator
	start     simtime.Time

	stepping bool
	poisoned error
}

// Activation describes one completed step.
type Activation struct {
	Key        registry.Key
	Time       simtime.Time
	Readmitted bool
	NextDue    simtime.Time // valid when Readmitted
}

// Entry is one pending activation, as returned by Schedule.
type Entry struct {
	Key registry.Key
	Due simtime.Time
}

// New creates an empty scheduler.
func New(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		curve:   DefaultCurve,
		queue:   queue.New[registry.Key](),
		pending: make(map[registry.Key]*queue.Item[registry.Key]),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.curve.Validate(); err != nil {
		return nil, fmt.Errorf("entity: %w", err)
	}
	if !s.start.IsFinite() {
		return nil, fmt.Errorf("entity: start time must be finite, got %s", s.start)
	}

	var regOpts []registry.Option
	if s.keys != nil {
		regOpts = append(regOpts, registry.WithKeyGenerator(s.keys))
	}
	s.reg = registry.New[Actor](regOpts...)
	s.clock = engine.NewClock(s.start)
	s.emit = engine.NewEmitter(s.clock, s.observers...)
	return s, nil
}

// Now returns the current logical time.
func (s *Scheduler) Now() simtime.Time {
	return s.clock.Now()
}

// Curve returns the cooldown curve in use.
func (s *Scheduler) Curve() Curve {
	return s.curve
}

// Pending returns the number of queued activations.
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// Len returns the number of registered actors.
func (s *Scheduler) Len() int {
	return s.reg.Len()
}

// Keys returns the registered keys in ascending order.
func (s *Scheduler) Keys() []registry.Key {
	return s.reg.Keys()
}

// Lookup returns a registered actor.
func (s *Scheduler) Lookup(key registry.Key) (Actor, bool) {
	return s.reg.Lookup(key)
}

// NextDue returns the due time of the next activation.
func (s *Scheduler) NextDue() (simtime.Time, bool) {
	return s.queue.PeekMinTime()
}

// Schedule returns the pending activations in the order they will run.
func (s *Scheduler) Schedule() []Entry {
	items := s.queue.Items()
	out := make([]Entry, len(items))
	for i, it := range items {
		out[i] = Entry{Key: it.Value, Due: it.Due}
	}
	return out
}

// Err returns the error that poisoned the scheduler, or nil.
func (s *Scheduler) Err() error {
	if s.poisoned == nil {
		return nil
	}
	return engine.NewAbortedError(s.causeOf(s.poisoned), s.clock.Now())
}

func (s *Scheduler) causeOf(err error) error {
	if errors.Is(err, errPanicked) {
		return nil
	}
	return err
}

func (s *Scheduler) guard() error {
	if s.poisoned != nil {
		return s.Err()
	}
	if s.stepping {
		return engine.NewReentrantError(s.clock.Now())
	}
	return nil
}

// Add registers actor under key and schedules it at now + cooldown(rate).
func (s *Scheduler) Add(key registry.Key, actor Actor) error {
	return s.AddAt(key, actor, s.clock.Now())
}

// AddAt registers actor and schedules it at at + cooldown(rate).
// at must be finite and not earlier than the clock.
func (s *Scheduler) AddAt(key registry.Key, actor Actor, at simtime.Time) error {
	if err := s.guard(); err != nil {
		return err
	}
	if !at.IsFinite() || at.Before(s.clock.Now()) {
		return engine.NewClockRegressionError(s.clock.Now(), at)
	}
	return s.admit(key, actor, at, "")
}

// admit validates, registers and enqueues a new actor. by names the actor
// that spawned it through a Handle, or is empty for caller admissions.
func (s *Scheduler) admit(key registry.Key, actor Actor, at simtime.Time, by registry.Key) error {
	rate := actor.Rate()
	if !validRate(rate) {
		return engine.NewInvalidRateError(string(key), rate, s.clock.Now())
	}
	if err := s.reg.Insert(key, actor); err != nil {
		return engine.NewDuplicateKeyError(string(key), s.clock.Now())
	}
	if by != "" {
		s.emit.Emit(trace.KindSpawn, string(key), "by", string(by))
		s.logger.Debug("actor spawned", logStr("key", key), logStr("by", by))
	}
	s.enqueue(key, at.Add(s.curve.Cooldown(rate)))
	return nil
}

func (s *Scheduler) enqueue(key registry.Key, due simtime.Time) {
	s.pending[key] = s.queue.Push(key, due)
	s.emit.Emit(trace.KindAdmit, string(key), "due", due.Canonical())
}

// Step runs the next due activation. It returns false with a nil error when
// nothing is pending.
func (s *Scheduler) Step() (Activation, bool, error) {
	if err := s.guard(); err != nil {
		return Activation{}, false, err
	}

	it, ok := s.queue.PopMin()
	if !ok {
		return Activation{}, false, nil
	}
	key := it.Value
	delete(s.pending, key)

	if err := s.clock.AdvanceTo(it.Due); err != nil {
		return Activation{}, false, s.poison(engine.NewInvariantError(string(key), s.clock.Now(),
			"queued activation is earlier than the clock"))
	}
	now := s.clock.Now()

	actor, err := s.reg.CheckOut(key)
	if err != nil {
		return Activation{}, false, s.poison(engine.NewInvariantError(string(key), now,
			"queued key missing from registry"))
	}

	s.emit.Emit(trace.KindActivate, string(key))
	s.logger.Debug("activate", logStr("key", key), logx.Time("t", now))

	h := &Handle{s: s, self: key}
	keep := s.activate(actor, h)

	act := Activation{Key: key, Time: now}
	if !keep {
		s.reg.Release(key)
		s.emit.Emit(trace.KindRetire, string(key))
		s.logger.Debug("retire", logStr("key", key), logx.Time("t", now))
		return act, true, nil
	}

	rate := actor.Rate()
	if !validRate(rate) {
		s.logger.Warn("invalid rate at re-admission, clamped to 0",
			logStr("key", key), logx.Float64("rate", rate), logx.Time("t", now))
		rate = 0
	}
	if err := s.reg.CheckIn(key, actor); err != nil {
		return act, false, s.poison(engine.NewInvariantError(string(key), now, err.Error()))
	}
	act.Readmitted = true
	act.NextDue = now.Add(s.curve.Cooldown(rate))
	s.enqueue(key, act.NextDue)
	return act, true, nil
}

// activate calls the actor with the scheduler marked busy. If the actor
// panics the deferred block poisons the scheduler before the panic unwinds.
func (s *Scheduler) activate(actor Actor, h *Handle) bool {
	s.stepping = true
	completed := false
	defer func() {
		s.stepping = false
		h.done = true
		if !completed {
			s.poisoned = errPanicked
			s.logger.Error("actor panicked, scheduler aborted", logStr("key", h.self), logx.Time("t", s.clock.Now()))
		}
	}()
	keep := actor.Activate(h)
	completed = true
	return keep
}

func (s *Scheduler) poison(err *engine.RuntimeError) error {
	s.poisoned = err
	s.logger.Error("scheduler aborted", logx.Err(err))
	return err
}

func (s *Scheduler) loop() engine.Loop {
	return engine.Loop{
		Name:    "entity",
		Pending: s.Pending,
		Step: func() error {
			_, _, err := s.Step()
			return err
		},
		Quota: s.quota,
	}
}

// RunSteps runs at most n steps and returns how many ran. It stops early
// when the queue empties, ctx is cancelled, the max-steps quota is reached
// or a step fails.
func (s *Scheduler) RunSteps(ctx context.Context, n int) (int, error) {
	if n < 0 {
		n = 0
	}
	if err := s.guard(); err != nil {
		return 0, err
	}
	return s.loop().Run(ctx, n)
}

// RunUntilEmpty steps until no activation is pending. It never returns on
// its own if some actor always re-admits; bound it with ctx or WithMaxSteps.
func (s *Scheduler) RunUntilEmpty(ctx context.Context) (int, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	return s.loop().Run(ctx, -1)
}

func logStr(k string, key registry.Key) logx.Field {
	return logx.String(k, string(key))
}
