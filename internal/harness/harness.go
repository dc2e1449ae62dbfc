package harness

import (
	"context"
	"fmt"

	"github.com/roach88/chrona/internal/engine"
	"github.com/roach88/chrona/internal/entity"
	"github.com/roach88/chrona/internal/logx"
	"github.com/roach88/chrona/internal/reactive"
	"github.com/roach88/chrona/internal/registry"
	"github.com/roach88/chrona/internal/simtime"
	"github.com/roach88/chrona/internal/trace"
)

// EngineVersion is stored with every persisted run. Bump it whenever a change
// alters the traces existing scenarios produce.
const EngineVersion = "chrona/1"

// DefaultMaxSteps bounds scenarios that set no max_steps.
const DefaultMaxSteps = 10000

// Option configures Run.
type Option func(*options)

type options struct {
	logger    logx.Logger
	observers []engine.Observer
	curve     *entity.Curve
	maxSteps  int
	keys      registry.KeyGenerator
	pace      func(context.Context) error
}

// WithLogger sets the logger handed to the scheduler.
func WithLogger(l logx.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver receives every trace event as it is emitted. May be repeated.
func WithObserver(obs engine.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithCurve sets the cooldown curve for scenarios without a cooldown block.
func WithCurve(c entity.Curve) Option {
	return func(o *options) { o.curve = &c }
}

// WithMaxSteps overrides the scenario's max_steps when n > 0.
func WithMaxSteps(n int) Option {
	return func(o *options) { o.maxSteps = n }
}

// WithKeyGenerator sets the generator behind spawns without an explicit key.
func WithKeyGenerator(g registry.KeyGenerator) Option {
	return func(o *options) { o.keys = g }
}

// WithPacer calls wait before every step; a non-nil error stops the run.
// The CLI uses it to throttle runs to wall-clock time.
func WithPacer(wait func(context.Context) error) Option {
	return func(o *options) { o.pace = wait }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build the scheduler the scenario's kind asks for
// 2. Step it until the queue is empty or max_steps is reached
// 3. Evaluate assertions against the trace and final state
//
// A scheduler failure is returned as an error; failed assertions are not
// errors and are reported through Result.Pass and Result.Errors.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	maxSteps := s.MaxSteps
	if o.maxSteps > 0 {
		maxSteps = o.maxSteps
	}
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}

	rec := trace.NewRecorder()
	observers := append([]engine.Observer{rec}, o.observers...)
	log := o.logger.With(logx.String("scenario", s.Name))

	var (
		result *Result
		err    error
	)
	switch s.Kind {
	case KindEntity:
		result, err = runEntity(ctx, s, o, observers, maxSteps, log)
	case KindReactive:
		result, err = runReactive(ctx, s, o, observers, maxSteps, log)
	}
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result.Trace = rec.Events()
	if result.Digest, err = trace.Digest(result.Trace); err != nil {
		return nil, fmt.Errorf("scenario %s: digest: %w", s.Name, err)
	}

	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}
	log.Info("scenario finished",
		logx.Int("steps", result.Steps),
		logx.Time("t", result.FinalTime),
		logx.Bool("pass", result.Pass),
		logx.Bool("truncated", result.Truncated))
	return result, nil
}

// drive steps until the queue empties or the quota is hit. Hitting the quota
// marks the result truncated instead of failing the run.
func drive(ctx context.Context, name string, pending func() int, step func() error,
	maxSteps int, pace func(context.Context) error, result *Result) error {
	if pace != nil {
		inner := step
		step = func() error {
			if err := pace(ctx); err != nil {
				return err
			}
			return inner()
		}
	}
	loop := engine.Loop{
		Name:    name,
		Pending: pending,
		Step:    step,
		Quota:   engine.NewQuotaEnforcer(maxSteps),
	}
	n, err := loop.Run(ctx, -1)
	result.Steps = n
	if engine.IsStepsExceededError(err) {
		result.Truncated = true
		return nil
	}
	return err
}

func runEntity(ctx context.Context, s *Scenario, o options, observers []engine.Observer,
	maxSteps int, log logx.Logger) (*Result, error) {
	curve := entity.DefaultCurve
	if o.curve != nil {
		curve = *o.curve
	}
	if s.Cooldown != nil {
		curve = entity.Curve{Scale: s.Cooldown.Scale, K: s.Cooldown.K}
	}

	eopts := []entity.Option{
		entity.WithLogger(log),
		entity.WithCurve(curve),
		entity.WithStartTime(simtime.Time(s.StartTime)),
	}
	for _, obs := range observers {
		eopts = append(eopts, entity.WithObserver(obs))
	}
	if o.keys != nil {
		eopts = append(eopts, entity.WithKeyGenerator(o.keys))
	}
	sched, err := entity.New(eopts...)
	if err != nil {
		return nil, err
	}

	var fail error
	for _, spec := range s.Actors {
		if err := sched.Add(entity.Key(spec.Key), newScriptActor(spec, &fail)); err != nil {
			return nil, err
		}
	}

	result := NewResult()
	step := func() error {
		if _, _, err := sched.Step(); err != nil {
			return err
		}
		return fail
	}
	if err := drive(ctx, s.Name, sched.Pending, step, maxSteps, o.pace, result); err != nil {
		return nil, err
	}

	result.FinalTime = sched.Now()
	keys := sched.Keys()
	result.Actors = make([]string, len(keys))
	for i, k := range keys {
		result.Actors[i] = string(k)
	}
	return result, nil
}

func runReactive(ctx context.Context, s *Scenario, o options, observers []engine.Observer,
	maxSteps int, log logx.Logger) (*Result, error) {
	ropts := []reactive.Option{reactive.WithLogger(log)}
	for _, obs := range observers {
		ropts = append(ropts, reactive.WithObserver(obs))
	}

	m, err := reactive.New(*s.InitialState, triggerTable(s.Triggers), simtime.Time(s.StartTime), ropts...)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	step := func() error {
		_, _, err := m.Step()
		return err
	}
	if err := drive(ctx, s.Name, m.Pending, step, maxSteps, o.pace, result); err != nil {
		return nil, err
	}

	result.FinalTime = m.Now()
	result.FinalState = fmt.Sprint(m.State())
	return result, nil
}

// triggerTable turns the scenario's trigger list into a reactive.Trigger.
// States without an entry trigger nothing.
func triggerTable(specs []TriggerSpec) reactive.Trigger[int64] {
	table := make(map[int64][]reactive.Action[int64], len(specs))
	for _, tr := range specs {
		actions := make([]reactive.Action[int64], len(tr.Actions))
		for i, a := range tr.Actions {
			actions[i] = reactive.After(a.Name, simtime.Time(a.Delay), arithmetic(a.Op, a.Operand))
		}
		table[tr.State] = actions
	}
	return func(state int64) []reactive.Action[int64] {
		return table[state]
	}
}

func arithmetic(op string, n int64) func(int64) int64 {
	switch op {
	case OpAdd:
		return func(s int64) int64 { return s + n }
	case OpSub:
		return func(s int64) int64 { return s - n }
	case OpMul:
		return func(s int64) int64 { return s * n }
	case OpSet:
		return func(int64) int64 { return n }
	}
	return nil
}
