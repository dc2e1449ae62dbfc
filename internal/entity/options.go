package entity

import (
	"github.com/roach88/chrona/internal/engine"
	"github.com/roach88/chrona/internal/logx"
	"github.com/roach88/chrona/internal/registry"
	"github.com/roach88/chrona/internal/simtime"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Default: a no-op logger.
func WithLogger(l logx.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l.With(logx.String("scheduler", "entity"))
	}
}

// WithObserver registers an observer for trace events. May be repeated.
func WithObserver(o engine.Observer) Option {
	return func(s *Scheduler) {
		s.observers = append(s.observers, o)
	}
}

// WithCurve overrides DefaultCurve.
func WithCurve(c Curve) Option {
	return func(s *Scheduler) {
		s.curve = c
	}
}

// WithMaxSteps bounds RunSteps and RunUntilEmpty to n steps in total.
// Zero or less means unbounded.
func WithMaxSteps(n int) Option {
	return func(s *Scheduler) {
		s.quota = engine.NewQuotaEnforcer(n)
	}
}

// WithKeyGenerator sets the generator behind Handle.NextFreshKey.
func WithKeyGenerator(g registry.KeyGenerator) Option {
	return func(s *Scheduler) {
		s.keys = g
	}
}

// WithStartTime sets the initial clock value. Default: 0.
func WithStartTime(t simtime.Time) Option {
	return func(s *Scheduler) {
		s.start = t
	}
}
