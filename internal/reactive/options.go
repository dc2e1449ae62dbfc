package reactive

import (
	"fmt"

	"github.com/roach88/chrona/internal/engine"
	"github.com/roach88/chrona/internal/logx"
)

// Option configures a Machine.
type Option func(*config)

type config struct {
	logger    logx.Logger
	observers []engine.Observer
	maxSteps  int
	format    func(any) string
}

// WithLogger sets the logger. Default: a no-op logger.
func WithLogger(l logx.Logger) Option {
	return func(c *config) {
		c.logger = l.With(logx.String("scheduler", "reactive"))
	}
}

// WithObserver registers an observer for trace events. May be repeated.
func WithObserver(o engine.Observer) Option {
	return func(c *config) {
		c.observers = append(c.observers, o)
	}
}

// WithMaxSteps bounds Run and RunSteps to n steps in total.
// Zero or less means unbounded.
func WithMaxSteps(n int) Option {
	return func(c *config) {
		c.maxSteps = n
	}
}

// WithStateFormatter sets how states are rendered in trace events.
// Default: fmt.Sprint.
func WithStateFormatter(f func(any) string) Option {
	return func(c *config) {
		c.format = f
	}
}

func defaultConfig() config {
	return config{format: func(v any) string { return fmt.Sprint(v) }}
}
