package engine

import (
	"github.com/roach88/chrona/internal/simtime"
)

// Clock is the logical clock of one run.
//
// It tracks two things:
//   - Now: the logical time, which only ever moves forward
//   - Seq: a strictly increasing counter stamped on every trace event
//
// Thread-safety: Clock is NOT safe for concurrent use; it belongs to exactly
// one single-threaded scheduler.
type Clock struct {
	now simtime.Time
	seq uint64
}

// NewClock creates a clock at the given start time with seq 0.
func NewClock(start simtime.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current logical time.
func (c *Clock) Now() simtime.Time {
	return c.now
}

// AdvanceTo moves the clock to t. Moving to the current time is allowed;
// moving backwards, or to a non-finite time, fails with CLOCK_REGRESSION and
// leaves the clock unchanged.
func (c *Clock) AdvanceTo(t simtime.Time) error {
	if !t.IsFinite() || t.Before(c.now) {
		return NewClockRegressionError(c.now, t)
	}
	c.now = t
	return nil
}

// NextSeq returns the next sequence number. The first call returns 1.
func (c *Clock) NextSeq() uint64 {
	c.seq++
	return c.seq
}

// Seq returns the last sequence number handed out.
func (c *Clock) Seq() uint64 {
	return c.seq
}
