package simtime

import (
	"fmt"
	"math"
	"strconv"
)

// Time is a point (or an interval) on the logical timeline.
type Time float64

// Zero is the conventional start of a run.
const Zero Time = 0

// Add returns t+d.
func (t Time) Add(d Time) Time {
	return t + d
}

// Sub returns t-u.
func (t Time) Sub(u Time) Time {
	return t - u
}

// Before reports whether t is strictly earlier than u.
func (t Time) Before(u Time) bool {
	return t < u
}

// After reports whether t is strictly later than u.
func (t Time) After(u Time) bool {
	return t > u
}

// Compare returns -1, 0 or +1 depending on whether t is before, equal to or
// after u.
func (t Time) Compare(u Time) int {
	switch {
	case t < u:
		return -1
	case t > u:
		return 1
	default:
		return 0
	}
}

// IsFinite reports whether t is neither NaN nor infinite.
func (t Time) IsFinite() bool {
	f := float64(t)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Float64 returns t as a plain float64.
func (t Time) Float64() float64 {
	return float64(t)
}

// Canonical returns the shortest decimal representation that round-trips.
func (t Time) Canonical() string {
	return strconv.FormatFloat(float64(t), 'g', -1, 64)
}

// String implements fmt.Stringer.
func (t Time) String() string {
	return t.Canonical()
}

// Parse is the inverse of Canonical.
func Parse(s string) (Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	return Time(f), nil
}

// Within reports whether t and u differ by no more than tol.
func Within(t, u, tol Time) bool {
	return math.Abs(float64(t-u)) <= float64(tol)
}
