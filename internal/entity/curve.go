package entity

import (
	"fmt"
	"math"

	"github.com/roach88/chrona/internal/simtime"
)

// Curve maps an actor's rate to the delay until its next activation.
type Curve struct {
	Scale float64 // cooldown at rate 0
	K     float64 // how strongly rate shortens the cooldown
}

// DefaultCurve is 100 / (0.01·rate + 1).
var DefaultCurve = Curve{Scale: 100, K: 0.01}

// Cooldown returns Scale / (K·rate + 1). For a valid curve and a finite
// non-negative rate the result is positive and strictly decreasing in rate.
func (c Curve) Cooldown(rate float64) simtime.Time {
	return simtime.Time(c.Scale / (c.K*rate + 1))
}

// Validate checks that the curve yields positive, finite cooldowns.
func (c Curve) Validate() error {
	if math.IsNaN(c.Scale) || math.IsInf(c.Scale, 0) || c.Scale <= 0 {
		return fmt.Errorf("cooldown scale must be positive and finite, got %v", c.Scale)
	}
	if math.IsNaN(c.K) || math.IsInf(c.K, 0) || c.K < 0 {
		return fmt.Errorf("cooldown k must be non-negative and finite, got %v", c.K)
	}
	return nil
}

// validRate reports whether rate is finite and non-negative.
func validRate(rate float64) bool {
	return !math.IsNaN(rate) && !math.IsInf(rate, 0) && rate >= 0
}
