package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/chrona/internal/simtime"
)

// RuntimeError represents an error detected by a scheduler.
//
// Runtime errors include:
//   - Caller misuse: duplicate key, invalid rate or delay, clock regression
//   - Re-entrant Step from inside an activation or action
//   - Quota exceeded: a run went past its max steps limit
//   - Invariant violation: queue and registry disagree (fatal)
//   - Aborted: the scheduler was poisoned by an earlier fatal error
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Key identifies the actor or action concerned, if any.
	Key string

	// Time is the logical clock when the error was detected.
	Time simtime.Time

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeDuplicateKey indicates Add/Insert with a key already in use.
	ErrCodeDuplicateKey RuntimeErrorCode = "DUPLICATE_KEY"

	// ErrCodeInvalidRate indicates a negative, NaN or infinite rate.
	ErrCodeInvalidRate RuntimeErrorCode = "INVALID_RATE"

	// ErrCodeInvalidDelay indicates a negative or non-finite action delay.
	ErrCodeInvalidDelay RuntimeErrorCode = "INVALID_DELAY"

	// ErrCodeClockRegression indicates an attempt to move the clock backwards.
	ErrCodeClockRegression RuntimeErrorCode = "CLOCK_REGRESSION"

	// ErrCodeInvariantViolation indicates internal state no longer agrees with itself.
	ErrCodeInvariantViolation RuntimeErrorCode = "INVARIANT_VIOLATION"

	// ErrCodeQuotaExceeded indicates the run exceeded max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeAborted indicates the scheduler was poisoned by an earlier failure.
	ErrCodeAborted RuntimeErrorCode = "ABORTED"

	// ErrCodeReentrantStep indicates Step was called while a step was in progress.
	ErrCodeReentrantStep RuntimeErrorCode = "REENTRANT_STEP"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (key=%s, t=%s)", e.Code, e.Message, e.Key, e.Time.Canonical())
	}
	return fmt.Sprintf("%s: %s (t=%s)", e.Code, e.Message, e.Time.Canonical())
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// CodeOf returns the code of the first RuntimeError in err's chain, or "".
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	if IsStepsExceededError(err) {
		return ErrCodeQuotaExceeded
	}
	return ""
}

// IsDuplicateKey returns true if the error is a duplicate key error.
// Uses errors.As to handle wrapped errors.
func IsDuplicateKey(err error) bool {
	return hasCode(err, ErrCodeDuplicateKey)
}

// IsInvalidRate returns true if the error is an invalid rate error.
func IsInvalidRate(err error) bool {
	return hasCode(err, ErrCodeInvalidRate)
}

// IsInvalidDelay returns true if the error is an invalid delay error.
func IsInvalidDelay(err error) bool {
	return hasCode(err, ErrCodeInvalidDelay)
}

// IsClockRegression returns true if the error is a clock regression error.
func IsClockRegression(err error) bool {
	return hasCode(err, ErrCodeClockRegression)
}

// IsInvariantViolation returns true if the error is an invariant violation.
func IsInvariantViolation(err error) bool {
	return hasCode(err, ErrCodeInvariantViolation)
}

// IsAborted returns true if the scheduler refused work because it was poisoned.
func IsAborted(err error) bool {
	return hasCode(err, ErrCodeAborted)
}

// IsReentrant returns true if the error is a re-entrant step error.
func IsReentrant(err error) bool {
	return hasCode(err, ErrCodeReentrantStep)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	if hasCode(err, ErrCodeQuotaExceeded) {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// NewDuplicateKeyError creates a RuntimeError for a key already in use.
func NewDuplicateKeyError(key string, now simtime.Time) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDuplicateKey,
		Message: "key already registered",
		Key:     key,
		Time:    now,
	}
}

// NewInvalidRateError creates a RuntimeError for an unusable rate.
func NewInvalidRateError(key string, rate float64, now simtime.Time) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidRate,
		Message: "rate must be a finite non-negative number",
		Key:     key,
		Time:    now,
		Details: map[string]string{
			"rate": strconv.FormatFloat(rate, 'g', -1, 64),
		},
	}
}

// NewInvalidDelayError creates a RuntimeError for an unusable action delay.
func NewInvalidDelayError(name string, delay simtime.Time, now simtime.Time) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidDelay,
		Message: "delay must be a finite non-negative number",
		Key:     name,
		Time:    now,
		Details: map[string]string{
			"delay": delay.Canonical(),
		},
	}
}

// NewClockRegressionError creates a RuntimeError for a backwards clock move.
func NewClockRegressionError(now, requested simtime.Time) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeClockRegression,
		Message: fmt.Sprintf("cannot move clock from %s to %s", now.Canonical(), requested.Canonical()),
		Time:    now,
		Details: map[string]string{
			"requested": requested.Canonical(),
		},
	}
}

// NewInvariantError creates a RuntimeError for a broken internal invariant.
func NewInvariantError(key string, now simtime.Time, message string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvariantViolation,
		Message: message,
		Key:     key,
		Time:    now,
	}
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(steps, maxSteps int, now simtime.Time) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("run exceeded max steps (%d > %d)", steps, maxSteps),
		Time:    now,
		Details: map[string]string{
			"steps":     strconv.Itoa(steps),
			"max_steps": strconv.Itoa(maxSteps),
		},
	}
}

// NewAbortedError creates a RuntimeError for a poisoned scheduler.
// cause is the error that poisoned it, or nil if a panic did.
func NewAbortedError(cause error, now simtime.Time) *RuntimeError {
	msg := "scheduler aborted by a panic in a callback"
	if cause != nil {
		msg = "scheduler aborted: " + cause.Error()
	}
	return &RuntimeError{
		Code:    ErrCodeAborted,
		Message: msg,
		Time:    now,
	}
}

// NewReentrantError creates a RuntimeError for a nested Step call.
func NewReentrantError(now simtime.Time) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeReentrantStep,
		Message: "step called from inside a step",
		Time:    now,
	}
}
