package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError_Predicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
		code RuntimeErrorCode
	}{
		{"duplicate", NewDuplicateKeyError("a", 1), IsDuplicateKey, ErrCodeDuplicateKey},
		{"rate", NewInvalidRateError("a", -1, 0), IsInvalidRate, ErrCodeInvalidRate},
		{"delay", NewInvalidDelayError("inc", -2, 0), IsInvalidDelay, ErrCodeInvalidDelay},
		{"regression", NewClockRegressionError(5, 4), IsClockRegression, ErrCodeClockRegression},
		{"invariant", NewInvariantError("a", 3, "missing"), IsInvariantViolation, ErrCodeInvariantViolation},
		{"aborted", NewAbortedError(nil, 0), IsAborted, ErrCodeAborted},
		{"reentrant", NewReentrantError(0), IsReentrant, ErrCodeReentrantStep},
		{"quota", NewQuotaError(3, 2, 0), IsQuotaError, ErrCodeQuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.is(tt.err))
			assert.True(t, tt.is(fmt.Errorf("wrapped: %w", tt.err)), "predicates see through wrapping")
			assert.Equal(t, tt.code, CodeOf(tt.err))
			assert.False(t, tt.is(errors.New("plain")))
		})
	}
}

func TestRuntimeError_Error(t *testing.T) {
	err := NewDuplicateKeyError("goblin", 12.5)
	assert.Equal(t, "DUPLICATE_KEY: key already registered (key=goblin, t=12.5)", err.Error())

	err = NewClockRegressionError(10, 9)
	assert.Equal(t, "CLOCK_REGRESSION: cannot move clock from 10 to 9 (t=10)", err.Error())
}

func TestRuntimeError_Details(t *testing.T) {
	err := NewInvalidRateError("a", -0.5, 0)
	assert.Equal(t, "-0.5", err.Details["rate"])

	q := NewQuotaError(11, 10, 0)
	assert.Equal(t, "11", q.Details["steps"])
	assert.Equal(t, "10", q.Details["max_steps"])
}

func TestNewAbortedError_WithCause(t *testing.T) {
	cause := NewInvariantError("ghost", 4, "queued key missing from registry")
	err := NewAbortedError(cause, 4)
	assert.Contains(t, err.Message, "INVARIANT_VIOLATION")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeQuotaExceeded, CodeOf(&StepsExceededError{}))
	assert.Equal(t, RuntimeErrorCode(""), CodeOf(errors.New("plain")))
}
