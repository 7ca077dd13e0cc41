package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errSMTP = errors.New("smtp: connection refused")

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("smtp", CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errSMTP }), errSMTP)
	}
	assert.Equal(t, CBOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("smtp", CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errSMTP })
	assert.Equal(t, CBOpen, cb.State())

	now = now.Add(61 * time.Second)
	assert.Equal(t, CBHalfOpen, cb.State())

	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBHalfOpen, cb.State())
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("smtp", CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errSMTP })
	now = now.Add(2 * time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())

	_ = cb.Execute(func() error { return errSMTP })
	assert.Equal(t, CBOpen, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("smtp", CircuitBreakerConfig{FailureThreshold: 2})
	_ = cb.Execute(func() error { return errSMTP })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errSMTP })
	assert.Equal(t, CBClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}
