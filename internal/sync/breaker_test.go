package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker(3)
	assert.Equal(t, BreakerClosed, b.State())
	assert.True(t, b.Allow())

	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.Allow())
	assert.Equal(t, 2, b.ConsecutiveFailures())

	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	b := NewBreaker(3)
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	assert.Equal(t, 0, b.ConsecutiveFailures())

	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.Allow())
}

func TestBreakerNeverHalfOpens(t *testing.T) {
	b := NewBreaker(1)
	b.RecordFailure()
	assert.False(t, b.Allow())

	// A late success must not close an open breaker within the same run.
	b.RecordSuccess()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerDefaultThreshold(t *testing.T) {
	b := NewBreaker(0)
	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow())
}
