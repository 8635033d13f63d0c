package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircuitState_Valid(t *testing.T) {
	assert.True(t, StateClosed.Valid())
	assert.True(t, StateOpen.Valid())
	assert.True(t, StateHalfOpen.Valid())
	assert.False(t, CircuitState("").Valid())
	assert.False(t, CircuitState("broken").Valid())
}

func TestWindowedCounts_FailureRatePct(t *testing.T) {
	assert.Equal(t, float64(0), WindowedCounts{}.FailureRatePct())
	assert.Equal(t, float64(50), WindowedCounts{Successes: 2, Failures: 2}.FailureRatePct())
	assert.Equal(t, float64(100), WindowedCounts{Failures: 5}.FailureRatePct())
	assert.InDelta(t, 33.33, WindowedCounts{Successes: 2, Failures: 1}.FailureRatePct(), 0.01)
}

func TestWindowedCounts_Total(t *testing.T) {
	assert.Equal(t, int64(0), WindowedCounts{}.Total())
	assert.Equal(t, int64(7), WindowedCounts{Successes: 4, Failures: 3}.Total())
}
