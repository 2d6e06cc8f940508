package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(5, 0, 10))
	assert.Equal(t, 0, Clamp(-3, 0, 10))
	assert.Equal(t, 10, Clamp(42, 0, 10))
	assert.Equal(t, 1.5, Clamp(1.5, 1.0, 2.0))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 50.0, Percent(1, 2))
	assert.Equal(t, 0.0, Percent(0, 4))
	assert.Equal(t, 0.0, Percent(3, 0))
	// Never exceeds the range even when n > d.
	assert.Equal(t, 100.0, Percent(5, 2))
	assert.Equal(t, 0.0, Percent(-1, 2))
}

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, 33, RoundPercent(33.4))
	assert.Equal(t, 34, RoundPercent(33.5))
	assert.Equal(t, 100, RoundPercent(120.0))
	assert.Equal(t, 0, RoundPercent(-2.0))
}
