package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowUnlimitedWhenCeilingZero(t *testing.T) {
	l := New()

	for i := 0; i < 1000; i++ {
		assert.True(t, l.Allow("coingecko", 0))
	}
	assert.Equal(t, 0, l.Used("coingecko"))
}

func TestAllowStopsAtCeiling(t *testing.T) {
	l := New()

	for i := 0; i < 25; i++ {
		assert.True(t, l.Allow("alphavantage", 25), "call %d should be allowed", i)
	}
	assert.False(t, l.Allow("alphavantage", 25))
	assert.Equal(t, 25, l.Used("alphavantage"))
}

func TestWindowResetsAtUTCMidnight(t *testing.T) {
	l := New()
	current := time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	assert.True(t, l.Allow("metalsapi", 1))
	assert.False(t, l.Allow("metalsapi", 1))

	current = current.Add(2 * time.Minute)

	assert.True(t, l.Allow("metalsapi", 1))
	assert.Equal(t, 1, l.Used("metalsapi"))
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()

	assert.True(t, l.Allow("a", 1))
	assert.False(t, l.Allow("a", 1))
	assert.True(t, l.Allow("b", 1))
}
