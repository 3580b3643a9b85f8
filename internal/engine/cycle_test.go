package engine

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycleDetector_Record(t *testing.T) {
	c := NewCycleDetector()

	_, seen := c.Record(big.NewInt(12), 0)
	assert.False(t, seen)
	_, seen = c.Record(big.NewInt(18), 1)
	assert.False(t, seen)

	first, seen := c.Record(big.NewInt(12), 2)
	assert.True(t, seen)
	assert.Equal(t, int64(0), first)

	// The earliest occurrence is kept.
	first, _ = c.Record(big.NewInt(12), 3)
	assert.Equal(t, int64(0), first)
}

func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}
