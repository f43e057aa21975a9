package stability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConverged_RequiresKStableDeltas(t *testing.T) {
	c := NewChecker(0.01, 3)

	for _, v := range []float64{1.0, 0.5, 0.25} {
		c.Observe(v)
	}
	assert.False(t, c.Converged(), "deltas still large")

	for i := 0; i < 3; i++ {
		c.Observe(0.25)
	}
	assert.True(t, c.Converged())

	// One jump resets the streak.
	c.Observe(0.5)
	assert.False(t, c.Converged())
}

func TestConverged_NeedsEnoughHistory(t *testing.T) {
	c := NewChecker(1, 5)
	for i := 0; i < 5; i++ {
		c.Observe(0)
		assert.False(t, c.Converged(), "observation %d", i)
	}
	c.Observe(0)
	assert.True(t, c.Converged())
}

func TestHistoryBounded(t *testing.T) {
	c := NewChecker(0.01, 2)
	for i := 0; i < 5*DefaultMaxHistory; i++ {
		c.Observe(float64(i))
	}
	assert.Equal(t, DefaultMaxHistory, c.Len())
	assert.Equal(t, float64(5*DefaultMaxHistory-1), c.Last())
}

func TestReset(t *testing.T) {
	c := NewChecker(0.01, 1)
	c.Observe(1)
	c.Observe(1)
	assert.True(t, c.Converged())

	c.Reset()
	assert.Zero(t, c.Len())
	assert.False(t, c.Converged())
	assert.Zero(t, c.Last())
}

func TestNewChecker_ClampsArguments(t *testing.T) {
	c := NewChecker(-1, 0)
	c.Observe(1)
	c.Observe(1)
	assert.True(t, c.Converged(), "epsilon clamps to 0, k to 1")
}
