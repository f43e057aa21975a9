// Package stability watches a scalar signal for convergence.
//
// Callers feed one observation per engine step (typically the included
// mass or the conservation error) and ask whether the last K successive
// changes stayed within epsilon. History is bounded so a long-running
// session never grows it without limit.
package stability

import "math"

// DefaultMaxHistory bounds the retained observation window.
const DefaultMaxHistory = 100

// Checker accumulates observations and reports convergence.
type Checker struct {
	epsilon    float64
	k          int
	maxHistory int
	history    []float64
}

// NewChecker creates a checker requiring k consecutive deltas within
// epsilon. k must be positive and epsilon non-negative; out-of-range
// arguments are clamped to the smallest valid values.
func NewChecker(epsilon float64, k int) *Checker {
	if epsilon < 0 {
		epsilon = 0
	}
	if k < 1 {
		k = 1
	}
	return &Checker{
		epsilon:    epsilon,
		k:          k,
		maxHistory: DefaultMaxHistory,
	}
}

// Observe appends one observation, evicting the oldest beyond the
// history bound.
func (c *Checker) Observe(value float64) {
	c.history = append(c.history, value)
	if len(c.history) > c.maxHistory {
		c.history = c.history[len(c.history)-c.maxHistory:]
	}
}

// Converged reports whether the last k successive deltas are all within
// epsilon. Fewer than k+1 observations is never converged.
func (c *Checker) Converged() bool {
	if len(c.history) < c.k+1 {
		return false
	}
	tail := c.history[len(c.history)-c.k-1:]
	for i := 1; i < len(tail); i++ {
		if math.Abs(tail[i]-tail[i-1]) > c.epsilon {
			return false
		}
	}
	return true
}

// Last returns the most recent observation, or 0 when empty.
func (c *Checker) Last() float64 {
	if len(c.history) == 0 {
		return 0
	}
	return c.history[len(c.history)-1]
}

// Len returns the number of retained observations.
func (c *Checker) Len() int { return len(c.history) }

// Reset discards all history.
func (c *Checker) Reset() { c.history = c.history[:0] }
