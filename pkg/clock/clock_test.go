package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock_AdvanceAndSet(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	assert.Equal(t, start, c.Now())

	c.Advance(5 * time.Second)
	assert.Equal(t, start.Add(5*time.Second), c.Now())

	later := start.Add(time.Hour)
	c.Set(later)
	assert.Equal(t, later, c.Now())
}

func TestRealClock_Monotonic(t *testing.T) {
	var c Clock = RealClock{}
	a := c.Now()
	b := c.Now()
	assert.False(t, b.Before(a))
}
