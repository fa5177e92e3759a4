package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_AdvanceAndSet(t *testing.T) {
	c := newFakeClock(100)
	assert.Equal(t, int64(100), c.NowMS())

	c.Advance(50)
	assert.Equal(t, int64(150), c.NowMS())

	c.Set(0)
	assert.Equal(t, int64(0), c.NowMS())
}

func TestSystemClock_Monotonic(t *testing.T) {
	c := systemClock{}
	first := c.NowMS()
	for i := 0; i < 1000; i++ {
		next := c.NowMS()
		if next < first {
			t.Fatalf("clock moved backward: %d then %d", first, next)
		}
		first = next
	}
}
