package clockx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock(t *testing.T) {
	t.Run("due timers fire in scheduling order", func(t *testing.T) {
		c := NewFake()
		var fired []string
		c.AfterFunc(2*time.Second, func() { fired = append(fired, "second") })
		c.AfterFunc(time.Second, func() { fired = append(fired, "first") })

		c.Advance(500 * time.Millisecond)
		assert.Empty(t, fired)

		c.Advance(2 * time.Second)
		assert.Equal(t, []string{"second", "first"}, fired)
	})

	t.Run("stopped timers never fire", func(t *testing.T) {
		c := NewFake()
		var fired bool
		timer := c.AfterFunc(time.Second, func() { fired = true })

		assert.True(t, timer.Stop())
		assert.False(t, timer.Stop(), "second stop reports already stopped")

		c.Advance(2 * time.Second)
		assert.False(t, fired)
	})

	t.Run("now advances", func(t *testing.T) {
		c := NewFake()
		start := c.Now()
		c.Advance(time.Hour)
		assert.Equal(t, start.Add(time.Hour), c.Now())
	})
}
