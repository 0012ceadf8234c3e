package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestZeroPeriodDisables(t *testing.T) {
	now := time.Now()
	w := New(func() time.Time { return now })
	fired := false
	w.Schedule("noop", 0, false, func() { fired = true })
	assert.Equal(t, 0, w.Len())
	w.Tick()
	assert.False(t, fired)
}

func TestTaskFiresAfterPeriod(t *testing.T) {
	now := time.Now()
	w := New(func() time.Time { return now })
	count := 0
	w.Schedule("tick", 10*time.Millisecond, false, func() { count++ })

	w.Tick() // too soon, lastTick == now
	assert.Equal(t, 0, count)

	now = now.Add(11 * time.Millisecond)
	w.Tick()
	assert.Equal(t, 1, count)

	now = now.Add(11 * time.Millisecond)
	w.Tick()
	assert.Equal(t, 2, count)
}

func TestOneShotFiresOnceThenDrops(t *testing.T) {
	now := time.Now()
	w := New(func() time.Time { return now })
	count := 0
	w.Schedule("autoexit", 5*time.Millisecond, true, func() { count++ })

	now = now.Add(10 * time.Millisecond)
	w.Tick()
	assert.Equal(t, 1, count)
	assert.Equal(t, 0, w.Len())

	now = now.Add(time.Hour)
	w.Tick()
	assert.Equal(t, 1, count) // never fires again
}
