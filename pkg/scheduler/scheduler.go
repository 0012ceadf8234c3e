// Package scheduler implements the periodic task table driving fleet-wide
// orchestration: the source of this design rebuilds timers by iterating
// a table at startup and never restarts them, so this package keeps
// exactly that shape rather than reaching for one timer per peer.
package scheduler

import "time"

// Task is one periodic (or one-shot) callback.
type Task struct {
	Name     string
	Period   time.Duration
	OneShot  bool
	Fn       func()
	fired    bool
	lastTick time.Time
}

// Wheel holds every scheduled task and advances them from a single tick
// source.
type Wheel struct {
	tasks []*Task
	now   func() time.Time
}

// New builds an empty wheel. now is injectable so tests can control time
// without sleeping.
func New(now func() time.Time) *Wheel {
	if now == nil {
		now = time.Now
	}
	return &Wheel{now: now}
}

// Schedule adds a task. A zero period disables it entirely; Schedule is a no-op for such
// tasks so Tick never considers them.
func (w *Wheel) Schedule(name string, period time.Duration, oneShot bool, fn func()) {
	if period <= 0 {
		return
	}
	w.tasks = append(w.tasks, &Task{Name: name, Period: period, OneShot: oneShot, Fn: fn, lastTick: w.now()})
}

// Tick checks every task against the current time and fires any that are
// due. One-shot tasks are removed from future consideration once fired
//.
func (w *Wheel) Tick() {
	now := w.now()
	remaining := w.tasks[:0]
	for _, t := range w.tasks {
		if now.Sub(t.lastTick) >= t.Period {
			t.lastTick = now
			t.fired = true
			t.Fn()
		}
		if !(t.OneShot && t.fired) {
			remaining = append(remaining, t)
		}
	}
	w.tasks = remaining
}

// Len reports how many tasks are still scheduled (one-shot tasks that
// have fired are excluded). Exposed for tests and diagnostics.
func (w *Wheel) Len() int {
	return len(w.tasks)
}
