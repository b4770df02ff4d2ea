/*
Package clock abstracts wall-clock reads and one-shot timers so the playback
timeline and ticket expiry can run against simulated time in tests.
*/
package clock

import (
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the subset of the time package the zone depends on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f in its own goroutine (real) or during Advance (fake)
	// once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop cancels the call. It reports false if the call already fired or
	// was stopped before.
	Stop() bool
}

// Real returns the wall clock.
func Real() Clock { return realClock{clockwork.NewRealClock()} }

type realClock struct {
	clockwork.Clock
}

func (c realClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.Clock.AfterFunc(d, f)
}

// Fake is a deterministic Clock. Time moves only when Advance is called.
// Callbacks run synchronously inside Advance, one deadline at a time, and
// observe Now() equal to their own deadline. A callback must not call
// Advance.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeTimer
}

// NewFake returns a Fake clock set to initial.
func NewFake(initial time.Time) *Fake {
	return &Fake{current: initial}
}

type fakeTimer struct {
	clock    *Fake
	deadline time.Time
	callback func()
	done     bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Now returns the fake time.
func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc registers f to fire once the clock has advanced by d. A
// non-positive d fires on the next Advance, including Advance(0).
func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d < 0 {
		d = 0
	}
	timer := &fakeTimer{clock: c, deadline: c.current.Add(d), callback: f}
	c.waiters = append(c.waiters, timer)
	return timer
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, w := range c.waiters {
		if !w.done {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d. It steps through every deadline
// at or before the target in order, setting the clock to that deadline
// before running the callback, so a timer armed by a callback counts from
// the deadline that fired it and fires within the same Advance if it is due.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()

	for {
		w := c.popDue(target)
		if w == nil {
			break
		}
		w.callback()
	}

	c.mu.Lock()
	c.current = target
	c.mu.Unlock()
}

// popDue removes the earliest live timer due at or before target, moves the
// clock to its deadline and returns it. Timers with equal deadlines come out
// in registration order.
func (c *Fake) popDue(target time.Time) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waiters = slices.DeleteFunc(c.waiters, func(w *fakeTimer) bool { return w.done })

	next := -1
	for i, w := range c.waiters {
		if w.deadline.After(target) {
			continue
		}
		if next < 0 || w.deadline.Before(c.waiters[next].deadline) {
			next = i
		}
	}
	if next < 0 {
		return nil
	}

	w := c.waiters[next]
	c.waiters = slices.Delete(c.waiters, next, next+1)
	w.done = true
	if w.deadline.After(c.current) {
		c.current = w.deadline
	}
	return w
}
