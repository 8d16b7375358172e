// Package batch coalesces rapid-fire messages from one user in one
// channel into a single logical turn. The debounce itself is a small
// reusable keyed-timer primitive; the batcher layers the accumulation
// semantics on top.
package batch

import (
	"sync"
	"time"
)

// Debouncer schedules one delayed task per key with cancel-then-set
// reschedule semantics: every Schedule for a live key cancels the pending
// fire and re-arms it. An optional max-wait ceiling bounds total deferral
// so a steady stream of reschedules cannot starve the task forever.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]*debounceEntry
}

type debounceEntry struct {
	timer    *time.Timer
	deadline time.Time // zero = no ceiling
	gen      uint64
}

// NewDebouncer creates an empty Debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{pending: make(map[string]*debounceEntry)}
}

// Schedule arms (or re-arms) the task for key to fire after window.
// maxWait, when positive, caps the total delay measured from the first
// Schedule of this key's current cycle. fn runs on the timer goroutine.
func (d *Debouncer) Schedule(key string, window, maxWait time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.pending[key]
	if !ok {
		e = &debounceEntry{}
		if maxWait > 0 {
			e.deadline = time.Now().Add(maxWait)
		}
		d.pending[key] = e
	} else {
		// Cancel-then-set: a stale fire must never observe the old state.
		e.timer.Stop()
		e.gen++
	}

	delay := window
	if !e.deadline.IsZero() {
		if until := time.Until(e.deadline); until < delay {
			delay = until
			if delay < 0 {
				delay = 0
			}
		}
	}

	gen := e.gen
	e.timer = time.AfterFunc(delay, func() {
		if d.claim(key, gen) {
			fn()
		}
	})
}

// claim removes the entry if it is still the scheduled generation,
// returning whether the caller owns the fire.
func (d *Debouncer) claim(key string, gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.pending[key]
	if !ok || e.gen != gen {
		return false
	}
	delete(d.pending, key)
	return true
}

// Cancel drops the pending task for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.pending[key]; ok {
		e.timer.Stop()
		delete(d.pending, key)
	}
}

// Pending reports whether a task is scheduled for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}
