package filter

import (
	"sync"
	"time"
)

// Trigger coalesces bursts of discovery signals into a single
// processing attempt fired after a quiet period. Edge-triggered: each
// Signal restarts the quiet window.
type Trigger struct {
	mu      sync.Mutex
	quiet   time.Duration
	fire    func()
	timer   *time.Timer
	stopped bool
}

// NewTrigger builds a trigger that invokes fire once per quiet window.
func NewTrigger(quiet time.Duration, fire func()) *Trigger {
	return &Trigger{quiet: quiet, fire: fire}
}

// Signal notes a discovery change and (re)arms the quiet timer.
func (t *Trigger) Signal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.quiet, t.fire)
}

// Stop disarms the trigger; subsequent signals are ignored.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
