package filter

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTriggerCoalescesBursts(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	trigger := NewTrigger(50*time.Millisecond, func() { fired.Add(1) })
	defer trigger.Stop()

	for i := 0; i < 10; i++ {
		trigger.Signal()
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired %d times, want 1 for a burst", got)
	}

	// A later signal fires again.
	trigger.Signal()
	time.Sleep(150 * time.Millisecond)
	if got := fired.Load(); got != 2 {
		t.Fatalf("fired %d times, want 2", got)
	}
}

func TestTriggerStop(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	trigger := NewTrigger(20*time.Millisecond, func() { fired.Add(1) })

	trigger.Signal()
	trigger.Stop()
	trigger.Signal()

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("stopped trigger fired %d times", got)
	}
}
