package util

import (
	"sync"
	"time"
)

// WakeTimer is a resettable one-shot timer used for scheduling wake-ups at
// varying horizons. Arming an already-armed timer replaces the pending
// wake-up; it never fires more than once per arm. It's thread-safe and
// handles the stop/drain timer edge cases properly.
//
// Example usage:
//
//	w := NewWakeTimer(func() { scheduler.Tick() })
//	defer w.Stop()
//
//	w.Arm(150 * time.Millisecond) // one-shot wake just before frames are due
//	...
//	w.Disarm() // leaving the playing state cancels any pending wake
type WakeTimer struct {
	fire func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewWakeTimer creates a disarmed timer that invokes fire on expiry.
func NewWakeTimer(fire func()) *WakeTimer {
	return &WakeTimer{fire: fire}
}

// Arm schedules the callback to run after d, replacing any pending wake-up.
// A non-positive duration fires as soon as the runtime allows.
func (w *WakeTimer) Arm(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if d < 0 {
		d = 0
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(d, w.fire)
}

// Disarm cancels any pending wake-up without stopping the timer for good.
func (w *WakeTimer) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Stop disarms the timer and prevents further arming.
// It's safe to call Stop multiple times.
func (w *WakeTimer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.stopped = true
}
