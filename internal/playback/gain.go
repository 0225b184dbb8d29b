package playback

import (
	"sync"
	"time"
)

// Gain scales samples routed through it. A ramp replaces any previous
// ramp; outside the ramp window the node holds a constant value.
type Gain struct {
	mu        sync.Mutex
	base      float32
	target    float32
	rampStart time.Duration
	rampEnd   time.Duration
}

// NewGain returns a unity gain node.
func NewGain() *Gain {
	return &Gain{base: 1, target: 1}
}

// Set pins the node to a constant value, cancelling any ramp.
func (g *Gain) Set(v float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.base = v
	g.target = v
	g.rampStart = 0
	g.rampEnd = 0
}

// RampTo schedules a linear ramp from the node's value at start to v at end.
func (g *Gain) RampTo(v float32, start, end time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if end <= start {
		g.base = v
		g.target = v
		g.rampStart = 0
		g.rampEnd = 0
		return
	}
	g.base = g.valueAtLocked(start)
	g.target = v
	g.rampStart = start
	g.rampEnd = end
}

// ValueAt reports the gain applied to a sample rendered at time t.
func (g *Gain) ValueAt(t time.Duration) float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.valueAtLocked(t)
}

func (g *Gain) valueAtLocked(t time.Duration) float32 {
	if g.rampEnd <= g.rampStart || t <= g.rampStart {
		return g.base
	}
	if t >= g.rampEnd {
		return g.target
	}
	progress := float32(t-g.rampStart) / float32(g.rampEnd-g.rampStart)
	return g.base + (g.target-g.base)*progress
}
