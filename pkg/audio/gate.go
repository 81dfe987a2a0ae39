package audio

import (
	"sync/atomic"
	"time"
)

// Gate is the feedback-prevention window between synthesized-audio playback
// and loopback capture. The player arms the gate for the duration of each
// clip before playback starts; the loopback capture callback checks
// [Gate.Armed] and drops blocks while the gate is live, so translated speech
// coming out of the speakers is never re-captured and re-translated.
//
// The deadline only moves forward: concurrent Arm calls never shorten an
// active window. Arm uses a compare-and-swap loop and Armed is a single
// atomic load, so the capture callback never contends on a mutex.
type Gate struct {
	epoch  time.Time
	buffer time.Duration

	// until is the gate deadline in nanoseconds since epoch.
	until atomic.Int64
}

// NewGate creates a Gate with the given safety buffer. The buffer is added on
// top of every armed duration to cover playback-tail bleed and gate
// propagation latency.
func NewGate(safetyBuffer time.Duration) *Gate {
	return &Gate{epoch: time.Now(), buffer: safetyBuffer}
}

// Arm extends the gate so it stays closed for at least d plus the safety
// buffer from now. The deadline is the monotonic max of the current deadline
// and the new request. Safe for concurrent use.
func (g *Gate) Arm(d time.Duration) {
	deadline := int64(time.Since(g.epoch) + d + g.buffer)
	for {
		cur := g.until.Load()
		if deadline <= cur {
			return
		}
		if g.until.CompareAndSwap(cur, deadline) {
			return
		}
	}
}

// Armed reports whether the gate is currently closed. Wait-free; safe to
// call from a real-time audio callback.
func (g *Gate) Armed() bool {
	return int64(time.Since(g.epoch)) < g.until.Load()
}

// Remaining returns how long the gate stays closed from now, or zero when it
// is open.
func (g *Gate) Remaining() time.Duration {
	rem := time.Duration(g.until.Load()) - time.Since(g.epoch)
	if rem < 0 {
		return 0
	}
	return rem
}
