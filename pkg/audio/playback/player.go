package playback

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxbridge/voxbridge/pkg/audio"
)

const (
	// DefaultQueueSize bounds the number of clips waiting to play.
	DefaultQueueSize = 20

	// defaultLeadIn is how far ahead of audible output the gate arms, so
	// the loopback capture is already suppressed when sound reaches the
	// device.
	defaultLeadIn = 50 * time.Millisecond
)

// Player owns the single playback worker. Clips from both channel pipelines
// funnel through one Player so translated speech never overlaps itself.
type Player struct {
	device     Device
	gate       *audio.Gate
	sampleRate int
	leadIn     time.Duration
	log        *slog.Logger

	clips   chan []float32
	dropped atomic.Int64

	cancel  context.CancelFunc
	done    chan struct{}
	startMu sync.Mutex
	started bool
	stopped bool
}

// Option configures a Player.
type Option func(*Player)

// WithQueueSize overrides the clip queue capacity.
func WithQueueSize(n int) Option {
	return func(p *Player) {
		if n > 0 {
			p.clips = make(chan []float32, n)
		}
	}
}

// WithLeadIn overrides the gate lead-in delay.
func WithLeadIn(d time.Duration) Option {
	return func(p *Player) {
		if d >= 0 {
			p.leadIn = d
		}
	}
}

// WithLogger attaches a logger for drop warnings and playback errors.
func WithLogger(log *slog.Logger) Option {
	return func(p *Player) { p.log = log }
}

// NewPlayer creates a Player. gate may be nil when feedback suppression is
// disabled; sampleRate is the rate of every enqueued clip.
func NewPlayer(device Device, gate *audio.Gate, sampleRate int, opts ...Option) *Player {
	p := &Player{
		device:     device,
		gate:       gate,
		sampleRate: sampleRate,
		leadIn:     defaultLeadIn,
		log:        slog.Default(),
		clips:      make(chan []float32, DefaultQueueSize),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the playback worker. Calling Start twice is a no-op.
func (p *Player) Start() {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx)
}

// Play enqueues a clip without blocking. When the queue is full the clip is
// dropped and false is returned; the caller's utterance is already logged,
// so only a warning is emitted here.
func (p *Player) Play(samples []float32) bool {
	if len(samples) == 0 {
		return true
	}
	select {
	case p.clips <- samples:
		return true
	default:
		n := p.dropped.Add(1)
		p.log.Warn("playback queue full, dropping clip",
			"clip_samples", len(samples),
			"dropped_total", n)
		return false
	}
}

// Dropped reports how many clips were discarded because the queue was full.
func (p *Player) Dropped() int64 { return p.dropped.Load() }

// Stop halts the worker, abandoning the in-flight clip and any queued
// clips, and closes the device. Idempotent.
func (p *Player) Stop() {
	p.startMu.Lock()
	if p.stopped {
		p.startMu.Unlock()
		return
	}
	p.stopped = true
	started := p.started
	p.startMu.Unlock()

	if started {
		p.cancel()
		<-p.done
	}
	if err := p.device.Close(); err != nil {
		p.log.Warn("closing playback device", "error", err)
	}
}

func (p *Player) run(ctx context.Context) {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			return
		case clip := <-p.clips:
			p.playClip(ctx, clip)
		}
	}
}

// playClip arms the gate for the clip's duration plus the gate's safety
// buffer, waits the lead-in so suppression is active before audio is
// audible, then renders the clip.
func (p *Player) playClip(ctx context.Context, clip []float32) {
	duration := time.Duration(float64(len(clip)) / float64(p.sampleRate) * float64(time.Second))
	if p.gate != nil {
		p.gate.Arm(p.leadIn + duration)
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(p.leadIn):
	}

	if err := p.device.Play(ctx, clip); err != nil && ctx.Err() == nil {
		p.log.Error("playback failed", "clip_samples", len(clip), "error", err)
	}
}
