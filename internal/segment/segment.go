// Package segment turns a continuous stream of audio chunks into discrete
// utterances. The [Segmenter] is a two-state machine (idle, speaking) driven
// by a per-window speech probability: speech onset starts accumulation,
// sustained silence finalizes the buffer, and a maximum-duration cap bounds
// memory and latency when speech never pauses.
//
// One Segmenter per channel; chunks must be fed in arrival order. The type is
// not safe for concurrent use; each channel pipeline owns its instance
// exclusively.
package segment

import (
	"math"
	"time"
)

// Scorer produces a speech probability in [0, 1] for one analysis window.
// Implementations may be stateful (model-based detectors keep smoothing
// history); Reset clears that state between utterances.
type Scorer interface {
	Score(window []float32) float64
	Reset()
}

// EnergyScorer is the fallback scorer used when no model-based detector is
// available: RMS energy scaled into a pseudo-probability.
type EnergyScorer struct{}

// Score returns min(RMS * 20, 1).
func (EnergyScorer) Score(window []float32) float64 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, s := range window {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(window)))
	return math.Min(rms*20, 1)
}

// Reset is a no-op; the scorer is stateless.
func (EnergyScorer) Reset() {}

// Config holds the segmentation parameters for one channel. All values are
// fixed for the lifetime of the Segmenter.
type Config struct {
	// SampleRate of the incoming audio in Hz.
	SampleRate int

	// WindowSize is the analysis window in samples (512 at 16 kHz). Larger
	// input chunks are split into windows; a trailing remainder is carried
	// over to the next Process call.
	WindowSize int

	// Threshold is the speech probability at or above which a window counts
	// as speech.
	Threshold float64

	// MinSilence is how long sub-threshold audio must persist after speech
	// before the utterance is finalized.
	MinSilence time.Duration

	// MinSpeech is the shortest utterance worth emitting; shorter segments
	// are discarded on finalization.
	MinSpeech time.Duration

	// MaxSpeech bounds a single utterance. Once speech has run this long the
	// buffer is force-flushed, bypassing the MinSpeech floor.
	MaxSpeech time.Duration
}

// Option configures a [Segmenter] during construction.
type Option func(*Segmenter)

// WithClock replaces the time source. Tests use this to drive silence and
// max-duration timers deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Segmenter) { s.now = now }
}

// Segmenter accumulates speech-bearing windows into utterance buffers.
type Segmenter struct {
	cfg    Config
	scorer Scorer
	now    func() time.Time

	speaking     bool
	speechStart  time.Time
	silenceStart time.Time
	buf          []float32
	leftover     []float32
}

// New creates a Segmenter with the given config and scorer. A nil scorer
// falls back to [EnergyScorer].
func New(cfg Config, scorer Scorer, opts ...Option) *Segmenter {
	if scorer == nil {
		scorer = EnergyScorer{}
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 512
	}
	s := &Segmenter{cfg: cfg, scorer: scorer, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Process feeds one chunk of mono samples through the state machine and
// returns a completed utterance, or nil while still collecting. At most one
// utterance is returned per call. Chunks must arrive in capture order.
func (s *Segmenter) Process(chunk []float32) []float32 {
	if len(s.leftover) > 0 {
		chunk = append(s.leftover, chunk...)
		s.leftover = nil
	}

	now := s.now()
	var result []float32

	pos := 0
	for pos+s.cfg.WindowSize <= len(chunk) {
		window := chunk[pos : pos+s.cfg.WindowSize]
		pos += s.cfg.WindowSize

		prob := s.scorer.Score(window)

		if prob >= s.cfg.Threshold {
			s.silenceStart = time.Time{}
			if !s.speaking {
				s.speaking = true
				s.speechStart = now
			}
			s.buf = append(s.buf, window...)
		} else if s.speaking {
			// Trailing silence is part of the utterance.
			s.buf = append(s.buf, window...)

			if s.silenceStart.IsZero() {
				s.silenceStart = now
			} else if now.Sub(s.silenceStart) >= s.cfg.MinSilence {
				if u := s.finalize(); u != nil {
					result = u
				}
				s.Reset()
			}
		}

		// Bound memory and latency for continuous speech: flush whatever is
		// accumulated, skipping the minimum-duration floor.
		if s.speaking && now.Sub(s.speechStart) >= s.cfg.MaxSpeech {
			if len(s.buf) > 0 {
				result = s.take()
			}
			s.Reset()
		}
	}

	if pos < len(chunk) {
		s.leftover = append(s.leftover[:0], chunk[pos:]...)
	}

	return result
}

// finalize returns the buffered utterance if it meets the minimum duration,
// or nil to discard it.
func (s *Segmenter) finalize() []float32 {
	if len(s.buf) == 0 {
		return nil
	}
	dur := time.Duration(float64(len(s.buf)) / float64(s.cfg.SampleRate) * float64(time.Second))
	if dur < s.cfg.MinSpeech {
		return nil
	}
	return s.take()
}

// take hands the accumulated buffer to the caller and detaches it from the
// segmenter so later appends cannot mutate an emitted utterance.
func (s *Segmenter) take() []float32 {
	u := s.buf
	s.buf = nil
	return u
}

// Reset clears all accumulated state: buffers, timers, leftover samples, and
// the scorer's internal history. After Reset the segmenter is equivalent to a
// freshly constructed one.
func (s *Segmenter) Reset() {
	s.buf = nil
	s.leftover = nil
	s.speaking = false
	s.speechStart = time.Time{}
	s.silenceStart = time.Time{}
	s.scorer.Reset()
}

// Speaking reports whether the segmenter is currently accumulating speech.
func (s *Segmenter) Speaking() bool { return s.speaking }
