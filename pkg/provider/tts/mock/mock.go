// Package mock provides a test double for the tts package.
package mock

import (
	"context"
	"sync"

	"github.com/voxbridge/voxbridge/pkg/provider/tts"
)

// Compile-time interface check.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// Call records a single invocation of Synthesize.
type Call struct {
	Text     string
	Language string
}

// Synthesizer is a mock implementation of tts.Synthesizer. Thread-safe.
type Synthesizer struct {
	mu sync.Mutex

	// Audio is the sample slice returned from Synthesize. When nil, a short
	// non-empty clip is returned so callers exercise their playback path.
	Audio []float32

	// Err, if non-nil, is returned as the error from Synthesize.
	Err error

	// Langs is returned from Languages. Defaults to ["en"].
	Langs []string

	// Calls records every Synthesize invocation in order.
	Calls []Call
}

// Synthesize records the call and returns the configured audio.
func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, Call{Text: text, Language: language})

	if s.Err != nil {
		return nil, s.Err
	}
	if text == "" {
		return nil, nil
	}
	if s.Audio != nil {
		return s.Audio, nil
	}
	return make([]float32, 160), nil
}

// Languages returns Langs, defaulting to ["en"].
func (s *Synthesizer) Languages() []string {
	if len(s.Langs) == 0 {
		return []string{"en"}
	}
	return s.Langs
}

// CallCount returns the number of recorded calls. Thread-safe.
func (s *Synthesizer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
