// Package mock provides a test double for the asr package.
//
// Use Recognizer to inject transcript results and inspect the utterances
// that were submitted:
//
//	rec := &mock.Recognizer{Result: "hello world"}
//	text, _ := rec.Recognize(ctx, samples, "en")
package mock

import (
	"context"
	"sync"

	"github.com/voxbridge/voxbridge/pkg/provider/asr"
)

// Compile-time interface check.
var _ asr.Recognizer = (*Recognizer)(nil)

// Call records a single invocation of Recognize.
type Call struct {
	// Samples is the utterance passed to Recognize.
	Samples []float32

	// Language is the language code passed to Recognize.
	Language string
}

// Recognizer is a mock implementation of asr.Recognizer. Thread-safe.
type Recognizer struct {
	mu sync.Mutex

	// Result is returned from every Recognize call when Results is empty.
	Result string

	// Results, when non-empty, is consumed one entry per call (the last
	// entry repeats once exhausted).
	Results []string

	// Err, if non-nil, is returned as the error from Recognize.
	Err error

	// Calls records every invocation in order.
	Calls []Call
}

// Recognize records the call and returns the configured result.
func (r *Recognizer) Recognize(ctx context.Context, samples []float32, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := make([]float32, len(samples))
	copy(cp, samples)
	r.Calls = append(r.Calls, Call{Samples: cp, Language: language})

	if r.Err != nil {
		return "", r.Err
	}
	if len(r.Results) > 0 {
		idx := len(r.Calls) - 1
		if idx >= len(r.Results) {
			idx = len(r.Results) - 1
		}
		return r.Results[idx], nil
	}
	return r.Result, nil
}

// CallCount returns the number of recorded calls. Thread-safe.
func (r *Recognizer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}
