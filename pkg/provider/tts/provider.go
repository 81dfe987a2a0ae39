// Package tts defines the Synthesizer interface for text-to-speech backends.
//
// A synthesizer renders translated text into mono float32 audio at the
// pipeline sample rate, ready for the shared playback worker. Synthesis is
// batch per utterance: voxbridge utterances are short, so streaming synthesis
// buys nothing over one call per clip.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
)

// ErrNoVoice is returned by Synthesize when no voice is configured or
// available for the requested language. Callers treat it as "no audio output
// for this utterance", not as a failure.
var ErrNoVoice = errors.New("tts: no voice available for language")

// Synthesizer renders text into speech audio.
type Synthesizer interface {
	// Synthesize returns mono float32 PCM at the pipeline sample rate for
	// text spoken in language. Returns [ErrNoVoice] when the language has no
	// configured voice. Empty text yields (nil, nil).
	Synthesize(ctx context.Context, text, language string) ([]float32, error)

	// Languages returns the language codes that currently have a usable
	// voice, in no particular order.
	Languages() []string
}
