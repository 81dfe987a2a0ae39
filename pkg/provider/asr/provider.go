// Package asr defines the Recognizer interface for speech-to-text backends.
//
// A recognizer wraps a transcription engine (e.g., a whisper.cpp model) and
// exposes a single batch operation: complete utterance in, transcript text
// out. Voxbridge feeds it only segmented utterances, never a raw stream, so
// the interface is deliberately synchronous; streaming partials are an
// engine concern that never reaches the pipeline.
//
// Implementations must be safe for concurrent use: both channel pipelines
// share one recognizer instance. Engines whose native contexts are not
// reentrant must serialize internally.
package asr

import "context"

// Recognizer converts one segmented utterance into text.
type Recognizer interface {
	// Recognize transcribes samples (mono float32 PCM at the pipeline sample
	// rate) in the given BCP-47 language. It returns the transcript text,
	// which may be empty when the engine heard nothing intelligible; an
	// empty transcript is not an error.
	//
	// Returns an error only for engine-level failures (model not loaded,
	// inference fault, ctx cancelled). Callers treat errors as "drop this
	// utterance", never as fatal.
	Recognize(ctx context.Context, samples []float32, language string) (string, error)
}
