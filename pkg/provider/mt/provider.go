// Package mt defines the Translator interface for machine-translation
// backends.
//
// A translator converts transcript text between languages. Voxbridge calls
// it once per utterance, off the capture path, so per-call latency in the
// hundreds of milliseconds is acceptable.
//
// Implementations must be safe for concurrent use: both channel pipelines
// share one translator instance.
package mt

import "context"

// Pair names a source→target language combination a channel depends on.
type Pair struct {
	Source string
	Target string
}

// Translator converts text between languages.
type Translator interface {
	// Translate returns text rendered from sourceLang into targetLang.
	// When sourceLang equals targetLang the input is returned unchanged
	// without contacting the backend. An empty input yields an empty output.
	//
	// On backend failure, implementations return a non-empty visibly marked
	// string containing the original text (so subtitles still show
	// something) together with the error. Callers log the error and may
	// still display the marked result.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// PairVerifier is implemented by translators that can check at startup
// whether the language pairs a run depends on are actually available.
type PairVerifier interface {
	// VerifyPairs probes each pair with a short test translation and
	// returns an error describing every pair that failed. Pairs with equal
	// source and target are skipped.
	VerifyPairs(ctx context.Context, pairs []Pair) error
}
