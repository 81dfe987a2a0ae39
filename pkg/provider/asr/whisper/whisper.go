// Package whisper implements asr.Recognizer on top of the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH.
//
// The model is loaded once at startup and shared by both channel pipelines.
// whisper.cpp inference contexts are not reentrant, so Recognize serializes
// all inference behind a mutex; that is also what keeps one shared engine
// safe across channels.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/voxbridge/voxbridge/pkg/provider/asr"
)

// Compile-time interface check.
var _ asr.Recognizer = (*Recognizer)(nil)

const defaultLanguage = "en"

// Option is a functional option for configuring a [Recognizer].
type Option func(*Recognizer)

// WithLanguage sets the fallback language used when Recognize is called with
// an empty language code. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(r *Recognizer) { r.language = lang }
}

// WithTranslateToEnglish enables whisper's built-in translate-to-English
// mode. Voxbridge normally keeps this off and routes text through its own
// translation stage instead.
func WithTranslateToEnglish(enabled bool) Option {
	return func(r *Recognizer) { r.translate = enabled }
}

// Recognizer is a whisper.cpp-backed speech recognizer.
type Recognizer struct {
	mu        sync.Mutex
	model     whisperlib.Model
	language  string
	translate bool
}

// New loads the whisper.cpp model at modelPath. The caller must Close the
// recognizer when done to release native memory.
func New(modelPath string, opts ...Option) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	r := &Recognizer{model: model, language: defaultLanguage}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Close releases the model. The recognizer must not be used afterwards.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model != nil {
		err := r.model.Close()
		r.model = nil
		return err
	}
	return nil
}

// Recognize runs whisper.cpp inference over one utterance and returns the
// concatenated segment text. Inference is serialized: concurrent callers
// queue behind the mutex.
func (r *Recognizer) Recognize(ctx context.Context, samples []float32, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(samples) == 0 {
		return "", nil
	}
	if language == "" {
		language = r.language
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.model == nil {
		return "", errors.New("whisper: recognizer is closed")
	}

	wctx, err := r.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(language); err != nil {
		return "", fmt.Errorf("whisper: set language %q: %w", language, err)
	}
	wctx.SetTranslate(r.translate)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}
