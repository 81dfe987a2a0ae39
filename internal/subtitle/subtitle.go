// Package subtitle delivers finished translations to the user-facing
// outputs. Every completed utterance becomes an [Entry] and is pushed to
// one or more [Sink] implementations: the terminal display, the websocket
// broadcaster for browser overlays, and the conversation history store.
//
// Sinks must not block the channel pipeline: slow consumers buffer or drop
// internally, never back-pressure into the audio path.
package subtitle

import (
	"context"
	"errors"
	"time"
)

// Entry is one translated utterance ready for display.
type Entry struct {
	// Channel identifies the capture side the speech came from ("mic",
	// "loopback").
	Channel string `json:"channel"`

	// SourceLang and TargetLang are the translation direction as
	// configured for the channel.
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`

	// Original is the raw transcript, Translated the rendered target text.
	// Translated may carry an inline error marker when translation failed.
	Original   string `json:"original"`
	Translated string `json:"translated"`

	// At is when the utterance finished processing.
	At time.Time `json:"at"`
}

// Sink receives entries for display or storage. Implementations must be
// safe for concurrent use; both channel pipelines share one sink chain.
type Sink interface {
	Show(ctx context.Context, entry Entry) error
}

// Multi fans an entry out to several sinks. A failing sink does not stop
// delivery to the others; all failures are joined into the returned error.
type Multi []Sink

var _ Sink = Multi(nil)

// Show delivers the entry to every sink in order.
func (m Multi) Show(ctx context.Context, entry Entry) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Show(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
