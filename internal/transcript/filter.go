// Package transcript post-processes ASR output before it enters the
// translation stage. Streaming speech recognition over an always-open
// microphone produces two kinds of junk that must never be translated or
// spoken aloud: hallucinated filler (models emit stock phrases like "thanks
// for watching" on silence or noise) and echoes, where one channel's
// synthesized output leaks into the other channel's capture and comes back
// as a near-identical transcript.
//
// The [Filter] rejects blank and punctuation-only transcripts, known filler
// phrases, and transcripts whose Jaro-Winkler similarity to recently
// synthesized speech on another channel exceeds a configurable threshold.
package transcript

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultEchoThreshold = 0.88
	defaultEchoWindow    = 15 * time.Second
)

// Reason classifies why a transcript was rejected.
type Reason string

const (
	ReasonBlank  Reason = "blank"
	ReasonFiller Reason = "filler"
	ReasonEcho   Reason = "echo"
)

// fillerPhrases are stock hallucinations emitted by speech models on
// silence or noise, compared after normalization.
var fillerPhrases = func() map[string]struct{} {
	phrases := []string{
		"you",
		"uh",
		"um",
		"hmm",
		"bye",
		"bye bye",
		"thank you",
		"thanks",
		"thanks for watching",
		"thank you for watching",
		"thank you so much for watching",
		"please subscribe",
		"subtitles by the amara org community",
	}
	set := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		set[p] = struct{}{}
	}
	return set
}()

// Option is a functional option for configuring a [Filter].
type Option func(*Filter)

// WithEchoThreshold sets the minimum Jaro-Winkler similarity between a
// transcript and recently synthesized speech for the transcript to count as
// an echo. Default: 0.88.
func WithEchoThreshold(threshold float64) Option {
	return func(f *Filter) { f.echoThreshold = threshold }
}

// WithEchoWindow sets how long synthesized speech stays eligible for echo
// comparison. Default: 15s.
func WithEchoWindow(window time.Duration) Option {
	return func(f *Filter) { f.echoWindow = window }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) { f.now = now }
}

type spoken struct {
	normalized string
	at         time.Time
}

// Filter rejects transcripts that should not reach translation. Safe for
// concurrent use by multiple channel pipelines.
type Filter struct {
	echoThreshold float64
	echoWindow    time.Duration
	now           func() time.Time

	mu     sync.Mutex
	recent map[string]spoken // channel name -> last synthesized text
}

// NewFilter returns a Filter configured with the supplied options.
func NewFilter(opts ...Option) *Filter {
	f := &Filter{
		echoThreshold: defaultEchoThreshold,
		echoWindow:    defaultEchoWindow,
		now:           time.Now,
		recent:        make(map[string]spoken),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Reject reports whether the transcript from the named channel should be
// dropped, and why. A false result means the transcript may proceed to
// translation.
func (f *Filter) Reject(channel, text string) (Reason, bool) {
	normalized := normalize(text)
	if normalized == "" {
		return ReasonBlank, true
	}
	if _, ok := fillerPhrases[normalized]; ok {
		return ReasonFiller, true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := f.now().Add(-f.echoWindow)
	for ch, sp := range f.recent {
		if ch == channel {
			continue
		}
		if sp.at.Before(cutoff) {
			delete(f.recent, ch)
			continue
		}
		if matchr.JaroWinkler(normalized, sp.normalized, false) >= f.echoThreshold {
			return ReasonEcho, true
		}
	}
	return "", false
}

// RecordSpoken notes that text was synthesized on the named channel, making
// it the echo reference for the other channels.
func (f *Filter) RecordSpoken(channel, text string) {
	normalized := normalize(text)
	if normalized == "" {
		return
	}
	f.mu.Lock()
	f.recent[channel] = spoken{normalized: normalized, at: f.now()}
	f.mu.Unlock()
}

// normalize lowercases, strips everything but letters, digits and spaces,
// and collapses runs of whitespace. A transcript that normalizes to the
// empty string carried no speech content.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
