// Package channel runs one direction of the conversation: it drains a
// capture queue, segments the stream into utterances, and carries each
// utterance through recognition, translation, subtitles, and synthesis.
//
// Every channel owns exactly one goroutine. Utterances are processed inline
// on that goroutine, which keeps ordering strict per channel while the
// engines themselves serialize shared access internally. A failure anywhere
// in an utterance is logged, counted, and dropped; the loop itself only
// stops when its context does.
package channel

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voxbridge/voxbridge/internal/observe"
	"github.com/voxbridge/voxbridge/internal/segment"
	"github.com/voxbridge/voxbridge/internal/subtitle"
	"github.com/voxbridge/voxbridge/internal/transcript"
	"github.com/voxbridge/voxbridge/pkg/audio"
	"github.com/voxbridge/voxbridge/pkg/provider/asr"
	"github.com/voxbridge/voxbridge/pkg/provider/mt"
	"github.com/voxbridge/voxbridge/pkg/provider/tts"
)

// Player accepts synthesized clips for playback. Implemented by
// [playback.Player].
type Player interface {
	Play(samples []float32) bool
}

// Config assembles one pipeline. All fields except Synthesizer and Metrics
// are required.
type Config struct {
	// Name labels the channel in logs, subtitles, and metrics.
	Name string

	// SourceLang is the language spoken on this channel, TargetLang the
	// language it is translated into.
	SourceLang string
	TargetLang string

	// SampleRate is the pipeline rate of queued audio.
	SampleRate int

	Queue      *audio.Queue
	Segmenter  *segment.Segmenter
	Recognizer asr.Recognizer
	Translator mt.Translator

	// Synthesizer may be nil; the channel is then subtitle-only.
	Synthesizer tts.Synthesizer

	Filter *transcript.Filter
	Sink   subtitle.Sink
	Player Player

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	Log *slog.Logger
}

// Pipeline drives one channel. Create with [New], run with [Pipeline.Run].
type Pipeline struct {
	cfg Config
	log *slog.Logger
	met *observe.Metrics

	lastDropped int64
	lastDepth   int64
}

// New creates a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	met := cfg.Metrics
	if met == nil {
		met = observe.DefaultMetrics()
	}
	return &Pipeline{
		cfg: cfg,
		log: log.With("channel", cfg.Name),
		met: met,
	}
}

// Run drains the capture queue until ctx is cancelled. It always returns
// ctx's error; per-utterance failures never propagate.
func (p *Pipeline) Run(ctx context.Context) error {
	p.met.ActivePipelines.Add(ctx, 1)
	defer p.met.ActivePipelines.Add(context.WithoutCancel(ctx), -1)

	p.log.Info("pipeline started",
		"source_lang", p.cfg.SourceLang,
		"target_lang", p.cfg.TargetLang)

	for {
		chunk, ok := p.cfg.Queue.Pop(ctx)
		if !ok {
			p.log.Info("pipeline stopped")
			return ctx.Err()
		}
		p.updateQueueMetrics(ctx)

		if utterance := p.cfg.Segmenter.Process(chunk.Samples); utterance != nil {
			p.processUtterance(ctx, utterance)
		}
	}
}

// updateQueueMetrics publishes queue depth and chunk drops as deltas. Run is
// the only caller, so the last-seen fields need no locking.
func (p *Pipeline) updateQueueMetrics(ctx context.Context) {
	attrs := metric.WithAttributes(attribute.String("channel", p.cfg.Name))

	if depth := int64(p.cfg.Queue.Len()); depth != p.lastDepth {
		p.met.QueueDepth.Add(ctx, depth-p.lastDepth, attrs)
		p.lastDepth = depth
	}
	if dropped := p.cfg.Queue.Dropped(); dropped > p.lastDropped {
		p.met.DroppedChunks.Add(ctx, dropped-p.lastDropped, attrs)
		p.log.Warn("capture queue overflow", "dropped_total", dropped)
		p.lastDropped = dropped
	}
}

// processUtterance runs one utterance through the full stage chain. Each
// stage that produces nothing usable ends the utterance early; errors are
// confined to the utterance.
func (p *Pipeline) processUtterance(ctx context.Context, samples []float32) {
	started := time.Now()
	seconds := float64(len(samples)) / float64(p.cfg.SampleRate)
	p.log.Debug("utterance closed", "duration_s", seconds)

	// Recognition.
	asrStart := time.Now()
	text, err := p.cfg.Recognizer.Recognize(ctx, samples, p.cfg.SourceLang)
	p.met.RecordStage(ctx, p.met.ASRDuration, p.cfg.Name, "asr", time.Since(asrStart), err)
	if err != nil {
		p.log.Error("recognition failed", "error", err)
		p.met.RecordUtterance(ctx, p.cfg.Name, "error")
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		p.met.RecordUtterance(ctx, p.cfg.Name, "empty")
		return
	}

	// Hallucination and echo filtering.
	if reason, drop := p.cfg.Filter.Reject(p.cfg.Name, text); drop {
		p.log.Debug("transcript rejected", "reason", reason, "text", text)
		p.met.RecordFiltered(ctx, p.cfg.Name, string(reason))
		p.met.RecordUtterance(ctx, p.cfg.Name, "filtered")
		return
	}

	// Translation. On failure the returned text carries an inline error
	// marker: it still reaches the subtitles, but is never synthesized.
	mtStart := time.Now()
	translated, mtErr := p.cfg.Translator.Translate(ctx, text, p.cfg.SourceLang, p.cfg.TargetLang)
	p.met.RecordStage(ctx, p.met.MTDuration, p.cfg.Name, "mt", time.Since(mtStart), mtErr)
	if mtErr != nil {
		p.log.Error("translation failed", "error", mtErr, "text", text)
	}
	if strings.TrimSpace(translated) == "" {
		p.met.RecordUtterance(ctx, p.cfg.Name, "empty")
		return
	}

	p.show(ctx, text, translated)

	if mtErr != nil {
		p.met.RecordUtterance(ctx, p.cfg.Name, "error")
		return
	}

	if !p.synthesize(ctx, translated) {
		p.met.RecordUtterance(ctx, p.cfg.Name, "error")
		return
	}

	p.met.UtteranceDuration.Record(ctx, time.Since(started).Seconds(),
		metric.WithAttributes(attribute.String("channel", p.cfg.Name)))
	p.met.RecordUtterance(ctx, p.cfg.Name, "ok")
}

func (p *Pipeline) show(ctx context.Context, original, translated string) {
	entry := subtitle.Entry{
		Channel:    p.cfg.Name,
		SourceLang: p.cfg.SourceLang,
		TargetLang: p.cfg.TargetLang,
		Original:   original,
		Translated: translated,
		At:         time.Now(),
	}
	if err := p.cfg.Sink.Show(ctx, entry); err != nil {
		p.log.Warn("subtitle delivery failed", "error", err)
	}
}

// synthesize renders the translation and hands it to the player. A missing
// voice for the target language is a configuration state, not an error; the
// channel stays subtitle-only.
func (p *Pipeline) synthesize(ctx context.Context, translated string) bool {
	if p.cfg.Synthesizer == nil {
		return true
	}

	ttsStart := time.Now()
	clip, err := p.cfg.Synthesizer.Synthesize(ctx, translated, p.cfg.TargetLang)
	if err != nil {
		if errors.Is(err, tts.ErrNoVoice) {
			p.log.Debug("no voice for target language", "target_lang", p.cfg.TargetLang)
			p.met.RecordStage(ctx, p.met.TTSDuration, p.cfg.Name, "tts", time.Since(ttsStart), nil)
			return true
		}
		p.met.RecordStage(ctx, p.met.TTSDuration, p.cfg.Name, "tts", time.Since(ttsStart), err)
		p.log.Error("synthesis failed", "error", err)
		return false
	}
	p.met.RecordStage(ctx, p.met.TTSDuration, p.cfg.Name, "tts", time.Since(ttsStart), nil)
	if len(clip) == 0 {
		return true
	}

	// Remember what we are about to speak so the other channel can filter
	// out echoes of it.
	p.cfg.Filter.RecordSpoken(p.cfg.Name, translated)

	if !p.cfg.Player.Play(clip) {
		p.met.DroppedClips.Add(ctx, 1,
			metric.WithAttributes(attribute.String("channel", p.cfg.Name)))
	}
	return true
}
