// Package app wires all voxbridge subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the capture and pipeline loops, and Shutdown
// tears everything down in order.
//
// For testing, inject doubles via functional options (WithPlayer,
// WithSourceFactory, WithSink, WithRecorder). When an option is not
// provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/voxbridge/voxbridge/internal/channel"
	"github.com/voxbridge/voxbridge/internal/config"
	"github.com/voxbridge/voxbridge/internal/history"
	"github.com/voxbridge/voxbridge/internal/observe"
	"github.com/voxbridge/voxbridge/internal/segment"
	"github.com/voxbridge/voxbridge/internal/subtitle"
	"github.com/voxbridge/voxbridge/internal/transcript"
	"github.com/voxbridge/voxbridge/pkg/audio"
	"github.com/voxbridge/voxbridge/pkg/audio/capture"
	"github.com/voxbridge/voxbridge/pkg/audio/playback"
	"github.com/voxbridge/voxbridge/pkg/provider/asr"
	"github.com/voxbridge/voxbridge/pkg/provider/mt"
	"github.com/voxbridge/voxbridge/pkg/provider/tts"
)

// Providers holds the engine behind each pipeline stage. TTS may be nil;
// the bridge then runs subtitle-only.
type Providers struct {
	ASR asr.Recognizer
	MT  mt.Translator
	TTS tts.Synthesizer
}

// Source is one live capture stream. Implemented by [capture.Source];
// tests inject fakes.
type Source interface {
	Start() error
	Stop()
}

// SourceFactory builds the capture source for one configured channel. The
// queue receives the channel's chunks; gate is non-nil for loopback
// channels.
type SourceFactory func(ch config.ChannelConfig, audioCfg config.AudioConfig, q *audio.Queue, gate *audio.Gate) (Source, error)

// Player accepts synthesized clips and controls the playback worker.
type Player interface {
	channel.Player
	Start()
	Stop()
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	gate        *audio.Gate
	player      Player
	sourceFor   SourceFactory
	sink        subtitle.Sink
	broadcaster *subtitle.Broadcaster
	recorder    history.Recorder

	sources   []namedSource
	pipelines []*channel.Pipeline

	// closers are called in order during Shutdown.
	closers []func()

	stopOnce sync.Once
}

type namedSource struct {
	name string
	src  Source
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithPlayer injects a playback player instead of opening a real output
// device.
func WithPlayer(p Player) Option {
	return func(a *App) { a.player = p }
}

// WithSourceFactory injects a capture source factory instead of opening
// real PortAudio streams.
func WithSourceFactory(f SourceFactory) Option {
	return func(a *App) { a.sourceFor = f }
}

// WithSink injects the subtitle sink chain instead of building it from the
// outputs config.
func WithSink(s subtitle.Sink) Option {
	return func(a *App) { a.sink = s }
}

// WithRecorder injects a history recorder instead of connecting to the
// configured database.
func WithRecorder(r history.Recorder) Option {
	return func(a *App) { a.recorder = r }
}

// New creates an App by wiring all subsystems together. The providers
// struct comes from main.go. Use Option functions to inject test doubles
// for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		gate:      audio.NewGate(cfg.Audio.GateBuffer()),
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initSink(ctx); err != nil {
		return nil, fmt.Errorf("app: init outputs: %w", err)
	}
	if err := a.initPlayer(); err != nil {
		return nil, fmt.Errorf("app: init playback: %w", err)
	}
	if err := a.initChannels(); err != nil {
		return nil, fmt.Errorf("app: init channels: %w", err)
	}
	return a, nil
}

// initSink builds the subtitle sink chain from the outputs config unless one
// was injected.
func (a *App) initSink(ctx context.Context) error {
	var sinks subtitle.Multi

	if a.sink != nil {
		sinks = append(sinks, a.sink)
	} else {
		if a.cfg.Outputs.Terminal.Enabled {
			sinks = append(sinks, subtitle.NewDisplay(os.Stdout, a.cfg.Outputs.Terminal.Color))
		}
		if a.cfg.Outputs.WebSocket.Enabled {
			a.broadcaster = subtitle.NewBroadcaster(slog.Default())
			sinks = append(sinks, a.broadcaster)
			a.closers = append(a.closers, a.broadcaster.Close)
		}
	}

	if a.recorder == nil && a.cfg.History.PostgresDSN != "" {
		store, err := history.NewStore(ctx, a.cfg.History.PostgresDSN)
		if err != nil {
			return err
		}
		a.recorder = store
		a.closers = append(a.closers, store.Close)
		slog.Info("conversation history enabled")
	}
	if a.recorder != nil {
		histSink := history.NewSink(a.recorder, slog.Default())
		sinks = append(sinks, histSink)
		a.closers = append(a.closers, histSink.Close)
	}

	if len(sinks) == 0 {
		slog.Warn("no subtitle outputs enabled")
	}
	a.sink = sinks
	return nil
}

// initPlayer opens the output device and creates the playback worker unless
// a player was injected.
func (a *App) initPlayer() error {
	if a.player != nil {
		return nil
	}

	var (
		dev *playback.PortAudioDevice
		err error
	)
	if idx := a.cfg.Playback.DeviceIndex; idx >= 0 {
		dev, err = playback.Open(idx, a.cfg.Audio.SampleRate)
	} else {
		dev, err = playback.OpenDefault(a.cfg.Audio.SampleRate)
	}
	if err != nil {
		return err
	}

	a.player = playback.NewPlayer(dev, a.gate, a.cfg.Audio.SampleRate,
		playback.WithQueueSize(a.cfg.Playback.QueueSize),
		playback.WithLeadIn(a.cfg.Playback.LeadIn()),
	)
	return nil
}

// initChannels builds the per-channel queue, segmenter, source, and
// pipeline.
func (a *App) initChannels() error {
	if a.sourceFor == nil {
		a.sourceFor = defaultSourceFactory
	}

	filter := transcript.NewFilter(
		transcript.WithEchoThreshold(a.cfg.Filter.EchoThreshold),
		transcript.WithEchoWindow(a.cfg.Filter.EchoWindow()),
	)

	for _, ch := range a.cfg.Channels {
		queue := audio.NewQueue(a.cfg.Audio.QueueSize)

		var gate *audio.Gate
		if ch.Kind == config.KindLoopback {
			gate = a.gate
		}
		src, err := a.sourceFor(ch, a.cfg.Audio, queue, gate)
		if err != nil {
			return fmt.Errorf("channel %q: %w", ch.Name, err)
		}
		a.sources = append(a.sources, namedSource{name: ch.Name, src: src})

		seg := segment.New(segment.Config{
			SampleRate: a.cfg.Audio.SampleRate,
			WindowSize: a.cfg.VAD.WindowSize,
			Threshold:  a.cfg.VAD.Threshold,
			MinSilence: a.cfg.VAD.MinSilence(),
			MinSpeech:  a.cfg.VAD.MinSpeech(),
			MaxSpeech:  a.cfg.VAD.MaxSpeech(),
		}, nil)

		a.pipelines = append(a.pipelines, channel.New(channel.Config{
			Name:        ch.Name,
			SourceLang:  ch.SourceLang,
			TargetLang:  ch.TargetLang,
			SampleRate:  a.cfg.Audio.SampleRate,
			Queue:       queue,
			Segmenter:   seg,
			Recognizer:  a.providers.ASR,
			Translator:  a.providers.MT,
			Synthesizer: a.providers.TTS,
			Filter:      filter,
			Sink:        a.sink,
			Player:      a.player,
			Metrics:     observe.DefaultMetrics(),
		}))
	}
	return nil
}

// defaultSourceFactory opens real PortAudio capture streams.
func defaultSourceFactory(ch config.ChannelConfig, audioCfg config.AudioConfig, q *audio.Queue, gate *audio.Gate) (Source, error) {
	cfg := capture.Config{
		Channel:       ch.Name,
		DeviceIndex:   ch.DeviceIndex,
		TargetRate:    audioCfg.SampleRate,
		ChunkDuration: audioCfg.ChunkDuration(),
		Queue:         q,
		Gate:          gate,
		Mode:          capture.LoopbackMode(ch.LoopbackMode),
	}
	if ch.Kind == config.KindLoopback {
		return capture.NewLoopback(cfg), nil
	}
	return capture.NewMic(cfg), nil
}

// SubtitleHandler returns the websocket subtitle endpoint, or nil when the
// websocket output is disabled.
func (a *App) SubtitleHandler() http.Handler {
	if a.broadcaster == nil {
		return nil
	}
	return a.broadcaster
}

// Run starts playback and capture and drives all channel pipelines until
// ctx is cancelled. A channel whose device fails to open is logged and
// skipped; Run fails outright only when no channel could start.
func (a *App) Run(ctx context.Context) error {
	a.player.Start()

	started := 0
	for _, ns := range a.sources {
		if err := ns.src.Start(); err != nil {
			var devErr *capture.DeviceError
			if errors.As(err, &devErr) {
				slog.Error("channel unavailable, continuing without it",
					"channel", ns.name, "error", devErr)
				continue
			}
			slog.Error("channel failed to start", "channel", ns.name, "error", err)
			continue
		}
		started++
		slog.Info("capture started", "channel", ns.name)
	}
	if started == 0 {
		return errors.New("app: no capture channel could start")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range a.pipelines {
		g.Go(func() error { return p.Run(gctx) })
	}

	slog.Info("bridge running", "channels", started)
	return g.Wait()
}

// Shutdown stops capture first so no new audio enters the system, then the
// playback worker, then the output sinks. Idempotent.
func (a *App) Shutdown() {
	a.stopOnce.Do(func() {
		for _, ns := range a.sources {
			ns.src.Stop()
		}
		a.player.Stop()
		for _, closer := range a.closers {
			closer()
		}
	})
}
