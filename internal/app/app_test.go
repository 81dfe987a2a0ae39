package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voxbridge/voxbridge/internal/config"
	"github.com/voxbridge/voxbridge/internal/subtitle"
	"github.com/voxbridge/voxbridge/pkg/audio"
	asrmock "github.com/voxbridge/voxbridge/pkg/provider/asr/mock"
	mtmock "github.com/voxbridge/voxbridge/pkg/provider/mt/mock"
	ttsmock "github.com/voxbridge/voxbridge/pkg/provider/tts/mock"
)

type fakeSource struct {
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
	queue    *audio.Queue
}

func (s *fakeSource) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started.Store(true)
	return nil
}

func (s *fakeSource) Stop() { s.stopped.Store(true) }

type fakeAppPlayer struct {
	mu      sync.Mutex
	clips   int
	started bool
	stopped bool
}

func (p *fakeAppPlayer) Play([]float32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clips++
	return true
}

func (p *fakeAppPlayer) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
}

func (p *fakeAppPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

type countSink struct {
	mu      sync.Mutex
	entries []subtitle.Entry
}

func (s *countSink) Show(_ context.Context, e subtitle.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *countSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func testConfig() *config.Config {
	cfg := &config.Config{
		Channels: []config.ChannelConfig{
			{Name: "mic", Kind: config.KindMic, DeviceIndex: -1, SourceLang: "en", TargetLang: "es"},
			{Name: "loopback", Kind: config.KindLoopback, DeviceIndex: -1, SourceLang: "es", TargetLang: "en"},
		},
		Providers: config.ProvidersConfig{
			ASR: config.ASRConfig{ModelPath: "/models/test.bin"},
			MT:  config.MTConfig{Provider: "ollama", Model: "test"},
		},
	}
	config.ApplyDefaults(cfg)
	// Segmentation floors sized for short synthetic utterances.
	cfg.VAD.MinSilenceMs = 0
	cfg.VAD.MinSpeechMs = 10
	return cfg
}

func testProviders() *Providers {
	return &Providers{
		ASR: &asrmock.Recognizer{Result: "hello"},
		MT:  &mtmock.Translator{},
		TTS: &ttsmock.Synthesizer{},
	}
}

// newTestApp builds an App with fakes everywhere and hands back the capture
// queues so tests can feed audio directly.
func newTestApp(t *testing.T, cfg *config.Config, sources map[string]*fakeSource) (*App, *fakeAppPlayer, *countSink) {
	t.Helper()

	player := &fakeAppPlayer{}
	sink := &countSink{}

	factory := func(ch config.ChannelConfig, _ config.AudioConfig, q *audio.Queue, _ *audio.Gate) (Source, error) {
		src, ok := sources[ch.Name]
		if !ok {
			src = &fakeSource{}
			sources[ch.Name] = src
		}
		src.queue = q
		return src, nil
	}

	a, err := New(context.Background(), cfg, testProviders(),
		WithPlayer(player),
		WithSourceFactory(factory),
		WithSink(sink),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Shutdown)
	return a, player, sink
}

func runApp(t *testing.T, a *App) (cancel func(), done chan error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done = make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(stop)
	return stop, done
}

func speech() []float32 {
	chunk := make([]float32, 2048)
	for i := 0; i < 1024; i++ {
		chunk[i] = 0.5
	}
	return chunk
}

func TestApp_EndToEndUtterance(t *testing.T) {
	sources := map[string]*fakeSource{}
	a, player, sink := newTestApp(t, testConfig(), sources)

	cancel, done := runApp(t, a)

	// Feed speech into the mic queue the way its capture callback would.
	mic := sources["mic"]
	if !mic.started.Load() {
		t.Fatal("mic source not started")
	}
	mic.queue.TryPush(audio.Chunk{Samples: speech(), Channel: "mic"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && sink.count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.count() != 1 {
		t.Fatalf("subtitle entries = %d, want 1", sink.count())
	}

	player.mu.Lock()
	clips := player.clips
	started := player.started
	player.mu.Unlock()
	if clips != 1 {
		t.Errorf("played clips = %d, want 1", clips)
	}
	if !started {
		t.Error("player never started")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
}

func TestApp_ToleratesSingleChannelFailure(t *testing.T) {
	sources := map[string]*fakeSource{
		"loopback": {startErr: errors.New("device busy")},
	}
	a, _, sink := newTestApp(t, testConfig(), sources)

	_, done := runApp(t, a)

	// Give Run time to fail if it were going to.
	select {
	case err := <-done:
		t.Fatalf("Run exited early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// The surviving mic channel still works.
	sources["mic"].queue.TryPush(audio.Chunk{Samples: speech(), Channel: "mic"})
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && sink.count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.count() != 1 {
		t.Fatal("surviving channel produced no subtitles")
	}
}

func TestApp_FailsWhenNoChannelStarts(t *testing.T) {
	sources := map[string]*fakeSource{
		"mic":      {startErr: errors.New("no such device")},
		"loopback": {startErr: errors.New("no such device")},
	}
	a, _, _ := newTestApp(t, testConfig(), sources)

	err := a.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no capture channel") {
		t.Fatalf("Run = %v, want no-capture-channel error", err)
	}
}

func TestApp_ShutdownStopsEverything(t *testing.T) {
	sources := map[string]*fakeSource{}
	a, player, _ := newTestApp(t, testConfig(), sources)

	cancel, done := runApp(t, a)
	cancel()
	<-done

	a.Shutdown()
	a.Shutdown() // idempotent

	for name, src := range sources {
		if !src.stopped.Load() {
			t.Errorf("source %q not stopped", name)
		}
	}
	player.mu.Lock()
	defer player.mu.Unlock()
	if !player.stopped {
		t.Error("player not stopped")
	}
}

func TestApp_SubtitleHandlerNilWhenDisabled(t *testing.T) {
	a, _, _ := newTestApp(t, testConfig(), map[string]*fakeSource{})
	if a.SubtitleHandler() != nil {
		t.Fatal("SubtitleHandler should be nil without websocket output")
	}
}
