// Command voxbridge is the main entry point for the voxbridge speech
// translation bridge.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxbridge/voxbridge/internal/app"
	"github.com/voxbridge/voxbridge/internal/config"
	"github.com/voxbridge/voxbridge/internal/observe"
	"github.com/voxbridge/voxbridge/pkg/audio/capture"
	"github.com/voxbridge/voxbridge/pkg/provider/asr/whisper"
	"github.com/voxbridge/voxbridge/pkg/provider/mt"
	"github.com/voxbridge/voxbridge/pkg/provider/mt/llmtrans"
	"github.com/voxbridge/voxbridge/pkg/provider/tts/piper"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	listDevices := flag.Bool("list-devices", false, "list audio devices and exit")
	flag.Parse()

	// ── Device listing ────────────────────────────────────────────────────────
	if *listDevices {
		return printDevices()
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxbridge: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxbridge: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxbridge starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxbridge"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Audio host API ────────────────────────────────────────────────────────
	if err := capture.Initialize(); err != nil {
		slog.Error("failed to initialise audio", "err", err)
		return 1
	}
	defer capture.Terminate()

	// ── Providers ─────────────────────────────────────────────────────────────
	providers, closeProviders, err := buildProviders(ctx, cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	defer closeProviders()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer application.Shutdown()

	// ── HTTP server: /metrics and /subtitles ──────────────────────────────────
	if cfg.Server.ListenAddr != "" {
		srv := newHTTPServer(cfg.Server.ListenAddr, application)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server error", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("http server shutdown error", "err", err)
			}
		}()
	}

	slog.Info("bridge ready, press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("shutdown signal received, stopping…")
	application.Shutdown()
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildProviders constructs the ASR, MT, and TTS engines from config and
// verifies the configured language pairs before any audio flows.
func buildProviders(ctx context.Context, cfg *config.Config) (*app.Providers, func(), error) {
	recognizer, err := whisper.New(cfg.Providers.ASR.ModelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("asr: %w", err)
	}
	closeProviders := func() {
		if err := recognizer.Close(); err != nil {
			slog.Warn("closing speech model", "err", err)
		}
	}

	var mtOpts []anyllmlib.Option
	if cfg.Providers.MT.APIKey != "" {
		mtOpts = append(mtOpts, anyllmlib.WithAPIKey(cfg.Providers.MT.APIKey))
	}
	if cfg.Providers.MT.BaseURL != "" {
		mtOpts = append(mtOpts, anyllmlib.WithBaseURL(cfg.Providers.MT.BaseURL))
	}
	translator, err := llmtrans.New(cfg.Providers.MT.Provider, cfg.Providers.MT.Model, mtOpts...)
	if err != nil {
		closeProviders()
		return nil, nil, fmt.Errorf("mt: %w", err)
	}

	// Probe every configured direction once so a bad model or key surfaces
	// at startup instead of mid-conversation. A channel whose pair fails
	// still runs and shows original text; abort only when no channel has a
	// working pair.
	verifyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	var verified, needed int
	for _, ch := range cfg.Channels {
		if ch.SourceLang == ch.TargetLang {
			continue
		}
		needed++
		pair := mt.Pair{Source: ch.SourceLang, Target: ch.TargetLang}
		if err := translator.VerifyPairs(verifyCtx, []mt.Pair{pair}); err != nil {
			slog.Warn("language pair unavailable; channel will show untranslated text",
				"channel", ch.Name, "source", ch.SourceLang, "target", ch.TargetLang, "err", err)
			continue
		}
		verified++
	}
	if needed > 0 && verified == 0 {
		closeProviders()
		return nil, nil, fmt.Errorf("mt: no configured language pair is available")
	}

	providers := &app.Providers{ASR: recognizer, MT: translator}

	if len(cfg.Providers.TTS.Voices) > 0 {
		synth := piper.New(cfg.Providers.TTS.Voices, cfg.Audio.SampleRate,
			piper.WithTimeout(cfg.Providers.TTS.Timeout()))
		providers.TTS = synth
		slog.Info("synthesis voices loaded", "languages", synth.Languages())
	} else {
		slog.Warn("no synthesis voices configured; running subtitle-only")
	}

	return providers, closeProviders, nil
}

// ── HTTP ──────────────────────────────────────────────────────────────────────

func newHTTPServer(addr string, application *app.App) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if h := application.SubtitleHandler(); h != nil {
		mux.Handle("/subtitles", h)
	}
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ── Device listing ────────────────────────────────────────────────────────────

func printDevices() int {
	if err := capture.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "voxbridge: %v\n", err)
		return 1
	}
	defer capture.Terminate()

	devices, err := capture.Devices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxbridge: %v\n", err)
		return 1
	}
	for _, d := range devices {
		fmt.Println(d)
	}
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        voxbridge startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("ASR model", cfg.Providers.ASR.ModelPath)
	printRow("MT", cfg.Providers.MT.Provider+" / "+cfg.Providers.MT.Model)
	printRow("TTS voices", fmt.Sprintf("%d", len(cfg.Providers.TTS.Voices)))
	for _, ch := range cfg.Channels {
		printRow("channel "+ch.Name, ch.SourceLang+" → "+ch.TargetLang)
	}
	if cfg.Server.ListenAddr != "" {
		printRow("listen addr", cfg.Server.ListenAddr)
	}
	if cfg.History.PostgresDSN != "" {
		printRow("history", "enabled")
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(key, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-16s: %-19s ║\n", key, value)
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
