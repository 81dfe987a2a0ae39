package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [ApplyDefaults] for fields left at their zero value.
const (
	DefaultSampleRate      = 16000
	DefaultChunkDurationMs = 30
	DefaultQueueSize       = 50
	DefaultGateBufferMs    = 300

	DefaultVADThreshold = 0.4
	DefaultWindowSize   = 512
	DefaultMinSilenceMs = 600
	DefaultMinSpeechMs  = 500
	DefaultMaxSpeechMs  = 15000

	DefaultPlaybackQueueSize = 20
	DefaultLeadInMs          = 50

	DefaultTTSTimeoutMs = 10000

	DefaultEchoThreshold = 0.88
	DefaultEchoWindowMs  = 15000
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued tunables with their defaults. Explicit
// values, including out-of-range ones, are left for [Validate] to reject.
func ApplyDefaults(cfg *Config) {
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Audio.ChunkDurationMs == 0 {
		cfg.Audio.ChunkDurationMs = DefaultChunkDurationMs
	}
	if cfg.Audio.QueueSize == 0 {
		cfg.Audio.QueueSize = DefaultQueueSize
	}
	if cfg.Audio.GateBufferMs == 0 {
		cfg.Audio.GateBufferMs = DefaultGateBufferMs
	}

	if cfg.VAD.Threshold == 0 {
		cfg.VAD.Threshold = DefaultVADThreshold
	}
	if cfg.VAD.WindowSize == 0 {
		cfg.VAD.WindowSize = DefaultWindowSize
	}
	if cfg.VAD.MinSilenceMs == 0 {
		cfg.VAD.MinSilenceMs = DefaultMinSilenceMs
	}
	if cfg.VAD.MinSpeechMs == 0 {
		cfg.VAD.MinSpeechMs = DefaultMinSpeechMs
	}
	if cfg.VAD.MaxSpeechMs == 0 {
		cfg.VAD.MaxSpeechMs = DefaultMaxSpeechMs
	}

	if cfg.Playback.QueueSize == 0 {
		cfg.Playback.QueueSize = DefaultPlaybackQueueSize
	}
	if cfg.Playback.LeadInMs == 0 {
		cfg.Playback.LeadInMs = DefaultLeadInMs
	}

	if cfg.Providers.TTS.TimeoutMs == 0 {
		cfg.Providers.TTS.TimeoutMs = DefaultTTSTimeoutMs
	}

	if cfg.Filter.EchoThreshold == 0 {
		cfg.Filter.EchoThreshold = DefaultEchoThreshold
	}
	if cfg.Filter.EchoWindowMs == 0 {
		cfg.Filter.EchoWindowMs = DefaultEchoWindowMs
	}

	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate < 8000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is below the 8000 Hz minimum", cfg.Audio.SampleRate))
	}
	if cfg.Audio.ChunkDurationMs < 1 {
		errs = append(errs, fmt.Errorf("audio.chunk_duration_ms must be positive, got %d", cfg.Audio.ChunkDurationMs))
	}
	if cfg.Audio.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("audio.queue_size must be positive, got %d", cfg.Audio.QueueSize))
	}
	if cfg.Audio.GateBufferMs < 0 {
		errs = append(errs, fmt.Errorf("audio.gate_buffer_ms must not be negative, got %d", cfg.Audio.GateBufferMs))
	}

	// VAD
	if cfg.VAD.Threshold <= 0 || cfg.VAD.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("vad.threshold %.2f is out of range (0, 1)", cfg.VAD.Threshold))
	}
	if cfg.VAD.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("vad.window_size must be positive, got %d", cfg.VAD.WindowSize))
	}
	if cfg.VAD.MinSpeechMs >= cfg.VAD.MaxSpeechMs {
		errs = append(errs, fmt.Errorf("vad.min_speech_ms %d must be below vad.max_speech_ms %d", cfg.VAD.MinSpeechMs, cfg.VAD.MaxSpeechMs))
	}

	// Channels
	if len(cfg.Channels) == 0 {
		errs = append(errs, errors.New("channels must list at least one capture channel"))
	}
	namesSeen := make(map[string]int, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		prefix := fmt.Sprintf("channels[%d]", i)
		if ch.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := namesSeen[ch.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of channels[%d]", prefix, ch.Name, prev))
			}
			namesSeen[ch.Name] = i
		}
		if !ch.Kind.IsValid() {
			errs = append(errs, fmt.Errorf("%s.kind %q is invalid; valid values: mic, loopback", prefix, ch.Kind))
		}
		if ch.SourceLang == "" {
			errs = append(errs, fmt.Errorf("%s.source_lang is required", prefix))
		}
		if ch.TargetLang == "" {
			errs = append(errs, fmt.Errorf("%s.target_lang is required", prefix))
		}
		if ch.Kind == KindMic && ch.LoopbackMode != "" {
			slog.Warn("loopback_mode is ignored for mic channels", "channel", ch.Name)
		}
		if ch.LoopbackMode != "" && ch.LoopbackMode != "input" && ch.LoopbackMode != "exclusive" {
			errs = append(errs, fmt.Errorf("%s.loopback_mode %q is invalid; valid values: input, exclusive", prefix, ch.LoopbackMode))
		}
	}

	// Providers
	if cfg.Providers.ASR.ModelPath == "" {
		errs = append(errs, errors.New("providers.asr.model_path is required"))
	}
	if cfg.Providers.MT.Provider == "" {
		errs = append(errs, errors.New("providers.mt.provider is required"))
	}
	if cfg.Providers.MT.Model == "" {
		errs = append(errs, errors.New("providers.mt.model is required"))
	}
	for i, ch := range cfg.Channels {
		if ch.TargetLang == "" {
			continue
		}
		if _, ok := cfg.Providers.TTS.Voices[ch.TargetLang]; !ok {
			slog.Warn("no synthesis voice for target language; channel will be subtitle-only",
				"channel_index", i,
				"channel", ch.Name,
				"target_lang", ch.TargetLang,
			)
		}
	}

	// Outputs
	if cfg.Outputs.WebSocket.Enabled && cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("outputs.websocket.enabled requires server.listen_addr"))
	}

	// Filter
	if cfg.Filter.EchoThreshold < 0 || cfg.Filter.EchoThreshold > 1 {
		errs = append(errs, fmt.Errorf("filter.echo_threshold %.2f is out of range [0, 1]", cfg.Filter.EchoThreshold))
	}

	return errors.Join(errs...)
}
