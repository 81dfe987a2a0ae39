// Package config provides the configuration schema and loader for the
// voxbridge translation bridge.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ChannelKind selects the capture side a channel listens to.
type ChannelKind string

const (
	// KindMic captures the local speaker from a microphone.
	KindMic ChannelKind = "mic"

	// KindLoopback captures the remote speaker from the system output.
	KindLoopback ChannelKind = "loopback"
)

// IsValid reports whether k is a recognised channel kind.
func (k ChannelKind) IsValid() bool {
	return k == KindMic || k == KindLoopback
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Audio     AudioConfig     `yaml:"audio"`
	VAD       VADConfig       `yaml:"vad"`
	Channels  []ChannelConfig `yaml:"channels"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Providers ProvidersConfig `yaml:"providers"`
	Outputs   OutputsConfig   `yaml:"outputs"`
	Filter    FilterConfig    `yaml:"filter"`
	History   HistoryConfig   `yaml:"history"`
}

// ServerConfig holds the HTTP listener (metrics, subtitle websocket) and
// logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on (e.g., ":8080").
	// Empty disables the HTTP server entirely.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig holds the shared audio pipeline parameters.
type AudioConfig struct {
	// SampleRate is the pipeline sample rate in Hz. All capture is
	// resampled to this rate and TTS output is resampled back to it.
	SampleRate int `yaml:"sample_rate"`

	// ChunkDurationMs is the capture block size in milliseconds.
	ChunkDurationMs int `yaml:"chunk_duration_ms"`

	// QueueSize bounds each channel's capture queue in chunks.
	QueueSize int `yaml:"queue_size"`

	// GateBufferMs pads the feedback gate beyond the played clip's
	// duration, covering device latency.
	GateBufferMs int `yaml:"gate_buffer_ms"`
}

// ChunkDuration returns the capture block size as a duration.
func (a AudioConfig) ChunkDuration() time.Duration {
	return time.Duration(a.ChunkDurationMs) * time.Millisecond
}

// GateBuffer returns the gate safety padding as a duration.
func (a AudioConfig) GateBuffer() time.Duration {
	return time.Duration(a.GateBufferMs) * time.Millisecond
}

// VADConfig holds the speech segmentation parameters.
type VADConfig struct {
	// Threshold is the speech probability above which a window counts as
	// speech. Range (0, 1).
	Threshold float64 `yaml:"threshold"`

	// WindowSize is the analysis window in samples at the pipeline rate.
	WindowSize int `yaml:"window_size"`

	// MinSilenceMs is how long silence must last to close an utterance.
	MinSilenceMs int `yaml:"min_silence_ms"`

	// MinSpeechMs discards utterances shorter than this.
	MinSpeechMs int `yaml:"min_speech_ms"`

	// MaxSpeechMs force-closes an utterance that runs this long.
	MaxSpeechMs int `yaml:"max_speech_ms"`
}

// MinSilence returns the silence hangover as a duration.
func (v VADConfig) MinSilence() time.Duration {
	return time.Duration(v.MinSilenceMs) * time.Millisecond
}

// MinSpeech returns the minimum utterance length as a duration.
func (v VADConfig) MinSpeech() time.Duration {
	return time.Duration(v.MinSpeechMs) * time.Millisecond
}

// MaxSpeech returns the force-flush ceiling as a duration.
func (v VADConfig) MaxSpeech() time.Duration {
	return time.Duration(v.MaxSpeechMs) * time.Millisecond
}

// ChannelConfig describes one conversation side: where its audio comes from
// and which direction it is translated.
type ChannelConfig struct {
	// Name labels the channel in logs, subtitles, and history ("mic",
	// "loopback"). Must be unique.
	Name string `yaml:"name"`

	// Kind selects the capture source type.
	Kind ChannelKind `yaml:"kind"`

	// DeviceIndex selects the capture device; -1 uses the system default.
	DeviceIndex int `yaml:"device_index"`

	// SourceLang is the language spoken on this channel (BCP-47 primary
	// subtag, e.g. "en").
	SourceLang string `yaml:"source_lang"`

	// TargetLang is the language this channel is translated into.
	TargetLang string `yaml:"target_lang"`

	// LoopbackMode selects the loopback acquisition strategy ("input" or
	// "exclusive"). Loopback channels only.
	LoopbackMode string `yaml:"loopback_mode"`
}

// PlaybackConfig holds the output device settings.
type PlaybackConfig struct {
	// DeviceIndex selects the playback device; -1 uses the system default.
	DeviceIndex int `yaml:"device_index"`

	// QueueSize bounds the number of synthesized clips waiting to play.
	QueueSize int `yaml:"queue_size"`

	// LeadInMs is how far ahead of audible output the feedback gate arms.
	LeadInMs int `yaml:"lead_in_ms"`
}

// LeadIn returns the gate lead-in as a duration.
func (p PlaybackConfig) LeadIn() time.Duration {
	return time.Duration(p.LeadInMs) * time.Millisecond
}

// ProvidersConfig selects the engine behind each pipeline stage.
type ProvidersConfig struct {
	ASR ASRConfig `yaml:"asr"`
	MT  MTConfig  `yaml:"mt"`
	TTS TTSConfig `yaml:"tts"`
}

// ASRConfig configures speech recognition.
type ASRConfig struct {
	// ModelPath is the path to the whisper GGML model file.
	ModelPath string `yaml:"model_path"`
}

// MTConfig configures the LLM-backed translator.
type MTConfig struct {
	// Provider selects the LLM backend ("openai", "anthropic", "ollama", ...).
	Provider string `yaml:"provider"`

	// Model is the model identifier passed to the provider.
	Model string `yaml:"model"`

	// APIKey authenticates against the provider. Empty falls back to the
	// provider's environment variable.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`
}

// TTSConfig configures speech synthesis.
type TTSConfig struct {
	// Voices maps a language code to the HTTP endpoint of a synthesis
	// server rendering that language.
	Voices map[string]string `yaml:"voices"`

	// TimeoutMs bounds one synthesis request.
	TimeoutMs int `yaml:"timeout_ms"`
}

// Timeout returns the synthesis timeout as a duration.
func (t TTSConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutMs) * time.Millisecond
}

// OutputsConfig enables the subtitle sinks.
type OutputsConfig struct {
	Terminal  TerminalOutput  `yaml:"terminal"`
	WebSocket WebSocketOutput `yaml:"websocket"`
}

// TerminalOutput configures the terminal subtitle display.
type TerminalOutput struct {
	Enabled bool `yaml:"enabled"`
	Color   bool `yaml:"color"`
}

// WebSocketOutput configures the websocket subtitle broadcaster, served on
// the HTTP listener at /subtitles.
type WebSocketOutput struct {
	Enabled bool `yaml:"enabled"`
}

// FilterConfig tunes the transcript filter.
type FilterConfig struct {
	// EchoThreshold is the minimum similarity between a transcript and
	// recently synthesized speech for the transcript to count as an echo.
	EchoThreshold float64 `yaml:"echo_threshold"`

	// EchoWindowMs is how long synthesized speech stays eligible for echo
	// comparison.
	EchoWindowMs int `yaml:"echo_window_ms"`
}

// EchoWindow returns the echo comparison window as a duration.
func (f FilterConfig) EchoWindow() time.Duration {
	return time.Duration(f.EchoWindowMs) * time.Millisecond
}

// HistoryConfig configures optional conversation persistence.
type HistoryConfig struct {
	// PostgresDSN is the database connection string. Empty disables
	// persistence.
	PostgresDSN string `yaml:"postgres_dsn"`
}
