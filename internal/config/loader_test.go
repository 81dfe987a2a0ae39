package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: debug
audio:
  sample_rate: 16000
  chunk_duration_ms: 30
vad:
  threshold: 0.4
channels:
  - name: mic
    kind: mic
    device_index: -1
    source_lang: en
    target_lang: es
  - name: loopback
    kind: loopback
    device_index: 3
    source_lang: es
    target_lang: en
    loopback_mode: input
playback:
  device_index: -1
providers:
  asr:
    model_path: /models/ggml-base.bin
  mt:
    provider: ollama
    model: qwen2.5:7b
  tts:
    voices:
      en: http://localhost:5000
      es: http://localhost:5001
outputs:
  terminal:
    enabled: true
    color: true
  websocket:
    enabled: true
history:
  postgres_dsn: ""
`

func TestLoadFromReader_ValidConfig(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if len(cfg.Channels) != 2 {
		t.Fatalf("got %d channels, want 2", len(cfg.Channels))
	}
	if cfg.Channels[1].Kind != KindLoopback || cfg.Channels[1].DeviceIndex != 3 {
		t.Errorf("loopback channel = %+v", cfg.Channels[1])
	}
	if cfg.Providers.TTS.Voices["es"] != "http://localhost:5001" {
		t.Errorf("es voice = %q", cfg.Providers.TTS.Voices["es"])
	}
}

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Audio.QueueSize != DefaultQueueSize {
		t.Errorf("QueueSize = %d, want default %d", cfg.Audio.QueueSize, DefaultQueueSize)
	}
	if cfg.VAD.MinSilence() != 600*time.Millisecond {
		t.Errorf("MinSilence = %v, want 600ms", cfg.VAD.MinSilence())
	}
	if cfg.VAD.MaxSpeech() != 15*time.Second {
		t.Errorf("MaxSpeech = %v, want 15s", cfg.VAD.MaxSpeech())
	}
	if cfg.Playback.QueueSize != DefaultPlaybackQueueSize {
		t.Errorf("playback QueueSize = %d", cfg.Playback.QueueSize)
	}
	if cfg.Playback.LeadIn() != 50*time.Millisecond {
		t.Errorf("LeadIn = %v, want 50ms", cfg.Playback.LeadIn())
	}
	if cfg.Filter.EchoThreshold != DefaultEchoThreshold {
		t.Errorf("EchoThreshold = %v", cfg.Filter.EchoThreshold)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	yaml := strings.Replace(validYAML, "audio:", "audoi:", 1)
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.VAD.Threshold = 1.5
	cfg.Channels = []ChannelConfig{
		{Name: "a", Kind: "mic", SourceLang: "en", TargetLang: "es"},
		{Name: "a", Kind: "satellite", SourceLang: "", TargetLang: "en"},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate accepted a broken config")
	}
	msg := err.Error()
	for _, want := range []string{
		"vad.threshold",
		"duplicate",
		"kind \"satellite\"",
		"source_lang is required",
		"asr.model_path is required",
		"mt.provider is required",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q:\n%s", want, msg)
		}
	}
}

func TestValidate_WebsocketRequiresListenAddr(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	cfg.Server.ListenAddr = ""

	err = Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "websocket.enabled requires") {
		t.Fatalf("err = %v, want websocket listen_addr error", err)
	}
}

func TestValidate_MinSpeechBelowMaxSpeech(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	cfg.VAD.MinSpeechMs = 20000

	err = Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "min_speech_ms") {
		t.Fatalf("err = %v, want min_speech_ms error", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/voxbridge.yaml"); err == nil {
		t.Fatal("Load on missing file succeeded")
	}
}
