package piper_test

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voxbridge/voxbridge/pkg/provider/tts"
	"github.com/voxbridge/voxbridge/pkg/provider/tts/piper"
)

// buildWAV assembles a minimal RIFF/WAVE file with 16-bit PCM samples.
func buildWAV(samples []int16, sampleRate, channels int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, 0, 44+dataSize)

	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, uint16(channels))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate*channels*2))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(channels*2))
	buf = binary.LittleEndian.AppendUint16(buf, 16)

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	for _, s := range samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}
	return buf
}

func TestSynthesize_DecodesAndKeepsRate(t *testing.T) {
	wav := buildWAV([]int16{0, 16384, -16384, 32767}, 16000, 1)

	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wav)
	}))
	defer srv.Close()

	p := piper.New(map[string]string{"en": srv.URL}, 16000)
	samples, err := p.Synthesize(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotBody != "hello" {
		t.Errorf("server received body %q, want %q", gotBody, "hello")
	}
	if len(samples) != 4 {
		t.Fatalf("got %d samples, want 4", len(samples))
	}
	if samples[0] != 0 || samples[1] != 0.5 || samples[2] != -0.5 {
		t.Errorf("unexpected decode: %v", samples[:3])
	}
}

func TestSynthesize_ResamplesToPipelineRate(t *testing.T) {
	// Server speaks 22050 Hz; the pipeline wants 16000 Hz.
	wav := buildWAV(make([]int16, 2205), 22050, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(wav)
	}))
	defer srv.Close()

	p := piper.New(map[string]string{"en": srv.URL}, 16000)
	samples, err := p.Synthesize(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	// 100ms at 22050 should come back as ~100ms at 16000.
	if len(samples) < 1590 || len(samples) > 1610 {
		t.Errorf("got %d samples, want ~1600", len(samples))
	}
}

func TestSynthesize_StereoDownmixed(t *testing.T) {
	wav := buildWAV([]int16{1000, 3000, -1000, -3000}, 16000, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(wav)
	}))
	defer srv.Close()

	p := piper.New(map[string]string{"en": srv.URL}, 16000)
	samples, err := p.Synthesize(context.Background(), "hi", "en")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2 after downmix", len(samples))
	}
}

func TestSynthesize_NoVoiceForLanguage(t *testing.T) {
	p := piper.New(map[string]string{"en": "http://localhost:5000"}, 16000)
	_, err := p.Synthesize(context.Background(), "こんにちは", "ja")
	if !errors.Is(err, tts.ErrNoVoice) {
		t.Errorf("got %v, want tts.ErrNoVoice", err)
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	p := piper.New(map[string]string{"en": "http://localhost:5000"}, 16000)
	samples, err := p.Synthesize(context.Background(), "   ", "en")
	if err != nil || samples != nil {
		t.Errorf("empty text: got (%v, %v), want (nil, nil)", samples, err)
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := piper.New(map[string]string{"en": srv.URL}, 16000)
	if _, err := p.Synthesize(context.Background(), "hello", "en"); err == nil {
		t.Error("expected an error for a 500 response")
	}
}

func TestDecodeWAV_Malformed(t *testing.T) {
	tests := []struct {
		name string
		wav  []byte
	}{
		{"empty", nil},
		{"truncated", []byte("RIFF")},
		{"not riff", []byte("OggS this is not a wav file at all")},
		{"no data chunk", buildWAV(nil, 16000, 1)[:20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := piper.DecodeWAV(tt.wav); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestLanguages(t *testing.T) {
	p := piper.New(map[string]string{"en": "x", "hi": "y"}, 16000)
	langs := p.Languages()
	if len(langs) != 2 {
		t.Fatalf("got %d languages, want 2", len(langs))
	}
}
