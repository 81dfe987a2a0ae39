// Package piper implements tts.Synthesizer against Piper HTTP servers
// (piper.http_server). A Piper server is started per voice model, so the
// provider holds a language→endpoint table: synthesis POSTs the raw text to
// the endpoint for the target language and decodes the WAV response into
// mono float32 at the pipeline sample rate.
//
// Languages without a configured endpoint return [tts.ErrNoVoice]; the
// pipeline shows subtitles for those languages but produces no audio, which
// mirrors how voice coverage gaps behave in practice (e.g., no Piper voice
// exists for Japanese).
//
// Typical usage:
//
//	p := piper.New(map[string]string{
//	    "en": "http://localhost:5000",
//	    "hi": "http://localhost:5001",
//	}, 16000, piper.WithTimeout(15*time.Second))
package piper

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxbridge/voxbridge/pkg/audio"
	"github.com/voxbridge/voxbridge/pkg/provider/tts"
)

// Compile-time interface check.
var _ tts.Synthesizer = (*Provider)(nil)

const defaultTimeout = 30 * time.Second

// Option is a functional option for configuring a [Provider].
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// WithHTTPClient replaces the HTTP client (primarily for tests).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// Provider is a Piper-backed synthesizer.
type Provider struct {
	endpoints  map[string]string // language code → server base URL
	sampleRate int               // pipeline target rate
	client     *http.Client
}

// New creates a Provider with the given language→endpoint table and target
// sample rate. The table is copied; it may safely be mutated afterwards.
func New(endpoints map[string]string, sampleRate int, opts ...Option) *Provider {
	eps := make(map[string]string, len(endpoints))
	for lang, url := range endpoints {
		eps[lang] = strings.TrimRight(url, "/")
	}
	p := &Provider{
		endpoints:  eps,
		sampleRate: sampleRate,
		client:     &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Languages returns the language codes with a configured endpoint.
func (p *Provider) Languages() []string {
	langs := make([]string, 0, len(p.endpoints))
	for lang := range p.endpoints {
		langs = append(langs, lang)
	}
	return langs
}

// Synthesize POSTs text to the Piper server for language and returns the
// decoded samples resampled to the pipeline rate.
func (p *Provider) Synthesize(ctx context.Context, text, language string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	endpoint, ok := p.endpoints[language]
	if !ok {
		return nil, fmt.Errorf("piper: language %q: %w", language, tts.ErrNoVoice)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("piper: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Accept", "audio/wav")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("piper: synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("piper: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("piper: read WAV response: %w", err)
	}

	samples, rate, err := DecodeWAV(wav)
	if err != nil {
		return nil, fmt.Errorf("piper: %w", err)
	}

	if rate != p.sampleRate {
		samples = audio.Resample(samples, rate, p.sampleRate)
	}
	return samples, nil
}

// wavInfo holds the format metadata extracted from a RIFF/WAVE header.
type wavInfo struct {
	DataOffset int
	DataSize   int
	SampleRate int
	Channels   int
	BitDepth   int
}

// DecodeWAV parses the RIFF/WAVE container in wav and returns the PCM
// payload as mono float32 plus the container's sample rate. 16-bit and
// 32-bit integer PCM are supported; multi-channel audio is downmixed.
//
// The fmt chunk is located by walking the chunk list rather than assuming a
// fixed 44-byte header, since encoders vary the chunk layout.
func DecodeWAV(wav []byte) ([]float32, int, error) {
	info, err := parseWAV(wav)
	if err != nil {
		return nil, 0, err
	}

	end := info.DataOffset + info.DataSize
	if end > len(wav) || info.DataSize <= 0 {
		end = len(wav)
	}
	pcm := wav[info.DataOffset:end]

	var samples []float32
	switch info.BitDepth {
	case 16:
		n := len(pcm) / 2
		samples = make([]float32, n)
		for i := 0; i < n; i++ {
			s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
			samples[i] = float32(s) / 32768
		}
	case 32:
		n := len(pcm) / 4
		samples = make([]float32, n)
		for i := 0; i < n; i++ {
			s := int32(binary.LittleEndian.Uint32(pcm[i*4:]))
			samples[i] = float32(float64(s) / 2147483648)
		}
	default:
		return nil, 0, fmt.Errorf("unsupported WAV bit depth %d", info.BitDepth)
	}

	if info.Channels > 1 {
		samples = audio.DownmixMono(samples, info.Channels)
	}
	return samples, info.SampleRate, nil
}

// parseWAV scans the RIFF/WAVE chunk list and extracts format metadata.
func parseWAV(wav []byte) (wavInfo, error) {
	if len(wav) < 12 {
		return wavInfo{}, errors.New("WAV response too short to be a valid RIFF file")
	}
	if string(wav[0:4]) != "RIFF" {
		return wavInfo{}, errors.New("WAV response missing RIFF header")
	}
	if string(wav[8:12]) != "WAVE" {
		return wavInfo{}, errors.New("WAV response missing WAVE identifier")
	}

	var info wavInfo
	foundFmt := false

	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && offset+8+16 <= len(wav) {
				fmtData := wav[offset+8:]
				info.Channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				info.SampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				info.BitDepth = int(binary.LittleEndian.Uint16(fmtData[14:16]))
				foundFmt = true
			}
		case "data":
			info.DataOffset = offset + 8
			info.DataSize = chunkSize
			if !foundFmt {
				return wavInfo{}, errors.New("WAV data chunk appears before fmt chunk")
			}
			return info, nil
		}

		// Chunks are word-aligned: pad by one byte when the size is odd.
		offset += 8 + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return wavInfo{}, errors.New("WAV response missing data chunk")
}
