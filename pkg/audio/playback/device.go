// Package playback renders synthesized speech through PortAudio. The
// [Player] serializes clips on a single worker, arms the shared feedback
// [audio.Gate] before each clip starts, and drops the newest clip when its
// bounded queue is full so translation output never falls further behind
// live speech.
package playback

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

const writeFrames = 1024

// Device renders mono float32 PCM. Play blocks until the clip finishes or
// ctx is cancelled. Implementations are used from the Player worker only
// and need not be safe for concurrent Play calls.
type Device interface {
	Play(ctx context.Context, samples []float32) error
	Close() error
}

// PortAudioDevice writes clips to an output device using blocking stream
// writes. The zero value is unusable; use [OpenDefault] or [Open].
type PortAudioDevice struct {
	dev        *portaudio.DeviceInfo
	sampleRate int
}

// OpenDefault resolves the system default output device.
func OpenDefault(sampleRate int) (*PortAudioDevice, error) {
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("playback: resolve default output: %w", err)
	}
	return &PortAudioDevice{dev: dev, sampleRate: sampleRate}, nil
}

// Open resolves an explicit output device index.
func Open(index, sampleRate int) (*PortAudioDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("playback: enumerate devices: %w", err)
	}
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("playback: device index %d out of range (have %d devices)", index, len(devices))
	}
	if devices[index].MaxOutputChannels < 1 {
		return nil, fmt.Errorf("playback: device %q has no output channels", devices[index].Name)
	}
	return &PortAudioDevice{dev: devices[index], sampleRate: sampleRate}, nil
}

// Play opens a mono output stream, writes the clip block by block, and
// closes the stream. Cancellation between blocks abandons the rest of the
// clip.
func (d *PortAudioDevice) Play(ctx context.Context, samples []float32) error {
	if len(samples) == 0 {
		return nil
	}

	buf := make([]float32, writeFrames)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   d.dev,
			Channels: 1,
			Latency:  d.dev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(d.sampleRate),
		FramesPerBuffer: writeFrames,
	}

	stream, err := portaudio.OpenStream(params, &buf)
	if err != nil {
		return fmt.Errorf("playback: open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("playback: start output stream: %w", err)
	}
	defer stream.Stop()

	for off := 0; off < len(samples); off += writeFrames {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := off + writeFrames
		if end > len(samples) {
			end = len(samples)
		}
		n := copy(buf, samples[off:end])
		for i := n; i < writeFrames; i++ {
			buf[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("playback: write: %w", err)
		}
	}
	return nil
}

// Close releases the device handle. The underlying PortAudio device info is
// owned by the host API, so there is nothing to free.
func (d *PortAudioDevice) Close() error { return nil }
