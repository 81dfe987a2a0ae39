// Package capture wraps PortAudio input streams as voxbridge capture
// sources. A [Source] owns one hardware stream: its callback runs on the
// PortAudio real-time thread, downmixes the device's native frame layout to
// mono, resamples to the pipeline rate, and hands the finished chunk to a
// bounded queue with a non-blocking push. The loopback variant additionally
// consults the feedback [audio.Gate] and drops blocks while it is armed.
//
// Callbacks never block, never log, and allocate only the chunk they
// produce. All failures inside a callback discard the block.
//
// Callers must invoke [Initialize] once before creating sources and
// [Terminate] after all sources and playback devices are closed.
package capture

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/voxbridge/voxbridge/pkg/audio"
)

// DefaultDevice selects the system default device instead of an explicit
// index.
const DefaultDevice = -1

// DeviceError reports a failure to open or configure a capture device. It is
// fatal to the channel that requested the device but not to the process.
type DeviceError struct {
	Index int
	Err   error
}

func (e *DeviceError) Error() string {
	if e.Index == DefaultDevice {
		return fmt.Sprintf("capture: default device: %v", e.Err)
	}
	return fmt.Sprintf("capture: device [%d]: %v", e.Index, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// LoopbackMode selects how the system-output loopback stream is acquired.
// The mode is a construction-time choice, never a runtime fallback.
type LoopbackMode string

const (
	// LoopbackInput treats the loopback device as a regular input (e.g., a
	// "Stereo Mix" virtual input). This is the reliable default.
	LoopbackInput LoopbackMode = "input"

	// LoopbackExclusive opens an output device in exclusive loopback mode,
	// capturing whatever the device renders. Not every host API supports
	// this; unsupported devices fail at Start with a DeviceError.
	LoopbackExclusive LoopbackMode = "exclusive"
)

// Initialize prepares the PortAudio host API. Call once at startup.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("capture: initialize portaudio: %w", err)
	}
	return nil
}

// Terminate releases the PortAudio host API. Call once at shutdown, after
// all streams are closed.
func Terminate() {
	portaudio.Terminate()
}

// Config holds the construction parameters of a [Source].
type Config struct {
	// Channel is the name stamped on every produced chunk ("mic",
	// "loopback").
	Channel string

	// DeviceIndex selects the hardware device, or [DefaultDevice] for the
	// system default input.
	DeviceIndex int

	// TargetRate is the pipeline sample rate chunks are resampled to.
	TargetRate int

	// ChunkDuration is the hardware block size expressed as time; the
	// device callback fires once per block.
	ChunkDuration time.Duration

	// Queue receives produced chunks via non-blocking push.
	Queue *audio.Queue

	// Gate, when non-nil, suppresses capture while armed. Set for the
	// loopback source only.
	Gate *audio.Gate

	// Mode selects the loopback acquisition strategy. Ignored for mic
	// sources.
	Mode LoopbackMode
}

// Source is one live capture stream. Not safe for concurrent Start/Stop;
// the owning application serializes lifecycle calls.
type Source struct {
	cfg      Config
	loopback bool

	stream  *portaudio.Stream
	running atomic.Bool

	// set at Start from the opened device
	nativeRate int
	channels   int
}

// NewMic creates a microphone capture source.
func NewMic(cfg Config) *Source {
	return &Source{cfg: cfg}
}

// NewLoopback creates a system-output loopback capture source. cfg.Gate
// should be the shared feedback gate; a nil gate disables feedback
// suppression.
func NewLoopback(cfg Config) *Source {
	if cfg.Mode == "" {
		cfg.Mode = LoopbackInput
	}
	return &Source{cfg: cfg, loopback: true}
}

// Start opens the hardware stream at the device's native configuration and
// begins capture. It returns a [*DeviceError] when the device cannot be
// resolved or opened.
func (s *Source) Start() error {
	dev, err := resolveDevice(s.cfg.DeviceIndex)
	if err != nil {
		return &DeviceError{Index: s.cfg.DeviceIndex, Err: err}
	}

	channels := dev.MaxInputChannels
	if s.loopback && s.cfg.Mode == LoopbackExclusive {
		// Exclusive loopback taps the device's render side.
		channels = dev.MaxOutputChannels
	}
	if channels < 1 {
		return &DeviceError{Index: s.cfg.DeviceIndex, Err: fmt.Errorf("device %q has no capturable channels in mode %q", dev.Name, s.cfg.Mode)}
	}
	if channels > 2 {
		channels = 2
	}

	s.nativeRate = int(dev.DefaultSampleRate)
	s.channels = channels
	frames := int(float64(s.nativeRate) * s.cfg.ChunkDuration.Seconds())
	if frames < 1 {
		frames = 1
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(s.nativeRate),
		FramesPerBuffer: frames,
	}

	stream, err := portaudio.OpenStream(params, s.callback)
	if err != nil {
		return &DeviceError{Index: s.cfg.DeviceIndex, Err: fmt.Errorf("open stream: %w", err)}
	}

	s.stream = stream
	s.running.Store(true)

	if err := stream.Start(); err != nil {
		s.running.Store(false)
		stream.Close()
		s.stream = nil
		return &DeviceError{Index: s.cfg.DeviceIndex, Err: fmt.Errorf("start stream: %w", err)}
	}
	return nil
}

// callback runs on the PortAudio real-time thread once per hardware block.
func (s *Source) callback(in []float32) {
	if !s.running.Load() {
		return
	}
	if s.cfg.Gate != nil && s.cfg.Gate.Armed() {
		return
	}

	var mono []float32
	if s.channels > 1 {
		mono = audio.DownmixMono(in, s.channels)
	} else {
		// PortAudio reuses the callback buffer; the chunk needs its own.
		mono = make([]float32, len(in))
		copy(mono, in)
	}

	if s.nativeRate != s.cfg.TargetRate {
		mono = audio.Resample(mono, s.nativeRate, s.cfg.TargetRate)
	}
	if len(mono) == 0 {
		return
	}

	// Full queue drops the chunk. Silent by design: the callback cannot log.
	s.cfg.Queue.TryPush(audio.Chunk{Samples: mono, Channel: s.cfg.Channel})
}

// Stop closes the stream. Idempotent; safe to call on a source that never
// started.
func (s *Source) Stop() {
	if !s.running.Swap(false) {
		return
	}
	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
		s.stream = nil
	}
}

// NativeRate returns the device's native sample rate. Valid after Start.
func (s *Source) NativeRate() int { return s.nativeRate }

// resolveDevice maps a device index (or DefaultDevice) to PortAudio device
// info.
func resolveDevice(index int) (*portaudio.DeviceInfo, error) {
	if index == DefaultDevice {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("resolve default input: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("index out of range (have %d devices)", len(devices))
	}
	return devices[index], nil
}
