// Package audio provides the audio primitives shared by every stage of the
// voxbridge pipeline: the mono float32 [Chunk] that flows from capture to
// segmentation, linear-interpolation resampling, the bounded drop-on-full
// [Queue] that crosses the real-time-callback boundary, and the playback
// feedback [Gate].
//
// Everything in this package is designed around one constraint: the producer
// side runs inside a hardware audio callback. Producer-facing operations
// ([Queue.TryPush], [Gate.Armed], [Resample], [DownmixMono]) never block and
// never take a lock that a non-real-time thread can hold.
package audio

// Chunk is a block of mono float32 samples at the pipeline sample rate,
// tagged with the channel that captured it. A Chunk is immutable once
// produced; ownership transfers from the capture callback through the queue
// to the channel pipeline.
type Chunk struct {
	// Samples is mono PCM in the range [-1, 1].
	Samples []float32

	// Channel is the name of the capture channel ("mic", "loopback").
	Channel string
}

// Duration returns the chunk length in seconds at the given sample rate.
func (c Chunk) Duration(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(sampleRate)
}
