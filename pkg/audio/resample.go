package audio

import "math"

// DownmixMono averages interleaved multi-channel samples into a mono block.
// channels must match the interleaving of in; with channels <= 1 the input is
// returned unchanged. Trailing samples that do not form a complete frame are
// dropped.
func DownmixMono(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += in[base+c]
		}
		out[f] = sum / float32(channels)
	}
	return out
}

// Resample converts mono float32 samples from srcRate to dstRate using linear
// interpolation over the sample index space. The output length is
// round(len(in) * dstRate / srcRate). Resample is pure and deterministic; it
// is called inline from capture callbacks, so it performs exactly one
// allocation (the output slice) and no I/O.
//
// Same-rate input is returned unchanged. Empty input yields empty output.
func Resample(in []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(in) == 0 {
		return in
	}
	if len(in) == 1 {
		return []float32{in[0]}
	}

	n := int(math.Round(float64(len(in)) * float64(dstRate) / float64(srcRate)))
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	if n == 1 {
		out[0] = in[0]
		return out
	}

	// Map output index i onto the source index space [0, len(in)-1].
	step := float64(len(in)-1) / float64(n-1)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j] + (in[j+1]-in[j])*frac
	}
	return out
}
