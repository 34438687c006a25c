package audio

// Normalize converts interleaved samples into the single-channel, amplitude
// clipped form the recognition model expects: channels are averaged into
// mono and every value is clamped to [-1.0, 1.0]. The input is not modified.
func Normalize(samples []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(samples))
		for i, s := range samples {
			out[i] = clamp(s)
		}
		return out
	}

	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = clamp(sum / float32(channels))
	}
	return out
}

func clamp(s float32) float32 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}
