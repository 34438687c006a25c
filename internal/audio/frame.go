package audio

import "time"

// Frame is an immutable block of interleaved float32 samples as delivered by
// a capture source. Frames are produced once, consumed once by the assembler,
// and never mutated after creation.
type Frame struct {
	Samples   []float32 // interleaved, len = frames * channels
	Channels  int
	Seq       uint64 // arrival order, assigned by the source
	Timestamp time.Time
}

// MonoFrames returns the number of per-channel sample frames in the block.
func (f Frame) MonoFrames() int {
	if f.Channels <= 0 {
		return len(f.Samples)
	}
	return len(f.Samples) / f.Channels
}
