package audio

import (
	"fmt"

	"github.com/google/uuid"
)

// BlockKind distinguishes the two emission paths of the assembler.
type BlockKind int

const (
	// KindInterim is a short, non-overlapping segment used for low-latency
	// partial output between full chunks.
	KindInterim BlockKind = iota
	// KindFull is a full chunk assembled with trailing overlap carry.
	KindFull
)

// String returns a human-readable kind name.
func (k BlockKind) String() string {
	switch k {
	case KindInterim:
		return "interim"
	case KindFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Block is a ready-to-process slice of accumulated audio. Samples are an
// independent copy: the assembler never hands out aliases of its buffers.
type Block struct {
	ID         string
	Kind       BlockKind
	Samples    []float32 // interleaved
	Channels   int
	SampleRate int
	// Offset is the position of the block's first sample within the session,
	// in per-channel sample frames. Full-chunk results are re-based to
	// session time with it.
	Offset int
	// Duration is the audio length of the block in seconds.
	Duration float64
}

// AssemblerConfig contains the chunking geometry.
type AssemblerConfig struct {
	SampleRate      int
	Channels        int
	BufferDuration  float64 // seconds per interim segment
	ChunkDuration   float64 // seconds per full chunk
	OverlapDuration float64 // seconds retained across full chunks
	Chunking        bool    // false disables the long buffer entirely
}

// Assembler converts an unbounded stream of arbitrary-length frames into
// fixed-size blocks. It keeps two accumulation buffers: a short one feeding
// interim segments and a long overlapping one feeding full chunks. Owned
// exclusively by the consumer loop; not safe for concurrent use.
type Assembler struct {
	cfg AssemblerConfig

	// Sizes in interleaved sample counts.
	bufferSize  int
	chunkSize   int
	overlapSize int

	short []float32
	long  []float32

	// Session offsets (per-channel frames) of the first sample currently
	// held in each buffer.
	shortOffset int
	longOffset  int

	fullEmitted    uint64
	interimEmitted uint64
}

// AssemblerStats is a snapshot of assembler counters for monitoring.
type AssemblerStats struct {
	FullChunks      uint64 `json:"full_chunks"`
	InterimSegments uint64 `json:"interim_segments"`
	ShortBuffered   int    `json:"short_buffered_samples"`
	LongBuffered    int    `json:"long_buffered_samples"`
}

// NewAssembler validates the chunking geometry and creates an assembler.
// Overlap must satisfy 0 <= overlap < chunk when chunking is enabled.
func NewAssembler(cfg AssemblerConfig) (*Assembler, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.Channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", cfg.Channels)
	}
	if cfg.BufferDuration <= 0 {
		return nil, fmt.Errorf("buffer duration must be positive, got %f", cfg.BufferDuration)
	}
	if cfg.Chunking {
		if cfg.ChunkDuration <= 0 {
			return nil, fmt.Errorf("chunk duration must be positive, got %f", cfg.ChunkDuration)
		}
		if cfg.OverlapDuration < 0 || cfg.OverlapDuration >= cfg.ChunkDuration {
			return nil, fmt.Errorf("overlap duration must satisfy 0 <= overlap < chunk, got overlap=%f chunk=%f",
				cfg.OverlapDuration, cfg.ChunkDuration)
		}
	}

	a := &Assembler{
		cfg:        cfg,
		bufferSize: int(cfg.BufferDuration*float64(cfg.SampleRate)) * cfg.Channels,
	}
	if cfg.Chunking {
		a.chunkSize = int(cfg.ChunkDuration*float64(cfg.SampleRate)) * cfg.Channels
		a.overlapSize = int(cfg.OverlapDuration*float64(cfg.SampleRate)) * cfg.Channels
		a.long = make([]float32, 0, a.chunkSize)
	}
	a.short = make([]float32, 0, a.bufferSize)

	return a, nil
}

// Push appends a frame to the accumulation buffers and returns the blocks
// that became ready, oldest first within each kind. A single frame can emit
// zero, one, or several blocks. When a push yields both kinds, interim
// segments are ordered before full chunks so the full-chunk text is the one
// left on the display.
func (a *Assembler) Push(frame Frame) []Block {
	a.short = append(a.short, frame.Samples...)
	if a.cfg.Chunking {
		a.long = append(a.long, frame.Samples...)
	}

	var interims []Block
	for len(a.short) >= a.bufferSize {
		interims = append(interims, a.sliceInterim())
	}

	var fulls []Block
	for a.cfg.Chunking && len(a.long) >= a.chunkSize {
		fulls = append(fulls, a.sliceFull())
	}

	return append(interims, fulls...)
}

// sliceInterim cuts the first bufferSize samples off the short buffer.
func (a *Assembler) sliceInterim() Block {
	block := a.newBlock(KindInterim, a.short[:a.bufferSize], a.shortOffset)
	a.short = append(a.short[:0], a.short[a.bufferSize:]...)
	a.shortOffset += a.bufferSize / a.cfg.Channels
	a.interimEmitted++
	return block
}

// sliceFull cuts the first chunkSize samples off the long buffer, retaining
// overlapSize samples of carry for the next chunk.
func (a *Assembler) sliceFull() Block {
	block := a.newBlock(KindFull, a.long[:a.chunkSize], a.longOffset)
	advance := a.chunkSize - a.overlapSize
	a.long = append(a.long[:0], a.long[advance:]...)
	a.longOffset += advance / a.cfg.Channels
	a.fullEmitted++
	return block
}

func (a *Assembler) newBlock(kind BlockKind, samples []float32, offset int) Block {
	out := make([]float32, len(samples))
	copy(out, samples)
	return Block{
		ID:         uuid.NewString(),
		Kind:       kind,
		Samples:    out,
		Channels:   a.cfg.Channels,
		SampleRate: a.cfg.SampleRate,
		Offset:     offset,
		Duration:   float64(len(out)/a.cfg.Channels) / float64(a.cfg.SampleRate),
	}
}

// BufferSize returns the interim segment size in interleaved samples.
func (a *Assembler) BufferSize() int { return a.bufferSize }

// ChunkSize returns the full chunk size in interleaved samples, 0 when
// chunking is disabled.
func (a *Assembler) ChunkSize() int { return a.chunkSize }

// OverlapSize returns the carry size in interleaved samples.
func (a *Assembler) OverlapSize() int { return a.overlapSize }

// Stats returns a snapshot of the assembler counters.
func (a *Assembler) Stats() AssemblerStats {
	return AssemblerStats{
		FullChunks:      a.fullEmitted,
		InterimSegments: a.interimEmitted,
		ShortBuffered:   len(a.short),
		LongBuffered:    len(a.long),
	}
}
