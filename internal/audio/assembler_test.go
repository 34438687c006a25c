package audio

import (
	"testing"
)

func testConfig() AssemblerConfig {
	return AssemblerConfig{
		SampleRate:      16000,
		Channels:        1,
		BufferDuration:  5,
		ChunkDuration:   20,
		OverlapDuration: 4,
		Chunking:        true,
	}
}

// rampFrame builds a frame of sequential sample values so slices can be
// traced back to their session position.
func rampFrame(start, n int) Frame {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(start + i)
	}
	return Frame{Samples: samples, Channels: 1}
}

func TestNewAssemblerRejectsOverlapGEChunk(t *testing.T) {
	cfg := testConfig()
	cfg.OverlapDuration = 20
	if _, err := NewAssembler(cfg); err == nil {
		t.Error("overlap == chunk should be rejected")
	}

	cfg.OverlapDuration = 25
	if _, err := NewAssembler(cfg); err == nil {
		t.Error("overlap > chunk should be rejected")
	}

	cfg.OverlapDuration = -1
	if _, err := NewAssembler(cfg); err == nil {
		t.Error("negative overlap should be rejected")
	}
}

func TestAssemblerZeroOverlap(t *testing.T) {
	cfg := testConfig()
	cfg.OverlapDuration = 0
	a, err := NewAssembler(cfg)
	if err != nil {
		t.Fatalf("NewAssembler failed: %v", err)
	}
	if a.OverlapSize() != 0 {
		t.Errorf("Expected zero overlap size, got %d", a.OverlapSize())
	}

	blocks := a.Push(rampFrame(0, a.ChunkSize()))
	var full *Block
	for i := range blocks {
		if blocks[i].Kind == KindFull {
			full = &blocks[i]
		}
	}
	if full == nil {
		t.Fatal("Expected a full chunk")
	}
	if got := a.Stats().LongBuffered; got != 0 {
		t.Errorf("Zero-overlap carry should be empty, got %d samples", got)
	}
}

func TestAssemblerChunkScenario(t *testing.T) {
	// chunkDuration=20, overlap=4, sampleRate=16000 => chunkSize=320000,
	// overlapSize=64000. 24s of audio in 100ms frames yields exactly one
	// full chunk, with 64000 samples of carry retained.
	a, err := NewAssembler(testConfig())
	if err != nil {
		t.Fatalf("NewAssembler failed: %v", err)
	}

	if a.ChunkSize() != 320000 {
		t.Fatalf("Expected chunk size 320000, got %d", a.ChunkSize())
	}
	if a.OverlapSize() != 64000 {
		t.Fatalf("Expected overlap size 64000, got %d", a.OverlapSize())
	}

	const frameLen = 1600 // 100ms at 16kHz
	fullChunks := 0
	pos := 0
	for pos < 384000 { // 24 seconds
		blocks := a.Push(rampFrame(pos, frameLen))
		pos += frameLen
		for _, b := range blocks {
			if b.Kind != KindFull {
				continue
			}
			fullChunks++
			if len(b.Samples) != 320000 {
				t.Errorf("Full chunk has %d samples, want 320000", len(b.Samples))
			}
			if b.Offset != 0 {
				t.Errorf("First chunk offset should be 0, got %d", b.Offset)
			}
			if b.Duration != 20.0 {
				t.Errorf("Full chunk duration should be 20s, got %f", b.Duration)
			}
			// Emission happens exactly when the long buffer reaches chunkSize.
			if pos != 320000 {
				t.Errorf("Full chunk emitted at %d samples, want 320000", pos)
			}
		}
	}

	if fullChunks != 1 {
		t.Fatalf("Expected exactly one full chunk after 24s, got %d", fullChunks)
	}
	if got := a.Stats().LongBuffered; got != 384000-320000+64000 {
		t.Errorf("Expected %d samples in long buffer (carry+tail), got %d", 384000-320000+64000, got)
	}

	// The next full chunk needs 256000 new samples past the first emission:
	// 64000 carry + 256000 new = 320000. We already fed 64000 past it.
	for pos < 320000+256000-frameLen {
		blocks := a.Push(rampFrame(pos, frameLen))
		pos += frameLen
		for _, b := range blocks {
			if b.Kind == KindFull {
				t.Fatalf("Premature second full chunk at %d samples", pos)
			}
		}
	}
	blocks := a.Push(rampFrame(pos, frameLen))
	second := false
	for _, b := range blocks {
		if b.Kind == KindFull {
			second = true
			if b.Offset != 256000 {
				t.Errorf("Second chunk offset should be 256000, got %d", b.Offset)
			}
		}
	}
	if !second {
		t.Error("Expected second full chunk after 256000 additional samples")
	}
}

func TestAssemblerOverlapContinuity(t *testing.T) {
	a, err := NewAssembler(testConfig())
	if err != nil {
		t.Fatalf("NewAssembler failed: %v", err)
	}

	var chunks []Block
	pos := 0
	for len(chunks) < 3 {
		blocks := a.Push(rampFrame(pos, 1600))
		pos += 1600
		for _, b := range blocks {
			if b.Kind == KindFull {
				chunks = append(chunks, b)
			}
		}
	}

	overlap := a.OverlapSize()
	for i := 0; i+1 < len(chunks); i++ {
		tail := chunks[i].Samples[len(chunks[i].Samples)-overlap:]
		head := chunks[i+1].Samples[:overlap]
		for j := range tail {
			if tail[j] != head[j] {
				t.Fatalf("Overlap mismatch between chunks %d and %d at sample %d: %f != %f",
					i, i+1, j, tail[j], head[j])
			}
		}
	}
}

func TestAssemblerBufferBounds(t *testing.T) {
	a, err := NewAssembler(testConfig())
	if err != nil {
		t.Fatalf("NewAssembler failed: %v", err)
	}

	pos := 0
	for i := 0; i < 500; i++ {
		a.Push(rampFrame(pos, 1600))
		pos += 1600
		stats := a.Stats()
		if stats.ShortBuffered >= a.BufferSize() {
			t.Fatalf("Short buffer at %d samples, bound is %d", stats.ShortBuffered, a.BufferSize())
		}
		if stats.LongBuffered >= a.ChunkSize() {
			t.Fatalf("Long buffer at %d samples, bound is %d", stats.LongBuffered, a.ChunkSize())
		}
	}
}

func TestAssemblerInterimEmission(t *testing.T) {
	a, err := NewAssembler(testConfig())
	if err != nil {
		t.Fatalf("NewAssembler failed: %v", err)
	}

	// 5s interim segments at 16kHz: first interim after 80000 samples.
	blocks := a.Push(rampFrame(0, 80000))
	if len(blocks) != 1 {
		t.Fatalf("Expected one emission, got %d", len(blocks))
	}
	b := blocks[0]
	if b.Kind != KindInterim {
		t.Errorf("Expected interim kind, got %s", b.Kind)
	}
	if len(b.Samples) != 80000 {
		t.Errorf("Interim segment has %d samples, want 80000", len(b.Samples))
	}
	if b.Duration != 5.0 {
		t.Errorf("Interim duration should be 5s, got %f", b.Duration)
	}
	if b.ID == "" {
		t.Error("Block should carry an ID")
	}

	// Second interim starts at session offset 80000.
	blocks = a.Push(rampFrame(80000, 80000))
	if len(blocks) != 1 || blocks[0].Kind != KindInterim {
		t.Fatalf("Expected one interim emission, got %v", blocks)
	}
	if blocks[0].Offset != 80000 {
		t.Errorf("Second interim offset should be 80000, got %d", blocks[0].Offset)
	}
}

func TestAssemblerInterimBeforeFullInSamePush(t *testing.T) {
	cfg := testConfig()
	cfg.BufferDuration = 5
	cfg.ChunkDuration = 10
	cfg.OverlapDuration = 2
	a, err := NewAssembler(cfg)
	if err != nil {
		t.Fatalf("NewAssembler failed: %v", err)
	}

	// One oversized push crosses both thresholds at once.
	blocks := a.Push(rampFrame(0, a.ChunkSize()))
	if len(blocks) < 2 {
		t.Fatalf("Expected both kinds to fire, got %d blocks", len(blocks))
	}
	last := blocks[len(blocks)-1]
	if last.Kind != KindFull {
		t.Errorf("Full chunk should be ordered last, got %s", last.Kind)
	}
	for _, b := range blocks[:len(blocks)-1] {
		if b.Kind != KindInterim {
			t.Errorf("Expected interim before full, got %s", b.Kind)
		}
	}
}

func TestAssemblerChunkingDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Chunking = false
	a, err := NewAssembler(cfg)
	if err != nil {
		t.Fatalf("NewAssembler failed: %v", err)
	}

	blocks := a.Push(rampFrame(0, 400000))
	for _, b := range blocks {
		if b.Kind == KindFull {
			t.Error("Disabled chunking should never emit full chunks")
		}
	}
	if a.Stats().LongBuffered != 0 {
		t.Error("Disabled chunking should not accumulate the long buffer")
	}
}

func TestAssemblerStereoOffsets(t *testing.T) {
	cfg := testConfig()
	cfg.Channels = 2
	a, err := NewAssembler(cfg)
	if err != nil {
		t.Fatalf("NewAssembler failed: %v", err)
	}

	// Interleaved stereo: 5s segment needs 160000 samples (80000 frames).
	frame := Frame{Samples: make([]float32, 160000), Channels: 2}
	blocks := a.Push(frame)
	if len(blocks) != 1 {
		t.Fatalf("Expected one interim emission, got %d", len(blocks))
	}
	if blocks[0].Duration != 5.0 {
		t.Errorf("Stereo interim duration should be 5s, got %f", blocks[0].Duration)
	}

	blocks = a.Push(frame)
	if len(blocks) != 1 {
		t.Fatalf("Expected one interim emission, got %d", len(blocks))
	}
	if blocks[0].Offset != 80000 {
		t.Errorf("Offset should be in per-channel frames (80000), got %d", blocks[0].Offset)
	}
}
