package capture

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/PierreVannier/parakeet-transcript/internal/audio"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeTestWAV produces a short 16-bit mono WAV with a recognizable ramp.
func writeTestWAV(t *testing.T, path string, sampleRate, samples int) {
	t.Helper()

	w, err := audio.NewWAVWriter(path, sampleRate, 1)
	if err != nil {
		t.Fatalf("NewWAVWriter failed: %v", err)
	}
	data := make([]float32, samples)
	for i := range data {
		data[i] = float32(i%100) / 200.0
	}
	if err := w.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestFileSourceReplaysAllSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.wav")
	writeTestWAV(t, path, 8000, 2500)

	var mu sync.Mutex
	var total int
	var frames int
	sink := func(f audio.Frame) {
		mu.Lock()
		total += len(f.Samples)
		frames++
		if f.Channels != 1 {
			t.Errorf("Expected mono frames, got %d channels", f.Channels)
		}
		mu.Unlock()
	}

	src, err := NewFileSource(path, 1000, false, sink, testLogger())
	if err != nil {
		t.Fatalf("NewFileSource failed: %v", err)
	}
	if src.SampleRate() != 8000 {
		t.Errorf("Expected sample rate 8000, got %d", src.SampleRate())
	}
	if src.Channels() != 1 {
		t.Errorf("Expected 1 channel, got %d", src.Channels())
	}

	if err := src.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	select {
	case <-src.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Replay never finished")
	}

	mu.Lock()
	defer mu.Unlock()
	if total != 2500 {
		t.Errorf("Expected 2500 samples replayed, got %d", total)
	}
	if frames != 3 {
		t.Errorf("Expected 3 frames (1000+1000+500), got %d", frames)
	}
}

func TestFileSourceStopInterruptsReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.wav")
	writeTestWAV(t, path, 8000, 80000) // 10 seconds of audio

	sink := func(audio.Frame) {}
	src, err := NewFileSource(path, 800, true, sink, testLogger())
	if err != nil {
		t.Fatalf("NewFileSource failed: %v", err)
	}
	if err := src.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Real-time pacing would take ~10s; Stop must cut it short.
	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Stop took %v, expected prompt interruption", elapsed)
	}

	select {
	case <-src.Done():
	default:
		t.Error("Done must be closed after Stop")
	}
}

func TestFileSourceRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-audio.wav")
	if err := os.WriteFile(path, []byte("this is not a wav file"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if _, err := NewFileSource(path, 1000, false, func(audio.Frame) {}, testLogger()); err == nil {
		t.Error("Expected error for an invalid WAV file")
	}

	if _, err := NewFileSource(filepath.Join(t.TempDir(), "missing.wav"),
		1000, false, func(audio.Frame) {}, testLogger()); err == nil {
		t.Error("Expected error for a missing file")
	}
}
