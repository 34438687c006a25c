package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavHeader is the canonical 44-byte PCM WAV header, used for in-memory
// encoding of recognition request bodies.
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// EncodePCM16 encodes normalized mono float32 samples as a 16-bit PCM WAV
// byte stream. Input values are assumed to lie in [-1.0, 1.0].
func EncodePCM16(samples []float32, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty sample block")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = floatToPCM16(s)
	}

	const numChannels, bitsPerSample = 1, 16
	dataSize := uint32(len(pcm) * 2)

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * numChannels * bitsPerSample / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, pcm); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

func floatToPCM16(s float32) int16 {
	if s >= 1.0 {
		return 32767
	}
	if s <= -1.0 {
		return -32768
	}
	return int16(s * 32767)
}

// WAVWriter records everything that enters the pipeline to a WAV file on
// disk. Used by the optional session dump. Not safe for concurrent use; the
// consumer loop is its only writer.
type WAVWriter struct {
	file *os.File
	enc  *wav.Encoder

	sampleRate int
	channels   int
	written    int
}

// NewWAVWriter creates path and prepares a 16-bit PCM encoder for it.
func NewWAVWriter(path string, sampleRate, channels int) (*WAVWriter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", channels)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create session recording %s: %w", path, err)
	}

	return &WAVWriter{
		file:       file,
		enc:        wav.NewEncoder(file, sampleRate, 16, channels, 1),
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

// Write appends interleaved float32 samples to the recording.
func (w *WAVWriter) Write(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(floatToPCM16(s))
	}

	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: w.channels, SampleRate: w.sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write session audio: %w", err)
	}

	w.written += len(samples)
	return nil
}

// Written returns the number of interleaved samples recorded so far.
func (w *WAVWriter) Written() int {
	return w.written
}

// Close finalizes the WAV header and closes the file.
func (w *WAVWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to finalize session recording: %w", err)
	}
	return w.file.Close()
}
