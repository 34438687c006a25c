package capture

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/PierreVannier/parakeet-transcript/internal/audio"
)

// FileSource replays a WAV file through the pipeline, optionally paced
// at real time to mimic a live device.
type FileSource struct {
	path            string
	framesPerBuffer int
	realtime        bool
	sink            Sink
	logger          *slog.Logger

	file    *os.File
	decoder *wav.Decoder

	stop chan struct{}
	done chan struct{}
	seq  uint64
}

// NewFileSource opens the WAV file and reads its header, so SampleRate
// and Channels are known before Start.
func NewFileSource(path string, framesPerBuffer int, realtime bool, sink Sink, logger *slog.Logger) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file %s: %w", path, err)
	}

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%s is not a valid WAV file", path)
	}

	return &FileSource{
		path:            path,
		framesPerBuffer: framesPerBuffer,
		realtime:        realtime,
		sink:            sink,
		logger:          logger,
		file:            f,
		decoder:         decoder,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}, nil
}

// SampleRate returns the file's sample rate.
func (s *FileSource) SampleRate() int { return int(s.decoder.SampleRate) }

// Channels returns the file's channel count.
func (s *FileSource) Channels() int { return int(s.decoder.NumChans) }

// Done is closed when the file has been fully replayed or Stop was
// called. Lets the offline mode shut the pipeline down at end of input.
func (s *FileSource) Done() <-chan struct{} { return s.done }

// Start begins replaying frames on a background goroutine.
func (s *FileSource) Start() error {
	s.logger.Info("Replaying audio file",
		slog.String("path", s.path),
		slog.Int("sample_rate", s.SampleRate()),
		slog.Int("channels", s.Channels()),
		slog.Bool("realtime", s.realtime))
	go s.run()
	return nil
}

func (s *FileSource) run() {
	defer close(s.done)
	defer s.file.Close()

	channels := s.Channels()
	scale := float32(int(1) << (s.decoder.BitDepth - 1))
	frameDur := time.Duration(float64(s.framesPerBuffer) / float64(s.SampleRate()) * float64(time.Second))

	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{NumChannels: channels, SampleRate: s.SampleRate()},
		Data:   make([]int, s.framesPerBuffer*channels),
	}

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		n, err := s.decoder.PCMBuffer(buf)
		if err != nil {
			s.logger.Error("Failed to read audio file", slog.String("error", err.Error()))
			return
		}
		if n == 0 {
			s.logger.Info("Audio file fully replayed", slog.String("path", s.path))
			return
		}

		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			samples[i] = float32(buf.Data[i]) / scale
		}

		s.sink(audio.Frame{
			Samples:   samples,
			Channels:  channels,
			Seq:       s.seq,
			Timestamp: time.Now(),
		})
		s.seq++

		if s.realtime {
			select {
			case <-s.stop:
				return
			case <-time.After(frameDur):
			}
		}
	}
}

// Stop ends replay. Safe to call after the file has finished.
func (s *FileSource) Stop() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
	return nil
}

// Name identifies the source for logging.
func (s *FileSource) Name() string {
	return filepath.Base(s.path)
}
