package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/PierreVannier/parakeet-transcript/internal/audio"
	"github.com/PierreVannier/parakeet-transcript/internal/metrics"
	"github.com/PierreVannier/parakeet-transcript/internal/recognizer"
)

// Update is delivered to the display hook after each processed block.
type Update struct {
	Kind   audio.BlockKind
	Result recognizer.AlignedResult
	RTF    float64 // processing wall time / audio duration
}

// WorkerConfig contains consumer loop configuration.
type WorkerConfig struct {
	// PollTimeout bounds how long a queue pop may block, so the stop signal
	// is observed promptly on an idle microphone.
	PollTimeout time.Duration
	Model       string
	Language    string
}

// Worker is the single consumer of the ingress queue. It runs the chunk
// assembler and the recognizer sequentially: results must append in temporal
// order, so there is deliberately no parallelism past the queue.
type Worker struct {
	config    WorkerConfig
	queue     *audio.Queue
	assembler *audio.Assembler
	rec       recognizer.Recognizer
	state     *State
	recorder  *audio.WAVWriter // optional session dump
	onUpdate  func(Update)     // optional display hook
	logger    *slog.Logger
	metrics   *metrics.Metrics

	done chan struct{}
}

// NewWorker assembles a consumer loop.
func NewWorker(config WorkerConfig, queue *audio.Queue, assembler *audio.Assembler,
	rec recognizer.Recognizer, state *State, logger *slog.Logger, m *metrics.Metrics) *Worker {

	if config.PollTimeout <= 0 {
		config.PollTimeout = 500 * time.Millisecond
	}

	return &Worker{
		config:    config,
		queue:     queue,
		assembler: assembler,
		rec:       rec,
		state:     state,
		logger:    logger,
		metrics:   m,
		done:      make(chan struct{}),
	}
}

// SetRecorder attaches an optional session WAV recorder. Must be called
// before Run.
func (w *Worker) SetRecorder(rec *audio.WAVWriter) {
	w.recorder = rec
}

// OnUpdate attaches an optional per-block display hook. Must be called
// before Run.
func (w *Worker) OnUpdate(fn func(Update)) {
	w.onUpdate = fn
}

// Done is closed when the consumer loop has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Run consumes frames until ctx is cancelled. Cancellation is cooperative:
// it is checked after every pop timeout and between blocks, and an in-flight
// recognition always completes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	w.logger.Debug("Consumer loop started",
		slog.Duration("poll_timeout", w.config.PollTimeout),
	)

	for {
		if ctx.Err() != nil {
			w.logger.Debug("Consumer loop stopping")
			return
		}

		frame, ok := w.queue.Pop(w.config.PollTimeout)
		w.metrics.SetQueueDepth(w.queue.Len())
		if !ok {
			continue
		}

		if w.recorder != nil {
			if err := w.recorder.Write(frame.Samples); err != nil {
				w.logger.Warn("Session recording write failed", slog.String("error", err.Error()))
			}
		}

		for _, block := range w.assembler.Push(frame) {
			w.metrics.RecordBlockEmitted(block.Kind.String())
			w.process(ctx, block)
		}
	}
}

// process normalizes one block, invokes the recognizer, and applies the
// validated result to the shared state. Failures are warnings: a dropped
// block must not halt the stream.
func (w *Worker) process(ctx context.Context, block audio.Block) {
	mono := audio.Normalize(block.Samples, block.Channels)

	req := recognizer.Request{
		ID:         block.ID,
		Samples:    mono,
		SampleRate: block.SampleRate,
		Duration:   block.Duration,
		Model:      w.config.Model,
		Language:   w.config.Language,
	}

	// The stop signal never aborts an in-flight recognition: cancellation
	// is observed at pop timeouts and block boundaries only, so the final
	// chunk's transcript survives an interrupt. The client's own timeout
	// bounds the call.
	start := time.Now()
	result, err := w.rec.Transcribe(context.WithoutCancel(ctx), req)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, recognizer.ErrMalformedResult) {
			w.metrics.RecordMalformedResult()
			w.logger.Warn("Skipping block with unusable model result",
				slog.String("block_id", block.ID),
				slog.String("kind", block.Kind.String()),
				slog.String("error", err.Error()),
			)
			return
		}
		w.metrics.RecordRecognitionFailure()
		w.logger.Warn("Recognition failed, block dropped",
			slog.String("block_id", block.ID),
			slog.String("kind", block.Kind.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	rtf := elapsed.Seconds() / block.Duration
	w.metrics.RecordRecognition(elapsed.Seconds(), rtf)

	applied := *result
	if block.Kind == audio.KindFull {
		// Model timestamps are chunk-relative; shift them to session time
		// before the result is retained for export.
		applied = Rebase(*result, float64(block.Offset)/float64(block.SampleRate))
		w.state.AppendFinal(applied)
		w.metrics.RecordChunkTranscribed()
	} else {
		w.state.SetInterim(applied)
	}

	w.logger.Info("Block transcribed",
		slog.String("block_id", block.ID),
		slog.String("kind", block.Kind.String()),
		slog.Float64("audio_duration", block.Duration),
		slog.Float64("rtf", rtf),
		slog.Int("text_length", len(applied.Text)),
	)

	if w.onUpdate != nil {
		w.onUpdate(Update{Kind: block.Kind, Result: applied, RTF: rtf})
	}
}

// Rebase returns a copy of result with every sentence and token time shifted
// by offset seconds.
func Rebase(result recognizer.AlignedResult, offset float64) recognizer.AlignedResult {
	if offset == 0 {
		return result
	}

	out := recognizer.AlignedResult{
		Text:      result.Text,
		Sentences: make([]recognizer.Sentence, len(result.Sentences)),
	}
	for i, sentence := range result.Sentences {
		shifted := sentence
		shifted.Start += offset
		shifted.End += offset
		shifted.Tokens = make([]recognizer.Token, len(sentence.Tokens))
		for j, token := range sentence.Tokens {
			token.Start += offset
			token.End += offset
			shifted.Tokens[j] = token
		}
		out.Sentences[i] = shifted
	}
	return out
}
