package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/PierreVannier/parakeet-transcript/internal/audio"
	"github.com/PierreVannier/parakeet-transcript/internal/capture"
	"github.com/PierreVannier/parakeet-transcript/internal/config"
	"github.com/PierreVannier/parakeet-transcript/internal/export"
	"github.com/PierreVannier/parakeet-transcript/internal/metrics"
	"github.com/PierreVannier/parakeet-transcript/internal/pipeline"
	"github.com/PierreVannier/parakeet-transcript/internal/recognizer"
	"github.com/PierreVannier/parakeet-transcript/internal/server"
)

const (
	serviceName    = "parakeet-transcript"
	serviceVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	device := flag.String("device", "", "Input device index or name substring")
	listDevices := flag.Bool("list-devices", false, "List input devices and exit")
	input := flag.String("input", "", "Transcribe a WAV file instead of the microphone")
	endpoint := flag.String("endpoint", "", "Transcription API endpoint")
	model := flag.String("model", "", "Model name sent to the transcription API")
	chunkDuration := flag.Float64("chunk-duration", 0, "Full chunk duration in seconds")
	overlapDuration := flag.Float64("overlap-duration", -1, "Overlap carried between chunks in seconds")
	noChunking := flag.Bool("no-chunking", false, "Disable full chunks, interim segments only")
	outputDir := flag.String("output-dir", "", "Directory for saved transcripts")
	outputFormat := flag.String("output-format", "", "Transcript formats: txt, srt, json, or all")
	saveAudio := flag.Bool("save-audio", false, "Also record the session audio to a WAV file")
	flag.Parse()

	if *listDevices {
		printDevices()
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags override the file.
	if *device != "" {
		cfg.Capture.Device = *device
	}
	if *endpoint != "" {
		cfg.Recognizer.Endpoint = *endpoint
	}
	if *model != "" {
		cfg.Recognizer.Model = *model
	}
	if *chunkDuration > 0 {
		cfg.Audio.ChunkDuration = *chunkDuration
	}
	if *overlapDuration >= 0 {
		cfg.Audio.OverlapDuration = *overlapDuration
	}
	if *noChunking {
		cfg.Audio.Chunking = false
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *saveAudio {
		cfg.Capture.SaveAudio = true
	}
	if *outputFormat != "" {
		formats, err := export.NormalizeFormats(*outputFormat)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid output format: %v\n", err)
			os.Exit(1)
		}
		cfg.Output.Formats = formats
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
	)

	appMetrics := metrics.New()
	queue := audio.NewQueue(cfg.Capture.QueueCapacity)

	// Ingress: never blocks the capture thread. A full queue drops the
	// newest frame and keeps the stream going.
	sink := func(frame audio.Frame) {
		if queue.Push(frame) {
			appMetrics.RecordFrameCaptured()
			return
		}
		appMetrics.RecordFrameDropped()
		logger.Warn("Ingress queue full, frame dropped",
			slog.Uint64("seq", frame.Seq),
			slog.Int("queue_capacity", queue.Cap()),
		)
	}

	// The audio source decides the stream geometry: a file replay uses the
	// file's format, the microphone uses the configured one.
	var source capture.Source
	var fileSource *capture.FileSource
	if *input != "" {
		fs, err := capture.NewFileSource(*input, cfg.Capture.FramesPerBuffer, false, sink, logger)
		if err != nil {
			logger.Error("Failed to open input file", slog.String("error", err.Error()))
			os.Exit(1)
		}
		cfg.Audio.SampleRate = fs.SampleRate()
		cfg.Audio.Channels = fs.Channels()
		source = fs
		fileSource = fs
	} else {
		source = capture.NewDevice(capture.DeviceConfig{
			Device:          cfg.Capture.Device,
			SampleRate:      cfg.Audio.SampleRate,
			Channels:        cfg.Audio.Channels,
			FramesPerBuffer: cfg.Capture.FramesPerBuffer,
		}, sink, logger)
	}

	assembler, err := audio.NewAssembler(audio.AssemblerConfig{
		SampleRate:      cfg.Audio.SampleRate,
		Channels:        cfg.Audio.Channels,
		BufferDuration:  cfg.Audio.BufferDuration,
		ChunkDuration:   cfg.Audio.ChunkDuration,
		OverlapDuration: cfg.Audio.OverlapDuration,
		Chunking:        cfg.Audio.Chunking,
	})
	if err != nil {
		logger.Error("Invalid segmentation geometry", slog.String("error", err.Error()))
		os.Exit(1)
	}

	client, err := recognizer.NewHTTPClient(recognizer.Config{
		Endpoint:   cfg.Recognizer.Endpoint,
		APIKey:     cfg.Recognizer.APIKey,
		Timeout:    cfg.Recognizer.GetTimeoutDuration(),
		MaxRetries: cfg.Recognizer.MaxRetries,
		Model:      cfg.Recognizer.Model,
		Language:   cfg.Recognizer.Language,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	state := pipeline.NewState()
	worker := pipeline.NewWorker(pipeline.WorkerConfig{
		PollTimeout: cfg.Capture.GetPollTimeout(),
		Model:       cfg.Recognizer.Model,
		Language:    cfg.Recognizer.Language,
	}, queue, assembler, client, state, logger, appMetrics)
	worker.OnUpdate(newDisplay(os.Stdout, true).Render)

	var recorder *audio.WAVWriter
	if cfg.Capture.SaveAudio {
		path := filepath.Join(cfg.Output.Dir, "session_"+time.Now().Format("20060102_150405")+".wav")
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			logger.Error("Failed to create output directory", slog.String("error", err.Error()))
			os.Exit(1)
		}
		recorder, err = audio.NewWAVWriter(path, cfg.Audio.SampleRate, cfg.Audio.Channels)
		if err != nil {
			logger.Error("Failed to create session recording", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Recording session audio", slog.String("path", path))
		worker.SetRecorder(recorder)
	}

	exporter := export.NewExporter(cfg.Output.Dir, cfg.Output.Formats, logger)
	coordinator, ctx := pipeline.NewCoordinator(logger, cfg.Capture.GetJoinTimeout(), func() {
		if _, err := exporter.Save(state.Results()); err != nil {
			logger.Error("Failed to save transcripts", slog.String("error", err.Error()))
		}
	})

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, state, queue, client)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	go worker.Run(ctx)

	if err := source.Start(); err != nil {
		logger.Error("Failed to start audio capture", slog.String("error", err.Error()))
		if *input == "" {
			fmt.Fprintln(os.Stderr, "Could not open the input device. Run with -list-devices to see what is available.")
		}
		coordinator.Stop("capture failed")
		coordinator.Join(worker.Done())
		releaseResources(logger, recorder, httpServer)
		os.Exit(1)
	}

	logger.Info("Transcribing",
		slog.String("source", source.Name()),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Float64("chunk_duration", cfg.Audio.ChunkDuration),
		slog.Float64("overlap_duration", cfg.Audio.OverlapDuration),
		slog.Bool("chunking", cfg.Audio.Chunking),
		slog.String("endpoint", cfg.Recognizer.Endpoint),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var fileDone <-chan struct{}
	if fileSource != nil {
		fileDone = fileSource.Done()
	}

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		coordinator.Stop("signal " + sig.String())
	case <-fileDone:
		// Give the consumer a chance to drain the remaining queued frames.
		waitForDrain(queue, cfg.Capture.GetPollTimeout())
		coordinator.Stop("end of input file")
	case <-ctx.Done():
		// A pipeline component stopped the coordinator directly.
	}

	if err := source.Stop(); err != nil {
		logger.Error("Error stopping audio capture", slog.String("error", err.Error()))
	}

	joined := coordinator.Join(worker.Done())
	if !joined {
		logger.Warn("Consumer abandoned mid-block")
	}

	releaseResources(logger, recorder, httpServer)

	stats := client.Stats()
	snap := state.Snapshot()
	logger.Info("Session finished",
		slog.Int("chunks_processed", snap.ChunksProcessed),
		slog.Int("final_results", snap.FinalResults),
		slog.Uint64("api_requests", stats.TotalRequests),
		slog.Uint64("api_failures", stats.FailedRequests),
		slog.Uint64("api_retries", stats.TotalRetries),
	)
}

// releaseResources finalizes the session recording and stops the status
// server. Every exit path runs it: an unfinalized WAV has no valid header.
func releaseResources(logger *slog.Logger, recorder *audio.WAVWriter, httpServer *server.HTTPServer) {
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			logger.Error("Error finalizing session recording", slog.String("error", err.Error()))
		}
	}

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}
}

// waitForDrain blocks until the ingress queue is empty or the bound elapses.
// Used after a file replay so trailing frames are not lost.
func waitForDrain(queue *audio.Queue, bound time.Duration) {
	deadline := time.Now().Add(bound * 4)
	for queue.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}

// printDevices lists input-capable audio devices on stdout.
func printDevices() {
	devices, err := capture.ListDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enumerate devices: %v\n", err)
		os.Exit(1)
	}
	if len(devices) == 0 {
		fmt.Println("No input devices found.")
		return
	}
	for _, dev := range devices {
		marker := " "
		if dev.Default {
			marker = "*"
		}
		fmt.Printf("%s %3d  %-40s  %d ch  %.0f Hz\n",
			marker, dev.Index, dev.Name, dev.Channels, dev.SampleRate)
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// The terminal display owns stdout, so logs default to stderr.
	var output *os.File
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
