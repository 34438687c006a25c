package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PierreVannier/parakeet-transcript/internal/audio"
	"github.com/PierreVannier/parakeet-transcript/internal/config"
	"github.com/PierreVannier/parakeet-transcript/internal/pipeline"
	"github.com/PierreVannier/parakeet-transcript/internal/recognizer"
)

// StatsProvider reports recognition client statistics. Satisfied by
// recognizer.HTTPClient; nil when a different recognizer is in use.
type StatsProvider interface {
	Stats() recognizer.ClientStats
}

// HTTPServer provides HTTP API endpoints for monitoring the pipeline
type HTTPServer struct {
	server *http.Server
	logger *slog.Logger
	config *config.Config
	state  *pipeline.State
	queue  *audio.Queue
	stats  StatsProvider

	startTime time.Time
}

// NewHTTPServer creates a new HTTP status server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, state *pipeline.State, queue *audio.Queue, stats StatsProvider) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		state:     state,
		queue:     queue,
		stats:     stats,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/state", h.handleState)
	mux.HandleFunc("/config", h.handleConfig)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", h.handleRoot)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP status server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP status server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := h.state.Snapshot()
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    "parakeet-transcript",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"ingress": map[string]interface{}{
				"status":         "running",
				"queue_size":     h.queue.Len(),
				"queue_capacity": h.queue.Cap(),
			},
			"transcription": map[string]interface{}{
				"status":           "running",
				"chunks_processed": snap.ChunksProcessed,
				"final_results":    snap.FinalResults,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleState implements the /state endpoint
func (h *HTTPServer) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"state":     h.state.Snapshot(),
	}
	if h.stats != nil {
		response["recognizer"] = h.stats.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Sanitized configuration, the API key is intentionally omitted
	sanitized := map[string]interface{}{
		"audio": map[string]interface{}{
			"sample_rate":      h.config.Audio.SampleRate,
			"channels":         h.config.Audio.Channels,
			"buffer_duration":  h.config.Audio.BufferDuration,
			"chunk_duration":   h.config.Audio.ChunkDuration,
			"overlap_duration": h.config.Audio.OverlapDuration,
			"chunking":         h.config.Audio.Chunking,
		},
		"capture": map[string]interface{}{
			"device":            h.config.Capture.Device,
			"frames_per_buffer": h.config.Capture.FramesPerBuffer,
			"queue_capacity":    h.config.Capture.QueueCapacity,
			"poll_timeout":      h.config.Capture.PollTimeout,
		},
		"recognizer": map[string]interface{}{
			"endpoint":    h.config.Recognizer.Endpoint,
			"timeout":     h.config.Recognizer.Timeout,
			"max_retries": h.config.Recognizer.MaxRetries,
			"model":       h.config.Recognizer.Model,
			"language":    h.config.Recognizer.Language,
		},
		"output": map[string]interface{}{
			"dir":     h.config.Output.Dir,
			"formats": h.config.Output.Formats,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitized)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Parakeet Transcript",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Pipeline health check",
			"GET /state":   "Live transcription state",
			"GET /config":  "Active configuration",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
