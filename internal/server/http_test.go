package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PierreVannier/parakeet-transcript/internal/audio"
	"github.com/PierreVannier/parakeet-transcript/internal/config"
	"github.com/PierreVannier/parakeet-transcript/internal/pipeline"
	"github.com/PierreVannier/parakeet-transcript/internal/recognizer"
)

func testServer() *HTTPServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	state := pipeline.NewState()
	state.AppendFinal(recognizer.AlignedResult{Text: "hello there"})
	queue := audio.NewQueue(8)

	return NewHTTPServer(config.Default().HTTP, logger, config.Default(), state, queue, nil)
}

func TestHandleHealth(t *testing.T) {
	h := testServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body["status"])
	}

	components := body["components"].(map[string]interface{})
	transcription := components["transcription"].(map[string]interface{})
	if transcription["chunks_processed"].(float64) != 1 {
		t.Errorf("Expected 1 chunk processed, got %v", transcription["chunks_processed"])
	}
}

func TestHandleState(t *testing.T) {
	h := testServer()

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rec := httptest.NewRecorder()
	h.handleState(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		State pipeline.Snapshot `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if body.State.LatestText != "hello there" {
		t.Errorf("Expected latest text 'hello there', got '%s'", body.State.LatestText)
	}
}

func TestHandleConfigOmitsAPIKey(t *testing.T) {
	h := testServer()
	h.config.Recognizer.APIKey = "super-secret"

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	h.handleConfig(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); strings.Contains(body, "super-secret") {
		t.Error("Config endpoint must not expose the API key")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := testServer()

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	h.handleHealth(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
