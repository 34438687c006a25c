// Package server exposes an optional HTTP status API for the running
// pipeline: health, live transcription state, configuration, and
// Prometheus metrics.
package server
