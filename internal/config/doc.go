// Package config loads and validates the YAML configuration for the
// transcription pipeline.
package config
