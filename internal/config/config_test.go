package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "default configuration",
			mutate: func(c *Config) {},
		},
		{
			name: "overlap equal to chunk",
			mutate: func(c *Config) {
				c.Audio.ChunkDuration = 4
				c.Audio.OverlapDuration = 4
			},
			expectError: true,
			errorMsg:    "overlap_duration",
		},
		{
			name: "overlap greater than chunk",
			mutate: func(c *Config) {
				c.Audio.OverlapDuration = 25
			},
			expectError: true,
			errorMsg:    "overlap_duration",
		},
		{
			name: "negative overlap",
			mutate: func(c *Config) {
				c.Audio.OverlapDuration = -1
			},
			expectError: true,
			errorMsg:    "overlap_duration cannot be negative",
		},
		{
			name: "too many channels",
			mutate: func(c *Config) {
				c.Audio.Channels = 6
			},
			expectError: true,
			errorMsg:    "channels must be 1 or 2",
		},
		{
			name: "sample rate too low",
			mutate: func(c *Config) {
				c.Audio.SampleRate = 4000
			},
			expectError: true,
			errorMsg:    "sample_rate",
		},
		{
			name: "zero queue capacity",
			mutate: func(c *Config) {
				c.Capture.QueueCapacity = 0
			},
			expectError: true,
			errorMsg:    "queue_capacity",
		},
		{
			name: "empty recognizer endpoint",
			mutate: func(c *Config) {
				c.Recognizer.Endpoint = ""
			},
			expectError: true,
			errorMsg:    "endpoint cannot be empty",
		},
		{
			name: "unknown output format",
			mutate: func(c *Config) {
				c.Output.Formats = []string{"xml"}
			},
			expectError: true,
			errorMsg:    "format must be one of",
		},
		{
			name: "http enabled without address",
			mutate: func(c *Config) {
				c.HTTP.Enabled = true
				c.HTTP.Address = ""
			},
			expectError: true,
			errorMsg:    "http address cannot be empty",
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "trace"
			},
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default configuration must validate, got: %v", err)
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
		check       func(*testing.T, *Config)
	}{
		{
			name: "valid config file",
			configYAML: `
audio:
  sample_rate: 16000
  channels: 1
  buffer_duration: 5.0
  chunk_duration: 20.0
  overlap_duration: 4.0
  chunking: true
capture:
  frames_per_buffer: 1024
  queue_capacity: 128
  poll_timeout: 0.5
  join_timeout: 2.0
recognizer:
  endpoint: "https://api.example.com/transcribe"
  api_key: "test-key"
  timeout: 30
  max_retries: 3
  model: "parakeet"
output:
  dir: "transcripts"
  formats: ["txt", "srt", "json"]
logging:
  level: "info"
  format: "text"
  output: "stderr"
`,
			check: func(t *testing.T, c *Config) {
				if c.Capture.QueueCapacity != 128 {
					t.Errorf("Expected queue capacity 128, got %d", c.Capture.QueueCapacity)
				}
				if c.Recognizer.APIKey != "test-key" {
					t.Errorf("API key not loaded, got '%s'", c.Recognizer.APIKey)
				}
			},
		},
		{
			name: "partial config keeps defaults",
			configYAML: `
audio:
  chunk_duration: 10.0
  overlap_duration: 2.0
`,
			check: func(t *testing.T, c *Config) {
				if c.Audio.ChunkDuration != 10.0 {
					t.Errorf("Expected chunk duration 10, got %f", c.Audio.ChunkDuration)
				}
				if c.Audio.SampleRate != 16000 {
					t.Errorf("Expected default sample rate 16000, got %d", c.Audio.SampleRate)
				}
				if c.Capture.PollTimeout != 0.5 {
					t.Errorf("Expected default poll timeout 0.5, got %f", c.Capture.PollTimeout)
				}
			},
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
audio:
  sample_rate: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "invalid values rejected",
			configYAML: `
audio:
  chunk_duration: 5.0
  overlap_duration: 5.0
`,
			expectError: true,
			errorMsg:    "overlap_duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if tt.check != nil {
				tt.check(t, config)
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file but got none")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	capture := CaptureConfig{
		PollTimeout: 0.5,
		JoinTimeout: 2,
	}
	if capture.GetPollTimeout() != 500*time.Millisecond {
		t.Errorf("Expected 0.5 seconds, got %v", capture.GetPollTimeout())
	}
	if capture.GetJoinTimeout() != 2*time.Second {
		t.Errorf("Expected 2 seconds, got %v", capture.GetJoinTimeout())
	}

	rec := RecognizerConfig{Timeout: 30}
	if rec.GetTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", rec.GetTimeoutDuration())
	}
}
