package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Audio      AudioConfig      `yaml:"audio"`
	Capture    CaptureConfig    `yaml:"capture"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Output     OutputConfig     `yaml:"output"`
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AudioConfig contains segmentation parameters
type AudioConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	Channels        int     `yaml:"channels"`
	BufferDuration  float64 `yaml:"buffer_duration"`  // seconds, interim segments
	ChunkDuration   float64 `yaml:"chunk_duration"`   // seconds, full chunks
	OverlapDuration float64 `yaml:"overlap_duration"` // seconds, carried between chunks
	Chunking        bool    `yaml:"chunking"`
}

// CaptureConfig contains audio capture configuration
type CaptureConfig struct {
	Device          string  `yaml:"device"` // index or name substring, empty for default
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	QueueCapacity   int     `yaml:"queue_capacity"`
	PollTimeout     float64 `yaml:"poll_timeout"` // seconds
	JoinTimeout     float64 `yaml:"join_timeout"` // seconds
	SaveAudio       bool    `yaml:"save_audio"`
}

// RecognizerConfig contains transcription API configuration
type RecognizerConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	Timeout    int    `yaml:"timeout"` // seconds
	MaxRetries int    `yaml:"max_retries"`
	Model      string `yaml:"model"`
	Language   string `yaml:"language"`
}

// OutputConfig contains transcript export configuration
type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
}

// HTTPConfig contains status API server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:      16000,
			Channels:        1,
			BufferDuration:  5,
			ChunkDuration:   20,
			OverlapDuration: 4,
			Chunking:        true,
		},
		Capture: CaptureConfig{
			FramesPerBuffer: 1024,
			QueueCapacity:   64,
			PollTimeout:     0.5,
			JoinTimeout:     2,
		},
		Recognizer: RecognizerConfig{
			Endpoint:   "http://localhost:8080/transcribe",
			Timeout:    30,
			MaxRetries: 3,
			Model:      "parakeet",
		},
		Output: OutputConfig{
			Dir:     "transcripts",
			Formats: []string{"txt", "srt", "json"},
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads and parses the configuration file, applying defaults for
// omitted sections.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Recognizer.Validate(); err != nil {
		return fmt.Errorf("recognizer config: %w", err)
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio segmentation configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 {
		return fmt.Errorf("sample_rate must be at least 8000 Hz, got %d", a.SampleRate)
	}

	if a.Channels < 1 || a.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", a.Channels)
	}

	if a.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %f", a.BufferDuration)
	}

	if a.ChunkDuration <= 0 {
		return fmt.Errorf("chunk_duration must be positive, got %f", a.ChunkDuration)
	}

	if a.OverlapDuration < 0 {
		return fmt.Errorf("overlap_duration cannot be negative, got %f", a.OverlapDuration)
	}

	if a.OverlapDuration >= a.ChunkDuration {
		return fmt.Errorf("overlap_duration (%f) must be less than chunk_duration (%f)",
			a.OverlapDuration, a.ChunkDuration)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.FramesPerBuffer < 64 {
		return fmt.Errorf("frames_per_buffer must be at least 64, got %d", c.FramesPerBuffer)
	}

	if c.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1, got %d", c.QueueCapacity)
	}

	if c.PollTimeout <= 0 {
		return fmt.Errorf("poll_timeout must be positive, got %f", c.PollTimeout)
	}

	if c.JoinTimeout <= 0 {
		return fmt.Errorf("join_timeout must be positive, got %f", c.JoinTimeout)
	}

	return nil
}

// Validate validates recognizer configuration
func (r *RecognizerConfig) Validate() error {
	if r.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if r.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", r.Timeout)
	}

	if r.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", r.MaxRetries)
	}

	return nil
}

// Validate validates output configuration
func (o *OutputConfig) Validate() error {
	if o.Dir == "" {
		return fmt.Errorf("dir cannot be empty")
	}

	if len(o.Formats) == 0 {
		return fmt.Errorf("at least one output format is required")
	}

	validFormats := map[string]bool{"txt": true, "srt": true, "json": true}
	for _, format := range o.Formats {
		if !validFormats[format] {
			return fmt.Errorf("format must be one of [txt, srt, json], got '%s'", format)
		}
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetPollTimeout returns the queue poll timeout as a time.Duration
func (c *CaptureConfig) GetPollTimeout() time.Duration {
	return time.Duration(c.PollTimeout * float64(time.Second))
}

// GetJoinTimeout returns the shutdown join timeout as a time.Duration
func (c *CaptureConfig) GetJoinTimeout() time.Duration {
	return time.Duration(c.JoinTimeout * float64(time.Second))
}

// GetTimeoutDuration returns the recognizer timeout as a time.Duration
func (r *RecognizerConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}
