package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResult marks a model response whose shape cannot be used: the
// block is skipped and the pipeline continues. It never unwinds the worker
// loop.
var ErrMalformedResult = errors.New("malformed recognition result")

// Token is a recognized token with time alignment, in seconds relative to
// the start of the submitted block.
type Token struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// Sentence is a recognized sentence with its token alignment.
type Sentence struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Tokens   []Token `json:"tokens"`
}

// AlignedResult is the recognition model's output for one sample block.
type AlignedResult struct {
	Text      string     `json:"text"`
	Sentences []Sentence `json:"sentences"`
}

// Request carries one normalized sample block to the model.
type Request struct {
	ID         string    // request identifier, logged and forwarded
	Samples    []float32 // mono, clipped to [-1, 1]
	SampleRate int
	Duration   float64 // declared source duration in seconds
	Model      string
	Language   string
}

// Recognizer converts a normalized sample block into one aligned result.
type Recognizer interface {
	Transcribe(ctx context.Context, req Request) (*AlignedResult, error)
}

// rawResult mirrors AlignedResult with a nullable text field so a missing
// text key is distinguishable from an empty string.
type rawResult struct {
	Text      *string    `json:"text"`
	Sentences []Sentence `json:"sentences"`
}

// ParseResult is the single ingress validation step for model output. It
// accepts either one JSON object or a non-empty array (first element used)
// and returns ErrMalformedResult for anything lacking a text field. Nothing
// downstream re-checks result shape.
func ParseResult(data []byte) (*AlignedResult, error) {
	trimmed := firstNonSpace(data)
	if trimmed == '[' {
		var list []rawResult
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: empty result list", ErrMalformedResult)
		}
		return finishResult(list[0])
	}

	var raw rawResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	return finishResult(raw)
}

func finishResult(raw rawResult) (*AlignedResult, error) {
	if raw.Text == nil {
		return nil, fmt.Errorf("%w: missing text field", ErrMalformedResult)
	}
	return &AlignedResult{Text: *raw.Text, Sentences: raw.Sentences}, nil
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}
