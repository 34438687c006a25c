package recognizer

import (
	"context"
	"sync"
)

// Mock is a scripted recognizer for tests. Each call consumes the next
// scripted outcome; when the script runs out, the last entry repeats.
type Mock struct {
	mu       sync.Mutex
	script   []MockOutcome
	pos      int
	requests []Request
}

// MockOutcome is one scripted Transcribe return value.
type MockOutcome struct {
	Result *AlignedResult
	Err    error
}

// NewMock creates a mock recognizer with the given script.
func NewMock(script ...MockOutcome) *Mock {
	return &Mock{script: script}
}

// Transcribe records the request and returns the next scripted outcome.
func (m *Mock) Transcribe(ctx context.Context, req Request) (*AlignedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if len(m.script) == 0 {
		return &AlignedResult{}, nil
	}

	outcome := m.script[m.pos]
	if m.pos < len(m.script)-1 {
		m.pos++
	}
	return outcome.Result, outcome.Err
}

// Requests returns a copy of every request seen so far.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
