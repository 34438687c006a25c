package pipeline

import (
	"sync"
	"time"

	"github.com/PierreVannier/parakeet-transcript/internal/recognizer"
)

// State is the shared transcription state: the append-only sequence of
// finalized results plus the latest display text. The lock and the data it
// guards travel together; the worker is the only writer, display and export
// are readers.
type State struct {
	mu sync.Mutex

	results         []recognizer.AlignedResult
	latestText      string
	chunksProcessed int
	lastUpdate      time.Time
}

// Snapshot is a point-in-time copy of the state counters for display and
// the status API.
type Snapshot struct {
	LatestText      string    `json:"latest_text"`
	ChunksProcessed int       `json:"chunks_processed"`
	FinalResults    int       `json:"final_results"`
	LastUpdate      time.Time `json:"last_update"`
}

// NewState creates an empty transcription state.
func NewState() *State {
	return &State{}
}

// AppendFinal retains a full-chunk result permanently and makes its text the
// latest display text. Empty text keeps the previous display text.
func (s *State) AppendFinal(result recognizer.AlignedResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, result)
	if result.Text != "" {
		s.latestText = result.Text
	}
	s.chunksProcessed++
	s.lastUpdate = time.Now()
}

// SetInterim updates the display text from an interim segment without
// retaining the result.
func (s *State) SetInterim(result recognizer.AlignedResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if result.Text != "" {
		s.latestText = result.Text
	}
	s.lastUpdate = time.Now()
}

// Snapshot returns the current counters.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		LatestText:      s.latestText,
		ChunksProcessed: s.chunksProcessed,
		FinalResults:    len(s.results),
		LastUpdate:      s.lastUpdate,
	}
}

// Results returns a copy of all finalized results in append order.
func (s *State) Results() []recognizer.AlignedResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]recognizer.AlignedResult, len(s.results))
	copy(out, s.results)
	return out
}
