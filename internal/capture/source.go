package capture

import (
	"github.com/PierreVannier/parakeet-transcript/internal/audio"
)

// Sink receives captured frames. It must not block: the capture thread
// runs on a real-time deadline, so a slow consumer drops frames at the
// queue instead of stalling here.
type Sink func(audio.Frame)

// Source is a producer of audio frames.
type Source interface {
	// Start begins delivering frames to the sink until Stop is called.
	Start() error

	// Stop ends frame delivery and releases the underlying resource.
	Stop() error

	// Name identifies the source for logging.
	Name() string
}
