package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Phase is the shutdown coordinator's observable state.
type Phase int32

const (
	PhaseRunning Phase = iota
	PhaseStopping
	PhaseStopped
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Coordinator owns the cooperative stop signal. Stop may be called from any
// goroutine and any number of times (interrupt, fatal capture error); the
// first call wins. Join waits for the consumer with a bounded timeout and
// then flushes the accumulated results exactly once, so partial sessions are
// never silently lost.
type Coordinator struct {
	logger      *slog.Logger
	cancel      context.CancelFunc
	joinTimeout time.Duration
	flush       func()

	phase     atomic.Int32
	stopOnce  sync.Once
	flushOnce sync.Once
}

// NewCoordinator creates a coordinator and the pipeline context it cancels.
// flush is invoked exactly once when the pipeline reaches the stopped phase.
func NewCoordinator(logger *slog.Logger, joinTimeout time.Duration, flush func()) (*Coordinator, context.Context) {
	if joinTimeout <= 0 {
		joinTimeout = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		logger:      logger,
		cancel:      cancel,
		joinTimeout: joinTimeout,
		flush:       flush,
	}
	c.phase.Store(int32(PhaseRunning))
	return c, ctx
}

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	return Phase(c.phase.Load())
}

// Stop transitions running -> stopping and cancels the pipeline context.
// Subsequent calls are no-ops.
func (c *Coordinator) Stop(reason string) {
	c.stopOnce.Do(func() {
		c.phase.Store(int32(PhaseStopping))
		c.logger.Info("Stopping pipeline", slog.String("reason", reason))
		c.cancel()
	})
}

// Join waits for the consumer loop to exit, bounded by the join timeout.
// On timeout it proceeds with teardown anyway and logs a warning rather than
// hanging. Either way the phase becomes stopped and the flush runs once.
// It returns false if the consumer did not exit in time.
func (c *Coordinator) Join(done <-chan struct{}) bool {
	joined := true

	timer := time.NewTimer(c.joinTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		joined = false
		c.logger.Warn("Consumer did not stop within the join timeout, proceeding with teardown",
			slog.Duration("timeout", c.joinTimeout),
		)
	}

	c.phase.Store(int32(PhaseStopped))
	c.flushOnce.Do(func() {
		if c.flush != nil {
			c.flush()
		}
	})

	return joined
}
