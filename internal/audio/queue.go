package audio

import "time"

// Queue is the bounded handoff between the capture callback and the consumer
// loop. Push never blocks: the capture driver invokes it from its own thread
// and stalling there causes audible dropouts, so a full queue drops the frame
// instead. Pop blocks up to a timeout and reports expiry as a second return
// value rather than an error, since an idle microphone is a routine condition.
//
// Single producer, single consumer. FIFO order is preserved for every frame
// that is accepted.
type Queue struct {
	ch chan Frame
}

// NewQueue creates a queue holding at most capacity frames.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Frame, capacity)}
}

// Push enqueues a frame without blocking. It returns false if the queue is
// full and the frame was dropped.
func (q *Queue) Push(frame Frame) bool {
	select {
	case q.ch <- frame:
		return true
	default:
		return false
	}
}

// Pop dequeues the oldest frame, waiting up to timeout for one to arrive.
// The second return value is false when the timeout expired with no frame.
func (q *Queue) Pop(timeout time.Duration) (Frame, bool) {
	select {
	case frame := <-q.ch:
		return frame, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame := <-q.ch:
		return frame, true
	case <-timer.C:
		return Frame{}, false
	}
}

// Len returns the number of frames currently buffered.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the configured capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
