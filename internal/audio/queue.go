package audio

import "sync"

// queueState is the swappable content of a PlaybackQueue. Flush replaces the
// whole state instead of mutating it, so a partially-read buffer can never
// survive a flush.
type queueState struct {
	buffers [][]float32
	cursor  int
}

// PlaybackQueue is an ordered sequence of pending sample buffers drained one
// sample at a time by the render path. Samples come out in strict arrival
// order; a fully consumed buffer is dropped.
type PlaybackQueue struct {
	mu    sync.Mutex
	state *queueState
}

// NewPlaybackQueue returns an empty queue
func NewPlaybackQueue() *PlaybackQueue {
	return &PlaybackQueue{state: &queueState{}}
}

// Push appends a decoded buffer to the tail of the queue
func (q *PlaybackQueue) Push(buf []float32) {
	if len(buf) == 0 {
		return
	}
	q.mu.Lock()
	q.state.buffers = append(q.state.buffers, buf)
	q.mu.Unlock()
}

// Pull returns the next sample in arrival order. The second return value is
// false when the queue is empty; the caller emits silence in that case.
func (q *PlaybackQueue) Pull() (float32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st := q.state
	for len(st.buffers) > 0 {
		head := st.buffers[0]
		if st.cursor < len(head) {
			s := head[st.cursor]
			st.cursor++
			return s, true
		}
		st.buffers = st.buffers[1:]
		st.cursor = 0
	}
	return 0, false
}

// Flush clears the queue and resets the cursor atomically with respect to the
// render path, by swapping in a fresh state.
func (q *PlaybackQueue) Flush() {
	q.mu.Lock()
	q.state = &queueState{}
	q.mu.Unlock()
}

// Pending reports the number of samples still queued
func (q *PlaybackQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for i, buf := range q.state.buffers {
		n += len(buf)
		if i == 0 {
			n -= q.state.cursor
		}
	}
	return n
}
