package audio

import "sync"

// playbackQueue buffers decoded speaker samples between the decode path and
// the realtime output callback. Chunks are appended whole and consumed sample
// by sample, so back to back chunks play without a gap.
type playbackQueue struct {
	mu      sync.Mutex
	pending []int16
	off     int
}

func (q *playbackQueue) push(samples []int16) {
	if len(samples) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.off > 0 && q.off >= len(q.pending)/2 {
		q.pending = append(q.pending[:0], q.pending[q.off:]...)
		q.off = 0
	}
	q.pending = append(q.pending, samples...)
}

// fill copies queued samples into out and zero fills the rest. It reports how
// many queued samples were written.
func (q *playbackQueue) fill(out []int16) int {
	q.mu.Lock()
	n := copy(out, q.pending[q.off:])
	q.off += n
	if q.off == len(q.pending) {
		q.pending = q.pending[:0]
		q.off = 0
	}
	q.mu.Unlock()

	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	return n
}

// reset drops everything queued, including the remainder of the chunk being
// consumed.
func (q *playbackQueue) reset() {
	q.mu.Lock()
	q.pending = q.pending[:0]
	q.off = 0
	q.mu.Unlock()
}

func (q *playbackQueue) buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) - q.off
}
