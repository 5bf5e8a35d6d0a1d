// SPDX-License-Identifier: MIT
package source

import "sync"

// Ring is a fixed-capacity FIFO of PCM samples shared between a stream
// callback (producer) and a worker loop (consumer). Append performs the
// append-then-trim of the rolling buffer as one atomic step with respect to
// Tail, so a reader never observes a half-trimmed buffer.
type Ring struct {
	mu   sync.Mutex
	buf  []float64
	head int // index of the oldest sample
	size int
}

// NewRing creates a ring holding at most capacity samples.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Append adds samples to the end of the buffer, discarding the oldest
// samples once capacity is reached.
func (r *Ring) Append(samples []int16) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.buf)
	for _, s := range samples {
		r.buf[(r.head+r.size)%capacity] = float64(s)
		if r.size < capacity {
			r.size++
		} else {
			r.head = (r.head + 1) % capacity
		}
	}
}

// Tail returns a copy of the most recent n samples, or nil if fewer than n
// samples have been received so far.
func (r *Ring) Tail(n int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || r.size < n {
		return nil
	}

	capacity := len(r.buf)
	start := (r.head + r.size - n) % capacity

	out := make([]float64, n)
	for i := range out {
		out[i] = r.buf[(start+i)%capacity]
	}
	return out
}

// Len returns the number of samples currently buffered.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the fixed capacity of the ring.
func (r *Ring) Cap() int {
	return len(r.buf)
}
