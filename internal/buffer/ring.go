// SPDX-License-Identifier: MIT
/*
Package buffer implements the shared sample buffer that connects the audio
callback (producer) to the render tick (consumer). It is a bounded ring of
mono float32 samples with FIFO eviction: once full, the oldest samples are
silently dropped so the buffer always holds the most recent audio history.

Thread Safety:
- A single mutex guards Push and the snapshot operations
- Critical sections are O(operation size), never allocate, never do I/O
- Designed for exactly one producer and one consumer at a time
*/
package buffer

import (
	"fmt"
	"sync"
)

// Ring is a bounded, thread-safe ring of mono samples, oldest-first.
type Ring struct {
	mu   sync.Mutex
	data []float32
	w    int // next write position
	n    int // current fill level, never exceeds len(data)
}

// New creates a Ring with the given fixed capacity in mono samples.
// Capacity should hold several analysis windows; it is fatal to get wrong.
func New(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("buffer capacity must be positive, got %d", capacity)
	}
	return &Ring{data: make([]float32, capacity)}, nil
}

// Push appends interleaved samples to the ring, down-mixing to mono by
// averaging across channels per frame when channels > 1. Oldest samples are
// overwritten once the ring is full. A trailing partial frame is dropped.
//
// Called from the real-time audio callback: the hold is a short mutex over
// an O(len(samples)) loop with no allocation and no I/O.
func (r *Ring) Push(samples []float32, channels int) {
	if channels < 1 || len(samples) == 0 {
		return
	}

	r.mu.Lock()
	if channels == 1 {
		for _, s := range samples {
			r.write(s)
		}
	} else {
		frames := len(samples) / channels
		inv := 1.0 / float32(channels)
		for f := 0; f < frames; f++ {
			var sum float32
			base := f * channels
			for ch := 0; ch < channels; ch++ {
				sum += samples[base+ch]
			}
			r.write(sum * inv)
		}
	}
	r.mu.Unlock()
}

// write appends one mono sample. Caller must hold r.mu.
func (r *Ring) write(s float32) {
	r.data[r.w] = s
	r.w++
	if r.w == len(r.data) {
		r.w = 0
	}
	if r.n < len(r.data) {
		r.n++
	}
}

// SnapshotLatest returns a copy of the n most recent samples in
// chronological order. The second return value is false when fewer than n
// samples are buffered, a normal startup/underrun condition, not an error.
// The buffer is never mutated.
//
// NOTE: This allocates the returned slice on each call. The render tick
// should prefer CopyLatestInto with a pre-allocated window.
func (r *Ring) SnapshotLatest(n int) ([]float32, bool) {
	if n < 0 {
		return nil, false
	}
	out := make([]float32, n)
	if !r.CopyLatestInto(out) {
		return nil, false
	}
	return out, true
}

// CopyLatestInto fills dst with the len(dst) most recent samples in
// chronological order, without allocating. Returns false (dst untouched)
// when fewer than len(dst) samples are buffered.
func (r *Ring) CopyLatestInto(dst []float32) bool {
	n := len(dst)

	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.n {
		return false
	}
	if n == 0 {
		return true
	}

	start := r.w - n
	if start < 0 {
		start += len(r.data)
	}
	// At most two contiguous segments: [start..cap) then [0..w).
	first := copy(dst, r.data[start:min(start+n, len(r.data))])
	if first < n {
		copy(dst[first:], r.data[:n-first])
	}
	return true
}

// Len returns the current number of buffered mono samples.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Cap returns the fixed capacity in mono samples.
func (r *Ring) Cap() int {
	return len(r.data)
}
