// Package capture records sink output for offline inspection.
package capture

import (
	"sync"
)

// Ring holds the most recent samples delivered to a sink. When full, new
// samples overwrite the oldest. It is safe for one writer and any number of
// readers.
type Ring struct {
	data     []int8
	capacity int
	writePos int
	written  uint64 // total samples ever written
	mu       sync.Mutex
}

// NewRing creates a ring holding up to capacity samples.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		data:     make([]int8, capacity),
		capacity: capacity,
	}
}

// Write appends samples, overwriting the oldest data when full.
func (r *Ring) Write(samples []int8) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.written += uint64(len(samples))

	// Only the tail can survive a write larger than the ring.
	if len(samples) > r.capacity {
		samples = samples[len(samples)-r.capacity:]
	}
	for len(samples) > 0 {
		n := copy(r.data[r.writePos:], samples)
		samples = samples[n:]
		r.writePos = (r.writePos + n) % r.capacity
	}
}

// Snapshot returns a copy of the stored samples, oldest first.
func (r *Ring) Snapshot() []int8 {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.lenLocked()
	if n == 0 {
		return nil
	}

	out := make([]int8, n)
	start := (r.writePos - n + r.capacity) % r.capacity
	if start+n <= r.capacity {
		copy(out, r.data[start:start+n])
	} else {
		first := copy(out, r.data[start:])
		copy(out[first:], r.data[:n-first])
	}
	return out
}

// Len returns the number of samples currently stored.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lenLocked()
}

func (r *Ring) lenLocked() int {
	if r.written > uint64(r.capacity) {
		return r.capacity
	}
	return int(r.written)
}

// Written returns the total number of samples ever written, including
// those already overwritten.
func (r *Ring) Written() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Capacity returns the ring size in samples.
func (r *Ring) Capacity() int {
	return r.capacity
}

// Clear discards all stored samples.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writePos = 0
	r.written = 0
}
