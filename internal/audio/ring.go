package audio

import "sync"

// Ring is a fixed-size sample buffer. The capture goroutine writes chunks,
// the analysis loop reads snapshots; at most the newest capacity samples are
// retained.
type Ring struct {
	mu   sync.Mutex
	buf  []float32
	w    int
	full bool
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]float32, capacity)}
}

func (r *Ring) Cap() int { return len(r.buf) }

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.buf)
	}
	return r.w
}

// Write appends samples, overwriting the oldest ones once the ring is full.
// Chunks larger than the capacity keep only their tail.
func (r *Ring) Write(chunk []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(chunk) >= len(r.buf) {
		copy(r.buf, chunk[len(chunk)-len(r.buf):])
		r.w = 0
		r.full = true
		return
	}

	n := copy(r.buf[r.w:], chunk)
	if n < len(chunk) {
		copy(r.buf, chunk[n:])
		r.full = true
	}
	r.w = (r.w + len(chunk)) % len(r.buf)
	if r.w == 0 && n == len(chunk) {
		r.full = true
	}
}

// Snapshot copies the buffered samples in oldest-to-newest order.
func (r *Ring) Snapshot() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]float32, r.w)
		copy(out, r.buf[:r.w])
		return out
	}

	out := make([]float32, len(r.buf))
	n := copy(out, r.buf[r.w:])
	copy(out[n:], r.buf[:r.w])
	return out
}

// Reset drops all buffered samples.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w = 0
	r.full = false
}
