// ABOUTME: Single-producer single-consumer lock-free sample ring
// ABOUTME: Carries captured microphone frames into the virtual-sink mix
package mixer

import "sync/atomic"

// Ring is a lock-free SPSC float32 ring buffer. The capture callback
// is the only writer and the virtual sink's mix callback the only
// reader, so monotonically increasing atomic counters are enough; no
// mutex may sit between two audio callbacks.
type Ring struct {
	buf  []float32
	size int64

	readPos  atomic.Int64
	writePos atomic.Int64
}

// NewRing creates a ring with the given capacity in samples
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		buf:  make([]float32, capacity),
		size: int64(capacity),
	}
}

// Write appends samples, dropping what does not fit. Producer side only.
func (r *Ring) Write(src []float32) int {
	w := r.writePos.Load()
	used := w - r.readPos.Load()
	free := r.size - used

	n := int64(len(src))
	if n > free {
		n = free
	}

	for i := int64(0); i < n; i++ {
		r.buf[(w+i)%r.size] = src[i]
	}
	r.writePos.Store(w + n)
	return int(n)
}

// Read fills dst with available samples and zero-fills the rest.
// Consumer side only. Returns the number of real samples read.
func (r *Ring) Read(dst []float32) int {
	rp := r.readPos.Load()
	avail := r.writePos.Load() - rp

	n := int64(len(dst))
	if n > avail {
		n = avail
	}

	for i := int64(0); i < n; i++ {
		dst[i] = r.buf[(rp+i)%r.size]
	}
	for i := n; i < int64(len(dst)); i++ {
		dst[i] = 0
	}
	r.readPos.Store(rp + n)
	return int(n)
}

// Available returns the number of samples ready to read
func (r *Ring) Available() int {
	return int(r.writePos.Load() - r.readPos.Load())
}
