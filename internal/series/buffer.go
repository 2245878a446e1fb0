package series

import "sync/atomic"

// Buffer is a fixed-length sliding window of float64 values. Its length is
// always its capacity; it starts zero-filled and every push evicts the oldest
// value.
//
// The window is an immutable slice behind an atomic pointer. Push publishes a
// shifted copy, so readers never lock and never observe a half-written window.
type Buffer struct {
	capacity int
	values   atomic.Pointer[[]float64]
}

// NewBuffer creates a zero-filled buffer. Capacity below 1 is raised to 1.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	b := &Buffer{capacity: capacity}
	b.Reset()
	return b
}

// Push drops the oldest value and appends v.
func (b *Buffer) Push(v float64) {
	for {
		old := b.values.Load()
		next := make([]float64, b.capacity)
		copy(next, (*old)[1:])
		next[b.capacity-1] = v
		if b.values.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Values returns the window oldest first. The slice is shared and must not
// be modified.
func (b *Buffer) Values() []float64 {
	return *b.values.Load()
}

// Last returns the newest value.
func (b *Buffer) Last() float64 {
	v := *b.values.Load()
	return v[len(v)-1]
}

// Len is always the capacity.
func (b *Buffer) Len() int {
	return len(*b.values.Load())
}

// Reset zero-fills the window.
func (b *Buffer) Reset() {
	zero := make([]float64, b.capacity)
	b.values.Store(&zero)
}
