// Package history keeps bounded series of recent samples for sparklines
// and trend charts. Buffers evict oldest-first and hand out views that
// stay stable while new samples keep arriving.
package history

// Buffer is a fixed-capacity FIFO of samples. Once full, each push
// evicts the oldest sample. The backing slice is append-only between
// compactions and compaction copies the live window into a fresh
// allocation, so a View taken at any point keeps reading the exact
// values it captured.
type Buffer[T any] struct {
	vals  []T
	start int
	size  int
}

// NewBuffer returns a buffer holding at most capacity samples.
// Capacities below 1 are raised to 1.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		vals: make([]T, 0, 2*capacity),
		size: capacity,
	}
}

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int { return b.size }

// Len returns the number of live samples, at most Cap.
func (b *Buffer[T]) Len() int { return len(b.vals) - b.start }

// Push appends v, evicting the oldest sample when the buffer is full.
func (b *Buffer[T]) Push(v T) {
	if b.start >= b.size {
		// Compact into a fresh allocation; outstanding views keep the
		// old backing slice.
		next := make([]T, 0, 2*b.size)
		next = append(next, b.vals[b.start:]...)
		b.vals = next
		b.start = 0
	}
	b.vals = append(b.vals, v)
	if len(b.vals)-b.start > b.size {
		b.start++
	}
}

// View returns the current contents, oldest first. The view is O(1) to
// take and is not affected by later pushes.
func (b *Buffer[T]) View() View[T] {
	// Three-index slice so an appending consumer cannot reach into the
	// buffer's spare capacity.
	return View[T]{vals: b.vals[b.start:len(b.vals):len(b.vals)]}
}

// View is a read-only window over a buffer's contents at the moment it
// was taken.
type View[T any] struct {
	vals []T
}

// Len returns the number of samples in the view.
func (v View[T]) Len() int { return len(v.vals) }

// At returns the i-th sample, oldest first.
func (v View[T]) At(i int) T { return v.vals[i] }

// Last returns the newest sample, or the zero value when empty.
func (v View[T]) Last() (T, bool) {
	if len(v.vals) == 0 {
		var zero T
		return zero, false
	}
	return v.vals[len(v.vals)-1], true
}

// Tail returns a view of the newest n samples, or all of them when n
// exceeds Len.
func (v View[T]) Tail(n int) View[T] {
	if n >= len(v.vals) {
		return v
	}
	if n < 0 {
		n = 0
	}
	return View[T]{vals: v.vals[len(v.vals)-n:]}
}

// Values returns the window as a slice, oldest first. Callers must
// treat it as read-only.
func (v View[T]) Values() []T { return v.vals }

// Max returns the largest sample in the view, or 0 when empty.
func Max(v View[float64]) float64 {
	var max float64
	for i := 0; i < v.Len(); i++ {
		if x := v.At(i); x > max {
			max = x
		}
	}
	return max
}
