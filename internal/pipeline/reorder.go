// Package pipeline holds the pieces shared by multi-engine frame processing.
package pipeline

// Reorder releases items in strict index order even when engines finish out of order
// (Worker 2 might finish before Worker 1).
type Reorder[T any] struct {
	next    int
	step    int
	pending map[int]T
}

// NewReorder expects indexes first, first+step, first+2*step, ...
func NewReorder[T any](first, step int) *Reorder[T] {
	if step < 1 {
		step = 1
	}
	return &Reorder[T]{next: first, step: step, pending: make(map[int]T)}
}

// Push buffers v and returns every item that is now ready, in order.
func (r *Reorder[T]) Push(index int, v T) []T {
	r.pending[index] = v

	var ready []T
	for {
		item, ok := r.pending[r.next]
		if !ok {
			break
		}
		delete(r.pending, r.next)
		ready = append(ready, item)
		r.next += r.step
	}
	return ready
}

// Pending is the number of buffered items still waiting for a gap to fill.
func (r *Reorder[T]) Pending() int {
	return len(r.pending)
}

// Drain returns the remaining items in index order and empties the buffer.
// Used when the stream ends with gaps (e.g. a dropped frame).
func (r *Reorder[T]) Drain() []T {
	var out []T
	for len(r.pending) > 0 {
		if item, ok := r.pending[r.next]; ok {
			out = append(out, item)
			delete(r.pending, r.next)
		}
		r.next += r.step
	}
	return out
}
