package analysis

import "github.com/pkg/errors"

// Unlimited disables the FIFO capacity check.
const Unlimited = -1

// ErrFull is returned when an item is written to a FIFO at capacity.
var ErrFull = errors.New("analysis fifo full")

// MutateFunc is invoked after the FIFO length changes.
type MutateFunc func(length int, capacity int)

// FIFO buffers items between a port and a consumer that drains them at its own pace.
type FIFO[T any] struct {
	name     string
	capacity int
	items    []T
	mutate   MutateFunc
}

// NewFIFO constructs a FIFO with an optional mutate callback.
func NewFIFO[T any](name string, capacity int, mutate MutateFunc) *FIFO[T] {
	f := &FIFO[T]{
		name:     name,
		capacity: capacity,
		mutate:   mutate,
	}
	f.notify()
	return f
}

// Name returns the FIFO name.
func (f *FIFO[T]) Name() string {
	if f == nil {
		return ""
	}
	return f.name
}

// Len returns the number of buffered items.
func (f *FIFO[T]) Len() int {
	if f == nil {
		return 0
	}
	return len(f.items)
}

// Cap returns the capacity, or Unlimited.
func (f *FIFO[T]) Cap() int {
	if f == nil {
		return 0
	}
	return f.capacity
}

// Put appends an item. Returns false if capacity is exceeded.
func (f *FIFO[T]) Put(item T) bool {
	if f == nil {
		return false
	}
	if f.capacity >= 0 && len(f.items) >= f.capacity {
		return false
	}
	f.items = append(f.items, item)
	f.notify()
	return true
}

// TryGet removes and returns the oldest item.
func (f *FIFO[T]) TryGet() (T, bool) {
	var zero T
	if f == nil || len(f.items) == 0 {
		return zero, false
	}
	item := f.items[0]
	f.items[0] = zero
	f.items = f.items[1:]
	f.notify()
	return item, true
}

// Peek returns the oldest item without removing it.
func (f *FIFO[T]) Peek() (T, bool) {
	var zero T
	if f == nil || len(f.items) == 0 {
		return zero, false
	}
	return f.items[0], true
}

// Export returns a subscriber that feeds the FIFO, for use with Port.Connect.
func (f *FIFO[T]) Export() Subscriber[T] {
	return func(item T) error {
		if !f.Put(item) {
			return errors.Wrapf(ErrFull, "%s (capacity %d)", f.name, f.capacity)
		}
		return nil
	}
}

func (f *FIFO[T]) notify() {
	if f == nil || f.mutate == nil {
		return
	}
	f.mutate(len(f.items), f.capacity)
}
