package sim

// committer is implemented by every signal so the kernel can publish pending writes at the end of
// an edge.
type committer interface {
	commit()
}

// Signal is a clocked value with read-old/write-new semantics. Get always returns the value
// committed at the end of the previous edge; Set stages a value that becomes visible only after
// the current edge has been fully processed. When several writers stage a value during the same
// edge, the last one wins.
type Signal[T comparable] struct {
	name  string
	cur   T
	prev  T
	next  T
	dirty bool
}

// NewSignal creates a signal registered with the kernel so it takes part in edge commits.
func NewSignal[T comparable](k *Kernel, name string, initial T) *Signal[T] {
	s := &Signal[T]{
		name: name,
		cur:  initial,
		prev: initial,
		next: initial,
	}
	if k != nil {
		k.signals = append(k.signals, s)
	}
	return s
}

// Name returns the signal name.
func (s *Signal[T]) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Get returns the committed value.
func (s *Signal[T]) Get() T {
	return s.cur
}

// Prev returns the value that was committed one edge earlier.
func (s *Signal[T]) Prev() T {
	return s.prev
}

// Set stages a value for the next commit.
func (s *Signal[T]) Set(v T) {
	s.next = v
	s.dirty = true
}

// Pending returns the staged value and whether a write is pending.
func (s *Signal[T]) Pending() (T, bool) {
	return s.next, s.dirty
}

// Changed reports whether the last commit changed the value.
func (s *Signal[T]) Changed() bool {
	return s.cur != s.prev
}

func (s *Signal[T]) commit() {
	s.prev = s.cur
	if s.dirty {
		s.cur = s.next
		s.dirty = false
	}
}

// Rose reports a 0->1 transition on the last commit.
func Rose(s *Signal[bool]) bool {
	return s.cur && !s.prev
}

// Fell reports a 1->0 transition on the last commit.
func Fell(s *Signal[bool]) bool {
	return !s.cur && s.prev
}

// Bit converts a boolean line level into 0/1.
func Bit(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
