package sim

import "sync"

// Flag is a one-shot completion token shared by every task of a run. It is raised once, by a
// single writer, and observed by any number of readers, including goroutines outside the kernel.
type Flag struct {
	mu     sync.Mutex
	raised bool
	cycle  uint64
	ch     chan struct{}
}

// NewFlag creates a lowered flag.
func NewFlag() *Flag {
	return &Flag{ch: make(chan struct{})}
}

// Raise sets the flag and records the cycle it was raised at. Only the first call has an effect;
// it returns true for that call.
func (f *Flag) Raise(cycle uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.raised {
		return false
	}
	f.raised = true
	f.cycle = cycle
	close(f.ch)
	return true
}

// IsRaised reports whether the flag has been raised.
func (f *Flag) IsRaised() bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raised
}

// RaisedAt returns the cycle passed to the first Raise, or zero.
func (f *Flag) RaisedAt() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cycle
}

// Done returns a channel closed when the flag is raised.
func (f *Flag) Done() <-chan struct{} {
	return f.ch
}
