// Package analysis connects producers of transactions (driver, bus functional model, monitors)
// to their consumers (scoreboards, coverage) without either side knowing the other.
package analysis

import "sync"

// Subscriber consumes items written to a port. A non-nil error stops dispatch and is returned to
// the writer.
type Subscriber[T any] func(item T) error

// Port is a named broadcast point. Every Write is delivered to all subscribers in connection order.
type Port[T any] struct {
	mu sync.RWMutex

	name    string
	subs    []Subscriber[T]
	catalog []string
	writes  uint64
}

// NewPort creates a port with no subscribers.
func NewPort[T any](name string) *Port[T] {
	return &Port[T]{
		name: name,
		subs: make([]Subscriber[T], 0),
	}
}

// Name returns the port name.
func (p *Port[T]) Name() string {
	if p == nil {
		return ""
	}
	return p.name
}

// Connect adds a subscriber under a descriptive name.
func (p *Port[T]) Connect(name string, s Subscriber[T]) {
	if p == nil || s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, s)
	p.catalog = append(p.catalog, name)
}

// Subscribers lists subscriber names in connection order.
func (p *Port[T]) Subscribers() []string {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.catalog))
	copy(out, p.catalog)
	return out
}

// Writes returns how many items have been written.
func (p *Port[T]) Writes() uint64 {
	if p == nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.writes
}

// Write delivers item to every subscriber.
func (p *Port[T]) Write(item T) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	p.writes++
	handlers := make([]Subscriber[T], len(p.subs))
	copy(handlers, p.subs)
	p.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(item); err != nil {
			return err
		}
	}
	return nil
}
