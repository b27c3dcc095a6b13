// Package stimulus holds the input domain of a run and the bookkeeping that lets the driver draw
// every value a fixed number of times.
package stimulus

import (
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// ErrExhausted is returned by Next once every value of the domain has used up its draw quota.
var ErrExhausted = errors.New("stimulus domain exhausted")

// Space samples uniformly from the values that still have draws left. A value leaves the
// remaining set once it has been drawn quota times, so a draw never has to retry.
type Space struct {
	lo, hi    int
	quota     int
	domain    []int
	remaining []int
	pos       map[int]int
	seen      map[int]struct{}
	draws     map[int]int
	drawn     []int
	completed []int
}

// NewSpace creates the domain [lo, hi).
func NewSpace(lo, hi int) (*Space, error) {
	if hi <= lo {
		return nil, errors.Errorf("empty stimulus domain [%d, %d)", lo, hi)
	}
	values := make([]int, 0, hi-lo)
	for v := lo; v < hi; v++ {
		values = append(values, v)
	}
	return newSpace(lo, hi, values), nil
}

// NewConstrainedSpace creates the subset of [lo, hi) accepted by c.
func NewConstrainedSpace(lo, hi int, c *Constraint) (*Space, error) {
	if c == nil {
		return NewSpace(lo, hi)
	}
	if hi <= lo {
		return nil, errors.Errorf("empty stimulus domain [%d, %d)", lo, hi)
	}
	values, err := c.Filter(lo, hi)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.Errorf("constraint %s rejects every value of [%d, %d)", c.Name(), lo, hi)
	}
	return newSpace(lo, hi, values), nil
}

func newSpace(lo, hi int, values []int) *Space {
	s := &Space{
		lo:        lo,
		hi:        hi,
		quota:     1,
		domain:    values,
		remaining: make([]int, len(values)),
		pos:       make(map[int]int, len(values)),
		seen:      make(map[int]struct{}, len(values)),
		draws:     make(map[int]int, len(values)),
	}
	copy(s.remaining, values)
	for i, v := range s.remaining {
		s.pos[v] = i
	}
	return s
}

// Bounds returns lo and hi.
func (s *Space) Bounds() (int, int) {
	return s.lo, s.hi
}

// Domain returns every value of the space in ascending order.
func (s *Space) Domain() []int {
	out := make([]int, len(s.domain))
	copy(out, s.domain)
	return out
}

// Size returns the number of values in the domain.
func (s *Space) Size() int {
	return len(s.domain)
}

// SetQuota sets how many times each value is drawn before it leaves the remaining set. Values
// below one select one. It must be called before the first draw.
func (s *Space) SetQuota(n int) {
	if n < 1 {
		n = 1
	}
	s.quota = n
}

// Quota returns the number of draws per value.
func (s *Space) Quota() int {
	return s.quota
}

// Remaining returns how many values still have draws left.
func (s *Space) Remaining() int {
	return len(s.remaining)
}

// Seen returns how many distinct values have been drawn or marked seen.
func (s *Space) Seen() int {
	return len(s.seen)
}

// IsSeen reports whether v has been seen.
func (s *Space) IsSeen(v int) bool {
	_, ok := s.seen[v]
	return ok
}

// Contains reports whether v belongs to the domain.
func (s *Space) Contains(v int) bool {
	if _, ok := s.pos[v]; ok {
		return true
	}
	_, ok := s.seen[v]
	return ok
}

// Drawn returns the values handed out by Next, in draw order.
func (s *Space) Drawn() []int {
	out := make([]int, len(s.drawn))
	copy(out, s.drawn)
	return out
}

// Completed returns the values drawn quota times, in the order they reached it.
func (s *Space) Completed() []int {
	out := make([]int, len(s.completed))
	copy(out, s.completed)
	return out
}

// Draws returns how many times v has been drawn.
func (s *Space) Draws(v int) int {
	return s.draws[v]
}

// Next draws a value with draws left uniformly at random and marks it seen. The value leaves the
// remaining set when its quota is used up.
func (s *Space) Next(rng *rand.Rand) (int, error) {
	if len(s.remaining) == 0 {
		return 0, errors.Wrapf(ErrExhausted, "[%d, %d) after %d draws", s.lo, s.hi, len(s.drawn))
	}
	v := s.remaining[rng.Intn(len(s.remaining))]
	s.draws[v]++
	s.drawn = append(s.drawn, v)
	s.seen[v] = struct{}{}
	if s.draws[v] >= s.quota {
		s.retire(v)
		s.completed = append(s.completed, v)
	}
	return v, nil
}

// MarkSeen records v as seen and removes it from the remaining set. Calling it again for the same
// value, or for a value outside the domain, has no effect.
func (s *Space) MarkSeen(v int) {
	if _, ok := s.pos[v]; !ok {
		return
	}
	s.retire(v)
	s.seen[v] = struct{}{}
}

func (s *Space) retire(v int) {
	i := s.pos[v]
	last := len(s.remaining) - 1
	moved := s.remaining[last]
	s.remaining[i] = moved
	s.pos[moved] = i
	s.remaining = s.remaining[:last]
	delete(s.pos, v)
}

// Unseen returns the values not seen yet in ascending order.
func (s *Space) Unseen() []int {
	var out []int
	for _, v := range s.domain {
		if _, ok := s.seen[v]; !ok {
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
