// Package coverage tracks which stimulus values have been observed, decides when the input domain
// is closed and renders the final report.
package coverage

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ThresholdFunc is invoked once, with the aggregate percentage, when coverage first reaches the
// registered threshold.
type ThresholdFunc func(percent float64)

// CoverPoint is a named set of single-value bins with a per-bin hit threshold.
type CoverPoint struct {
	name    string
	atLeast int
	values  []int
	index   map[int]int
	hits    []int
	covered int
	misses  uint64
}

func newCoverPoint(name string, values []int, atLeast int) *CoverPoint {
	if atLeast <= 0 {
		atLeast = 1
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	p := &CoverPoint{
		name:    name,
		atLeast: atLeast,
		index:   make(map[int]int, len(sorted)),
	}
	for _, v := range sorted {
		if _, dup := p.index[v]; dup {
			continue
		}
		p.index[v] = len(p.values)
		p.values = append(p.values, v)
	}
	p.hits = make([]int, len(p.values))
	return p
}

// sample counts v; it reports whether a bin became covered.
func (p *CoverPoint) sample(v int) bool {
	i, ok := p.index[v]
	if !ok {
		p.misses++
		return false
	}
	p.hits[i]++
	if p.hits[i] == p.atLeast {
		p.covered++
		return true
	}
	return false
}

func (p *CoverPoint) complete() bool {
	return p.covered == len(p.values)
}

// Tracker is the coverage database of one run. It is safe for concurrent use so observers outside
// the simulation can read progress while a run is in flight.
type Tracker struct {
	mu sync.Mutex

	points  map[string]*CoverPoint
	order   []string
	samples uint64

	thresholds []*threshold
}

type threshold struct {
	percent float64
	fn      ThresholdFunc
	fired   bool
}

// NewTracker creates an empty coverage database.
func NewTracker() *Tracker {
	return &Tracker{points: make(map[string]*CoverPoint)}
}

// AddPoint declares a cover point with one bin per value.
func (t *Tracker) AddPoint(name string, values []int, atLeast int) error {
	if name == "" {
		return errors.New("cover point needs a name")
	}
	if len(values) == 0 {
		return errors.Errorf("cover point %s has no bins", name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.points[name]; exists {
		return errors.Errorf("cover point %s already defined", name)
	}
	t.points[name] = newCoverPoint(name, values, atLeast)
	t.order = append(t.order, name)
	return nil
}

// AddThresholdCallback registers fn to run the first time aggregate coverage reaches percent.
func (t *Tracker) AddThresholdCallback(percent float64, fn ThresholdFunc) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.thresholds = append(t.thresholds, &threshold{percent: percent, fn: fn})
	due := t.dueLocked()
	t.mu.Unlock()
	fire(due)
}

// Record counts one observation of v on the named cover point. Values outside the bins are
// counted as misses.
func (t *Tracker) Record(name string, v int) error {
	t.mu.Lock()
	p, ok := t.points[name]
	if !ok {
		t.mu.Unlock()
		return errors.Errorf("unknown cover point %s", name)
	}
	t.samples++
	var due []func()
	if p.sample(v) {
		due = t.dueLocked()
	}
	t.mu.Unlock()
	fire(due)
	return nil
}

// IsComplete reports whether every bin of every cover point has reached its threshold.
func (t *Tracker) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, name := range t.order {
		if !t.points[name].complete() {
			return false
		}
	}
	return len(t.order) > 0
}

// Percent returns the aggregate share of covered bins.
func (t *Tracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percentLocked()
}

// Samples returns the number of Record calls accepted.
func (t *Tracker) Samples() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.samples
}

// Covered returns the covered values of a cover point in ascending order.
func (t *Tracker) Covered(name string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.points[name]
	if !ok {
		return nil
	}
	var out []int
	for i, v := range p.values {
		if p.hits[i] >= p.atLeast {
			out = append(out, v)
		}
	}
	return out
}

// Missed returns the values of drawn that the named cover point has not covered, ascending.
func (t *Tracker) Missed(name string, drawn []int) []int {
	covered := make(map[int]struct{})
	for _, v := range t.Covered(name) {
		covered[v] = struct{}{}
	}
	var out []int
	seen := make(map[int]struct{})
	for _, v := range drawn {
		if _, ok := covered[v]; ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func (t *Tracker) percentLocked() float64 {
	total, covered := 0, 0
	for _, name := range t.order {
		p := t.points[name]
		total += len(p.values)
		covered += p.covered
	}
	if total == 0 {
		return 0
	}
	return 100 * float64(covered) / float64(total)
}

func (t *Tracker) dueLocked() []func() {
	percent := t.percentLocked()
	var due []func()
	for _, th := range t.thresholds {
		if th.fired || percent < th.percent {
			continue
		}
		th.fired = true
		fn := th.fn
		due = append(due, func() { fn(percent) })
	}
	return due
}

func fire(due []func()) {
	for _, f := range due {
		f()
	}
}
