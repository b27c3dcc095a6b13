package sim

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrCycleLimit is returned when a run reaches MaxCycles before every task has finished.
var ErrCycleLimit = errors.New("cycle limit reached")

// DefaultMaxCycles bounds a run when no explicit limit is configured.
const DefaultMaxCycles = 5_000_000

// Component is synchronous logic evaluated once per clock edge, before any task resumes. It must
// only read committed values and stage new ones.
type Component interface {
	Tick(cycle uint64)
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(cycle uint64)

// Tick calls f.
func (f ComponentFunc) Tick(cycle uint64) {
	f(cycle)
}

// Kernel advances a single clock and interleaves cooperative tasks at its rising edges.
//
// Exactly one goroutine runs at a time: the kernel hands the baton to a task, the task runs until
// it waits again (or returns), then hands the baton back. Within one edge every component and task
// observes the values committed at the end of the previous edge; values staged during the edge are
// committed only after the last task has yielded.
type Kernel struct {
	period    time.Duration
	maxCycles uint64

	cycle      uint64
	signals    []committer
	components []Component
	tasks      []*Task
	spawned    []*Task

	yield   chan struct{}
	running bool
}

// NewKernel creates a kernel for a clock with the given period.
func NewKernel(period time.Duration) *Kernel {
	if period <= 0 {
		period = 10 * time.Nanosecond
	}
	return &Kernel{
		period:    period,
		maxCycles: DefaultMaxCycles,
		yield:     make(chan struct{}),
	}
}

// SetMaxCycles sets the edge budget for Run. Zero restores the default.
func (k *Kernel) SetMaxCycles(n uint64) {
	if n == 0 {
		n = DefaultMaxCycles
	}
	k.maxCycles = n
}

// MaxCycles returns the edge budget for Run.
func (k *Kernel) MaxCycles() uint64 {
	return k.maxCycles
}

// Cycle returns the number of edges processed so far.
func (k *Kernel) Cycle() uint64 {
	return k.cycle
}

// Period returns the clock period.
func (k *Kernel) Period() time.Duration {
	return k.period
}

// Now returns simulated time.
func (k *Kernel) Now() time.Duration {
	return time.Duration(k.cycle) * k.period
}

// AddComponent registers synchronous logic ticked on every edge in registration order.
func (k *Kernel) AddComponent(c Component) {
	if c == nil {
		return
	}
	k.components = append(k.components, c)
}

// Go starts a task. Tasks started before Run, or from inside another task, begin executing at the
// next edge. Tasks resume in start order within an edge.
func (k *Kernel) Go(name string, fn TaskFunc) *Task {
	t := newTask(k, name, fn)
	if k.running {
		k.spawned = append(k.spawned, t)
	} else {
		k.tasks = append(k.tasks, t)
	}
	return t
}

// Run processes edges until every task has returned. A task error, context cancellation or the
// cycle limit stops the run; the remaining tasks are released before Run returns.
func (k *Kernel) Run(ctx context.Context) error {
	if k.running {
		return errors.New("kernel already running")
	}
	k.running = true
	defer func() { k.running = false }()

	for len(k.tasks) > 0 || len(k.spawned) > 0 {
		if k.cycle&0x3ff == 0 {
			if err := ctx.Err(); err != nil {
				k.killAll()
				return errors.Wrapf(err, "run cancelled at cycle %d", k.cycle)
			}
		}
		if k.cycle >= k.maxCycles {
			k.killAll()
			return errors.Wrapf(ErrCycleLimit, "%d cycles", k.maxCycles)
		}
		if err := k.step(); err != nil {
			k.killAll()
			return err
		}
	}
	return nil
}

// Step processes a single edge outside of Run. Intended for unit tests of components.
func (k *Kernel) Step() error {
	k.running = true
	defer func() { k.running = false }()
	return k.step()
}

// Shutdown releases every task that has not finished yet.
func (k *Kernel) Shutdown() {
	k.killAll()
}

func (k *Kernel) step() error {
	k.cycle++
	if len(k.spawned) > 0 {
		k.tasks = append(k.tasks, k.spawned...)
		k.spawned = k.spawned[:0]
	}

	for _, c := range k.components {
		c.Tick(k.cycle)
	}

	var failed *Task
	for _, t := range k.tasks {
		if t.done || !t.ready() {
			continue
		}
		k.resume(t)
		if t.done && t.err != nil {
			failed = t
			break
		}
	}

	for _, s := range k.signals {
		s.commit()
	}

	live := k.tasks[:0]
	for _, t := range k.tasks {
		if !t.done {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(k.tasks); i++ {
		k.tasks[i] = nil
	}
	k.tasks = live

	if failed != nil {
		return failed.err
	}
	return nil
}

func (k *Kernel) resume(t *Task) {
	t.resume <- struct{}{}
	<-k.yield
}

func (k *Kernel) killAll() {
	pending := append(k.tasks, k.spawned...)
	for _, t := range pending {
		if t == nil || t.done {
			continue
		}
		t.killed = true
		k.resume(t)
	}
	k.tasks = nil
	k.spawned = nil
}
