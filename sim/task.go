package sim

import (
	"github.com/pkg/errors"
)

// TaskFunc is the body of a cooperative task. Returning a non-nil error aborts the run.
type TaskFunc func(t *Task) error

type killedSignal struct{}

// Task is a cooperative coroutine scheduled by the kernel. All blocking is done through the
// wait methods, which only return at a clock edge.
type Task struct {
	name   string
	k      *Kernel
	fn     TaskFunc
	resume chan struct{}

	cond   func() bool
	done   bool
	killed bool
	err    error
}

func newTask(k *Kernel, name string, fn TaskFunc) *Task {
	t := &Task{
		name:   name,
		k:      k,
		fn:     fn,
		resume: make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Task) run() {
	<-t.resume
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(killedSignal); !ok {
				t.err = errors.Errorf("task %s panicked: %v", t.name, r)
			}
		}
		t.done = true
		t.k.yield <- struct{}{}
	}()
	if t.killed {
		return
	}
	if err := t.fn(t); err != nil {
		t.err = errors.Wrapf(err, "task %s", t.name)
	}
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

// Done reports whether the task has finished.
func (t *Task) Done() bool {
	return t.done
}

// Err returns the error the task finished with, if any.
func (t *Task) Err() error {
	return t.err
}

// Cycle returns the edge the task is currently executing in.
func (t *Task) Cycle() uint64 {
	return t.k.cycle
}

// Kernel returns the kernel that schedules the task.
func (t *Task) Kernel() *Kernel {
	return t.k
}

// RisingEdge suspends the task until the next clock edge.
func (t *Task) RisingEdge() {
	t.wait(nil)
}

// ClockCycles suspends the task for n clock edges.
func (t *Task) ClockCycles(n int) {
	for i := 0; i < n; i++ {
		t.wait(nil)
	}
}

// WaitUntil suspends the task until an edge at which cond holds. cond is evaluated against
// committed values, once per edge, starting at the next edge.
func (t *Task) WaitUntil(cond func() bool) {
	t.wait(cond)
}

// WaitRise suspends the task until an edge at which s has just risen.
func (t *Task) WaitRise(s *Signal[bool]) {
	t.wait(func() bool { return Rose(s) })
}

// WaitFall suspends the task until an edge at which s has just fallen.
func (t *Task) WaitFall(s *Signal[bool]) {
	t.wait(func() bool { return Fell(s) })
}

func (t *Task) ready() bool {
	return t.cond == nil || t.cond()
}

func (t *Task) wait(cond func() bool) {
	if t.killed {
		panic(killedSignal{})
	}
	t.cond = cond
	t.k.yield <- struct{}{}
	<-t.resume
	t.cond = nil
	if t.killed {
		panic(killedSignal{})
	}
}
