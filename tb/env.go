package tb

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/Readm/i2c_verif/analysis"
	"github.com/Readm/i2c_verif/bfm"
	"github.com/Readm/i2c_verif/bus"
	"github.com/Readm/i2c_verif/coverage"
	"github.com/Readm/i2c_verif/dut"
	"github.com/Readm/i2c_verif/sim"
	"github.com/Readm/i2c_verif/stimulus"
)

// CoverPoint is the name of the payload cover point.
const CoverPoint = "top.i_data"

const defaultProgressEvery = 10_000

// Options configure one verification run.
type Options struct {
	Name           string
	DomainLo       int
	DomainHi       int
	AtLeast        int
	ClosurePercent float64
	Divisor        uint16
	PeerAddress    uint8
	TargetAddress  uint8
	RegisterOffset uint8
	Readback       bool
	ScoreboardMode Mode
	MaxCycles      uint64
	ResetCycles    int
	Seed           int64
	Constraint     *stimulus.Constraint
	// Reports lists files the coverage report is exported to; the format follows the extension.
	Reports []string
	// ProgressEvery is the number of cycles between progress frames.
	ProgressEvery uint64
	// ScoreboardDepth bounds each scoreboard queue; zero selects DefaultScoreboardDepth.
	ScoreboardDepth int
}

// Progress is a point-in-time view of a run, published periodically on Env.Progress.
type Progress struct {
	Name    string  `json:"name"`
	Cycle   uint64  `json:"cycle"`
	SimTime string  `json:"sim_time"`
	Items   uint64  `json:"items"`
	Frames  uint64  `json:"frames"`
	Covered int     `json:"covered"`
	Size    int     `json:"size"`
	Percent float64 `json:"percent"`
	Passed  int     `json:"passed"`
	Failed  int     `json:"failed"`
	Backlog int     `json:"backlog"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// ScoreboardStats summarises one scoreboard.
type ScoreboardStats struct {
	Name     string
	Mode     Mode
	Compared int
	Passed   int
	Failed   int
	Peak     int
}

// Result is what a run leaves behind, on success and on failure.
type Result struct {
	Name        string
	Cycles      uint64
	SimTime     time.Duration
	Wall        time.Duration
	Items       uint64
	Frames      uint64
	ClosedAt    uint64
	Closed      bool
	Scoreboards []ScoreboardStats
	Coverage    coverage.Report
	Missed      []int
	Err         error
}

// Passed sums passes over all scoreboards.
func (r *Result) Passed() int {
	n := 0
	for _, s := range r.Scoreboards {
		n += s.Passed
	}
	return n
}

// Failed sums failures over all scoreboards.
func (r *Result) Failed() int {
	n := 0
	for _, s := range r.Scoreboards {
		n += s.Failed
	}
	return n
}

// Env owns every component of a run. It is built once and run once.
type Env struct {
	opts Options
	log  sim.Logger

	k     *sim.Kernel
	dut   *dut.Controller
	bfm   *bfm.BFM
	space *stimulus.Space
	cov   *coverage.Tracker
	flag  *sim.Flag

	driver      *Driver
	monitors    []*Monitor
	scoreboards []*Scoreboard

	// Progress receives a frame every ProgressEvery cycles and a final one after the run.
	Progress *analysis.Port[Progress]
}

// NewEnv builds and connects the environment.
func NewEnv(opts Options, log sim.Logger) (*Env, error) {
	log = sim.OrNop(log)
	if opts.ResetCycles <= 0 {
		opts.ResetCycles = 5
	}
	if opts.ClosurePercent <= 0 || opts.ClosurePercent > 100 {
		opts.ClosurePercent = 100
	}
	if opts.ProgressEvery == 0 {
		opts.ProgressEvery = defaultProgressEvery
	}
	if opts.AtLeast <= 0 {
		opts.AtLeast = 1
	}
	if opts.DomainLo < 0 || opts.DomainHi > 1<<bus.FrameBits {
		return nil, errors.Errorf("stimulus domain [%d, %d) does not fit a %d-bit frame", opts.DomainLo, opts.DomainHi, bus.FrameBits)
	}

	space, err := stimulus.NewConstrainedSpace(opts.DomainLo, opts.DomainHi, opts.Constraint)
	if err != nil {
		return nil, err
	}
	space.SetQuota(opts.AtLeast)
	cov := coverage.NewTracker()
	if err := cov.AddPoint(CoverPoint, space.Domain(), opts.AtLeast); err != nil {
		return nil, err
	}

	k := sim.NewKernel(0)
	k.SetMaxCycles(opts.MaxCycles)
	c := dut.New(k)
	b := bfm.New(bfm.PinsOf(c), bfm.Config{PeerAddress: opts.PeerAddress, OffsetBytes: 1}, log)

	e := &Env{
		opts:     opts,
		log:      log,
		k:        k,
		dut:      c,
		bfm:      b,
		space:    space,
		cov:      cov,
		flag:     sim.NewFlag(),
		Progress: analysis.NewPort[Progress]("env.progress"),
	}
	e.driver = NewDriver(b, space, rand.New(rand.NewSource(opts.Seed)), DriverConfig{
		TargetAddress:  opts.TargetAddress,
		RegisterOffset: opts.RegisterOffset,
		Readback:       opts.Readback,
	}, log)

	cov.AddThresholdCallback(opts.ClosurePercent, func(percent float64) {
		if e.flag.Raise(e.k.Cycle()) {
			log.Infof("coverage %.2f%% reached at cycle %d", percent, e.k.Cycle())
		}
	})
	e.connect()
	return e, nil
}

func (e *Env) connect() {
	record := func(tr bus.Transaction) error {
		return e.cov.Record(CoverPoint, int(tr.Value))
	}

	onBus := NewScoreboard("bus", ModeInOrder, e.opts.ScoreboardDepth, e.log)
	e.driver.Sent.Connect(onBus.Name(), onBus.ExpectedExport())
	payload := onBus.ActualExport()
	e.bfm.Received.Connect(onBus.Name(), func(tr bus.Transaction) error {
		if tr.Kind != bus.KindData {
			return nil
		}
		return payload(tr)
	})
	e.scoreboards = append(e.scoreboards, onBus)

	if !e.opts.Readback {
		e.bfm.Received.Connect("coverage", func(tr bus.Transaction) error {
			if tr.Kind != bus.KindData {
				return nil
			}
			return record(tr)
		})
		return
	}

	switch e.opts.ScoreboardMode {
	case ModeLagged:
		lagged := NewScoreboard("monitor", ModeLagged, e.opts.ScoreboardDepth, e.log)
		data := NewMonitor("data_mon", MonitorData, e.bfm, e.log)
		result := NewMonitor("result_mon", MonitorResult, e.bfm, e.log)
		data.Out.Connect(lagged.Name(), lagged.ExpectedExport())
		result.Out.Connect(lagged.Name(), lagged.ActualExport())
		e.monitors = append(e.monitors, data, result)
		e.scoreboards = append(e.scoreboards, lagged)
	default:
		readback := NewScoreboard("readback", ModeInOrder, e.opts.ScoreboardDepth, e.log)
		e.driver.Sent.Connect(readback.Name(), readback.ExpectedExport())
		e.driver.Readback.Connect(readback.Name(), readback.ActualExport())
		e.scoreboards = append(e.scoreboards, readback)
	}
	e.driver.Readback.Connect("coverage", record)
}

// Kernel returns the simulation kernel.
func (e *Env) Kernel() *sim.Kernel { return e.k }

// DUT returns the controller model.
func (e *Env) DUT() *dut.Controller { return e.dut }

// BFM returns the bus functional model.
func (e *Env) BFM() *bfm.BFM { return e.bfm }

// Coverage returns the coverage database.
func (e *Env) Coverage() *coverage.Tracker { return e.cov }

// Space returns the stimulus space.
func (e *Env) Space() *stimulus.Space { return e.space }

// Flag returns the completion flag shared by every task.
func (e *Env) Flag() *sim.Flag { return e.flag }

// Scoreboards returns the connected scoreboards.
func (e *Env) Scoreboards() []*Scoreboard { return e.scoreboards }

// Monitors returns the started monitors.
func (e *Env) Monitors() []*Monitor { return e.monitors }

// Wiring maps each transaction port to its subscribers, in connection order.
func (e *Env) Wiring() map[string][]string {
	ports := []*analysis.Port[bus.Transaction]{e.driver.Sent, e.driver.Readback, e.bfm.Received}
	for _, m := range e.monitors {
		ports = append(ports, m.Out)
	}
	out := make(map[string][]string, len(ports))
	for _, p := range ports {
		out[p.Name()] = p.Subscribers()
	}
	return out
}

// Run resets the controller, starts every task and runs until coverage closes. The coverage
// report is exported whether or not the run succeeded.
func (e *Env) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	e.k.Go("env", e.orchestrate)
	e.k.Go("progress", e.progress)

	err := e.k.Run(ctx)
	if err == nil {
		err = e.check()
	}

	res := e.result(time.Since(start))
	res.Err = err
	if perr := e.Progress.Write(e.snapshot(true, err)); perr != nil {
		e.log.Warnf("progress subscriber: %v", perr)
	}
	if xerr := e.export(res.Coverage); xerr != nil && err == nil {
		err = xerr
		res.Err = err
	}
	if err != nil {
		e.log.Errorf("%s failed at cycle %d: %v", e.opts.Name, res.Cycles, err)
	} else {
		e.log.Infof("%s passed: %d items, %d cycles", e.opts.Name, res.Items, res.Cycles)
	}
	return res, err
}

func (e *Env) orchestrate(t *sim.Task) error {
	e.log.Infof("%s: reset for %d cycles", e.opts.Name, e.opts.ResetCycles)
	e.bfm.Reset(t, e.opts.ResetCycles)
	e.bfm.Configure(t, e.opts.Divisor)
	for port, subs := range e.Wiring() {
		e.log.Debugf("%s -> %v", port, subs)
	}

	k := t.Kernel()
	k.Go("bfm.receive", e.bfm.ReceiveDuty(e.flag))
	k.Go("bfm.transmit", e.bfm.TransmitDuty(e.flag))
	for _, m := range e.monitors {
		k.Go(m.name, m.Run(e.flag))
	}
	k.Go("driver", e.driver.Run(e.flag))
	e.log.Infof("%s: domain [%d, %d) with %d values, divisor %d", e.opts.Name, e.opts.DomainLo, e.opts.DomainHi, e.space.Size(), e.opts.Divisor)
	return nil
}

func (e *Env) progress(t *sim.Task) error {
	for {
		next := t.Cycle() + e.opts.ProgressEvery
		t.WaitUntil(func() bool { return e.flag.IsRaised() || t.Cycle() >= next })
		if e.flag.IsRaised() {
			return nil
		}
		if err := e.Progress.Write(e.snapshot(false, nil)); err != nil {
			e.log.Warnf("progress subscriber: %v", err)
		}
	}
}

// check runs the end-of-test checks: unpaired scoreboard items and values that used up their
// draws without being covered.
func (e *Env) check() error {
	for _, sb := range e.scoreboards {
		if err := sb.Final(); err != nil {
			return err
		}
	}
	if missed := e.cov.Missed(CoverPoint, e.space.Completed()); len(missed) > 0 {
		return errors.Wrapf(ErrCoverageHole, "missed %v", missed)
	}
	if !e.flag.IsRaised() {
		return errors.Errorf("run ended without coverage closure (%.2f%%)", e.cov.Percent())
	}
	e.log.Infof("covered all input space")
	return nil
}

func (e *Env) export(r coverage.Report) error {
	var first error
	for _, path := range e.opts.Reports {
		if path == "" {
			continue
		}
		if err := r.Export(path); err != nil {
			e.log.Errorf("coverage export: %v", err)
			if first == nil {
				first = err
			}
			continue
		}
		e.log.Infof("coverage report written to %s", path)
	}
	return first
}

func (e *Env) snapshot(done bool, err error) Progress {
	p := Progress{
		Name:    e.opts.Name,
		Cycle:   e.k.Cycle(),
		SimTime: e.k.Now().String(),
		Items:   e.driver.Items(),
		Frames:  e.bfm.Frames(),
		Size:    e.space.Size(),
		Percent: e.cov.Percent(),
		Done:    done,
	}
	p.Covered = len(e.cov.Covered(CoverPoint))
	for _, sb := range e.scoreboards {
		p.Passed += sb.Passed()
		p.Failed += sb.Failed()
		p.Backlog += sb.Backlog()
	}
	if err != nil {
		p.Error = err.Error()
	}
	return p
}

func (e *Env) result(wall time.Duration) *Result {
	r := &Result{
		Name:     e.opts.Name,
		Cycles:   e.k.Cycle(),
		SimTime:  e.k.Now(),
		Wall:     wall,
		Items:    e.driver.Items(),
		Frames:   e.bfm.Frames(),
		Closed:   e.flag.IsRaised(),
		ClosedAt: e.flag.RaisedAt(),
		Coverage: e.cov.Report(),
		Missed:   e.cov.Missed(CoverPoint, e.space.Completed()),
	}
	for _, sb := range e.scoreboards {
		r.Scoreboards = append(r.Scoreboards, ScoreboardStats{
			Name:     sb.Name(),
			Mode:     sb.Mode(),
			Compared: sb.Compared(),
			Passed:   sb.Passed(),
			Failed:   sb.Failed(),
			Peak:     sb.Peak(),
		})
	}
	return r
}
