package tb

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/Readm/i2c_verif/analysis"
	"github.com/Readm/i2c_verif/bus"
	"github.com/Readm/i2c_verif/sim"
)

// Mode selects how a scoreboard pairs and compares its two streams.
type Mode uint8

const (
	// ModeInOrder compares the n-th expected item with the n-th actual item.
	ModeInOrder Mode = iota
	// ModeLagged consumes one expected and one actual sample per cycle and, whenever the actual
	// value changes, compares it with the expected value of the previous cycle.
	ModeLagged
)

func (m Mode) String() string {
	switch m {
	case ModeInOrder:
		return "in-order"
	case ModeLagged:
		return "lagged"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "in-order", "inorder":
		return ModeInOrder, nil
	case "lagged":
		return ModeLagged, nil
	}
	return ModeInOrder, errors.Errorf("unknown scoreboard mode %q", s)
}

// DefaultScoreboardDepth bounds each scoreboard queue. The protocol keeps at most one round trip
// outstanding, so a deeper backlog means one stream has stalled.
const DefaultScoreboardDepth = 64

// Scoreboard pairs two transaction streams by arrival order and checks them for equality. A
// failed comparison is returned to the writer that completed the pair, which aborts the run.
type Scoreboard struct {
	name string
	mode Mode
	log  sim.Logger

	expected  *analysis.FIFO[bus.Transaction]
	actual    *analysis.FIFO[bus.Transaction]
	putExpect analysis.Subscriber[bus.Transaction]
	putActual analysis.Subscriber[bus.Transaction]
	depth     [2]int
	peak      int

	tx, rx uint32

	compared int
	passed   int
	failed   int
}

// NewScoreboard creates an empty scoreboard whose queues hold at most depth items each. A
// non-positive depth selects DefaultScoreboardDepth.
func NewScoreboard(name string, mode Mode, depth int, log sim.Logger) *Scoreboard {
	if depth <= 0 {
		depth = DefaultScoreboardDepth
	}
	s := &Scoreboard{
		name: name,
		mode: mode,
		log:  sim.OrNop(log),
	}
	s.expected = analysis.NewFIFO[bus.Transaction](name+".expected", depth, s.track(0))
	s.actual = analysis.NewFIFO[bus.Transaction](name+".actual", depth, s.track(1))
	s.putExpect = s.expected.Export()
	s.putActual = s.actual.Export()
	return s
}

// track records the queue depth of one side and the peak backlog over both.
func (s *Scoreboard) track(side int) analysis.MutateFunc {
	return func(length, _ int) {
		s.depth[side] = length
		if n := s.depth[0] + s.depth[1]; n > s.peak {
			s.peak = n
		}
	}
}

// Name returns the scoreboard name.
func (s *Scoreboard) Name() string { return s.name }

// Mode returns the comparison mode.
func (s *Scoreboard) Mode() Mode { return s.mode }

// Passed returns the number of successful comparisons.
func (s *Scoreboard) Passed() int { return s.passed }

// Failed returns the number of failed comparisons.
func (s *Scoreboard) Failed() int { return s.failed }

// Compared returns how many pairs were consumed.
func (s *Scoreboard) Compared() int { return s.compared }

// Backlog returns the number of items waiting for a partner.
func (s *Scoreboard) Backlog() int { return s.depth[0] + s.depth[1] }

// Peak returns the largest backlog seen so far.
func (s *Scoreboard) Peak() int { return s.peak }

// ExpectedExport returns the subscriber for the reference stream.
func (s *Scoreboard) ExpectedExport() analysis.Subscriber[bus.Transaction] {
	return func(tr bus.Transaction) error {
		if err := s.putExpect(tr); err != nil {
			return errors.Wrapf(err, "%s: expected stream", s.name)
		}
		return s.drain()
	}
}

// ActualExport returns the subscriber for the observed stream.
func (s *Scoreboard) ActualExport() analysis.Subscriber[bus.Transaction] {
	return func(tr bus.Transaction) error {
		if err := s.putActual(tr); err != nil {
			return errors.Wrapf(err, "%s: actual stream", s.name)
		}
		return s.drain()
	}
}

func (s *Scoreboard) drain() error {
	for s.expected.Len() > 0 && s.actual.Len() > 0 {
		exp, _ := s.expected.TryGet()
		act, _ := s.actual.TryGet()
		s.compared++
		var err error
		if s.mode == ModeLagged {
			err = s.compareLagged(exp, act)
		} else {
			err = s.compare(exp.Value, act)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Scoreboard) compareLagged(exp, act bus.Transaction) error {
	oldRx, oldTx := s.rx, s.tx
	s.rx, s.tx = act.Value, exp.Value
	// the next value may be latched in the cycle the result appears
	if oldRx == s.rx {
		return nil
	}
	return s.compare(oldTx, act)
}

func (s *Scoreboard) compare(expected uint32, act bus.Transaction) error {
	if expected == act.Value {
		s.passed++
		s.log.Infof("%s PASSED: %d", s.name, act.Value)
		return nil
	}
	s.failed++
	s.log.Errorf("%s FAILED: expected %d, got %d at cycle %d", s.name, expected, act.Value, act.Cycle)
	return &MismatchError{Scoreboard: s.name, Expected: expected, Actual: act.Value, Cycle: act.Cycle}
}

// Final reports items left without a partner once the run is over. In lagged mode trailing
// reference samples are expected and ignored.
func (s *Scoreboard) Final() error {
	if n := s.actual.Len(); n > 0 {
		first, _ := s.actual.Peek()
		return errors.Wrapf(ErrUnpaired, "%s: result %d had no command (%d left)", s.name, first.Value, n)
	}
	if n := s.expected.Len(); n > 0 && s.mode == ModeInOrder {
		first, _ := s.expected.Peek()
		return errors.Wrapf(ErrUnpaired, "%s: sent %d was never observed (%d left)", s.name, first.Value, n)
	}
	return nil
}
