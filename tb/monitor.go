package tb

import (
	"fmt"

	"github.com/Readm/i2c_verif/analysis"
	"github.com/Readm/i2c_verif/bfm"
	"github.com/Readm/i2c_verif/bus"
	"github.com/Readm/i2c_verif/sim"
)

// MonitorKind selects what a monitor samples.
type MonitorKind uint8

const (
	// MonitorData samples the controller's transmit register.
	MonitorData MonitorKind = iota
	// MonitorResult samples the controller's received-data register.
	MonitorResult
)

func (k MonitorKind) String() string {
	switch k {
	case MonitorData:
		return "data"
	case MonitorResult:
		return "result"
	default:
		return fmt.Sprintf("monitor(%d)", uint8(k))
	}
}

// Monitor samples one controller register every edge and republishes it unchanged. It never
// drives anything.
type Monitor struct {
	name string
	kind MonitorKind
	bfm  *bfm.BFM
	log  sim.Logger

	Out *analysis.Port[bus.Transaction]
}

// NewMonitor creates a monitor of the given kind.
func NewMonitor(name string, kind MonitorKind, b *bfm.BFM, log sim.Logger) *Monitor {
	return &Monitor{
		name: name,
		kind: kind,
		bfm:  b,
		log:  sim.OrNop(log),
		Out:  analysis.NewPort[bus.Transaction](name + ".ap"),
	}
}

// Kind returns the monitor kind.
func (m *Monitor) Kind() MonitorKind { return m.kind }

// Samples returns the number of published samples.
func (m *Monitor) Samples() uint64 { return m.Out.Writes() }

// Run returns the monitor task. It stops once flag is raised and the bus is free.
func (m *Monitor) Run(flag *sim.Flag) sim.TaskFunc {
	return func(t *sim.Task) error {
		for {
			t.RisingEdge()
			tr := m.sample(t.Cycle())
			m.log.Debugf("%s MONITORED %s", m.name, tr)
			if err := m.Out.Write(tr); err != nil {
				return err
			}
			if flag.IsRaised() && !m.bfm.BusBusy() {
				return nil
			}
		}
	}
}

func (m *Monitor) sample(cycle uint64) bus.Transaction {
	tr := bus.Transaction{Kind: bus.KindSample, Cycle: cycle}
	switch m.kind {
	case MonitorResult:
		tr.Value = uint32(m.bfm.SampleResult())
		tr.Role = bus.RoleReceived
	default:
		tr.Value = uint32(m.bfm.SampleData())
		tr.Role = bus.RoleSent
	}
	return tr
}
