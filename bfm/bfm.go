// Package bfm is the bus functional model: register access toward the controller, per-edge
// samplers for the monitors, and the peer device that answers the controller on the wire.
//
// The model never controls the clock. Every duty runs as a kernel task, looks at the values the
// controller committed at the previous edge and stages its own drive for the next one.
package bfm

import (
	"github.com/pkg/errors"

	"github.com/Readm/i2c_verif/analysis"
	"github.com/Readm/i2c_verif/bus"
	"github.com/Readm/i2c_verif/sim"
)

// ErrUnexpectedState is returned when the controller reports a state outside the protocol state
// machine.
var ErrUnexpectedState = errors.New("unexpected protocol state")

// Config describes the emulated peer device.
type Config struct {
	// PeerAddress is the 7-bit address the peer acknowledges.
	PeerAddress uint8
	// OffsetBytes is the number of register-pointer bytes that follow the address byte before
	// payload bytes start.
	OffsetBytes int
	// FrameBits is the width of one frame; zero means bus.FrameBits.
	FrameBits int
}

// BFM is constructed once per run and shared by the driver, the monitors and the peer duties.
type BFM struct {
	cfg  Config
	pins Pins
	log  sim.Logger

	rx        *bus.Frame
	loop      *bus.Frame
	addressed bool
	writes    int
	lastData  bus.ProtocolState

	frames   uint64
	Received *analysis.Port[bus.Transaction]
}

// New creates a bus functional model bound to the controller pins.
func New(pins Pins, cfg Config, log sim.Logger) *BFM {
	if cfg.FrameBits <= 0 {
		cfg.FrameBits = bus.FrameBits
	}
	return &BFM{
		cfg:      cfg,
		pins:     pins,
		log:      sim.OrNop(log),
		rx:       bus.NewFrame(cfg.FrameBits),
		loop:     bus.NewFrame(cfg.FrameBits),
		lastData: bus.StateIdle,
		Received: analysis.NewPort[bus.Transaction]("bfm.received"),
	}
}

// Config returns the peer configuration.
func (b *BFM) Config() Config {
	return b.cfg
}

// Frames returns how many frames the peer has received.
func (b *BFM) Frames() uint64 {
	return b.frames
}

// Addressed reports whether the peer matched the address of the current transfer.
func (b *BFM) Addressed() bool {
	return b.addressed
}

// BusBusy reports whether a transfer is in progress between START and STOP.
func (b *BFM) BusBusy() bool {
	return b.pins.Busy.Get()
}

// Reset holds the controller in reset for cycles edges with every register-bus input low, then
// releases it and waits one more edge.
func (b *BFM) Reset(t *sim.Task, cycles int) {
	if cycles <= 0 {
		cycles = 1
	}
	b.pins.ArstN.Set(false)
	b.pins.Stb.Set(false)
	b.pins.We.Set(false)
	b.pins.Addr.Set(0)
	b.pins.DataIn.Set(0)
	b.pins.PeerSDA.Set(true)
	t.ClockCycles(cycles)
	b.pins.ArstN.Set(true)
	t.RisingEdge()
	b.log.Debugf("reset released at cycle %d", t.Cycle())
}

// WriteRegister presents one register write for exactly one edge.
func (b *BFM) WriteRegister(t *sim.Task, addr, data uint8) {
	b.pins.Stb.Set(true)
	b.pins.We.Set(true)
	b.pins.Addr.Set(addr)
	b.pins.DataIn.Set(data)
	t.RisingEdge()
	b.pins.Stb.Set(false)
	b.pins.We.Set(false)
}

// ReadRegister requests a register read and returns the value presented two edges later.
func (b *BFM) ReadRegister(t *sim.Task, addr uint8) uint8 {
	b.pins.Stb.Set(true)
	b.pins.We.Set(false)
	b.pins.Addr.Set(addr)
	t.RisingEdge()
	b.pins.Stb.Set(false)
	t.RisingEdge()
	return b.pins.DataOut.Get()
}

// Configure programs the SCL divisor and enables the core.
func (b *BFM) Configure(t *sim.Task, divisor uint16) {
	b.WriteRegister(t, bus.RegPrescaleLo, uint8(divisor))
	b.WriteRegister(t, bus.RegPrescaleHi, uint8(divisor>>8))
	b.WriteRegister(t, bus.RegControl, bus.CtrlEnable)
}

// Command loads the transmit register when load is set, issues cmd and blocks until the
// controller signals message done.
func (b *BFM) Command(t *sim.Task, cmd uint8, data uint8, load bool) {
	if load {
		b.WriteRegister(t, bus.RegData, data)
	}
	b.WriteRegister(t, bus.RegCommand, cmd)
	b.WaitMessageDone(t)
}

// WaitMessageDone blocks until the message-done pulse.
func (b *BFM) WaitMessageDone(t *sim.Task) {
	t.WaitRise(b.pins.MsgDone)
}

// Status reads the status register.
func (b *BFM) Status(t *sim.Task) uint8 {
	return b.ReadRegister(t, bus.RegCommand)
}

// SampleData returns the transmit register as committed at the current edge.
func (b *BFM) SampleData() uint8 {
	return b.pins.TxReg.Get()
}

// SampleResult returns the received-data register as committed at the current edge.
func (b *BFM) SampleResult() uint8 {
	return b.pins.RxReg.Get()
}

// done reports whether a duty may stop: completion is observed only between transfers.
func (b *BFM) done(flag *sim.Flag) bool {
	return flag.IsRaised() && !b.pins.Busy.Get()
}

func (b *BFM) state() (bus.ProtocolState, error) {
	s := b.pins.State.Get()
	if !s.Valid() {
		return s, errors.Wrapf(ErrUnexpectedState, "%s", s)
	}
	return s, nil
}
