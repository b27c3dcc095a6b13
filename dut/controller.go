// Package dut is a cycle-level behavioural model of a register-mapped I2C master controller.
//
// The model exposes the pins and the handful of internal nets a white-box testbench observes
// (byte-controller state, bit counter, SCL and its one-edge-delayed copy). Every output is a
// sim.Signal, so all reads made during an edge see the values committed at the previous edge.
package dut

import (
	"github.com/Readm/i2c_verif/bus"
	"github.com/Readm/i2c_verif/sim"
)

type slotKind uint8

const (
	slotStart slotKind = iota
	slotBit
	slotAck
	slotStop
)

// slot is one bus-clock period of a command. Every slot has four phases, each lasting
// divisor edges: SCL low, SCL low, SCL high, SCL high.
type slot struct {
	kind  slotKind
	state bus.ProtocolState
	cnt   uint8
	drive bool // master line level for bit and ack slots; true releases the line
	peer  bool // ack slot answered by the peer
}

// Controller is the device under test.
type Controller struct {
	// Inputs.
	ArstN   *sim.Signal[bool]
	Stb     *sim.Signal[bool]
	We      *sim.Signal[bool]
	Addr    *sim.Signal[uint8]
	DataIn  *sim.Signal[uint8]
	PeerSDA *sim.Signal[bool] // peer open-drain drive; true releases the line

	// Outputs.
	DataOut   *sim.Signal[uint8]
	TIP       *sim.Signal[bool]
	MsgDone   *sim.Signal[bool]
	Busy      *sim.Signal[bool]
	SCL       *sim.Signal[bool]
	SCLr      *sim.Signal[bool]
	MasterSDA *sim.Signal[bool]
	State     *sim.Signal[bus.ProtocolState]
	BitCnt    *sim.Signal[uint8]
	TxReg     *sim.Signal[uint8]
	RxReg     *sim.Signal[uint8]

	prescale uint16
	ctrl     uint8
	irq      bool
	rxNack   bool

	slots  []slot
	slotNo int
	phase  int
	hold   int
	rxBits uint8
	active bool
}

// New creates a controller whose nets are registered with k, and registers its logic as a
// kernel component.
func New(k *sim.Kernel) *Controller {
	c := &Controller{
		ArstN:   sim.NewSignal(k, "i_arstn", false),
		Stb:     sim.NewSignal(k, "i_stb", false),
		We:      sim.NewSignal(k, "i_we", false),
		Addr:    sim.NewSignal(k, "i_addr", uint8(0)),
		DataIn:  sim.NewSignal(k, "i_data", uint8(0)),
		PeerSDA: sim.NewSignal(k, "f_sda", true),

		DataOut:   sim.NewSignal(k, "o_data", uint8(0)),
		TIP:       sim.NewSignal(k, "w_tip", false),
		MsgDone:   sim.NewSignal(k, "o_msg_done", false),
		Busy:      sim.NewSignal(k, "w_busy", false),
		SCL:       sim.NewSignal(k, "w_scl", true),
		SCLr:      sim.NewSignal(k, "w_scl_r", true),
		MasterSDA: sim.NewSignal(k, "io_sda", true),
		State:     sim.NewSignal(k, "w_state", bus.StateIdle),
		BitCnt:    sim.NewSignal(k, "w_cnt", uint8(bus.FrameBits-1)),
		TxReg:     sim.NewSignal(k, "txr", uint8(0)),
		RxReg:     sim.NewSignal(k, "rxr", uint8(0)),
	}
	k.AddComponent(c)
	return c
}

// SDA returns the wired-AND level of the data line.
func (c *Controller) SDA() bool {
	return c.MasterSDA.Get() && c.PeerSDA.Get()
}

// Divisor returns the number of edges per SCL phase.
func (c *Controller) Divisor() int {
	if c.prescale == 0 {
		return 1
	}
	return int(c.prescale)
}

// Enabled reports whether the core enable bit is set.
func (c *Controller) Enabled() bool {
	return c.ctrl&bus.CtrlEnable != 0
}

// Tick evaluates one rising edge.
func (c *Controller) Tick(cycle uint64) {
	if !c.ArstN.Get() {
		c.reset()
		return
	}

	c.SCLr.Set(c.SCL.Get())
	c.MsgDone.Set(false)

	// a command accepted on this edge starts its first phase here and is clocked from the next
	wasActive := c.active
	if c.Stb.Get() {
		if c.We.Get() {
			c.writeRegister(c.Addr.Get(), c.DataIn.Get())
		} else {
			c.readRegister(c.Addr.Get())
		}
	}

	if wasActive {
		c.clock()
	}
}

func (c *Controller) reset() {
	c.prescale = 0
	c.ctrl = 0
	c.irq = false
	c.rxNack = false
	c.slots = nil
	c.slotNo = 0
	c.phase = 0
	c.hold = 0
	c.rxBits = 0
	c.active = false

	c.DataOut.Set(0)
	c.TIP.Set(false)
	c.MsgDone.Set(false)
	c.Busy.Set(false)
	c.SCL.Set(true)
	c.SCLr.Set(true)
	c.MasterSDA.Set(true)
	c.State.Set(bus.StateIdle)
	c.BitCnt.Set(bus.FrameBits - 1)
	c.TxReg.Set(0)
	c.RxReg.Set(0)
}

func (c *Controller) writeRegister(addr, data uint8) {
	switch addr {
	case bus.RegPrescaleLo:
		c.prescale = c.prescale&0xff00 | uint16(data)
	case bus.RegPrescaleHi:
		c.prescale = c.prescale&0x00ff | uint16(data)<<8
	case bus.RegControl:
		c.ctrl = data
	case bus.RegData:
		c.TxReg.Set(data)
	case bus.RegCommand:
		if data&bus.CmdIack != 0 {
			c.irq = false
		}
		if c.Enabled() && !c.active {
			c.start(data)
		}
	}
}

func (c *Controller) readRegister(addr uint8) {
	switch addr {
	case bus.RegPrescaleLo:
		c.DataOut.Set(uint8(c.prescale))
	case bus.RegPrescaleHi:
		c.DataOut.Set(uint8(c.prescale >> 8))
	case bus.RegControl:
		c.DataOut.Set(c.ctrl)
	case bus.RegData:
		c.DataOut.Set(c.RxReg.Get())
	case bus.RegCommand:
		c.DataOut.Set(c.status())
	}
}

func (c *Controller) status() uint8 {
	var s uint8
	if c.rxNack {
		s |= bus.StatusRxNack
	}
	if c.Busy.Get() {
		s |= bus.StatusBusy
	}
	if c.active {
		s |= bus.StatusTIP
	}
	if c.irq {
		s |= bus.StatusIF
	}
	return s
}

// start expands a command into bus-clock slots and begins the first one on this edge.
func (c *Controller) start(cmd uint8) {
	slots := make([]slot, 0, 2*(bus.FrameBits+1)+2)
	if cmd&bus.CmdStart != 0 {
		slots = append(slots, slot{kind: slotStart, state: bus.StateStart})
	}
	if cmd&bus.CmdWrite != 0 {
		state := bus.StateWrite
		if cmd&bus.CmdStart != 0 {
			state = bus.StateAddress
		}
		tx := c.TxReg.Get()
		for i := bus.FrameBits - 1; i >= 0; i-- {
			slots = append(slots, slot{kind: slotBit, state: state, cnt: uint8(i), drive: tx>>uint(i)&1 == 1})
		}
		slots = append(slots, slot{kind: slotAck, state: bus.StateAck, drive: true, peer: true})
	}
	if cmd&bus.CmdRead != 0 {
		for i := bus.FrameBits - 1; i >= 0; i-- {
			slots = append(slots, slot{kind: slotBit, state: bus.StateRead, cnt: uint8(i), drive: true})
		}
		slots = append(slots, slot{kind: slotAck, state: bus.StateAck, drive: cmd&bus.CmdNack != 0})
	}
	if cmd&bus.CmdStop != 0 {
		slots = append(slots, slot{kind: slotStop, state: bus.StateStop})
	}
	if len(slots) == 0 {
		return
	}

	c.slots = slots
	c.slotNo = 0
	c.phase = 0
	c.rxBits = 0
	c.active = true
	c.TIP.Set(true)
	c.Busy.Set(true)
	c.enterPhase()
}

// clock advances the slot engine by one edge.
func (c *Controller) clock() {
	if c.hold > 0 {
		c.hold--
		return
	}
	c.phase++
	if c.phase < 4 {
		c.enterPhase()
		return
	}

	c.finishSlot(c.slots[c.slotNo])
	c.slotNo++
	c.phase = 0
	if c.slotNo >= len(c.slots) {
		c.complete()
		return
	}
	c.enterPhase()
}

func (c *Controller) enterPhase() {
	c.hold = c.Divisor() - 1
	s := c.slots[c.slotNo]
	switch s.kind {
	case slotStart:
		switch c.phase {
		case 0:
			c.State.Set(bus.StateStart)
			c.BitCnt.Set(bus.FrameBits - 1)
			c.MasterSDA.Set(true)
		case 1:
			c.SCL.Set(true)
		case 2:
			c.MasterSDA.Set(false)
		}
	case slotStop:
		switch c.phase {
		case 0:
			c.State.Set(bus.StateStop)
			c.SCL.Set(false)
			c.MasterSDA.Set(false)
		case 1:
			c.SCL.Set(true)
		case 2:
			c.MasterSDA.Set(true)
		}
	default:
		switch c.phase {
		case 0:
			c.State.Set(s.state)
			c.BitCnt.Set(s.cnt)
			c.SCL.Set(false)
			c.MasterSDA.Set(s.drive)
		case 2:
			c.SCL.Set(true)
		}
	}
}

// finishSlot samples the line at the end of the high phase.
func (c *Controller) finishSlot(s slot) {
	line := c.SDA()
	switch s.kind {
	case slotBit:
		if s.state == bus.StateRead && line {
			c.rxBits |= 1 << s.cnt
		}
	case slotAck:
		if s.peer {
			c.rxNack = line
		}
	case slotStop:
		c.Busy.Set(false)
	}
}

func (c *Controller) complete() {
	last := c.slots[len(c.slots)-1]
	for _, s := range c.slots {
		if s.state == bus.StateRead {
			c.RxReg.Set(c.rxBits)
			break
		}
	}
	if last.kind != slotStop {
		// keep the bus: SCL low until the next command
		c.SCL.Set(false)
	}
	c.State.Set(bus.StateIdle)
	c.BitCnt.Set(bus.FrameBits - 1)
	c.TIP.Set(false)
	c.MsgDone.Set(true)
	c.irq = true
	c.active = false
	c.slots = nil
}
