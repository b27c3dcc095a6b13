package bfm

import (
	"github.com/Readm/i2c_verif/bus"
	"github.com/Readm/i2c_verif/dut"
	"github.com/Readm/i2c_verif/sim"
)

// Pins is the set of controller nets the bus functional model touches. The model drives only the
// register-bus inputs, the reset and the peer side of the data line.
type Pins struct {
	ArstN  *sim.Signal[bool]
	Stb    *sim.Signal[bool]
	We     *sim.Signal[bool]
	Addr   *sim.Signal[uint8]
	DataIn *sim.Signal[uint8]

	DataOut *sim.Signal[uint8]
	MsgDone *sim.Signal[bool]
	TIP     *sim.Signal[bool]
	Busy    *sim.Signal[bool]

	SCL     *sim.Signal[bool]
	SCLr    *sim.Signal[bool]
	SDA     func() bool
	PeerSDA *sim.Signal[bool]

	State  *sim.Signal[bus.ProtocolState]
	BitCnt *sim.Signal[uint8]
	TxReg  *sim.Signal[uint8]
	RxReg  *sim.Signal[uint8]
}

// PinsOf maps a controller model onto Pins.
func PinsOf(c *dut.Controller) Pins {
	return Pins{
		ArstN:   c.ArstN,
		Stb:     c.Stb,
		We:      c.We,
		Addr:    c.Addr,
		DataIn:  c.DataIn,
		DataOut: c.DataOut,
		MsgDone: c.MsgDone,
		TIP:     c.TIP,
		Busy:    c.Busy,
		SCL:     c.SCL,
		SCLr:    c.SCLr,
		SDA:     c.SDA,
		PeerSDA: c.PeerSDA,
		State:   c.State,
		BitCnt:  c.BitCnt,
		TxReg:   c.TxReg,
		RxReg:   c.RxReg,
	}
}
