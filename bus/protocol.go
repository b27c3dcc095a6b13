// Package bus holds the wire-protocol vocabulary shared by the controller model, the bus
// functional model and the testbench: protocol phases, bit frames, transactions and the
// controller register map.
package bus

import "fmt"

// ProtocolState is the byte-level phase of a bus transfer as reported by the controller.
type ProtocolState uint8

const (
	StateIdle ProtocolState = iota
	// StateStart generates the START condition on the way from IDLE to ADDRESS (or straight to
	// READ for the short read command).
	StateStart
	StateAddress
	StateRead
	StateWrite
	StateAck
	StateStop
	stateCount
)

var stateNames = [...]string{
	StateIdle:    "IDLE",
	StateStart:   "START",
	StateAddress: "ADDRESS",
	StateRead:    "READ",
	StateWrite:   "WRITE",
	StateAck:     "ACK",
	StateStop:    "STOP",
}

func (s ProtocolState) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return fmt.Sprintf("STATE(%d)", uint8(s))
}

// Valid reports whether s belongs to the protocol state machine.
func (s ProtocolState) Valid() bool {
	return s < stateCount
}

// Data reports whether s carries frame bits on the line.
func (s ProtocolState) Data() bool {
	return s == StateAddress || s == StateRead || s == StateWrite
}

// FrameBits is the number of bits in one data frame.
const FrameBits = 8

// Register addresses of the controller.
const (
	RegPrescaleLo = 0 // SCL divisor, low byte
	RegPrescaleHi = 1 // SCL divisor, high byte
	RegControl    = 2
	RegData       = 3 // transmit register on write, received-data register on read
	RegCommand    = 4 // command register on write, status register on read
)

// Control register bits.
const (
	CtrlEnable = 0x80
)

// Command register bits.
const (
	CmdStart = 0x80
	CmdStop  = 0x40
	CmdRead  = 0x20
	CmdWrite = 0x10
	CmdNack  = 0x08 // master answers a read with NACK instead of ACK
	CmdIack  = 0x01 // clears the interrupt flag
)

// Common command sequences.
const (
	CmdStartWrite     = CmdStart | CmdWrite           // 0x90
	CmdWriteStop      = CmdWrite | CmdStop            // 0x50
	CmdStartReadStop  = CmdStart | CmdRead | CmdStop  // 0xE0
	CmdStartWriteStop = CmdStart | CmdWrite | CmdStop // 0xD0
)

// Status register bits.
const (
	StatusRxNack = 0x80
	StatusBusy   = 0x40
	StatusTIP    = 0x02
	StatusIF     = 0x01
)

// AddressByte packs a 7-bit device address and the direction bit.
func AddressByte(addr uint8, read bool) uint8 {
	b := addr << 1
	if read {
		b |= 1
	}
	return b
}

// SplitAddressByte is the inverse of AddressByte.
func SplitAddressByte(b uint8) (addr uint8, read bool) {
	return b >> 1, b&1 == 1
}
