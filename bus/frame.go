package bus

import (
	"fmt"
	"strings"
)

// Frame accumulates the bits of one protocol data unit. Bits are stored by bit-counter index;
// the transfer counts down from Len()-1 to 0, so the first bit on the wire lands at the highest
// index and becomes the most significant bit of the assembled value.
type Frame struct {
	bits   []uint8
	filled []bool
}

// NewFrame creates an empty frame of n bits.
func NewFrame(n int) *Frame {
	if n <= 0 {
		n = FrameBits
	}
	return &Frame{
		bits:   make([]uint8, n),
		filled: make([]bool, n),
	}
}

// Len returns the frame width.
func (f *Frame) Len() int {
	return len(f.bits)
}

// Set stores the bit sampled at counter index idx.
func (f *Frame) Set(idx int, bit uint8) {
	if idx < 0 || idx >= len(f.bits) {
		return
	}
	f.bits[idx] = bit & 1
	f.filled[idx] = true
}

// Bit returns the bit stored at idx.
func (f *Frame) Bit(idx int) uint8 {
	if idx < 0 || idx >= len(f.bits) {
		return 1
	}
	return f.bits[idx]
}

// Complete reports whether every index has been sampled since the last Reset.
func (f *Frame) Complete() bool {
	for _, ok := range f.filled {
		if !ok {
			return false
		}
	}
	return true
}

// Value assembles the frame: index i carries weight 2^i.
func (f *Frame) Value() uint32 {
	var v uint32
	for i := len(f.bits) - 1; i >= 0; i-- {
		v = v<<1 | uint32(f.bits[i])
	}
	return v
}

// Load fills the frame from a value, index i taking bit i.
func (f *Frame) Load(v uint32) {
	for i := range f.bits {
		f.bits[i] = uint8(v>>uint(i)) & 1
		f.filled[i] = true
	}
}

// Reset clears the fill markers; bit values are kept so the frame can still be driven back.
func (f *Frame) Reset() {
	for i := range f.filled {
		f.filled[i] = false
	}
}

// Clone returns an independent copy.
func (f *Frame) Clone() *Frame {
	c := NewFrame(len(f.bits))
	copy(c.bits, f.bits)
	copy(c.filled, f.filled)
	return c
}

// String renders the bits MSB first.
func (f *Frame) String() string {
	var sb strings.Builder
	for i := len(f.bits) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%d", f.bits[i])
	}
	return sb.String()
}
