package bfm

import (
	"github.com/Readm/i2c_verif/bus"
	"github.com/Readm/i2c_verif/sim"
)

// ReceiveDuty returns the task that samples the data line while the controller transmits. A bit
// is taken on each rising edge of the bus clock during the ADDRESS and WRITE phases, stored at the
// controller's bit-counter index, and the frame is published once the sample at index 0 has been
// taken. The duty returns once flag is raised and the bus is free.
func (b *BFM) ReceiveDuty(flag *sim.Flag) sim.TaskFunc {
	return func(t *sim.Task) error {
		for {
			t.RisingEdge()
			if err := b.receive(t.Cycle()); err != nil {
				return err
			}
			if b.done(flag) {
				return nil
			}
		}
	}
}

// TransmitDuty returns the task that drives the peer side of the data line. During READ it
// drives the last received payload frame back, bit by bit, while the bus clock is low; in the
// acknowledge slot after an ADDRESS or WRITE frame it pulls the line low if the peer was
// addressed. Everywhere else the line is released.
func (b *BFM) TransmitDuty(flag *sim.Flag) sim.TaskFunc {
	return func(t *sim.Task) error {
		defer b.pins.PeerSDA.Set(true)
		for {
			t.RisingEdge()
			if err := b.transmit(); err != nil {
				return err
			}
			if b.done(flag) {
				return nil
			}
		}
	}
}

func (b *BFM) receive(cycle uint64) error {
	s, err := b.state()
	if err != nil {
		return err
	}
	if s == bus.StateStart {
		b.addressed = false
		b.writes = 0
		b.rx.Reset()
		return nil
	}
	if s != bus.StateAddress && s != bus.StateWrite {
		return nil
	}
	if !b.pins.SCL.Get() || b.pins.SCLr.Get() {
		return nil
	}

	cnt := int(b.pins.BitCnt.Get())
	b.rx.Set(cnt, sim.Bit(b.pins.SDA()))
	if cnt != 0 {
		return nil
	}
	return b.frameDone(s, cycle)
}

func (b *BFM) frameDone(s bus.ProtocolState, cycle uint64) error {
	v := b.rx.Value()
	b.rx.Reset()
	b.frames++

	tr := bus.Transaction{Value: v, Role: bus.RoleReceived, Cycle: cycle}
	switch {
	case s == bus.StateAddress:
		tr.Kind = bus.KindAddress
		addr, read := bus.SplitAddressByte(uint8(v))
		b.addressed = addr == b.cfg.PeerAddress
		b.writes = 0
		b.log.Debugf("peer address 0x%02x read=%v match=%v", addr, read, b.addressed)
	case !b.addressed:
		b.log.Debugf("peer ignored frame %d, not addressed", v)
		return nil
	case b.writes < b.cfg.OffsetBytes:
		tr.Kind = bus.KindOffset
		b.writes++
	default:
		tr.Kind = bus.KindData
		b.writes++
		b.loop.Load(v)
	}

	b.log.Debugf("peer received %s", tr)
	return b.Received.Write(tr)
}

func (b *BFM) transmit() error {
	s, err := b.state()
	if err != nil {
		return err
	}
	if s.Data() {
		b.lastData = s
	}
	window := !b.pins.SCL.Get() && !b.pins.SCLr.Get()

	switch s {
	case bus.StateRead:
		if window {
			b.pins.PeerSDA.Set(b.loop.Bit(int(b.pins.BitCnt.Get())) == 1)
		}
	case bus.StateAck:
		if b.lastData == bus.StateRead {
			// the master answers a read
			b.pins.PeerSDA.Set(true)
		} else if window {
			b.pins.PeerSDA.Set(!b.addressed)
		}
	default:
		b.pins.PeerSDA.Set(true)
	}
	return nil
}
