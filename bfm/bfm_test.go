package bfm

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Readm/i2c_verif/bus"
	"github.com/Readm/i2c_verif/dut"
	"github.com/Readm/i2c_verif/sim"
)

type bench struct {
	k    *sim.Kernel
	b    *BFM
	flag *sim.Flag
	got  []bus.Transaction
}

func newBench(cfg Config) *bench {
	k := sim.NewKernel(0)
	k.SetMaxCycles(200_000)
	bn := &bench{
		k:    k,
		b:    New(PinsOf(dut.New(k)), cfg, nil),
		flag: sim.NewFlag(),
	}
	bn.b.Received.Connect("test", func(tr bus.Transaction) error {
		bn.got = append(bn.got, tr)
		return nil
	})
	k.Go("bfm.rx", bn.b.ReceiveDuty(bn.flag))
	k.Go("bfm.tx", bn.b.TransmitDuty(bn.flag))
	return bn
}

func (bn *bench) run(t *testing.T, body func(task *sim.Task)) {
	bn.k.Go("test", func(task *sim.Task) error {
		body(task)
		bn.flag.Raise(task.Cycle())
		return nil
	})
	require.NoError(t, bn.k.Run(context.Background()))
}

var ignoreCycle = cmpopts.IgnoreFields(bus.Transaction{}, "Cycle")

func TestPeerReceivesWrittenByte(t *testing.T) {
	bn := newBench(Config{PeerAddress: 0x00})
	var status uint8
	bn.run(t, func(task *sim.Task) {
		bn.b.Reset(task, 5)
		bn.b.Configure(task, 20)
		bn.b.Command(task, bus.CmdStartWrite, 0x00, true)
		status = bn.b.Status(task)
		bn.b.Command(task, bus.CmdWriteStop, 20, true)
	})

	assert.Zero(t, status&bus.StatusRxNack, "peer acknowledges its address")
	want := []bus.Transaction{
		{Value: 0x00, Role: bus.RoleReceived, Kind: bus.KindAddress},
		{Value: 20, Role: bus.RoleReceived, Kind: bus.KindData},
	}
	if diff := cmp.Diff(want, bn.got, ignoreCycle); diff != "" {
		t.Fatalf("received stream mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint64(2), bn.b.Frames())
	assert.False(t, bn.b.BusBusy())
}

func TestOffsetBytesPrecedePayload(t *testing.T) {
	bn := newBench(Config{PeerAddress: 0x50, OffsetBytes: 1})
	bn.run(t, func(task *sim.Task) {
		bn.b.Reset(task, 5)
		bn.b.Configure(task, 2)
		bn.b.Command(task, bus.CmdStartWrite, bus.AddressByte(0x50, false), true)
		bn.b.Command(task, bus.CmdWrite, 0x07, true)
		bn.b.Command(task, bus.CmdWriteStop, 0xC3, true)
	})

	want := []bus.Transaction{
		{Value: 0xA0, Role: bus.RoleReceived, Kind: bus.KindAddress},
		{Value: 0x07, Role: bus.RoleReceived, Kind: bus.KindOffset},
		{Value: 0xC3, Role: bus.RoleReceived, Kind: bus.KindData},
	}
	if diff := cmp.Diff(want, bn.got, ignoreCycle); diff != "" {
		t.Fatalf("received stream mismatch (-want +got):\n%s", diff)
	}
}

func TestReadBackReturnsLastPayload(t *testing.T) {
	bn := newBench(Config{PeerAddress: 0x50})
	var readback uint8
	bn.run(t, func(task *sim.Task) {
		bn.b.Reset(task, 5)
		bn.b.Configure(task, 4)
		bn.b.Command(task, bus.CmdStartWrite, bus.AddressByte(0x50, false), true)
		bn.b.Command(task, bus.CmdWriteStop, 0x5A, true)
		bn.b.Command(task, bus.CmdStartReadStop, 0, false)
		readback = bn.b.ReadRegister(task, bus.RegData)
	})

	assert.Equal(t, uint8(0x5A), readback)
	assert.Equal(t, uint8(0x5A), bn.b.SampleResult())
	assert.Equal(t, uint8(0x5A), bn.b.SampleData())
}

func TestAddressMismatchIsNotAcknowledged(t *testing.T) {
	bn := newBench(Config{PeerAddress: 0x50})
	var status uint8
	bn.run(t, func(task *sim.Task) {
		bn.b.Reset(task, 5)
		bn.b.Configure(task, 1)
		bn.b.Command(task, bus.CmdStartWrite, bus.AddressByte(0x21, false), true)
		status = bn.b.Status(task)
		bn.b.Command(task, bus.CmdWriteStop, 0x11, true)
	})

	assert.NotZero(t, status&bus.StatusRxNack)
	assert.False(t, bn.b.Addressed())
	require.Len(t, bn.got, 1, "payload to another device is ignored")
	assert.Equal(t, bus.KindAddress, bn.got[0].Kind)
	assert.Equal(t, uint32(0x42), bn.got[0].Value)
}

func rawPins(k *sim.Kernel) Pins {
	return Pins{
		ArstN:   sim.NewSignal(k, "arstn", true),
		Stb:     sim.NewSignal(k, "stb", false),
		We:      sim.NewSignal(k, "we", false),
		Addr:    sim.NewSignal(k, "addr", uint8(0)),
		DataIn:  sim.NewSignal(k, "din", uint8(0)),
		DataOut: sim.NewSignal(k, "dout", uint8(0)),
		MsgDone: sim.NewSignal(k, "done", false),
		TIP:     sim.NewSignal(k, "tip", false),
		Busy:    sim.NewSignal(k, "busy", false),
		SCL:     sim.NewSignal(k, "scl", true),
		SCLr:    sim.NewSignal(k, "scl_r", true),
		SDA:     func() bool { return true },
		PeerSDA: sim.NewSignal(k, "peer_sda", true),
		State:   sim.NewSignal(k, "state", bus.StateIdle),
		BitCnt:  sim.NewSignal(k, "cnt", uint8(7)),
		TxReg:   sim.NewSignal(k, "txr", uint8(0)),
		RxReg:   sim.NewSignal(k, "rxr", uint8(0)),
	}
}

func TestUnknownStateIsFatal(t *testing.T) {
	k := sim.NewKernel(0)
	pins := rawPins(k)
	pins.State.Set(bus.ProtocolState(42))
	k.Go("bfm.tx", New(pins, Config{}, nil).TransmitDuty(sim.NewFlag()))

	err := k.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedState), "got %v", err)
}

func TestCompletionWaitsForFreeBus(t *testing.T) {
	k := sim.NewKernel(0)
	pins := rawPins(k)
	pins.Busy = sim.NewSignal(k, "busy", true)
	b := New(pins, Config{}, nil)
	flag := sim.NewFlag()
	flag.Raise(0)

	var exitedAt, clearedAt uint64
	duty := b.ReceiveDuty(flag)
	k.Go("bfm.rx", func(task *sim.Task) error {
		err := duty(task)
		exitedAt = task.Cycle()
		return err
	})
	k.Go("bus", func(task *sim.Task) error {
		task.ClockCycles(10)
		pins.Busy.Set(false)
		clearedAt = task.Cycle()
		return nil
	})
	require.NoError(t, k.Run(context.Background()))
	assert.Equal(t, clearedAt+1, exitedAt)
}
