// Package tb assembles the verification environment: the driver that feeds stimulus through the
// controller's register interface, the monitors, the scoreboards and the orchestrator that runs
// them on one kernel until coverage closes.
package tb

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/Readm/i2c_verif/analysis"
	"github.com/Readm/i2c_verif/bfm"
	"github.com/Readm/i2c_verif/bus"
	"github.com/Readm/i2c_verif/sim"
	"github.com/Readm/i2c_verif/stimulus"
)

// DriverConfig describes the command sequence issued per stimulus item.
type DriverConfig struct {
	TargetAddress  uint8
	RegisterOffset uint8
	Readback       bool
}

// Driver owns stimulus selection. For every item it addresses the target, writes the register
// offset, writes the payload with STOP and optionally reads it back, blocking on message done
// after each command.
type Driver struct {
	cfg   DriverConfig
	bfm   *bfm.BFM
	space *stimulus.Space
	rng   *rand.Rand
	log   sim.Logger

	// Sent carries each payload before it goes on the wire.
	Sent *analysis.Port[bus.Transaction]
	// Readback carries the value read back from the data register.
	Readback *analysis.Port[bus.Transaction]

	items uint64
}

// NewDriver creates a driver drawing from space.
func NewDriver(b *bfm.BFM, space *stimulus.Space, rng *rand.Rand, cfg DriverConfig, log sim.Logger) *Driver {
	return &Driver{
		cfg:      cfg,
		bfm:      b,
		space:    space,
		rng:      rng,
		log:      sim.OrNop(log),
		Sent:     analysis.NewPort[bus.Transaction]("driver.sent"),
		Readback: analysis.NewPort[bus.Transaction]("driver.readback"),
	}
}

// Items returns the number of completed round trips.
func (d *Driver) Items() uint64 {
	return d.items
}

// Run returns the driver task. It draws until flag is raised; running out of values first is a
// liveness failure.
func (d *Driver) Run(flag *sim.Flag) sim.TaskFunc {
	return func(t *sim.Task) error {
		for !flag.IsRaised() {
			v, err := d.space.Next(d.rng)
			if err != nil {
				return err
			}
			if err := d.Drive(t, uint8(v)); err != nil {
				return err
			}
			d.items++
		}
		d.log.Infof("driver stopped after %d items at cycle %d", d.items, t.Cycle())
		return nil
	}
}

// Drive performs one round trip for v.
func (d *Driver) Drive(t *sim.Task, v uint8) error {
	addr := bus.AddressByte(d.cfg.TargetAddress, false)
	d.bfm.Command(t, bus.CmdStartWrite, addr, true)
	if err := d.checkAck(t, "address", addr); err != nil {
		return err
	}

	d.bfm.Command(t, bus.CmdWrite, d.cfg.RegisterOffset, true)
	if err := d.checkAck(t, "offset", d.cfg.RegisterOffset); err != nil {
		return err
	}

	sent := bus.Transaction{Value: uint32(v), Role: bus.RoleSent, Kind: bus.KindData, Cycle: t.Cycle()}
	if err := d.Sent.Write(sent); err != nil {
		return err
	}
	d.bfm.Command(t, bus.CmdWriteStop, v, true)
	if err := d.checkAck(t, "data", v); err != nil {
		return err
	}

	if !d.cfg.Readback {
		return nil
	}
	d.bfm.Command(t, bus.CmdStartReadStop, 0, false)
	got := d.bfm.ReadRegister(t, bus.RegData)
	d.log.Debugf("readback %d after sending %d", got, v)
	return d.Readback.Write(bus.Transaction{
		Value: uint32(got),
		Role:  bus.RoleReceived,
		Kind:  bus.KindReadback,
		Cycle: t.Cycle(),
	})
}

func (d *Driver) checkAck(t *sim.Task, what string, b uint8) error {
	if d.bfm.Status(t)&bus.StatusRxNack == 0 {
		return nil
	}
	return errors.Wrapf(ErrNack, "%s byte 0x%02x at cycle %d", what, b, t.Cycle())
}
