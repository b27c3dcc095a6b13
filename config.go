package main

import (
	"github.com/Readm/i2c_verif/sim"
	"github.com/Readm/i2c_verif/stimulus"
	"github.com/Readm/i2c_verif/tb"
)

const (
	DefaultDivisor        = 20
	DefaultResetCycles    = 5
	DefaultAtLeast        = 1
	DefaultClosurePercent = 100.0
	DefaultWebAddr        = "127.0.0.1:8080"
	MaxDomain             = 256
)

// Config describes one verification run.
type Config struct {
	Name string `json:"name"`

	// stimulus domain [DomainLo, DomainHi)
	DomainLo         int     `json:"domain_lo"`
	DomainHi         int     `json:"domain_hi"`
	AtLeast          int     `json:"at_least"`
	ClosurePercent   float64 `json:"closure_percent"`
	ConstraintScript string  `json:"constraint_script,omitempty"`
	Seed             int64   `json:"seed"`

	// controller and peer
	Divisor        int  `json:"divisor"`
	PeerAddress    int  `json:"peer_address"`
	TargetAddress  int  `json:"target_address"`
	RegisterOffset int  `json:"register_offset"`
	Readback       bool `json:"readback"`

	ScoreboardMode  string `json:"scoreboard_mode"`
	ScoreboardDepth int    `json:"scoreboard_depth,omitempty"`
	MaxCycles       uint64 `json:"max_cycles"`
	ResetCycles     int    `json:"reset_cycles"`

	ReportXML  string `json:"report_xml,omitempty"`
	ReportJSON string `json:"report_json,omitempty"`
	WebAddr    string `json:"web_addr,omitempty"`
	Headless   bool   `json:"headless"`
}

// Options converts a validated config into environment options.
func (cfg *Config) Options(constraint *stimulus.Constraint) tb.Options {
	mode, _ := tb.ParseMode(cfg.ScoreboardMode)
	return tb.Options{
		Name:            cfg.Name,
		DomainLo:        cfg.DomainLo,
		DomainHi:        cfg.DomainHi,
		AtLeast:         cfg.AtLeast,
		ClosurePercent:  cfg.ClosurePercent,
		Divisor:         uint16(cfg.Divisor),
		PeerAddress:     uint8(cfg.PeerAddress),
		TargetAddress:   uint8(cfg.TargetAddress),
		RegisterOffset:  uint8(cfg.RegisterOffset),
		Readback:        cfg.Readback,
		ScoreboardMode:  mode,
		ScoreboardDepth: cfg.ScoreboardDepth,
		MaxCycles:       cfg.MaxCycles,
		ResetCycles:     cfg.ResetCycles,
		Seed:            cfg.Seed,
		Constraint:      constraint,
		Reports:         []string{cfg.ReportXML, cfg.ReportJSON},
	}
}

func defaultConfig() *Config {
	return &Config{
		Name:           "default",
		DomainLo:       0,
		DomainHi:       16,
		AtLeast:        DefaultAtLeast,
		ClosurePercent: DefaultClosurePercent,
		Divisor:        DefaultDivisor,
		Readback:       true,
		ScoreboardMode: tb.ModeInOrder.String(),
		MaxCycles:      sim.DefaultMaxCycles,
		ResetCycles:    DefaultResetCycles,
		Seed:           1,
		Headless:       true,
	}
}
