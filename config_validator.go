package main

import (
	"errors"
	"fmt"

	"github.com/Readm/i2c_verif/sim"
	"github.com/Readm/i2c_verif/tb"
)

// ValidateConfig applies structural checks to Config and populates defaults where required.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if cfg.DomainLo < 0 {
		return fmt.Errorf("DomainLo must be non-negative, got %d", cfg.DomainLo)
	}
	if cfg.DomainHi <= cfg.DomainLo {
		return fmt.Errorf("domain [%d, %d) is empty", cfg.DomainLo, cfg.DomainHi)
	}
	if cfg.DomainHi > MaxDomain {
		return fmt.Errorf("DomainHi must fit one frame (<= %d), got %d", MaxDomain, cfg.DomainHi)
	}
	if cfg.Divisor < 0 || cfg.Divisor > 0xffff {
		return fmt.Errorf("Divisor must be within [0,65535] (0 selects %d), got %d", DefaultDivisor, cfg.Divisor)
	}
	if cfg.PeerAddress < 0 || cfg.PeerAddress > 0x7f {
		return fmt.Errorf("PeerAddress must be a 7-bit address, got 0x%x", cfg.PeerAddress)
	}
	if cfg.TargetAddress < 0 || cfg.TargetAddress > 0x7f {
		return fmt.Errorf("TargetAddress must be a 7-bit address, got 0x%x", cfg.TargetAddress)
	}
	if cfg.RegisterOffset < 0 || cfg.RegisterOffset > 0xff {
		return fmt.Errorf("RegisterOffset must fit one byte, got %d", cfg.RegisterOffset)
	}
	if cfg.ClosurePercent < 0 || cfg.ClosurePercent > 100 {
		return fmt.Errorf("ClosurePercent must be within (0,100], got %.2f", cfg.ClosurePercent)
	}
	if cfg.AtLeast < 0 {
		return fmt.Errorf("AtLeast must be non-negative, got %d", cfg.AtLeast)
	}
	if cfg.ScoreboardDepth < 0 {
		return fmt.Errorf("ScoreboardDepth must be non-negative, got %d", cfg.ScoreboardDepth)
	}
	mode, err := tb.ParseMode(cfg.ScoreboardMode)
	if err != nil {
		return err
	}
	if mode == tb.ModeLagged && !cfg.Readback {
		return errors.New("lagged scoreboard needs Readback")
	}
	cfg.ScoreboardMode = mode.String()

	if cfg.Divisor == 0 {
		cfg.Divisor = DefaultDivisor
	}
	if cfg.ClosurePercent == 0 {
		cfg.ClosurePercent = DefaultClosurePercent
	}
	if cfg.AtLeast == 0 {
		cfg.AtLeast = DefaultAtLeast
	}
	if cfg.ResetCycles <= 0 {
		cfg.ResetCycles = DefaultResetCycles
	}
	if cfg.MaxCycles == 0 {
		cfg.MaxCycles = sim.DefaultMaxCycles
	}
	if !cfg.Headless && cfg.WebAddr == "" {
		cfg.WebAddr = DefaultWebAddr
	}

	return nil
}
