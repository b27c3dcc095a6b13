package main

import "github.com/Readm/i2c_verif/tb"

// BenchConfig is a predefined, named verification run.
type BenchConfig struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Config      *Config `json:"-"`
	// ExpectFailure marks negative tests that must end with an error.
	ExpectFailure bool `json:"expect_failure"`
}

// GetPredefinedConfigs returns all available predefined bench configurations.
func GetPredefinedConfigs() []BenchConfig {
	return []BenchConfig{
		{
			Name:        "i2c_loopback",
			Description: "Write every value of [16,32) to the peer and read it back; in-order readback scoreboard",
			Config: &Config{
				Name:           "i2c_loopback",
				DomainLo:       16,
				DomainHi:       32,
				AtLeast:        1,
				ClosurePercent: 100,
				Divisor:        DefaultDivisor,
				Readback:       true,
				ScoreboardMode: tb.ModeInOrder.String(),
				ResetCycles:    DefaultResetCycles,
				Seed:           1,
				Headless:       true,
			},
		},
		{
			Name:        "i2c_tx_only",
			Description: "Write every value of [0,16) to the peer; coverage taken from the bus",
			Config: &Config{
				Name:           "i2c_tx_only",
				DomainLo:       0,
				DomainHi:       16,
				AtLeast:        1,
				ClosurePercent: 100,
				Divisor:        DefaultDivisor,
				ScoreboardMode: tb.ModeInOrder.String(),
				ResetCycles:    DefaultResetCycles,
				Seed:           1,
				Headless:       true,
			},
		},
		{
			Name:        "i2c_full_byte",
			Description: "Full byte domain [0,256) with readback checked by per-cycle monitors (lagged scoreboard)",
			Config: &Config{
				Name:           "i2c_full_byte",
				DomainLo:       0,
				DomainHi:       256,
				AtLeast:        1,
				ClosurePercent: 100,
				Divisor:        DefaultDivisor,
				Readback:       true,
				ScoreboardMode: tb.ModeLagged.String(),
				ResetCycles:    DefaultResetCycles,
				Seed:           1,
				Headless:       true,
			},
		},
		{
			Name:        "i2c_nack",
			Description: "Driver addresses 0x21 while the peer answers 0x50; the run must stop with a NACK",
			Config: &Config{
				Name:           "i2c_nack",
				DomainLo:       0,
				DomainHi:       16,
				AtLeast:        1,
				ClosurePercent: 100,
				Divisor:        4,
				PeerAddress:    0x50,
				TargetAddress:  0x21,
				ScoreboardMode: tb.ModeInOrder.String(),
				ResetCycles:    DefaultResetCycles,
				Seed:           1,
				Headless:       true,
			},
			ExpectFailure: true,
		},
	}
}

// GetConfigByName returns a copy of the named predefined configuration, or nil.
func GetConfigByName(name string) *Config {
	for _, bc := range GetPredefinedConfigs() {
		if bc.Name == name && bc.Config != nil {
			cfgCopy := *bc.Config
			return &cfgCopy
		}
	}
	return nil
}
