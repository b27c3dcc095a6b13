package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Readm/i2c_verif/sim"
	"github.com/Readm/i2c_verif/tb"
)

func TestPredefinedConfigsAreValid(t *testing.T) {
	for _, bc := range GetPredefinedConfigs() {
		t.Run(bc.Name, func(t *testing.T) {
			cfg := GetConfigByName(bc.Name)
			require.NotNil(t, cfg)
			require.NoError(t, ValidateConfig(cfg))
			assert.Equal(t, bc.Name, cfg.Name)
		})
	}
}

func TestGetConfigByNameReturnsCopy(t *testing.T) {
	a := GetConfigByName("i2c_loopback")
	require.NotNil(t, a)
	a.DomainHi = 99
	b := GetConfigByName("i2c_loopback")
	assert.Equal(t, 32, b.DomainHi)
	assert.Nil(t, GetConfigByName("missing"))
}

func TestValidateConfigFillsDefaults(t *testing.T) {
	cfg := &Config{DomainHi: 8, ScoreboardMode: "LAGGED", Readback: true}
	require.NoError(t, ValidateConfig(cfg))

	assert.Equal(t, DefaultDivisor, cfg.Divisor)
	assert.Equal(t, DefaultClosurePercent, cfg.ClosurePercent)
	assert.Equal(t, DefaultAtLeast, cfg.AtLeast)
	assert.Equal(t, DefaultResetCycles, cfg.ResetCycles)
	assert.Equal(t, uint64(sim.DefaultMaxCycles), cfg.MaxCycles)
	assert.Equal(t, tb.ModeLagged.String(), cfg.ScoreboardMode)
	assert.Equal(t, DefaultWebAddr, cfg.WebAddr, "web view is on unless headless")
}

func TestValidateConfigRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"empty domain":       func(c *Config) { c.DomainHi = c.DomainLo },
		"negative low bound": func(c *Config) { c.DomainLo = -1 },
		"domain too wide":    func(c *Config) { c.DomainHi = MaxDomain + 1 },
		"divisor too large":  func(c *Config) { c.Divisor = 0x10000 },
		"peer address":       func(c *Config) { c.PeerAddress = 0x80 },
		"target address":     func(c *Config) { c.TargetAddress = -1 },
		"register offset":    func(c *Config) { c.RegisterOffset = 0x100 },
		"closure percent":    func(c *Config) { c.ClosurePercent = 101 },
		"unknown mode":       func(c *Config) { c.ScoreboardMode = "random" },
		"at least":           func(c *Config) { c.AtLeast = -1 },
		"lagged w/o readback": func(c *Config) {
			c.ScoreboardMode = tb.ModeLagged.String()
			c.Readback = false
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
	assert.Error(t, ValidateConfig(nil))
}

func TestConfigOptions(t *testing.T) {
	cfg := GetConfigByName("i2c_nack")
	require.NoError(t, ValidateConfig(cfg))
	cfg.ReportXML = "out/cov.xml"

	opts := cfg.Options(nil)
	assert.Equal(t, uint8(0x50), opts.PeerAddress)
	assert.Equal(t, uint8(0x21), opts.TargetAddress)
	assert.Equal(t, uint16(4), opts.Divisor)
	assert.Equal(t, tb.ModeInOrder, opts.ScoreboardMode)
	assert.Contains(t, opts.Reports, "out/cov.xml")
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, lvl)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestDivisorRangeMessage(t *testing.T) {
	cfg := defaultConfig()
	cfg.Divisor = 0
	require.NoError(t, ValidateConfig(cfg), "zero selects the default divisor")
	assert.Equal(t, DefaultDivisor, cfg.Divisor)

	cfg.Divisor = -1
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[0,65535]")
}

func TestScoreboardDepthReachesOptions(t *testing.T) {
	cfg := defaultConfig()
	cfg.ScoreboardDepth = 4
	require.NoError(t, ValidateConfig(cfg))
	assert.Equal(t, 4, cfg.Options(nil).ScoreboardDepth)

	cfg.ScoreboardDepth = -1
	assert.Error(t, ValidateConfig(cfg))
}
