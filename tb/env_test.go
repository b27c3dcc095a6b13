package tb

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Readm/i2c_verif/sim"
	"github.com/Readm/i2c_verif/stimulus"
)

func smallOptions(lo, hi int) Options {
	return Options{
		Name:          "unit",
		DomainLo:      lo,
		DomainHi:      hi,
		AtLeast:       1,
		Divisor:       1,
		PeerAddress:   0x50,
		TargetAddress: 0x50,
		Seed:          1,
		MaxCycles:     200_000,
	}
}

func runEnv(t *testing.T, opts Options) (*Env, *Result, error) {
	t.Helper()
	e, err := NewEnv(opts, nil)
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NotNil(t, res)
	return e, res, err
}

func scoreboard(t *testing.T, res *Result, name string) ScoreboardStats {
	t.Helper()
	for _, sb := range res.Scoreboards {
		if sb.Name == name {
			return sb
		}
	}
	t.Fatalf("no scoreboard %q in %+v", name, res.Scoreboards)
	return ScoreboardStats{}
}

func TestTransmitOnlyClosesDomain(t *testing.T) {
	e, res, err := runEnv(t, smallOptions(0, 16))
	require.NoError(t, err)

	assert.Equal(t, uint64(16), res.Items)
	assert.True(t, res.Closed)
	assert.True(t, res.Coverage.Complete)
	assert.Empty(t, res.Missed)
	assert.Zero(t, e.Space().Remaining())
	assert.Equal(t, 16, scoreboard(t, res, "bus").Passed)
	assert.Zero(t, res.Failed())
	assert.Len(t, res.Scoreboards, 1)
	assert.Equal(t, 2, scoreboard(t, res, "bus").Peak, "one round trip outstanding at a time")
	assert.Equal(t, []string{"bus", "coverage"}, e.Wiring()["bfm.received"])
	assert.Equal(t, []string{"bus"}, e.Wiring()["driver.sent"])
	// address, offset and payload frame per item
	assert.Equal(t, uint64(48), res.Frames)
}

func TestLoopbackInOrder(t *testing.T) {
	opts := smallOptions(16, 32)
	opts.Readback = true
	_, res, err := runEnv(t, opts)
	require.NoError(t, err)

	assert.Equal(t, uint64(16), res.Items)
	assert.Equal(t, 16, scoreboard(t, res, "bus").Passed)
	assert.Equal(t, 16, scoreboard(t, res, "readback").Passed)
	for _, b := range res.Coverage.Points[0].Bins {
		assert.Equal(t, 1, b.Hits, "bin %d", b.Value)
	}
}

func TestLoopbackLagged(t *testing.T) {
	opts := smallOptions(16, 32)
	opts.Readback = true
	opts.ScoreboardMode = ModeLagged
	e, res, err := runEnv(t, opts)
	require.NoError(t, err)

	mons := e.Monitors()
	require.Len(t, mons, 2)
	assert.NotZero(t, mons[0].Samples())
	assert.Equal(t, mons[0].Samples(), mons[1].Samples())
	assert.Equal(t, []string{"monitor"}, e.Wiring()["data_mon.ap"])

	lagged := scoreboard(t, res, "monitor")
	assert.Equal(t, ModeLagged, lagged.Mode)
	assert.Equal(t, 16, lagged.Passed)
	assert.Greater(t, lagged.Compared, 16, "one pair per cycle")
	assert.Zero(t, res.Failed())
}

func TestReadbackFaultIsFatal(t *testing.T) {
	opts := smallOptions(16, 32)
	opts.Readback = true
	e, err := NewEnv(opts, nil)
	require.NoError(t, err)

	rx := e.DUT().RxReg
	e.Kernel().AddComponent(sim.ComponentFunc(func(uint64) {
		if v, ok := rx.Pending(); ok && v != 0 {
			rx.Set(v ^ 0x01)
		}
	}))

	res, err := e.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMismatch), "got %v", err)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "readback", mismatch.Scoreboard)
	assert.Equal(t, mismatch.Expected^0x01, mismatch.Actual)
	assert.Equal(t, 1, res.Failed())
	assert.Equal(t, uint64(0), res.Items)
}

func TestNackAbortsAndStillReports(t *testing.T) {
	dir := t.TempDir()
	opts := smallOptions(0, 16)
	opts.TargetAddress = 0x21
	opts.Reports = []string{filepath.Join(dir, "coverage.xml"), filepath.Join(dir, "coverage.json")}

	_, res, err := runEnv(t, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNack), "got %v", err)
	assert.Equal(t, err, res.Err)
	assert.False(t, res.Closed)
	assert.Zero(t, res.Coverage.Covered)

	for _, p := range opts.Reports {
		_, statErr := os.Stat(p)
		assert.NoError(t, statErr, "report %s", p)
	}
}

func TestCycleLimitIsReported(t *testing.T) {
	opts := smallOptions(0, 16)
	opts.MaxCycles = 500
	_, res, err := runEnv(t, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrCycleLimit), "got %v", err)
	assert.Equal(t, uint64(500), res.Cycles)
}

func TestPartialClosureStopsEarly(t *testing.T) {
	opts := smallOptions(0, 16)
	opts.ClosurePercent = 50
	e, res, err := runEnv(t, opts)
	require.NoError(t, err)

	assert.Equal(t, uint64(8), res.Items)
	assert.InDelta(t, 50.0, res.Coverage.Percent, 1e-9)
	assert.False(t, res.Coverage.Complete)
	assert.Equal(t, 8, e.Space().Remaining())
}

func TestConstraintRestrictsDomain(t *testing.T) {
	c, err := stimulus.LoadConstraint("odd", "function accept(v) return v % 2 == 1 end")
	require.NoError(t, err)
	defer c.Close()

	opts := smallOptions(0, 16)
	opts.Constraint = c
	_, res, err := runEnv(t, opts)
	require.NoError(t, err)

	assert.Equal(t, uint64(8), res.Items)
	assert.Equal(t, 8, res.Coverage.Size)
	for _, b := range res.Coverage.Points[0].Bins {
		assert.Equal(t, 1, b.Value%2)
	}
}

func TestProgressFrames(t *testing.T) {
	opts := smallOptions(0, 16)
	opts.ProgressEvery = 256
	e, err := NewEnv(opts, nil)
	require.NoError(t, err)

	var frames []Progress
	e.Progress.Connect("test", func(p Progress) error {
		frames = append(frames, p)
		return nil
	})
	_, err = e.Run(context.Background())
	require.NoError(t, err)

	require.Greater(t, len(frames), 1)
	last := frames[len(frames)-1]
	assert.True(t, last.Done)
	assert.InDelta(t, 100.0, last.Percent, 1e-9)
	assert.Equal(t, 16, last.Covered)
	for i := 1; i < len(frames); i++ {
		assert.GreaterOrEqual(t, frames[i].Cycle, frames[i-1].Cycle)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Lagged")
	require.NoError(t, err)
	assert.Equal(t, ModeLagged, m)
	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeInOrder, m)
	_, err = ParseMode("sideways")
	assert.Error(t, err)
}

func TestCheckReportsCoverageHole(t *testing.T) {
	e, err := NewEnv(smallOptions(0, 4), nil)
	require.NoError(t, err)

	v, err := e.Space().Next(rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	err = e.check()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCoverageHole), "got %v", err)
	assert.Contains(t, err.Error(), fmt.Sprint(v))
}

func TestPerBinThresholdAboveOneCloses(t *testing.T) {
	opts := smallOptions(0, 4)
	opts.AtLeast = 2
	opts.Readback = true
	e, res, err := runEnv(t, opts)
	require.NoError(t, err)

	assert.Equal(t, uint64(8), res.Items)
	assert.True(t, res.Closed)
	assert.Empty(t, res.Missed)
	assert.Zero(t, e.Space().Remaining())
	for _, b := range res.Coverage.Points[0].Bins {
		assert.Equal(t, 2, b.Hits, "bin %d", b.Value)
	}
	assert.Equal(t, 8, scoreboard(t, res, "readback").Passed)
}

func TestDomainMustFitOneFrame(t *testing.T) {
	_, err := NewEnv(smallOptions(0, 300), nil)
	assert.Error(t, err)

	_, err = NewEnv(smallOptions(-1, 4), nil)
	assert.Error(t, err)

	_, err = NewEnv(smallOptions(0, 256), nil)
	assert.NoError(t, err)
}
