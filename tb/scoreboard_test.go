package tb

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Readm/i2c_verif/analysis"
	"github.com/Readm/i2c_verif/bus"
)

func tx(v uint32) bus.Transaction { return bus.Transaction{Value: v, Role: bus.RoleSent} }
func rx(v uint32) bus.Transaction { return bus.Transaction{Value: v, Role: bus.RoleReceived} }

func TestInOrderPairsByArrival(t *testing.T) {
	sb := NewScoreboard("sb", ModeInOrder, 0, nil)
	exp, act := sb.ExpectedExport(), sb.ActualExport()

	require.NoError(t, exp(tx(3)))
	require.NoError(t, exp(tx(4)))
	require.NoError(t, act(rx(3)))
	assert.Equal(t, 1, sb.Passed())

	err := act(rx(5))
	require.Error(t, err)
	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, uint32(4), mismatch.Expected)
	assert.Equal(t, uint32(5), mismatch.Actual)
	assert.Equal(t, 1, sb.Failed())
	assert.NoError(t, sb.Final())
}

func TestInOrderFinalReportsLeftovers(t *testing.T) {
	sb := NewScoreboard("sb", ModeInOrder, 0, nil)
	require.NoError(t, sb.ActualExport()(rx(9)))
	err := sb.Final()
	assert.True(t, errors.Is(err, ErrUnpaired))
	assert.Contains(t, err.Error(), "result 9 had no command")

	sb = NewScoreboard("sb", ModeInOrder, 0, nil)
	require.NoError(t, sb.ExpectedExport()(tx(9)))
	assert.True(t, errors.Is(sb.Final(), ErrUnpaired))
}

func TestLaggedComparesPreviousCycle(t *testing.T) {
	sb := NewScoreboard("lag", ModeLagged, 0, nil)
	exp, act := sb.ExpectedExport(), sb.ActualExport()

	// cycle by cycle: the result shows 7 in the cycle the next value 8 is latched
	steps := []struct{ tx, rx uint32 }{
		{0, 0},
		{7, 0},
		{8, 7},
		{8, 7},
		{9, 8},
	}
	for _, s := range steps {
		require.NoError(t, exp(tx(s.tx)))
		require.NoError(t, act(rx(s.rx)))
	}
	assert.Equal(t, 2, sb.Passed())
	assert.Equal(t, 5, sb.Compared())

	require.NoError(t, exp(tx(9)))
	assert.NoError(t, sb.Final(), "trailing reference samples are fine")

	err := act(rx(3))
	assert.True(t, errors.Is(err, ErrMismatch))
}

func TestStalledStreamOverflowsQueue(t *testing.T) {
	sb := NewScoreboard("sb", ModeInOrder, 2, nil)
	exp, act := sb.ExpectedExport(), sb.ActualExport()

	require.NoError(t, exp(tx(1)))
	require.NoError(t, exp(tx(2)))
	assert.Equal(t, 2, sb.Backlog())

	err := exp(tx(3))
	assert.True(t, errors.Is(err, analysis.ErrFull), "got %v", err)

	require.NoError(t, act(rx(1)))
	assert.Equal(t, 1, sb.Backlog())
	assert.Equal(t, 3, sb.Peak(), "the pair is counted before it is drained")
	assert.Equal(t, 1, sb.Passed())
}
