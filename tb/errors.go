package tb

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMismatch marks a sent/received data mismatch.
	ErrMismatch = errors.New("sent/received mismatch")
	// ErrNack is returned when the peer leaves an address or data byte unacknowledged.
	ErrNack = errors.New("no acknowledge from peer")
	// ErrUnpaired is returned by the final check when a scoreboard holds items without a partner.
	ErrUnpaired = errors.New("unpaired transactions")
	// ErrCoverageHole is returned when a drawn value was never observed.
	ErrCoverageHole = errors.New("functional coverage error")
)

// MismatchError describes one failed comparison.
type MismatchError struct {
	Scoreboard string
	Expected   uint32
	Actual     uint32
	Cycle      uint64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d at cycle %d", e.Scoreboard, e.Expected, e.Actual, e.Cycle)
}

// Unwrap lets errors.Is match ErrMismatch.
func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}
