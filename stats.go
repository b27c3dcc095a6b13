package main

import (
	"fmt"
	"io"

	"github.com/Readm/i2c_verif/tb"
)

// PrintStats writes the run summary.
func PrintStats(w io.Writer, res *tb.Result) {
	if res == nil {
		fmt.Fprintln(w, "No stats available")
		return
	}
	fmt.Fprintln(w, "=== Run Statistics ===")
	fmt.Fprintf(w, "Bench: %s\n", res.Name)
	fmt.Fprintf(w, "Cycles Simulated: %d (%s simulated)\n", res.Cycles, res.SimTime)
	fmt.Fprintf(w, "Round Trips: %d\n", res.Items)
	fmt.Fprintf(w, "Frames Received: %d\n", res.Frames)
	if res.Closed {
		fmt.Fprintf(w, "Coverage Closed At: cycle %d\n", res.ClosedAt)
	}
	fmt.Fprintf(w, "Coverage: %d/%d (%.2f%%)\n", res.Coverage.Covered, res.Coverage.Size, res.Coverage.Percent)
	if len(res.Missed) > 0 {
		fmt.Fprintf(w, "Missed Values: %v\n", res.Missed)
	}
	wall := res.Wall.Seconds()
	if wall > 0 {
		fmt.Fprintf(w, "Wall Time: %s (%.0f cycles/s)\n", res.Wall, float64(res.Cycles)/wall)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Scoreboards ===")
	for _, sb := range res.Scoreboards {
		fmt.Fprintf(w, "%s (%s): Compared=%d, Passed=%d, Failed=%d, Peak Backlog=%d\n", sb.Name, sb.Mode, sb.Compared, sb.Passed, sb.Failed, sb.Peak)
	}

	fmt.Fprintln(w)
	if res.Err != nil {
		fmt.Fprintf(w, "RESULT: FAILED (%v)\n", res.Err)
	} else {
		fmt.Fprintln(w, "RESULT: PASSED")
	}
}
