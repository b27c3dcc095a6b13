package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/Readm/i2c_verif/tb"
)

// progressLine redraws a single status line on a terminal.
type progressLine struct {
	w io.Writer
}

// newProgressLine returns nil unless w is a terminal.
func newProgressLine(w io.Writer) *progressLine {
	f, ok := w.(*os.File)
	if !ok || f == nil || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return &progressLine{w: f}
}

func (p *progressLine) Update(pr tb.Progress) error {
	if p == nil {
		return nil
	}
	fmt.Fprintf(p.w, "\r%s: cycle %d, %d round trips, coverage %d/%d (%.1f%%)   ", pr.Name, pr.Cycle, pr.Items, pr.Covered, pr.Size, pr.Percent)
	if pr.Done {
		fmt.Fprintln(p.w)
	}
	return nil
}
