// Package stream shows live grading progress while go test runs.
package stream

import (
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
)

// termWriter is the single point of terminal output while grading.
// A footer of active tests is redrawn beneath the scrolling history.
type termWriter struct {
	out         io.Writer
	width       int
	height      int
	footerLines int
}

func newTermWriter(out io.Writer, width, height int) *termWriter {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	return &termWriter{out: out, width: width, height: height}
}

// PrintLine writes a line to the scrolling history region.
func (w *termWriter) PrintLine(s string) {
	fmt.Fprintln(w.out, s)
}

// EraseFooter removes the current footer. No-op when none is drawn.
func (w *termWriter) EraseFooter() {
	if w.footerLines == 0 {
		return
	}
	for i := range w.footerLines {
		fmt.Fprint(w.out, "\r\033[2K")
		if i < w.footerLines-1 {
			fmt.Fprint(w.out, "\033[1A")
		}
	}
	fmt.Fprint(w.out, "\r")
	w.footerLines = 0
}

// DrawFooter prints footer lines truncated to the terminal width, capped
// at max(3, height/3) lines.
func (w *termWriter) DrawFooter(lines []string) {
	maxLines := max(3, w.height/3)
	printLines := lines
	if len(lines) > maxLines {
		printLines = lines[:maxLines-1]
	}
	for _, line := range printLines {
		fmt.Fprintln(w.out, runewidth.Truncate(line, w.width, "..."))
	}
	w.footerLines = len(printLines)
	if overflow := len(lines) - len(printLines); overflow > 0 {
		fmt.Fprintln(w.out, runewidth.Truncate(fmt.Sprintf("  ... and %d more", overflow), w.width, "..."))
		w.footerLines++
	}
}
