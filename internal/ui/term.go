// File: internal/ui/term.go
// Brief: Internal ui package implementation for 'terminal helpers'.

package ui

import (
	"io"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// MaxLineLength caps separators and headers even on very wide terminals.
const MaxLineLength = 119

func TerminalWidth(w io.Writer) (int, bool) {
	type fdProvider interface {
		Fd() uintptr
	}
	if v, ok := w.(fdProvider); ok {
		if cols, _, err := term.GetSize(int(v.Fd())); err == nil {
			return cols, true
		}
	}
	return 0, false
}

// LineWidth returns the usable line width for w: the terminal width when w is a terminal
// narrower than MaxLineLength, MaxLineLength otherwise.
func LineWidth(w io.Writer) int {
	if cols, ok := TerminalWidth(w); ok && cols > 0 && cols < MaxLineLength {
		return cols
	}
	return MaxLineLength
}

// ConfigureColor applies the --force-color choice. Without forcing, fatih/color keeps its own
// terminal detection.
func ConfigureColor(force bool) (restore func()) {
	prev := color.NoColor
	if force {
		color.NoColor = false
	}
	return func() { color.NoColor = prev }
}
