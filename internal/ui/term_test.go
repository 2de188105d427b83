package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
)

func TestLineWidthDefaultsForNonTerminal(t *testing.T) {
	if got := LineWidth(&bytes.Buffer{}); got != MaxLineLength {
		t.Fatalf("width=%d want %d", got, MaxLineLength)
	}
	if _, ok := TerminalWidth(&bytes.Buffer{}); ok {
		t.Fatalf("buffer must not be reported as a terminal")
	}
}

func TestConfigureColorForcesAndRestores(t *testing.T) {
	color.NoColor = true
	restore := ConfigureColor(true)
	if color.NoColor {
		t.Fatalf("expected colors forced on")
	}
	restore()
	if !color.NoColor {
		t.Fatalf("expected previous color setting restored")
	}
}
