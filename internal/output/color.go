package output

import (
	"io"
	"os"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorGray  = "\033[90m"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode and
// TTY detection.
func shouldColorize(mode ColorMode, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
}
