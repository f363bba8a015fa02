// Package wtui renders human-facing CLI output: colored status tables and
// the interactive branch picker. TTY/color detection layers muesli/termenv
// and mattn/go-isatty (already pulled in transitively by bubbletea's
// terminal-capability stack) over golang.org/x/term -- termenv gives us a
// color-profile probe (ASCII/256/TrueColor) that a bare IsTerminal check
// does not.
package wtui

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether stdout is connected to a TTY.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// ShouldUseColor implements the standard NO_COLOR / CLICOLOR / CLICOLOR_FORCE
// conventions, falling back to TTY + color-profile detection.
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" {
		return true
	}
	if !IsTerminal() {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

// GetWidth returns the detected terminal width, or 80 when undetectable.
func GetWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
