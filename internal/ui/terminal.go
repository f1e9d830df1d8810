package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether ANSI colors should be written to stdout.
// ADVERTHIDE_COLOR=always|never wins over NO_COLOR (https://no-color.org),
// which wins over TTY detection.
func ShouldUseColor() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ADVERTHIDE_COLOR"))) {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
