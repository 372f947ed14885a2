// Package output provides styled terminal rendering helpers for btar.
package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color constants for consistent styling across the CLI.
var (
	// ColorPrimary is used for headers and emphasis.
	ColorPrimary = lipgloss.Color("#64b5f6")

	// ColorSuccess is used for passing values and improvements.
	ColorSuccess = lipgloss.Color("#66bb6a")

	// ColorError is used for failures and regressions.
	ColorError = lipgloss.Color("#ef5350")

	// ColorWarning is used for values that need work.
	ColorWarning = lipgloss.Color("#fff59d")

	// ColorMuted is used for secondary text and borders.
	ColorMuted = lipgloss.Color("#888888")
)

// Styles provides reusable lipgloss styles.
var (
	StyleHeader  lipgloss.Style
	StyleSuccess lipgloss.Style
	StyleError   lipgloss.Style
	StyleWarning lipgloss.Style
	StyleMuted   lipgloss.Style
	StyleBold    lipgloss.Style

	// StyleLabel is used for metric labels.
	StyleLabel lipgloss.Style
)

func init() {
	applyStyles(true)
}

func applyStyles(colored bool) {
	base := lipgloss.NewStyle()
	fg := func(c lipgloss.Color) lipgloss.Style {
		if !colored {
			return base
		}
		return base.Foreground(c)
	}

	StyleHeader = fg(ColorPrimary)
	StyleSuccess = fg(ColorSuccess)
	StyleError = fg(ColorError)
	StyleWarning = fg(ColorWarning)
	StyleMuted = fg(ColorMuted)
	StyleBold = base
	if colored {
		StyleHeader = StyleHeader.Bold(true)
		StyleBold = base.Bold(true)
	}
	StyleLabel = base.Width(24)
}

// noColor tracks whether color output is disabled.
var noColor bool

// SetNoColor disables or enables color output globally by reassigning the
// package-level styles.
func SetNoColor(disabled bool) {
	noColor = disabled
	applyStyles(!disabled)
}

// IsNoColor returns whether color output is currently disabled.
func IsNoColor() bool {
	return noColor
}

// ColorEnabled reports whether output written to f should be styled: the
// caller allows it, NO_COLOR is unset and f is a terminal.
func ColorEnabled(f *os.File, allowed bool) bool {
	if !allowed {
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
