package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ScoreBar renders a visual progress bar for a 0-100 score.
// Example: "████████░░ 80/100"
func ScoreBar(score, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := min(max(score*width/100, 0), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %s", ScoreStyle(score).Render(bar), StyleMuted.Render(fmt.Sprintf("%d/100", score)))
}

// ScoreStyle picks the style for a score: good and above pass, needs-work
// warns, poor fails.
func ScoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 70:
		return StyleSuccess
	case score >= 50:
		return StyleWarning
	default:
		return StyleError
	}
}

// TrendArrow returns a styled trend indicator for a higher-is-better delta.
// Positive delta shows an up arrow, negative shows down, zero shows a dash.
func TrendArrow(delta int) string {
	switch {
	case delta > 0:
		return StyleSuccess.Render(fmt.Sprintf("▲ +%d", delta))
	case delta < 0:
		return StyleError.Render(fmt.Sprintf("▼ %d", delta))
	default:
		return StyleMuted.Render("─")
	}
}

// Section prints a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
