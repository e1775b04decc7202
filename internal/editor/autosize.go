package editor

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// FitHeight returns the rows needed to show text at width without scrolling,
// clamped to [minRows, maxRows]. A maxRows of zero means no upper bound.
func FitHeight(text string, width, minRows, maxRows int) int {
	if minRows < 1 {
		minRows = 1
	}
	rows := 0
	for _, line := range strings.Split(text, "\n") {
		rows += wrappedRows(line, width)
	}
	rows = max(rows, minRows)
	if maxRows > 0 {
		rows = min(rows, maxRows)
	}
	return rows
}

// wrappedRows counts the soft-wrapped rows of one hard line.
func wrappedRows(line string, width int) int {
	if width <= 0 {
		return 1
	}
	if ansi.StringWidth(line) <= width {
		return 1
	}
	return strings.Count(ansi.Wrap(line, width, ""), "\n") + 1
}
