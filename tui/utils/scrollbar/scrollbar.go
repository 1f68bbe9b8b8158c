// Package scrollbar renders a vertical scrollbar next to list views.
package scrollbar

import (
	"github.com/grovetools/pollwatch/tui/theme"
)

// Generate returns one scrollbar cell per line of height for a list of total
// rows of which visible rows starting at offset are shown. It returns nil
// when everything fits, so callers can skip the column.
func Generate(total, visible, offset, height int) []string {
	if height <= 0 || visible <= 0 || total <= visible {
		return nil
	}

	// Thumb size is proportional to the visible share of the list.
	thumbSize := max(1, (height*visible)/total)

	maxOffset := total - visible
	if offset < 0 {
		offset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}

	maxThumbStart := height - thumbSize
	thumbStart := (maxThumbStart*offset + maxOffset/2) / maxOffset
	if thumbStart > maxThumbStart {
		thumbStart = maxThumbStart
	}

	bar := make([]string, height)
	for i := range bar {
		if i >= thumbStart && i < thumbStart+thumbSize {
			bar[i] = theme.DefaultTheme.Muted.Render("█")
		} else {
			bar[i] = theme.DefaultTheme.Muted.Render("░")
		}
	}
	return bar
}
