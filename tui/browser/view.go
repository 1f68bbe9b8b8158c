package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/grovetools/pollwatch/tui/theme"
	"github.com/grovetools/pollwatch/tui/utils/scrollbar"
)

const (
	defaultHeight  = 24
	maxVolumeRows  = 5
	headerLines    = 2
	footerLines    = 2
	minListHeight  = 3
	sectionHeaders = 2
)

// timeNow is replaced in tests to pin relative timestamps.
var timeNow = time.Now

func (m *Model) volumeRows() int {
	n := len(m.volumeIDs)
	if n == 0 {
		n = 1
	}
	if n > maxVolumeRows {
		n = maxVolumeRows
	}
	return n
}

// listHeight is the number of directory rows that fit on screen.
func (m *Model) listHeight() int {
	height := m.height
	if height == 0 {
		height = defaultHeight
	}
	h := height - headerLines - footerLines - sectionHeaders - m.volumeRows()
	if h < minListHeight {
		h = minListHeight
	}
	return h
}

func (m *Model) pageSize() int { return m.listHeight() }

// ensureVisible scrolls the directory pane so the cursor is on screen.
func (m *Model) ensureVisible() {
	h := m.listHeight()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+h {
		m.scrollOffset = m.cursor - h + 1
	}
	if limit := len(m.rows) - h; m.scrollOffset > limit {
		m.scrollOffset = limit
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

// View renders the browser.
func (m *Model) View() string {
	if m.help.ShowAll {
		return m.renderHeader() + "\n\n" + m.help.View(m.keys)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderVolumes())
	b.WriteString(m.renderDirectory())
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderHeader() string {
	t := theme.DefaultTheme
	title := t.Title.Render("pollwatch")
	dir := m.monitored
	if dir == "" {
		dir = "(no directory)"
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, title, " ", t.Bold.Render(dir))
	if m.directory != nil {
		line += t.Muted.Render(fmt.Sprintf("  %d dirs, %d files, %s",
			m.directory.DirectoryCount(), m.directory.FileCount(),
			humanize.Bytes(uint64(m.directory.TotalSizeBytes))))
	}
	return line
}

func (m *Model) sectionTitle(name string, focused bool) string {
	t := theme.DefaultTheme
	if focused {
		return t.Accent.Render("▌ "+name) + "\n"
	}
	return t.Muted.Render("  "+name) + "\n"
}

func (m *Model) renderVolumes() string {
	t := theme.DefaultTheme
	var b strings.Builder
	b.WriteString(m.sectionTitle("Volumes", m.focus == paneVolumes))

	if m.volumes == nil || len(m.volumeIDs) == 0 {
		b.WriteString(t.Muted.Render("  waiting for volumes…") + "\n")
		return b.String()
	}

	start := 0
	if m.volumeCursor >= maxVolumeRows {
		start = m.volumeCursor - maxVolumeRows + 1
	}
	for i := start; i < len(m.volumeIDs) && i < start+maxVolumeRows; i++ {
		id := m.volumeIDs[i]
		v := m.volumes.Volumes[id]
		line := fmt.Sprintf("%s %s", theme.IconVolume, v.Path)
		if v.Label != "" {
			line += " (" + v.Label + ")"
		}
		if v.TotalBytes > 0 {
			line += fmt.Sprintf("  %s free", humanize.Bytes(v.FreeBytes))
		}
		if id == m.volumes.SystemVolumeID {
			line += "  system"
		}
		b.WriteString(m.renderLine(line, m.focus == paneVolumes && i == m.volumeCursor, t.Volume, m.width) + "\n")
	}
	return b.String()
}

func (m *Model) renderDirectory() string {
	t := theme.DefaultTheme
	var b strings.Builder
	title := "Contents"
	if parent := watch.ParentDirectory(m.monitored); parent != "" {
		title += "  " + theme.IconUp + " " + parent
	}
	b.WriteString(m.sectionTitle(title, m.focus == paneDirectory))

	h := m.listHeight()
	if m.directory == nil {
		b.WriteString(t.Muted.Render("  waiting for directory listing…") + "\n")
		b.WriteString(strings.Repeat("\n", h-1))
		return b.String()
	}
	if len(m.rows) == 0 {
		b.WriteString(t.Muted.Render("  (empty)") + "\n")
		b.WriteString(strings.Repeat("\n", h-1))
		return b.String()
	}

	width := m.width
	bar := scrollbar.Generate(len(m.rows), h, m.scrollOffset, h)
	if bar != nil && width > 0 {
		width--
	}

	now := timeNow()
	lines := make([]string, 0, h)
	for i := m.scrollOffset; i < len(m.rows) && len(lines) < h; i++ {
		e := m.rows[i].entry
		when := humanize.RelTime(e.ModTime, now, "ago", "from now")
		var line string
		style := t.File
		if e.IsDir {
			style = t.Directory
			line = fmt.Sprintf("%s %s/  %s", theme.IconDirectory, e.Name, when)
		} else {
			line = fmt.Sprintf("%s %s  %s  %s", theme.IconFile, e.Name, humanize.Bytes(uint64(e.Size)), when)
		}
		lines = append(lines, m.renderLine(line, m.focus == paneDirectory && i == m.cursor, style, width))
	}
	for len(lines) < h {
		lines = append(lines, "")
	}

	for i, line := range lines {
		if bar != nil && width > 0 {
			if pad := width - lipgloss.Width(line); pad > 0 {
				line += strings.Repeat(" ", pad)
			}
			line += bar[i]
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m *Model) renderLine(text string, selected bool, style lipgloss.Style, width int) string {
	t := theme.DefaultTheme
	if width > 4 {
		text = truncate(text, width-2)
	}
	if selected {
		return t.Selected.Render("> " + text)
	}
	return "  " + style.Render(text)
}

func (m *Model) renderStatus() string {
	t := theme.DefaultTheme
	if m.closed {
		return t.Error.Render("stream closed")
	}
	if m.last == nil {
		return t.Muted.Render("waiting for notifications…")
	}
	return t.Muted.Render(fmt.Sprintf("%d updates, last: %s at %s",
		m.updates, m.last.Kind, m.last.Time.Format("15:04:05")))
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
