package browser

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/pollwatch/pkg/watch"
)

// Update handles messages and updates the model accordingly.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ensureVisible()
		return m, nil

	case notificationMsg:
		m.apply(watch.Notification(msg))
		m.ensureVisible()
		return m, m.waitForNotification()

	case streamClosedMsg:
		m.closed = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll {
		m.help.ShowAll = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true

	case key.Matches(msg, m.keys.Switch):
		if m.focus == paneDirectory {
			m.focus = paneVolumes
		} else {
			m.focus = paneDirectory
		}

	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.move(-m.pageSize())
	case key.Matches(msg, m.keys.PageDown):
		m.move(m.pageSize())
	case key.Matches(msg, m.keys.Top):
		m.move(-m.listLen())
	case key.Matches(msg, m.keys.Bottom):
		m.move(m.listLen())

	case key.Matches(msg, m.keys.Open):
		if path := m.selectedDirectory(); path != "" {
			return m, m.changeDirectory(path)
		}

	case key.Matches(msg, m.keys.Parent):
		return m, m.changeDirectoryUp()
	}

	return m, nil
}

func (m *Model) listLen() int {
	if m.focus == paneVolumes {
		return len(m.volumeIDs)
	}
	return len(m.rows)
}

func (m *Model) move(delta int) {
	if m.focus == paneVolumes {
		m.volumeCursor = clamp(m.volumeCursor+delta, len(m.volumeIDs))
		return
	}
	m.cursor = clamp(m.cursor+delta, len(m.rows))
	m.ensureVisible()
}

// selectedDirectory returns the directory under the cursor, or "" when the
// selection is a file.
func (m *Model) selectedDirectory() string {
	if m.focus == paneVolumes {
		if m.volumes == nil || m.volumeCursor >= len(m.volumeIDs) {
			return ""
		}
		return m.volumes.Volumes[m.volumeIDs[m.volumeCursor]].Path
	}
	if m.cursor >= len(m.rows) || !m.rows[m.cursor].entry.IsDir {
		return ""
	}
	return m.rows[m.cursor].path
}

func (m *Model) changeDirectory(path string) tea.Cmd {
	m.focus = paneDirectory
	commands := m.commands
	return func() tea.Msg {
		commands.ChangeDirectory(path)
		return nil
	}
}

func (m *Model) changeDirectoryUp() tea.Cmd {
	commands := m.commands
	return func() tea.Msg {
		commands.ChangeDirectoryUp()
		return nil
	}
}
