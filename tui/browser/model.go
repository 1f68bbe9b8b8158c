package browser

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/pollwatch/pkg/watch"
)

// Commands is the part of the watch controller the browser drives.
// *watch.Controller satisfies it.
type Commands interface {
	ChangeDirectory(path string)
	ChangeDirectoryUp()
}

type pane int

const (
	paneDirectory pane = iota
	paneVolumes
)

// row is one line of the directory pane.
type row struct {
	path  string
	entry watch.Entry
}

// Model represents the state of the browser.
type Model struct {
	commands      Commands
	notifications <-chan watch.Notification

	volumes   *watch.VolumeSnapshot
	volumeIDs []string
	directory *watch.DirectorySnapshot
	rows      []row
	monitored string

	focus        pane
	cursor       int
	volumeCursor int
	scrollOffset int

	last    *watch.Notification
	updates int
	closed  bool

	keys   KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a browser fed by notifications. Commands run asynchronously so
// a command that emits synchronously cannot block the UI loop.
func New(commands Commands, notifications <-chan watch.Notification, directory string) *Model {
	return &Model{
		commands:      commands,
		notifications: notifications,
		monitored:     directory,
		keys:          DefaultKeyMap,
		help:          help.New(),
	}
}

// Seed shows snapshots taken before the notification stream was opened.
func (m *Model) Seed(volumes *watch.VolumeSnapshot, directory *watch.DirectorySnapshot) {
	m.setVolumes(volumes)
	m.setDirectory(directory, true)
}

// notificationMsg carries one notification into the update loop.
type notificationMsg watch.Notification

// streamClosedMsg signals that no further notifications will arrive.
type streamClosedMsg struct{}

// Init starts listening for notifications.
func (m *Model) Init() tea.Cmd {
	return m.waitForNotification()
}

func (m *Model) waitForNotification() tea.Cmd {
	ch := m.notifications
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return notificationMsg(n)
	}
}

// apply folds a notification into the model.
func (m *Model) apply(n watch.Notification) {
	m.last = &n
	m.updates++

	switch n.Kind {
	case watch.KindVolumesChanged:
		m.setVolumes(n.Volumes)
	case watch.KindDirectorySwitched:
		m.setDirectory(n.Directory, true)
	case watch.KindDirectoryContentsChanged:
		m.setDirectory(n.Directory, false)
	case watch.KindConfigChanged:
		if n.Setting != nil && n.Setting.Name == watch.SettingMonitoredDirectory {
			if dir, ok := n.Setting.Value.(string); ok {
				m.monitored = dir
			}
		}
	}
}

func (m *Model) setVolumes(snap *watch.VolumeSnapshot) {
	if snap == nil {
		return
	}
	m.volumes = snap
	m.volumeIDs = m.volumeIDs[:0]
	for id := range snap.Volumes {
		m.volumeIDs = append(m.volumeIDs, id)
	}
	sort.Strings(m.volumeIDs)
	m.volumeCursor = clamp(m.volumeCursor, len(m.volumeIDs))
}

// setDirectory replaces the directory pane. A switch resets the cursor; a
// content change keeps the selected entry when it still exists.
func (m *Model) setDirectory(snap *watch.DirectorySnapshot, switched bool) {
	if snap == nil {
		return
	}
	var selected string
	if !switched && m.cursor < len(m.rows) {
		selected = m.rows[m.cursor].path
	}

	m.directory = snap
	m.monitored = snap.RootPath
	m.rows = sortedRows(snap)

	m.cursor = 0
	if switched {
		m.scrollOffset = 0
		return
	}
	for i, r := range m.rows {
		if r.path == selected {
			m.cursor = i
			break
		}
	}
}

// sortedRows lists directories first, then files, each by name.
func sortedRows(snap *watch.DirectorySnapshot) []row {
	rows := make([]row, 0, snap.DirectoryCount()+snap.FileCount())
	for path, e := range snap.Entries() {
		rows = append(rows, row{path: path, entry: e})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.IsDir != rows[j].entry.IsDir {
			return rows[i].entry.IsDir
		}
		a, b := strings.ToLower(rows[i].entry.Name), strings.ToLower(rows[j].entry.Name)
		if a != b {
			return a < b
		}
		return rows[i].path < rows[j].path
	})
	return rows
}

func clamp(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}

// Monitored returns the directory the browser currently shows.
func (m *Model) Monitored() string { return m.monitored }
