// Package browser is an interactive terminal view over the watch
// notifications: the volume set, and the contents of the monitored directory
// with navigation into subdirectories and volumes.
package browser

import (
	"context"
	"errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/pollwatch/logging"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/grovetools/pollwatch/tui"
)

// ChannelSink forwards notifications to the browser's update loop. Notify
// blocks until the browser takes the notification or the sink is closed.
type ChannelSink struct {
	ch   chan watch.Notification
	done chan struct{}
}

// NewChannelSink creates a sink with a small buffer.
func NewChannelSink() *ChannelSink {
	return &ChannelSink{
		ch:   make(chan watch.Notification, 16),
		done: make(chan struct{}),
	}
}

// Notify implements watch.Sink.
func (s *ChannelSink) Notify(n watch.Notification) error {
	select {
	case s.ch <- n:
	case <-s.done:
	}
	return nil
}

// Notifications is the channel the browser reads.
func (s *ChannelSink) Notifications() <-chan watch.Notification { return s.ch }

// Close releases any Notify call still waiting.
func (s *ChannelSink) Close() { close(s.done) }

// Run shows the browser until the user quits or ctx ends. Log output is
// discarded while the terminal is owned by the browser.
func Run(ctx context.Context, m *Model) error {
	tui.InitializeTUI()

	logging.SetGlobalOutput(io.Discard)
	defer logging.SetGlobalOutput(os.Stderr)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
