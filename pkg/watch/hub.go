package watch

import (
	"errors"
	"sync"
	"time"
)

// ErrHubClosed is returned by Notify after Close.
var ErrHubClosed = errors.New("hub is closed")

const subscriberBuffer = 100

// State is the latest picture recorded by a Hub.
type State struct {
	Volumes       *VolumeSnapshot         `json:"volumes,omitempty"`
	Directory     *DirectorySnapshot      `json:"directory,omitempty"`
	Settings      map[Setting]interface{} `json:"settings,omitempty"`
	Notifications uint64                  `json:"notifications"`
	LastUpdate    time.Time               `json:"last_update,omitempty"`
}

// Hub is a Sink that keeps the most recent snapshots and fans notifications
// out to subscribers. It is safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	state       State
	subscribers map[chan Notification]struct{}
	closed      bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		state:       State{Settings: make(map[Setting]interface{})},
		subscribers: make(map[chan Notification]struct{}),
	}
}

// Notify records n and broadcasts it. Subscribers whose buffer is full miss
// the notification.
func (h *Hub) Notify(n Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	switch n.Kind {
	case KindVolumesChanged:
		h.state.Volumes = n.Volumes
	case KindDirectoryContentsChanged, KindDirectorySwitched:
		h.state.Directory = n.Directory
	case KindConfigChanged:
		if n.Setting != nil {
			h.state.Settings[n.Setting.Name] = n.Setting.Value
		}
	}
	h.state.Notifications++
	h.state.LastUpdate = n.Time

	for ch := range h.subscribers {
		select {
		case ch <- n:
		default:
			metricDroppedNotifications.Inc()
		}
	}
	return nil
}

// Subscribe returns a buffered channel receiving every subsequent
// notification. The channel is closed by Unsubscribe or Close.
func (h *Hub) Subscribe() chan Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Notification, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (h *Hub) Unsubscribe(ch chan Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[ch]; !ok {
		return
	}
	delete(h.subscribers, ch)
	close(ch)
}

// State returns a copy of the recorded state. Snapshots are shared and must
// not be modified.
func (h *Hub) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.state
	s.Settings = make(map[Setting]interface{}, len(h.state.Settings))
	for k, v := range h.state.Settings {
		s.Settings[k] = v
	}
	return s
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close closes every subscriber channel. Later notifications are rejected.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}
