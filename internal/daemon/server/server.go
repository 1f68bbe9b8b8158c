// Package server provides the HTTP API of the pollwatch daemon.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/pollwatch/pkg/daemon"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	keepaliveInterval = 15 * time.Second
	shutdownTimeout   = time.Second
	wsWriteTimeout    = 5 * time.Second
)

// Controller is the part of the watch controller the API drives.
type Controller interface {
	ChangeDirectory(path string)
	ChangeDirectoryUp()
	StartDriveWatcher()
	StopDriveWatcher()
	StartDirectoryWatcher()
	StopDirectoryWatcher()
	SetPollInterval(d time.Duration)
	EnableDriveWatcher(enabled bool)
	EnableDirectoryWatcher(enabled bool)
	Settings() watch.Settings
	DriveWatcherRunning() bool
	DirectoryWatcherRunning() bool
}

// Server serves the daemon API over a unix socket. It implements
// suture.Service through Serve.
type Server struct {
	socketPath string
	controller Controller
	hub        *watch.Hub
	logger     *logrus.Entry
	startedAt  time.Time
	upgrader   websocket.Upgrader

	mu         sync.RWMutex
	configFile string

	readyOnce sync.Once
	ready     chan struct{}
}

// New creates a server for the given controller and hub.
func New(socketPath string, controller Controller, hub *watch.Hub, logger *logrus.Entry) *Server {
	return &Server{
		socketPath: socketPath,
		controller: controller,
		hub:        hub,
		logger:     logger,
		startedAt:  time.Now(),
		ready:      make(chan struct{}),
	}
}

// SetConfigFile records the configuration file the daemon was started with.
func (s *Server) SetConfigFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configFile = path
}

// Ready is closed once the socket accepts connections for the first time.
func (s *Server) Ready() <-chan struct{} { return s.ready }

func (s *Server) String() string { return "api@" + s.socketPath }

// Serve listens on the unix socket until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := listen(s.socketPath)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:     h2c.NewHandler(s.Handler(), &http2.Server{}),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(listener) }()

	s.logger.WithField("socket", s.socketPath).Info("Daemon listening")
	s.readyOnce.Do(func() { close(s.ready) })

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		s.logger.WithError(err).Warn("API server stopped")
		return err
	}

	s.logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
	}
	_ = os.Remove(s.socketPath)
	return ctx.Err()
}

func listen(socketPath string) (net.Listener, error) {
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}
	return listener, nil
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/state", s.handleGetState)
	mux.HandleFunc("GET /api/stream", s.handleStream)
	mux.HandleFunc("GET /api/ws", s.handleWebsocket)
	mux.HandleFunc("POST /api/directory", s.handleChangeDirectory)
	mux.HandleFunc("POST /api/directory/up", s.handleChangeDirectoryUp)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/config", s.handleUpdateConfig)
	mux.HandleFunc("POST /api/watchers/{name}/{action}", s.handleWatcher)

	return mux
}

func sendJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) watchers() daemon.Watchers {
	settings := s.controller.Settings()
	return daemon.Watchers{
		Drive: daemon.WatcherStatus{
			Enabled: settings.DriveWatcherEnabled,
			Running: s.controller.DriveWatcherRunning(),
		},
		Directory: daemon.WatcherStatus{
			Enabled: settings.DirectoryWatcherEnabled,
			Running: s.controller.DirectoryWatcherRunning(),
		},
	}
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state := s.hub.State()
	sendJSON(w, daemon.StateResponse{
		Volumes:       state.Volumes,
		Directory:     state.Directory,
		Settings:      s.controller.Settings(),
		Watchers:      s.watchers(),
		Notifications: state.Notifications,
		LastUpdate:    state.LastUpdate,
		StartedAt:     s.startedAt,
	})
}

// handleStream provides Server-Sent Events for every notification. The
// notification ID is sent as the event id and its kind as the event name.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected")

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case <-keepalive.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case n, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal notification")
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", n.ID, n.Kind, data)
			flusher.Flush()
		}
	}
}

// handleWebsocket streams notifications as JSON text frames.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	// The read side only exists to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("Websocket client connected")
	for {
		select {
		case <-r.Context().Done():
			s.closeWebsocket(conn)
			return
		case <-gone:
			s.logger.Debug("Websocket client disconnected")
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := writeWebsocket(conn, n); err != nil {
				s.logger.WithError(err).Debug("Websocket write failed")
				return
			}
		}
	}
}

// closeWebsocket tells the peer the daemon is going away.
func (s *Server) closeWebsocket(conn *websocket.Conn) {
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon stopping"),
		time.Now().Add(wsWriteTimeout))
	if err != nil && err != websocket.ErrCloseSent {
		s.logger.WithError(err).Debug("Websocket close failed")
	}
}

// writeWebsocket sends one notification as a JSON frame.
func writeWebsocket(conn *websocket.Conn, n watch.Notification) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return conn.WriteJSON(n)
}

func (s *Server) directoryResponse(before string) daemon.DirectoryResponse {
	after := s.controller.Settings().MonitoredDirectory
	return daemon.DirectoryResponse{Changed: after != before, Directory: after}
}

func (s *Server) handleChangeDirectory(w http.ResponseWriter, r *http.Request) {
	var req daemon.DirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	before := s.controller.Settings().MonitoredDirectory
	s.controller.ChangeDirectory(req.Path)
	resp := s.directoryResponse(before)
	s.logger.WithFields(logrus.Fields{"path": req.Path, "changed": resp.Changed}).Debug("Directory change requested")
	sendJSON(w, resp)
}

func (s *Server) handleChangeDirectoryUp(w http.ResponseWriter, r *http.Request) {
	before := s.controller.Settings().MonitoredDirectory
	s.controller.ChangeDirectoryUp()
	sendJSON(w, s.directoryResponse(before))
}

func (s *Server) configResponse() daemon.ConfigResponse {
	s.mu.RLock()
	configFile := s.configFile
	s.mu.RUnlock()
	return daemon.ConfigResponse{
		Settings:   s.controller.Settings(),
		Watchers:   s.watchers(),
		ConfigFile: configFile,
		StartedAt:  s.startedAt,
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, s.configResponse())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var update daemon.ConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if update.PollIntervalMs != nil && *update.PollIntervalMs <= 0 {
		http.Error(w, "poll_interval_ms must be positive", http.StatusBadRequest)
		return
	}

	if update.PollIntervalMs != nil {
		s.controller.SetPollInterval(time.Duration(*update.PollIntervalMs) * time.Millisecond)
	}
	if update.DriveWatcher != nil {
		s.controller.EnableDriveWatcher(*update.DriveWatcher)
	}
	if update.DirectoryWatcher != nil {
		s.controller.EnableDirectoryWatcher(*update.DirectoryWatcher)
	}
	sendJSON(w, s.configResponse())
}

func (s *Server) handleWatcher(w http.ResponseWriter, r *http.Request) {
	name, action := r.PathValue("name"), r.PathValue("action")

	var start, stop func()
	switch name {
	case daemon.WatcherDrive:
		start, stop = s.controller.StartDriveWatcher, s.controller.StopDriveWatcher
	case daemon.WatcherDirectory:
		start, stop = s.controller.StartDirectoryWatcher, s.controller.StopDirectoryWatcher
	default:
		http.Error(w, "unknown watcher: "+name, http.StatusNotFound)
		return
	}

	switch action {
	case "start":
		start()
	case "stop":
		stop()
	default:
		http.Error(w, "unknown action: "+action, http.StatusNotFound)
		return
	}

	s.logger.WithFields(logrus.Fields{"watcher": name, "action": action}).Info("Watcher command")
	sendJSON(w, s.watchers())
}
