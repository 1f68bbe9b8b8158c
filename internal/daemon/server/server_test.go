package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/pollwatch/pkg/daemon"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/grovetools/pollwatch/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu       sync.Mutex
	settings watch.Settings
	drive    bool
	dir      bool
	calls    []string
}

func newFakeController() *fakeController {
	return &fakeController{settings: watch.Settings{
		MonitoredDirectory:      "/data",
		PollInterval:            time.Second,
		PollIntervalMs:          1000,
		DriveWatcherEnabled:     true,
		DirectoryWatcherEnabled: true,
	}}
}

func (f *fakeController) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeController) ChangeDirectory(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("cd " + path)
	if strings.TrimSpace(path) != "" {
		f.settings.MonitoredDirectory = path
	}
}

func (f *fakeController) ChangeDirectoryUp() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("up")
	f.settings.MonitoredDirectory = filepath.Dir(f.settings.MonitoredDirectory)
}

func (f *fakeController) StartDriveWatcher() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drive = true
}

func (f *fakeController) StopDriveWatcher() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drive = false
}

func (f *fakeController) StartDirectoryWatcher() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dir = true
}

func (f *fakeController) StopDirectoryWatcher() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dir = false
}

func (f *fakeController) SetPollInterval(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.PollInterval = d
	f.settings.PollIntervalMs = d.Milliseconds()
}

func (f *fakeController) EnableDriveWatcher(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.DriveWatcherEnabled = enabled
}

func (f *fakeController) EnableDirectoryWatcher(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.DirectoryWatcherEnabled = enabled
}

func (f *fakeController) Settings() watch.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

func (f *fakeController) DriveWatcherRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drive
}

func (f *fakeController) DirectoryWatcherRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dir
}

type harness struct {
	ctrl   *fakeController
	hub    *watch.Hub
	server *Server
	socket string
	client *http.Client
	done   chan error
	cancel context.CancelFunc
}

func startServer(t *testing.T) *harness {
	t.Helper()

	socket := filepath.Join(testutil.SocketDir(t), "d.sock")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &harness{
		ctrl:   newFakeController(),
		hub:    watch.NewHub(),
		socket: socket,
		done:   make(chan error, 1),
	}
	h.server = New(socket, h.ctrl, h.hub, logrus.NewEntry(logger))
	h.server.SetConfigFile("/etc/pollwatch.yml")

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.server.Serve(ctx) }()

	select {
	case <-h.server.Ready():
	case err := <-h.done:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	h.client = &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socket)
			},
		},
		Timeout: 5 * time.Second,
	}

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
		h.hub.Close()
	})
	return h
}

func (h *harness) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := h.client.Get("http://unix" + path)
	require.NoError(t, err)
	return resp
}

func (h *harness) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	resp, err := h.client.Post("http://unix"+path, "application/json", reader)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthAndSocketPermissions(t *testing.T) {
	h := startServer(t)

	resp := h.get(t, "/health")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	info, err := os.Stat(h.socket)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSocketRemovedOnShutdown(t *testing.T) {
	h := startServer(t)
	h.cancel()
	select {
	case err := <-h.done:
		assert.ErrorIs(t, err, context.Canceled)
		h.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	_, err := os.Stat(h.socket)
	assert.True(t, os.IsNotExist(err))
}

func TestGetState(t *testing.T) {
	h := startServer(t)

	snap := &watch.VolumeSnapshot{
		SystemVolumeID: "C",
		Volumes:        map[string]watch.VolumeInfo{"C": {ID: "C", Path: `C:\`}},
	}
	require.NoError(t, h.hub.Notify(watch.Notification{ID: "1", Kind: watch.KindVolumesChanged, Time: time.Now(), Volumes: snap}))

	var state daemon.StateResponse
	decode(t, h.get(t, "/api/state"), &state)

	require.NotNil(t, state.Volumes)
	assert.Contains(t, state.Volumes.Volumes, "C")
	assert.Equal(t, "/data", state.Settings.MonitoredDirectory)
	assert.EqualValues(t, 1000, state.Settings.PollIntervalMs)
	assert.True(t, state.Watchers.Drive.Enabled)
	assert.False(t, state.Watchers.Drive.Running)
	assert.EqualValues(t, 1, state.Notifications)
}

func TestChangeDirectory(t *testing.T) {
	h := startServer(t)

	var resp daemon.DirectoryResponse
	decode(t, h.post(t, "/api/directory", daemon.DirectoryRequest{Path: "/data/photos"}), &resp)
	assert.True(t, resp.Changed)
	assert.Equal(t, "/data/photos", resp.Directory)

	decode(t, h.post(t, "/api/directory", daemon.DirectoryRequest{Path: "   "}), &resp)
	assert.False(t, resp.Changed)
	assert.Equal(t, "/data/photos", resp.Directory)

	decode(t, h.post(t, "/api/directory/up", nil), &resp)
	assert.True(t, resp.Changed)
	assert.Equal(t, "/data", resp.Directory)

	bad, err := h.client.Post("http://unix/api/directory", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestConfigEndpoints(t *testing.T) {
	h := startServer(t)

	var cfg daemon.ConfigResponse
	decode(t, h.get(t, "/api/config"), &cfg)
	assert.Equal(t, "/etc/pollwatch.yml", cfg.ConfigFile)
	assert.EqualValues(t, 1000, cfg.Settings.PollIntervalMs)

	interval := int64(250)
	off := false
	decode(t, h.post(t, "/api/config", daemon.ConfigUpdate{PollIntervalMs: &interval, DriveWatcher: &off}), &cfg)
	assert.EqualValues(t, 250, cfg.Settings.PollIntervalMs)
	assert.False(t, cfg.Settings.DriveWatcherEnabled)
	assert.True(t, cfg.Settings.DirectoryWatcherEnabled)

	zero := int64(0)
	resp := h.post(t, "/api/config", daemon.ConfigUpdate{PollIntervalMs: &zero})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 250*time.Millisecond, h.ctrl.Settings().PollInterval)
}

func TestWatcherCommands(t *testing.T) {
	h := startServer(t)

	var watchers daemon.Watchers
	decode(t, h.post(t, "/api/watchers/drive/start", nil), &watchers)
	assert.True(t, watchers.Drive.Running)
	assert.False(t, watchers.Directory.Running)

	decode(t, h.post(t, "/api/watchers/directory/start", nil), &watchers)
	assert.True(t, watchers.Directory.Running)

	decode(t, h.post(t, "/api/watchers/drive/stop", nil), &watchers)
	assert.False(t, watchers.Drive.Running)

	resp := h.post(t, "/api/watchers/network/start", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.post(t, "/api/watchers/drive/restart", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamSendsNotifications(t *testing.T) {
	h := startServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix/api/stream", nil)
	require.NoError(t, err)

	streamClient := &http.Client{Transport: h.client.Transport}
	resp, err := streamClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	n := watch.Notification{
		ID:      "7f0c1f2e-0000-4000-8000-000000000001",
		Kind:    watch.KindConfigChanged,
		Time:    time.Now(),
		Setting: &watch.SettingChange{Name: watch.SettingPollInterval, Value: int64(500)},
	}
	require.NoError(t, h.hub.Notify(n))

	var lines []string
	for len(lines) < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	assert.Equal(t, "id: "+n.ID, lines[0])
	assert.Equal(t, "event: config_changed", lines[1])
	require.True(t, strings.HasPrefix(lines[2], "data: "))

	var got watch.Notification
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[2], "data: ")), &got))
	assert.Equal(t, n.ID, got.ID)
	require.NotNil(t, got.Setting)
	assert.Equal(t, watch.SettingPollInterval, got.Setting.Name)
}

func TestWebsocketSendsNotifications(t *testing.T) {
	h := startServer(t)

	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", h.socket)
		},
	}
	conn, _, err := dialer.Dial("ws://unix/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription is registered after the upgrade completes.
	require.Eventually(t, func() bool { return h.hub.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	n := watch.Notification{ID: "ws-1", Kind: watch.KindDirectorySwitched, Time: time.Now(),
		Directory: &watch.DirectorySnapshot{RootPath: "/data", Directories: map[string]watch.DirectoryInfo{}, Files: map[string]watch.FileInfo{}}}
	require.NoError(t, h.hub.Notify(n))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got watch.Notification
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "ws-1", got.ID)
	assert.Equal(t, watch.KindDirectorySwitched, got.Kind)
	require.NotNil(t, got.Directory)
	assert.Equal(t, "/data", got.Directory.RootPath)

	conn.Close()
	require.Eventually(t, func() bool { return h.hub.Subscribers() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestMetricsEndpoint(t *testing.T) {
	h := startServer(t)

	resp := h.get(t, "/metrics")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestWebsocketWriteFailuresAreLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&logs)
	logger.SetLevel(logrus.DebugLevel)
	s := New(filepath.Join(testutil.SocketDir(t), "d.sock"), newFakeController(), watch.NewHub(), logrus.NewEntry(logger))

	conns := make(chan *websocket.Conn, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	defer ts.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	var conn *websocket.Conn
	select {
	case conn = <-conns:
	case <-time.After(2 * time.Second):
		t.Fatal("websocket was not upgraded")
	}
	require.NoError(t, conn.Close())

	assert.Error(t, writeWebsocket(conn, watch.Notification{Kind: watch.KindVolumesChanged}))

	s.closeWebsocket(conn)
	assert.Contains(t, logs.String(), "Websocket close failed")
}
