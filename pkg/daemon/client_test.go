package daemon_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/pollwatch/errors"
	"github.com/grovetools/pollwatch/internal/daemon/server"
	"github.com/grovetools/pollwatch/pkg/daemon"
	"github.com/grovetools/pollwatch/pkg/hostfs"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/grovetools/pollwatch/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVolumes struct{ paths []string }

func (v staticVolumes) ListVolumes(ctx context.Context) ([]string, error) { return v.paths, nil }

func (v staticVolumes) VolumeInfo(ctx context.Context, path string) (watch.VolumeInfo, error) {
	return watch.VolumeInfo{Path: path, TotalBytes: 1 << 30, FreeBytes: 1 << 29}, nil
}

func (v staticVolumes) SystemVolumeID() string { return "/" }

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type daemonFixture struct {
	root       string
	socket     string
	controller *watch.Controller
	client     *daemon.RemoteClient
}

func startDaemon(t *testing.T) *daemonFixture {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "photos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o644))

	socket := filepath.Join(testutil.SocketDir(t), "d.sock")

	dirs, err := hostfs.NewDirectories(nil)
	require.NoError(t, err)

	hub := watch.NewHub()
	opts := watch.DefaultOptions()
	opts.PollInterval = 10 * time.Millisecond
	opts.Directory = watch.NormalizeDirectory(root)
	opts.Logger = quietLogger()
	ctrl := watch.NewController(staticVolumes{paths: []string{"/"}}, dirs, hub, opts)

	srv := server.New(socket, ctrl, hub, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("server failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	t.Cleanup(func() {
		cancel()
		<-done
		ctrl.Close()
		hub.Close()
	})

	client, err := daemon.Connect(socket)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return &daemonFixture{root: root, socket: socket, controller: ctrl, client: client}
}

func waitForKind(t *testing.T, ch <-chan watch.Notification, kind watch.Kind) watch.Notification {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case n, ok := <-ch:
			require.True(t, ok, "stream closed before %s", kind)
			if n.Kind == kind {
				return n
			}
		case <-timeout:
			t.Fatalf("no %s notification", kind)
		}
	}
}

func TestConnectWithoutDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "missing.sock")

	_, err := daemon.Connect(socket)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))

	fallback := daemon.NewLocalClient(staticVolumes{}, nil, watch.Settings{}, socket)
	assert.Same(t, fallback, daemon.New(socket, fallback))
}

func TestRemoteClientRoundTrip(t *testing.T) {
	f := startDaemon(t)
	ctx := context.Background()

	assert.True(t, f.client.IsRunning())

	stream, err := f.client.Stream(ctx)
	require.NoError(t, err)

	f.controller.Start()

	volumes := waitForKind(t, stream, watch.KindVolumesChanged)
	require.NotNil(t, volumes.Volumes)
	assert.Contains(t, volumes.Volumes.Volumes, "/")

	initial := waitForKind(t, stream, watch.KindDirectoryContentsChanged)
	require.NotNil(t, initial.Directory)
	assert.Equal(t, 1, initial.Directory.DirectoryCount())
	assert.Equal(t, 1, initial.Directory.FileCount())
	assert.EqualValues(t, 5, initial.Directory.TotalSizeBytes)

	photos := filepath.Join(f.root, "photos")
	resp, err := f.client.ChangeDirectory(ctx, photos)
	require.NoError(t, err)
	assert.True(t, resp.Changed)
	assert.Equal(t, watch.NormalizeDirectory(photos), resp.Directory)

	switched := waitForKind(t, stream, watch.KindDirectorySwitched)
	require.NotNil(t, switched.Directory)
	assert.Equal(t, watch.NormalizeDirectory(photos), switched.Directory.RootPath)
	assert.Zero(t, switched.Directory.FileCount())

	require.NoError(t, os.WriteFile(filepath.Join(photos, "a.jpg"), []byte("jpeg"), 0o644))
	changed := waitForKind(t, stream, watch.KindDirectoryContentsChanged)
	assert.Equal(t, 1, changed.Directory.FileCount())

	resp, err = f.client.ChangeDirectory(ctx, filepath.Join(f.root, "notes.txt"))
	require.NoError(t, err)
	assert.False(t, resp.Changed)

	resp, err = f.client.ChangeDirectoryUp(ctx)
	require.NoError(t, err)
	assert.True(t, resp.Changed)
	assert.Equal(t, watch.NormalizeDirectory(f.root), resp.Directory)

	state, err := f.client.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, watch.NormalizeDirectory(f.root), state.Settings.MonitoredDirectory)
	assert.True(t, state.Watchers.Drive.Running)
	assert.True(t, state.Watchers.Directory.Running)
	assert.NotNil(t, state.Volumes)
}

func TestRemoteClientConfigAndWatchers(t *testing.T) {
	f := startDaemon(t)
	ctx := context.Background()

	wsCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := f.client.StreamWebsocket(wsCtx)
	require.NoError(t, err)

	// Give the server time to register the websocket subscription.
	require.Eventually(t, func() bool {
		interval := int64(time.Now().UnixNano()%500 + 20)
		_, err := f.client.UpdateConfig(ctx, daemon.ConfigUpdate{PollIntervalMs: &interval})
		if err != nil {
			return false
		}
		select {
		case n := <-events:
			return n.Kind == watch.KindConfigChanged
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	off := false
	cfg, err := f.client.UpdateConfig(ctx, daemon.ConfigUpdate{DriveWatcher: &off})
	require.NoError(t, err)
	assert.False(t, cfg.Settings.DriveWatcherEnabled)

	watchers, err := f.client.StartWatcher(ctx, daemon.WatcherDrive)
	require.NoError(t, err)
	assert.False(t, watchers.Drive.Running, "a disabled watcher does not start")

	watchers, err = f.client.StartWatcher(ctx, daemon.WatcherDirectory)
	require.NoError(t, err)
	assert.True(t, watchers.Directory.Running)

	watchers, err = f.client.StopWatcher(ctx, daemon.WatcherDirectory)
	require.NoError(t, err)
	assert.False(t, watchers.Directory.Running)

	_, err = f.client.StartWatcher(ctx, "network")
	require.Error(t, err)

	zero := int64(0)
	_, err = f.client.UpdateConfig(ctx, daemon.ConfigUpdate{PollIntervalMs: &zero})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	current, err := f.client.Config(ctx)
	require.NoError(t, err)
	assert.False(t, current.Watchers.Drive.Enabled)
	assert.True(t, current.Watchers.Directory.Enabled)
}

func TestLocalClient(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bin"), make([]byte, 10), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.bin"), make([]byte, 20), 0o644))

	dirs, err := hostfs.NewDirectories(nil)
	require.NoError(t, err)

	settings := watch.Settings{MonitoredDirectory: watch.NormalizeDirectory(root), DriveWatcherEnabled: true}
	client := daemon.NewLocalClient(staticVolumes{paths: []string{"/", "/mnt"}}, dirs, settings, "/tmp/none.sock")
	ctx := context.Background()

	assert.False(t, client.IsRunning())

	state, err := client.State(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.Volumes)
	assert.Len(t, state.Volumes.Volumes, 1, "both paths share the volume id")
	require.NotNil(t, state.Directory)
	assert.Equal(t, 2, state.Directory.FileCount())
	assert.EqualValues(t, 30, state.Directory.TotalSizeBytes)
	assert.True(t, state.Watchers.Drive.Enabled)
	assert.False(t, state.Watchers.Drive.Running)

	_, err = client.ChangeDirectory(ctx, root)
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))
	_, err = client.Stream(ctx)
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))
	_, err = client.StartWatcher(ctx, daemon.WatcherDrive)
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))

	cfg, err := client.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.MonitoredDirectory, cfg.Settings.MonitoredDirectory)
}
