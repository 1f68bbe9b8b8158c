package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/pollwatch/config"
	"github.com/grovetools/pollwatch/errors"
	"github.com/grovetools/pollwatch/internal/daemon/engine"
	"github.com/grovetools/pollwatch/logging"
	"github.com/grovetools/pollwatch/pkg/daemon"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/grovetools/pollwatch/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"watch", "browse", "daemon", "cd", "up", "events", "state", "config", "watcher", "paths", "logs", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestParseConfigUpdate(t *testing.T) {
	update, err := parseConfigUpdate("poll_interval_ms", "250")
	require.NoError(t, err)
	require.NotNil(t, update.PollIntervalMs)
	assert.EqualValues(t, 250, *update.PollIntervalMs)

	update, err = parseConfigUpdate("poll_interval", "2s")
	require.NoError(t, err)
	assert.EqualValues(t, 2000, *update.PollIntervalMs)

	update, err = parseConfigUpdate("drive_watcher", "false")
	require.NoError(t, err)
	require.NotNil(t, update.DriveWatcher)
	assert.False(t, *update.DriveWatcher)
	assert.Nil(t, update.DirectoryWatcher)

	update, err = parseConfigUpdate("directory_watcher", "true")
	require.NoError(t, err)
	assert.True(t, *update.DirectoryWatcher)

	for _, tc := range [][2]string{
		{"poll_interval_ms", "0"},
		{"poll_interval_ms", "-5"},
		{"poll_interval_ms", "soon"},
		{"drive_watcher", "maybe"},
		{"colour", "blue"},
	} {
		_, err := parseConfigUpdate(tc[0], tc[1])
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "%s=%s", tc[0], tc[1])
	}
}

func TestNotificationPrinterText(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	p := newNotificationPrinter(&buf, false)
	p.now = func() time.Time { return now }

	require.NoError(t, p.Print(watch.Notification{
		Kind: watch.KindVolumesChanged,
		Time: now,
		Volumes: &watch.VolumeSnapshot{
			SystemVolumeID: "/",
			Volumes: map[string]watch.VolumeInfo{
				"/": {ID: "/", Path: "/", TotalBytes: 2_000_000_000, FreeBytes: 500_000_000},
			},
		},
	}))
	out := buf.String()
	assert.Contains(t, out, "volumes_changed")
	assert.Contains(t, out, "500 MB free of 2.0 GB")
	assert.Contains(t, out, "system")

	buf.Reset()
	require.NoError(t, p.Print(watch.Notification{
		Kind: watch.KindDirectoryContentsChanged,
		Time: now,
		Directory: &watch.DirectorySnapshot{
			RootPath:       "/data/",
			Directories:    map[string]watch.DirectoryInfo{"/data/photos": {Name: "photos", ModTime: now.Add(-time.Hour)}},
			Files:          map[string]watch.FileInfo{"/data/a.txt": {Name: "a.txt", Size: 2048, ModTime: now.Add(-2 * time.Minute)}},
			TotalSizeBytes: 2048,
		},
	}))
	out = buf.String()
	assert.Contains(t, out, "1 directories, 1 files, 2.0 kB")
	assert.Contains(t, out, "photos/")
	assert.Contains(t, out, "1 hour ago")
	assert.Contains(t, out, "2 minutes ago")
	assert.Less(t, strings.Index(out, "photos"), strings.Index(out, "a.txt"))

	buf.Reset()
	require.NoError(t, p.Print(watch.Notification{
		Kind:    watch.KindConfigChanged,
		Time:    now,
		Setting: &watch.SettingChange{Name: watch.SettingPollInterval, Value: "250ms"},
	}))
	assert.Contains(t, buf.String(), "poll_interval = 250ms")
}

func TestNotificationPrinterJSON(t *testing.T) {
	var buf bytes.Buffer
	p := newNotificationPrinter(&buf, true)
	require.NoError(t, p.Print(watch.Notification{ID: "n1", Kind: watch.KindDirectorySwitched, Time: time.Now()}))
	require.NoError(t, p.Print(watch.Notification{ID: "n2", Kind: watch.KindVolumesChanged, Time: time.Now()}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var n watch.Notification
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &n))
	assert.Equal(t, "n2", n.ID)
	assert.Equal(t, watch.KindVolumesChanged, n.Kind)
}

func TestPrintStreamFiltersKinds(t *testing.T) {
	ch := make(chan watch.Notification, 3)
	ch <- watch.Notification{ID: "a", Kind: watch.KindVolumesChanged}
	ch <- watch.Notification{ID: "b", Kind: watch.KindDirectorySwitched}
	ch <- watch.Notification{ID: "c", Kind: watch.KindVolumesChanged}
	close(ch)

	var buf bytes.Buffer
	err := printStream(context.Background(), ch, newNotificationPrinter(&buf, true), []string{"volumes_changed"})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `"id":"a"`)
	assert.Contains(t, out, `"id":"c"`)
	assert.NotContains(t, out, `"id":"b"`)
}

func TestPrintLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\npartial"), 0o644))

	var buf bytes.Buffer
	offset, err := printLastLines(&buf, path, 2)
	require.NoError(t, err)
	assert.Equal(t, "two\nthree\n", buf.String())
	assert.EqualValues(t, len("one\ntwo\nthree\n"), offset)

	buf.Reset()
	_, err = printLastLines(&buf, path, -1)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", buf.String())

	buf.Reset()
	offset, err = printLastLines(&buf, path, 0)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
	assert.EqualValues(t, 14, offset)
}

func TestDaemonLogFile(t *testing.T) {
	testutil.Isolate(t)

	_, err := daemonLogFile(logging.Config{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	require.NoError(t, os.MkdirAll(logging.LogDir(), 0o755))
	for _, name := range []string{"daemon-2024-01-31.log", "daemon-2024-02-01.log", "watch-2024-03-01.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(logging.LogDir(), name), nil, 0o644))
	}
	path, err := daemonLogFile(logging.Config{})
	require.NoError(t, err)
	assert.Equal(t, "daemon-2024-02-01.log", filepath.Base(path))

	custom := filepath.Join(t.TempDir(), "custom.log")
	var cfg logging.Config
	cfg.File.Path = custom
	_, err = daemonLogFile(cfg)
	assert.Error(t, err)
	require.NoError(t, os.WriteFile(custom, nil, 0o644))
	path, err = daemonLogFile(cfg)
	require.NoError(t, err)
	assert.Equal(t, custom, path)
}

func TestLogsCommandPrintsTail(t *testing.T) {
	testutil.Isolate(t)
	require.NoError(t, os.MkdirAll(logging.LogDir(), 0o755))
	logFile := filepath.Join(logging.LogDir(), "daemon-2024-02-01.log")
	require.NoError(t, os.WriteFile(logFile, []byte("first\nsecond\nthird\n"), 0o644))

	out, err := execute(t, "logs", "--tail", "1")
	require.NoError(t, err)
	assert.Equal(t, "third\n", out)
}

func TestStartDirectory(t *testing.T) {
	root := testutil.Isolate(t)
	work := filepath.Join(root, "work")

	dir, err := startDirectory(nil, "")
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(strings.TrimSuffix(dir, string(filepath.Separator)))
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(work)
	require.NoError(t, err)
	assert.Equal(t, want, resolved)
	assert.True(t, strings.HasSuffix(dir, string(filepath.Separator)))

	dir, err = startDirectory(nil, "/configured/")
	require.NoError(t, err)
	assert.Equal(t, "/configured/", dir)

	dir, err = startDirectory([]string{"/explicit"}, "/configured/")
	require.NoError(t, err)
	assert.Equal(t, "/explicit/", dir)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	dir, err = absDirectory("~/Downloads")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Downloads")+string(filepath.Separator), dir)
}

func TestPathsCommand(t *testing.T) {
	root := testutil.Isolate(t)

	out, err := execute(t, "paths")
	require.NoError(t, err)

	var paths PathsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &paths))
	assert.Equal(t, filepath.Join(root, "home", "config"), paths.ConfigDir)
	assert.Equal(t, filepath.Join(root, "home", "state", "pollwatch.pid"), paths.PidFile)
	assert.Equal(t, filepath.Join(root, "home", "state", "logs"), paths.LogDir)
	assert.Equal(t, filepath.Join(root, "home", "state", "state.yml"), paths.StateFile)
	assert.True(t, strings.HasSuffix(paths.Socket, "pollwatch.sock"))
}

func TestCommandsWithoutDaemon(t *testing.T) {
	testutil.Isolate(t)

	_, err := execute(t, "cd", "/tmp")
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))

	_, err = execute(t, "watcher", "stop", "drive")
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))

	_, err = execute(t, "watcher", "stop", "everything")
	assert.Error(t, err)

	out, err := execute(t, "daemon", "status", "--json")
	require.NoError(t, err)
	var status DaemonStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.False(t, status.Running)

	out, err = execute(t, "daemon", "stop")
	require.NoError(t, err)
	assert.Contains(t, out, "not running")
}

func TestStateFallsBackToSnapshot(t *testing.T) {
	root := testutil.Isolate(t)
	data := filepath.Join(root, "data")
	testutil.Tree(t, data, "sub/")
	testutil.WriteFile(t, filepath.Join(data, "a.txt"), "hello")
	testutil.WriteFile(t, filepath.Join(root, "work", "pollwatch.yml"),
		testutil.Config([]string{"directory: " + data}, nil))

	out, err := execute(t, "state", "--json")
	require.NoError(t, err)

	var state daemon.StateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.False(t, state.Watchers.Drive.Running)
	assert.NotNil(t, state.Volumes)
	require.NotNil(t, state.Directory)
	assert.Len(t, state.Directory.Files, 1)
	assert.Len(t, state.Directory.Directories, 1)
	assert.EqualValues(t, 5, state.Directory.TotalSizeBytes)
}

func TestConfigShowAndSchema(t *testing.T) {
	testutil.Isolate(t)

	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No configuration file found")
	assert.Contains(t, out, "poll_interval_ms: 1000")

	out, err = execute(t, "config", "schema")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
	assert.Contains(t, out, "poll_interval_ms")
}

func TestCommandsAgainstDaemon(t *testing.T) {
	root := testutil.Isolate(t)
	watched := filepath.Join(root, "watched")
	testutil.Tree(t, watched, "photos/")
	socket := filepath.Join(testutil.SocketDir(t), "d.sock")

	cfgPath := testutil.WriteFile(t, filepath.Join(root, "work", "pollwatch.yml"), testutil.Config(
		[]string{"poll_interval_ms: 20", "directory: " + watched},
		[]string{"socket: " + socket},
	))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	eng, err := engine.New(engine.Options{Config: cfg, SocketPath: socket, Logger: logrus.NewEntry(quiet)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Serve(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()
	select {
	case <-eng.Server().Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not start")
	}

	out, err := execute(t, "cd", filepath.Join(watched, "photos"), "--json")
	require.NoError(t, err)
	var dir daemon.DirectoryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &dir))
	assert.True(t, dir.Changed)
	assert.Equal(t, filepath.Join(watched, "photos")+string(filepath.Separator), dir.Directory)

	out, err = execute(t, "up")
	require.NoError(t, err)
	assert.Contains(t, out, "Watching "+watched)

	out, err = execute(t, "watcher", "stop", "drive", "--json")
	require.NoError(t, err)
	var watchers daemon.Watchers
	require.NoError(t, json.Unmarshal([]byte(out), &watchers))
	assert.False(t, watchers.Drive.Running)
	assert.True(t, watchers.Directory.Running)

	out, err = execute(t, "config", "set", "poll_interval_ms", "250", "--json")
	require.NoError(t, err)
	var resp daemon.ConfigResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.EqualValues(t, 250, resp.Settings.PollIntervalMs)

	out, err = execute(t, "state", "--json")
	require.NoError(t, err)
	var state daemon.StateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, watched+string(filepath.Separator), state.Settings.MonitoredDirectory)
	assert.False(t, state.Watchers.Drive.Running)

	out, err = execute(t, "cd", watched)
	require.NoError(t, err)
	assert.Contains(t, out, "Unchanged, still watching "+watched)

	out, err = execute(t, "config", "set", "drive_watcher", "false")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Updated daemon settings")
	assert.Contains(t, out, "poll_interval_ms: 250")
	assert.Contains(t, out, "drive_watcher: false")

	out, err = execute(t, "watcher", "start", "directory")
	require.NoError(t, err)
	assert.Contains(t, out, "drive: disabled")
	assert.Contains(t, out, "directory: running")

	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Daemon.PidFilePath()), 0o755))
	require.NoError(t, os.WriteFile(cfg.Daemon.PidFilePath(), []byte(strconv.Itoa(os.Getpid())), 0o644))
	out, err = execute(t, "daemon", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Daemon is running")
	assert.Contains(t, out, "pid: "+strconv.Itoa(os.Getpid()))
	assert.Contains(t, out, "socket: "+socket)
	assert.NotContains(t, out, "not answering")
}
