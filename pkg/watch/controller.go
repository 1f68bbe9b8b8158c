// Package watch implements polling watchers for the host's volume set and for
// the contents of a single monitored directory.
//
// A Controller owns two independent loops. Each loop lists its resource,
// compares the result against the previous listing with Changed, and emits a
// Notification to the Sink when the listing differs. Commands on the
// controller change the monitored directory, tune the poll interval, and
// start or stop either loop.
package watch

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures a Controller.
type Options struct {
	PollInterval            time.Duration
	DriveWatcherEnabled     bool
	DirectoryWatcherEnabled bool
	// Directory is the initially monitored directory. It is not validated.
	Directory string
	Backoff   BackoffConfig
	Logger    *logrus.Entry
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		PollInterval:            time.Second,
		DriveWatcherEnabled:     true,
		DirectoryWatcherEnabled: true,
		Backoff: BackoffConfig{
			Initial: time.Second,
			Max:     30 * time.Second,
		},
	}
}

// Controller owns the drive and directory loops and the shared watch state.
type Controller struct {
	volumes VolumeLister
	dirs    DirectoryLister
	sink    Sink
	logger  *logrus.Entry

	state *watchState

	ctx    context.Context
	cancel context.CancelFunc

	// lifeMu serialises start, stop and enable commands; cmdMu serialises
	// directory switches.
	lifeMu sync.Mutex
	cmdMu  sync.Mutex
	closed bool

	drive     *loop
	directory *loop
}

// NewController creates a controller. Neither loop runs until started.
func NewController(volumes VolumeLister, dirs DirectoryLister, sink Sink, opts Options) *Controller {
	defaults := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.Backoff.Initial <= 0 {
		opts.Backoff.Initial = defaults.Backoff.Initial
	}
	if opts.Backoff.Max < opts.Backoff.Initial {
		opts.Backoff.Max = opts.Backoff.Initial
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		volumes: volumes,
		dirs:    dirs,
		sink:    sink,
		logger:  logger,
		state: &watchState{
			directory:        opts.Directory,
			pollInterval:     opts.PollInterval,
			driveEnabled:     opts.DriveWatcherEnabled,
			directoryEnabled: opts.DirectoryWatcherEnabled,
		},
		ctx:    ctx,
		cancel: cancel,
	}

	dw := &driveWatcher{volumes: volumes, state: c.state, emit: c.emit}
	c.drive = newLoop(driveWatcherName, dw.poll, c.state.interval, opts.Backoff, logger)

	fw := &directoryWatcher{dirs: dirs, state: c.state, emit: c.emit, logger: logger.WithField("watcher", directoryWatcherName)}
	c.directory = newLoop(directoryWatcherName, fw.poll, c.state.interval, opts.Backoff, logger)

	return c
}

// emit delivers n to the sink. Delivery failures are logged and dropped.
func (c *Controller) emit(n Notification) {
	metricNotifications.WithLabelValues(string(n.Kind)).Inc()
	if c.sink == nil {
		return
	}
	if err := deliver(c.sink, n); err != nil {
		metricDeliveryFailures.Inc()
		c.logger.WithError(err).WithField("kind", n.Kind).Warn("Failed to deliver notification")
	}
}

func (c *Controller) emitSetting(name Setting, value interface{}) {
	n := newNotification(KindConfigChanged)
	n.Setting = &SettingChange{Name: name, Value: value}
	c.emit(n)
}

// ChangeDirectory switches the monitored directory to path and emits a
// directory_switched snapshot of it. Blank input, a path that is not a
// directory, or the currently monitored directory are silently ignored.
func (c *Controller) ChangeDirectory(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	target := NormalizeDirectory(path)
	if !c.dirs.IsDirectory(target) {
		c.logger.WithField("path", path).Debug("Ignoring change to non-directory")
		return
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if target == c.state.monitoredDirectory() {
		return
	}

	entries, err := c.dirs.ListEntries(c.ctx, target)
	if err != nil {
		c.logger.WithError(err).WithField("path", target).Warn("Failed to list new directory")
		return
	}
	snap, err := NewDirectorySnapshot(target, entries, c.dirs)
	if err != nil {
		c.logger.WithError(err).WithField("path", target).Warn("Failed to snapshot new directory")
		return
	}

	c.state.switchDirectory(target, entries)
	c.logger.WithField("directory", target).Info("Monitored directory changed")
	c.emitSetting(SettingMonitoredDirectory, target)

	n := newNotification(KindDirectorySwitched)
	n.Directory = snap
	c.emit(n)
}

// ChangeDirectoryUp switches to the parent of the monitored directory.
func (c *Controller) ChangeDirectoryUp() {
	current := c.state.monitoredDirectory()
	if current == "" {
		return
	}
	parent := ParentDirectory(current)
	if parent == "" {
		return
	}
	c.ChangeDirectory(parent)
}

// Start starts both loops.
func (c *Controller) Start() {
	c.StartDriveWatcher()
	c.StartDirectoryWatcher()
}

// Stop stops both loops, blocking until they have exited.
func (c *Controller) Stop() {
	c.StopDriveWatcher()
	c.StopDirectoryWatcher()
}

// StartDriveWatcher starts the drive loop if it is enabled and not running.
func (c *Controller) StartDriveWatcher() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.closed || !c.state.driveWatcherEnabled() {
		return
	}
	c.drive.start(c.ctx)
}

// StopDriveWatcher stops the drive loop and waits for it to exit.
func (c *Controller) StopDriveWatcher() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	c.drive.stop()
}

// StartDirectoryWatcher starts the directory loop if it is enabled and not
// running.
func (c *Controller) StartDirectoryWatcher() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.closed || !c.state.directoryWatcherEnabled() {
		return
	}
	c.directory.start(c.ctx)
}

// StopDirectoryWatcher stops the directory loop and waits for it to exit.
func (c *Controller) StopDirectoryWatcher() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	c.directory.stop()
}

// SetPollInterval changes the sleep between poll cycles. It takes effect at
// the next sleep point. Non-positive intervals are ignored.
func (c *Controller) SetPollInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	if c.state.setInterval(d) {
		c.emitSetting(SettingPollInterval, d.Milliseconds())
	}
}

// EnableDriveWatcher toggles whether the drive loop may run. Disabling a
// running loop stops it.
func (c *Controller) EnableDriveWatcher(enabled bool) {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if !c.state.setDriveEnabled(enabled) {
		return
	}
	c.emitSetting(SettingDriveWatcherEnabled, enabled)
	if !enabled {
		c.drive.stop()
	}
}

// EnableDirectoryWatcher toggles whether the directory loop may run.
// Disabling a running loop stops it.
func (c *Controller) EnableDirectoryWatcher(enabled bool) {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if !c.state.setDirectoryEnabled(enabled) {
		return
	}
	c.emitSetting(SettingDirectoryWatcherEnabled, enabled)
	if !enabled {
		c.directory.stop()
	}
}

// Close stops both loops and releases the controller. It is safe to call more
// than once.
func (c *Controller) Close() error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.drive.stop()
	c.directory.stop()
	c.cancel()
	return nil
}

// MonitoredDirectory returns the directory currently being watched.
func (c *Controller) MonitoredDirectory() string { return c.state.monitoredDirectory() }

// PollInterval returns the current poll interval.
func (c *Controller) PollInterval() time.Duration { return c.state.interval() }

// DriveWatcherEnabled reports whether the drive loop may run.
func (c *Controller) DriveWatcherEnabled() bool { return c.state.driveWatcherEnabled() }

// DirectoryWatcherEnabled reports whether the directory loop may run.
func (c *Controller) DirectoryWatcherEnabled() bool { return c.state.directoryWatcherEnabled() }

// DriveWatcherRunning reports whether the drive loop goroutine is alive.
func (c *Controller) DriveWatcherRunning() bool { return c.drive.running() }

// DirectoryWatcherRunning reports whether the directory loop goroutine is alive.
func (c *Controller) DirectoryWatcherRunning() bool { return c.directory.running() }

// Settings returns a copy of the current configuration.
func (c *Controller) Settings() Settings { return c.state.settings() }
