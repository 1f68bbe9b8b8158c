// Package engine assembles the pollwatch daemon. The watch controller, the API
// server, the config watcher and the state recorder run as services of one
// suture supervisor.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/pollwatch/config"
	"github.com/grovetools/pollwatch/internal/daemon/server"
	"github.com/grovetools/pollwatch/pkg/hostfs"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/grovetools/pollwatch/state"
	"github.com/sirupsen/logrus"
	"github.com/thejerf/suture/v4"
)

const serviceTimeout = 10 * time.Second

// Options configures an Engine. Volumes and Directories default to the
// host implementations. State is optional; when set, the monitored
// directory is remembered across restarts.
type Options struct {
	Config      *config.Config
	SocketPath  string
	Volumes     watch.VolumeLister
	Directories watch.DirectoryLister
	State       *state.Store
	Logger      *logrus.Entry
}

// Engine owns the hub, the controller and the supervisor running them.
type Engine struct {
	mu         sync.Mutex
	cfg        *config.Config
	hub        *watch.Hub
	controller *watch.Controller
	server     *server.Server
	supervisor *suture.Supervisor
	logger     *logrus.Entry
}

// New builds the engine. Nothing runs until Serve.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	volumes := opts.Volumes
	if volumes == nil {
		volumes = hostfs.NewVolumes()
	}
	dirs := opts.Directories
	if dirs == nil {
		d, err := hostfs.NewDirectories(cfg.Watch.Ignore)
		if err != nil {
			return nil, err
		}
		dirs = d
	}

	watchOpts := cfg.WatchOptions()
	watchOpts.Logger = logger.WithField("component", "watch")
	if watchOpts.Directory == "" && opts.State != nil {
		last, err := opts.State.GetString(state.KeyLastDirectory)
		if err != nil {
			logger.WithError(err).Warn("Failed to read daemon state")
		} else if last != "" && dirs.IsDirectory(last) {
			watchOpts.Directory = watch.NormalizeDirectory(last)
		}
	}

	e := &Engine{
		cfg:    cfg,
		hub:    watch.NewHub(),
		logger: logger,
	}
	e.controller = watch.NewController(volumes, dirs, e.hub, watchOpts)
	e.server = server.New(opts.SocketPath, e.controller, e.hub, logger.WithField("component", "api"))
	e.server.SetConfigFile(cfg.Source)

	e.supervisor = suture.New("pollwatch", suture.Spec{
		EventHook: func(ev suture.Event) { logger.WithFields(logrus.Fields(ev.Map())).Warn(ev.String()) },
		Timeout:   serviceTimeout,
	})
	if opts.State != nil {
		e.supervisor.Add(&stateService{
			hub:    e.hub,
			store:  opts.State,
			logger: logger.WithField("component", "state"),
		})
	}
	e.supervisor.Add(&controllerService{controller: e.controller, logger: logger})
	e.supervisor.Add(e.server)
	if cfg.Source != "" {
		e.supervisor.Add(&configService{
			path:     cfg.Source,
			debounce: time.Duration(cfg.Daemon.DebounceMs) * time.Millisecond,
			logger:   logger.WithField("component", "config"),
			apply:    e.ApplyConfig,
		})
	}

	return e, nil
}

// Hub returns the engine's notification hub.
func (e *Engine) Hub() *watch.Hub { return e.hub }

// Controller returns the watch controller.
func (e *Engine) Controller() *watch.Controller { return e.controller }

// Server returns the API server.
func (e *Engine) Server() *server.Server { return e.server }

// Serve runs every service until ctx is cancelled, then closes the
// controller and the hub.
func (e *Engine) Serve(ctx context.Context) error {
	err := e.supervisor.Serve(ctx)
	e.controller.Close()
	e.hub.Close()
	return err
}

// ApplyConfig pushes the mutable parts of a reloaded configuration into the
// running controller. Only values that differ from the running settings
// cause notifications.
func (e *Engine) ApplyConfig(cfg *config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()

	opts := cfg.WatchOptions()
	e.controller.SetPollInterval(opts.PollInterval)
	e.controller.EnableDriveWatcher(opts.DriveWatcherEnabled)
	e.controller.EnableDirectoryWatcher(opts.DirectoryWatcherEnabled)
	if opts.DriveWatcherEnabled {
		e.controller.StartDriveWatcher()
	}
	if opts.DirectoryWatcherEnabled {
		e.controller.StartDirectoryWatcher()
	}
	if opts.Directory != "" && opts.Directory != e.cfg.WatchOptions().Directory {
		e.controller.ChangeDirectory(opts.Directory)
	}
	e.cfg = cfg
}

// controllerService starts the watch loops and stops them when the
// supervisor shuts down.
type controllerService struct {
	controller *watch.Controller
	logger     *logrus.Entry
}

func (s *controllerService) Serve(ctx context.Context) error {
	s.controller.Start()
	s.logger.WithField("directory", s.controller.MonitoredDirectory()).Info("Watchers started")
	<-ctx.Done()
	s.controller.Stop()
	return ctx.Err()
}

func (s *controllerService) String() string { return "controller" }

// configService reloads the configuration file on change.
type configService struct {
	path     string
	debounce time.Duration
	logger   *logrus.Entry
	apply    func(*config.Config)
}

func (s *configService) Serve(ctx context.Context) error {
	w, err := config.NewWatcher(s.path, s.debounce, s.logger, s.apply)
	if err != nil {
		return err
	}
	defer w.Close()
	s.logger.WithField("path", w.Path()).Debug("Watching configuration")
	return w.Run(ctx)
}

func (s *configService) String() string { return "config@" + s.path }

// stateService records every directory switch in the state store.
type stateService struct {
	hub    *watch.Hub
	store  *state.Store
	logger *logrus.Entry
}

func (s *stateService) Serve(ctx context.Context) error {
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return suture.ErrDoNotRestart
			}
			if n.Kind != watch.KindDirectorySwitched || n.Directory == nil {
				continue
			}
			if err := s.store.Set(state.KeyLastDirectory, n.Directory.RootPath); err != nil {
				s.logger.WithError(err).Warn("Failed to save monitored directory")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *stateService) String() string { return "state@" + s.store.Path() }
