package cmd

import (
	"context"
	"os"
	"time"

	"github.com/grovetools/pollwatch/cli"
	"github.com/grovetools/pollwatch/config"
	"github.com/grovetools/pollwatch/pkg/daemon"
	"github.com/grovetools/pollwatch/pkg/hostfs"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/grovetools/pollwatch/util/pathutil"
	"github.com/spf13/cobra"
)

// requestTimeout bounds a single request to the daemon.
const requestTimeout = 5 * time.Second

// connect loads the configuration and connects to the daemon it names.
func connect(cmd *cobra.Command) (*daemon.RemoteClient, *config.Config, error) {
	cfg, err := cli.LoadConfig(cli.GetOptions(cmd))
	if err != nil {
		return nil, nil, err
	}
	client, err := daemon.Connect(cfg.Daemon.SocketPath())
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// clientFor returns the daemon client when it is running and a one-off
// snapshot client otherwise.
func clientFor(cmd *cobra.Command) (daemon.Client, error) {
	cfg, err := cli.LoadConfig(cli.GetOptions(cmd))
	if err != nil {
		return nil, err
	}
	dirs, err := hostfs.NewDirectories(cfg.Watch.Ignore)
	if err != nil {
		return nil, err
	}
	settings := watch.Settings{
		MonitoredDirectory:      watch.NormalizeDirectory(cfg.Watch.Directory),
		PollInterval:            cfg.Watch.PollInterval(),
		PollIntervalMs:          int64(cfg.Watch.PollIntervalMs),
		DriveWatcherEnabled:     *cfg.Watch.DriveWatcher,
		DirectoryWatcherEnabled: *cfg.Watch.DirectoryWatcher,
	}
	if settings.MonitoredDirectory == "" {
		if cwd, err := os.Getwd(); err == nil {
			settings.MonitoredDirectory = watch.NormalizeDirectory(cwd)
		}
	}
	socket := cfg.Daemon.SocketPath()
	return daemon.New(socket, daemon.NewLocalClient(hostfs.NewVolumes(), dirs, settings, socket)), nil
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), requestTimeout)
}

// absDirectory resolves a user-supplied path against the working directory.
func absDirectory(path string) (string, error) {
	abs, err := pathutil.Expand(path)
	if err != nil {
		return "", err
	}
	return watch.NormalizeDirectory(abs), nil
}
