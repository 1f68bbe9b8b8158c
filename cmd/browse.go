package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/pollwatch/cli"
	"github.com/grovetools/pollwatch/pkg/daemon"
	"github.com/grovetools/pollwatch/pkg/hostfs"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/grovetools/pollwatch/tui/browser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewBrowseCmd creates the `browse` command.
func NewBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [dir]",
		Short: "Browse drives and a directory interactively",
		Long: `Opens an interactive view of the mounted volumes and the monitored directory
that updates as they change. Enter opens a directory or volume, backspace
moves to the parent directory.

When the daemon is running the browser attaches to it and navigation moves
the daemon's directory watcher. Otherwise the watchers run in-process.

Examples:
  pollwatch browse
  pollwatch browse ~/Downloads --local`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBrowseE,
	}

	cmd.Flags().Bool("local", false, "Run the watchers in-process even when the daemon is running")

	return cmd
}

func runBrowseE(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cli.GetLogger(cmd, "browse")
	if local, _ := cmd.Flags().GetBool("local"); !local {
		if client, _, err := connect(cmd); err == nil {
			defer client.Close()
			return browseDaemon(ctx, client, args, logger)
		}
	}
	return browseLocal(ctx, cmd, args, logger)
}

func browseLocal(ctx context.Context, cmd *cobra.Command, args []string, logger *logrus.Entry) error {
	cfg, err := cli.LoadConfig(cli.GetOptions(cmd))
	if err != nil {
		return err
	}
	dirs, err := hostfs.NewDirectories(cfg.Watch.Ignore)
	if err != nil {
		return err
	}

	opts := cfg.WatchOptions()
	opts.Logger = logger
	dir, err := startDirectory(args, opts.Directory)
	if err != nil {
		return err
	}
	opts.Directory = dir

	sink := browser.NewChannelSink()
	controller := watch.NewController(hostfs.NewVolumes(), dirs, sink, opts)
	defer controller.Close()
	// Loops blocked in Notify must be released before Close waits for them.
	defer sink.Close()
	controller.Start()

	return browser.Run(ctx, browser.New(controller, sink.Notifications(), dir))
}

func browseDaemon(ctx context.Context, client *daemon.RemoteClient, args []string, logger *logrus.Entry) error {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if len(args) > 0 {
		dir, err := absDirectory(args[0])
		if err != nil {
			return err
		}
		if _, err := client.ChangeDirectory(reqCtx, dir); err != nil {
			return err
		}
	}

	stream, err := client.Stream(ctx)
	if err != nil {
		return err
	}
	state, err := client.State(reqCtx)
	if err != nil {
		return err
	}

	m := browser.New(&daemonCommands{ctx: ctx, client: client, logger: logger}, stream, state.Settings.MonitoredDirectory)
	m.Seed(state.Volumes, state.Directory)
	return browser.Run(ctx, m)
}

// daemonCommands forwards browser navigation to the daemon.
type daemonCommands struct {
	ctx    context.Context
	client daemon.Client
	logger *logrus.Entry
}

func (d *daemonCommands) ChangeDirectory(path string) {
	ctx, cancel := context.WithTimeout(d.ctx, requestTimeout)
	defer cancel()
	if _, err := d.client.ChangeDirectory(ctx, path); err != nil {
		d.logger.WithError(err).WithField("path", path).Warn("Failed to change directory")
	}
}

func (d *daemonCommands) ChangeDirectoryUp() {
	ctx, cancel := context.WithTimeout(d.ctx, requestTimeout)
	defer cancel()
	if _, err := d.client.ChangeDirectoryUp(ctx); err != nil {
		d.logger.WithError(err).Warn("Failed to change to parent directory")
	}
}
