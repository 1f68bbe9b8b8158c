package cmd

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/grovetools/pollwatch/cli"
	"github.com/grovetools/pollwatch/pkg/hostfs"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the `watch` command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch drives and a directory in the foreground",
		Long: `Runs the drive and directory watchers in this process and prints every
notification until interrupted. The directory defaults to the configured one,
then to the current working directory.

Examples:
  pollwatch watch
  pollwatch watch ~/Downloads --interval 250ms
  pollwatch watch /mnt --no-directory --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatchE,
	}

	cmd.Flags().Duration("interval", 0, "Poll interval (overrides configuration)")
	cmd.Flags().Bool("no-drives", false, "Disable the drive watcher")
	cmd.Flags().Bool("no-directory", false, "Disable the directory watcher")

	return cmd
}

func runWatchE(cmd *cobra.Command, args []string) error {
	opts := cli.GetOptions(cmd)
	logger := cli.GetLogger(cmd, "watch")

	cfg, err := cli.LoadConfig(opts)
	if err != nil {
		return err
	}

	watchOpts := cfg.WatchOptions()
	watchOpts.Logger = logger
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		watchOpts.PollInterval = interval
	}
	if off, _ := cmd.Flags().GetBool("no-drives"); off {
		watchOpts.DriveWatcherEnabled = false
	}
	if off, _ := cmd.Flags().GetBool("no-directory"); off {
		watchOpts.DirectoryWatcherEnabled = false
	}
	dir, err := startDirectory(args, watchOpts.Directory)
	if err != nil {
		return err
	}
	watchOpts.Directory = dir

	dirs, err := hostfs.NewDirectories(cfg.Watch.Ignore)
	if err != nil {
		return err
	}

	printer := newNotificationPrinter(cmd.OutOrStdout(), opts.JSONOutput)
	var mu sync.Mutex
	sink := watch.SinkFunc(func(n watch.Notification) error {
		mu.Lock()
		defer mu.Unlock()
		return printer.Print(n)
	})

	controller := watch.NewController(hostfs.NewVolumes(), dirs, sink, watchOpts)
	defer controller.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithField("directory", dir).
		WithField("interval", watchOpts.PollInterval.String()).
		Debug("Starting watchers")
	controller.Start()
	<-ctx.Done()
	logger.Debug("Stopping watchers")
	return nil
}

// startDirectory picks the monitored directory from the argument, the
// configured value, or the working directory, in that order.
func startDirectory(args []string, configured string) (string, error) {
	if len(args) > 0 {
		return absDirectory(args[0])
	}
	if configured != "" {
		return configured, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return watch.NormalizeDirectory(cwd), nil
}
