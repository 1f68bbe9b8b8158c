package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/pollwatch/cli"
	"github.com/grovetools/pollwatch/internal/daemon/engine"
	"github.com/grovetools/pollwatch/internal/daemon/pidfile"
	"github.com/grovetools/pollwatch/logging"
	"github.com/grovetools/pollwatch/pkg/daemon"
	"github.com/grovetools/pollwatch/pkg/paths"
	"github.com/grovetools/pollwatch/pkg/process"
	"github.com/grovetools/pollwatch/state"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewDaemonCmd returns the daemon command with subcommands.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run and control the background watcher",
		Long:  "The daemon owns the drive and directory watchers and serves their state over a unix socket.",
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Long:  "Start the pollwatch daemon in foreground mode.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cli.GetOptions(cmd))
			if err != nil {
				return err
			}

			logger := logging.NewFileLogger("daemon")
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				logging.SetLevel(logrus.DebugLevel)
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("failed to create state directories: %w", err)
			}

			pidPath := cfg.Daemon.PidFilePath()
			if err := pidfile.Acquire(pidPath); err != nil {
				return err
			}
			defer func() {
				if err := pidfile.Release(pidPath); err != nil {
					logger.Errorf("Failed to release pidfile: %v", err)
				}
			}()

			eng, err := engine.New(engine.Options{
				Config:     cfg,
				SocketPath: cfg.Daemon.SocketPath(),
				State:      state.Open(state.DefaultPath()),
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.WithField("pid", os.Getpid()).
				WithField("socket", cfg.Daemon.SocketPath()).
				Info("Starting daemon")
			err = eng.Serve(ctx)
			logger.Info("Daemon stopped")
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cli.GetOptions(cmd))
			if err != nil {
				return err
			}

			running, pid, err := pidfile.IsRunning(cfg.Daemon.PidFilePath())
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			p := statusPrinter(cmd)
			if !running {
				p.InfoPretty("Daemon is not running")
				return nil
			}

			if err := process.Terminate(pid); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}
			p.Success(fmt.Sprintf("Sent SIGTERM to process %d", pid))
			return nil
		},
	}
}

// DaemonStatus is the machine-readable form of 'daemon status'.
type DaemonStatus struct {
	Running   bool   `json:"running"`
	PID       int    `json:"pid,omitempty"`
	Socket    string `json:"socket"`
	Reachable bool   `json:"reachable"`
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			cfg, err := cli.LoadConfig(opts)
			if err != nil {
				return err
			}

			running, pid, err := pidfile.IsRunning(cfg.Daemon.PidFilePath())
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}

			socket := cfg.Daemon.SocketPath()
			client := daemon.NewRemoteClient(socket)
			defer client.Close()

			status := DaemonStatus{
				Running:   running,
				PID:       pid,
				Socket:    socket,
				Reachable: running && client.IsRunning(),
			}
			if opts.JSONOutput {
				return printJSON(cmd, status)
			}

			p := statusPrinter(cmd)
			if !status.Running {
				p.InfoPretty("Daemon is not running")
				return nil
			}
			p.Success("Daemon is running")
			p.Field("pid", status.PID)
			p.Path("socket", status.Socket)
			if !status.Reachable {
				p.WarnPretty("Socket is not answering")
			}
			return nil
		},
	}
}
