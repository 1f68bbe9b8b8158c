package cmd

import (
	"github.com/grovetools/pollwatch/cli"
	"github.com/grovetools/pollwatch/pkg/daemon"
	"github.com/spf13/cobra"
)

// NewWatcherCmd creates the `watcher` command.
func NewWatcherCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watcher",
		Short: "Start or stop one of the daemon's watchers",
		Long: `Starts or stops the drive or directory watcher of the running daemon.
A disabled watcher stays stopped until it is enabled with 'pollwatch config set'.

Examples:
  pollwatch watcher stop drive
  pollwatch watcher start directory`,
	}

	cmd.AddCommand(newWatcherActionCmd("start", "Start a watcher"))
	cmd.AddCommand(newWatcherActionCmd("stop", "Stop a watcher"))

	return cmd
}

func newWatcherActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:       action + " <drive|directory>",
		Short:     short,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{daemon.WatcherDrive, daemon.WatcherDirectory},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := requestContext(cmd)
			defer cancel()

			var watchers *daemon.Watchers
			if action == "start" {
				watchers, err = client.StartWatcher(ctx, args[0])
			} else {
				watchers, err = client.StopWatcher(ctx, args[0])
			}
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, watchers)
			}
			p := statusPrinter(cmd)
			p.Field("drive", watcherLabel(watchers.Drive))
			p.Field("directory", watcherLabel(watchers.Directory))
			return nil
		},
	}
}
