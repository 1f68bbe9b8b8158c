package cmd

import (
	"fmt"

	"github.com/grovetools/pollwatch/cli"
	"github.com/grovetools/pollwatch/pkg/daemon"
	"github.com/grovetools/pollwatch/tui/theme"
	"github.com/spf13/cobra"
)

// NewStateCmd creates the `state` command.
func NewStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the current volumes and directory contents",
		Long: `Prints the latest snapshots held by the daemon. When the daemon is not
running, the volumes and the configured directory are listed once instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			client, err := clientFor(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := requestContext(cmd)
			defer cancel()
			state, err := client.State(ctx)
			if err != nil {
				return err
			}
			if opts.JSONOutput {
				return printJSON(cmd, state)
			}
			writeState(cmd, state, client.IsRunning())
			return nil
		},
	}
}

func writeState(cmd *cobra.Command, state *daemon.StateResponse, live bool) {
	t := theme.DefaultTheme
	w := cmd.OutOrStdout()

	source := "daemon"
	if !live {
		source = "one-off snapshot (daemon not running)"
	}
	fmt.Fprintf(w, "%s %s\n", t.Title.Render("pollwatch state"), t.Muted.Render(source))
	fmt.Fprintf(w, "  interval: %dms  drive watcher: %s  directory watcher: %s\n",
		state.Settings.PollIntervalMs,
		watcherLabel(state.Watchers.Drive),
		watcherLabel(state.Watchers.Directory))

	if state.Volumes != nil {
		fmt.Fprintln(w, t.Header.Render("Volumes"))
		writeVolumes(w, state.Volumes)
	}
	if state.Directory != nil {
		fmt.Fprintln(w, t.Header.Render("Directory"))
		writeDirectory(w, state.Directory, timeNow())
	} else if state.Settings.MonitoredDirectory != "" {
		fmt.Fprintf(w, "%s\n  %s %s\n", t.Header.Render("Directory"),
			state.Settings.MonitoredDirectory, t.Muted.Render("(no snapshot yet)"))
	}
}

func watcherLabel(s daemon.WatcherStatus) string {
	t := theme.DefaultTheme
	switch {
	case s.Running:
		return t.Success.Render("running")
	case s.Enabled:
		return t.Warning.Render("stopped")
	default:
		return t.Muted.Render("disabled")
	}
}
