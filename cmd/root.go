// Package cmd implements the pollwatch command line.
package cmd

import (
	"github.com/grovetools/pollwatch/cli"
	"github.com/grovetools/pollwatch/pkg/profiling"
	"github.com/grovetools/pollwatch/version"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the pollwatch command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand("pollwatch", "Polling watcher for drives and directories")
	root.Long = `pollwatch detects volumes being mounted and unmounted, and changes to the
contents of one monitored directory, by listing them periodically and
comparing each listing with the previous one.

Examples:
  pollwatch watch ~/Downloads
  pollwatch daemon start
  pollwatch events --json`

	root.AddCommand(
		NewWatchCmd(),
		NewBrowseCmd(),
		NewDaemonCmd(),
		NewCdCmd(),
		NewUpCmd(),
		NewEventsCmd(),
		NewStateCmd(),
		NewConfigCmd(),
		NewWatcherCmd(),
		NewPathsCmd(),
		NewLogsCmd(),
		cli.NewVersionCommand("pollwatch"),
	)

	profiling.NewCobraProfiler().Attach(root)
	cli.SetVersionTemplate(root, version.GetInfo())
	cli.ApplyStyledHelpRecursive(root)
	return root
}
