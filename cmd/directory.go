package cmd

import (
	"github.com/grovetools/pollwatch/cli"
	"github.com/grovetools/pollwatch/pkg/daemon"
	"github.com/spf13/cobra"
)

// NewCdCmd creates the `cd` command.
func NewCdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cd <path>",
		Short: "Point the daemon's directory watcher at another directory",
		Long: `Switches the monitored directory. Paths that are not existing directories,
and the directory already being watched, leave the daemon unchanged.

Examples:
  pollwatch cd ~/Downloads
  pollwatch cd ..`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := absDirectory(args[0])
			if err != nil {
				return err
			}
			client, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := requestContext(cmd)
			defer cancel()
			resp, err := client.ChangeDirectory(ctx, dir)
			if err != nil {
				return err
			}
			return printDirectoryResponse(cmd, resp)
		},
	}
}

// NewUpCmd creates the `up` command.
func NewUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Move the daemon's directory watcher to the parent directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := requestContext(cmd)
			defer cancel()
			resp, err := client.ChangeDirectoryUp(ctx)
			if err != nil {
				return err
			}
			return printDirectoryResponse(cmd, resp)
		},
	}
}

func printDirectoryResponse(cmd *cobra.Command, resp *daemon.DirectoryResponse) error {
	if cli.GetOptions(cmd).JSONOutput {
		return printJSON(cmd, resp)
	}
	p := statusPrinter(cmd)
	if resp.Changed {
		p.Success("Watching " + resp.Directory)
	} else {
		p.InfoPretty("Unchanged, still watching " + resp.Directory)
	}
	return nil
}
