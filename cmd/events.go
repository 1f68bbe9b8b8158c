package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/pollwatch/cli"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/spf13/cobra"
)

// NewEventsCmd creates the `events` command.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream notifications from the daemon",
		Long: `Prints every notification the daemon emits until interrupted. Use
'pollwatch state' for the snapshots held before the stream was opened.

Examples:
  pollwatch events
  pollwatch events --json | jq .kind
  pollwatch events --ws`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			client, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var stream <-chan watch.Notification
			if useWS, _ := cmd.Flags().GetBool("ws"); useWS {
				stream, err = client.StreamWebsocket(ctx)
			} else {
				stream, err = client.Stream(ctx)
			}
			if err != nil {
				return err
			}

			kinds, _ := cmd.Flags().GetStringSlice("kind")
			return printStream(ctx, stream, newNotificationPrinter(cmd.OutOrStdout(), opts.JSONOutput), kinds)
		},
	}

	cmd.Flags().Bool("ws", false, "Use the websocket endpoint instead of server-sent events")
	cmd.Flags().StringSlice("kind", nil, "Only print these notification kinds")

	return cmd
}

// printStream prints notifications until the stream closes or ctx ends.
func printStream(ctx context.Context, stream <-chan watch.Notification, printer *notificationPrinter, kinds []string) error {
	filter := make(map[watch.Kind]bool, len(kinds))
	for _, k := range kinds {
		filter[watch.Kind(k)] = true
	}

	for {
		select {
		case n, ok := <-stream:
			if !ok {
				return nil
			}
			if len(filter) > 0 && !filter[n.Kind] {
				continue
			}
			if err := printer.Print(n); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
