package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/grovetools/pollwatch/cli"
	"github.com/grovetools/pollwatch/config"
	"github.com/grovetools/pollwatch/errors"
	"github.com/grovetools/pollwatch/pkg/daemon"
	"github.com/grovetools/pollwatch/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the `config` command.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change pollwatch configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		Long: `Shows the configuration after merging the global file, the project file and
any override file, with defaults applied. This is useful for debugging
configuration issues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			cfg, err := cli.LoadConfig(opts)
			if err != nil {
				return err
			}
			if opts.JSONOutput {
				return printJSON(cmd, cfg)
			}

			w := cmd.OutOrStdout()
			if cfg.Source != "" {
				fmt.Fprintf(w, "# Source: %s\n", cfg.Source)
			} else {
				fmt.Fprintln(w, "# No configuration file found, showing defaults")
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			fmt.Fprint(w, string(data))
			return nil
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema for pollwatch.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			data := schema.Embedded()
			if generate, _ := cmd.Flags().GetBool("generate"); generate {
				generated, err := config.GenerateSchema()
				if err != nil {
					return err
				}
				data = generated
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().Bool("generate", false, "Generate the schema from the config types instead of printing the embedded copy")
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting of the running daemon",
		Long: `Changes a setting of the running daemon without touching configuration files.
The change lasts until the daemon restarts or its configuration file is edited.

Keys:
  poll_interval_ms     milliseconds between poll cycles, or a duration such as 2s
  drive_watcher        true or false
  directory_watcher    true or false

Examples:
  pollwatch config set poll_interval_ms 500
  pollwatch config set poll_interval_ms 2s
  pollwatch config set drive_watcher false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := parseConfigUpdate(args[0], args[1])
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
			resp, err := client.UpdateConfig(ctx, update)
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, resp)
			}
			s := resp.Settings
			p := statusPrinter(cmd)
			p.Success("Updated daemon settings")
			p.Field("poll_interval_ms", s.PollIntervalMs)
			p.Field("drive_watcher", s.DriveWatcherEnabled)
			p.Field("directory_watcher", s.DirectoryWatcherEnabled)
			return nil
		},
	}
}

// parseConfigUpdate converts a key/value pair into a daemon config update.
func parseConfigUpdate(key, value string) (daemon.ConfigUpdate, error) {
	var update daemon.ConfigUpdate
	switch key {
	case "poll_interval_ms", "poll_interval":
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			d, derr := time.ParseDuration(value)
			if derr != nil {
				return update, errors.New(errors.ErrCodeInvalidInput, "invalid poll interval").
					WithDetail("value", value)
			}
			ms = d.Milliseconds()
		}
		if ms <= 0 {
			return update, errors.New(errors.ErrCodeInvalidInput, "poll interval must be positive").
				WithDetail("value", value)
		}
		update.PollIntervalMs = &ms
	case "drive_watcher", "directory_watcher":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return update, errors.New(errors.ErrCodeInvalidInput, "expected true or false").
				WithDetail("key", key).
				WithDetail("value", value)
		}
		if key == "drive_watcher" {
			update.DriveWatcher = &enabled
		} else {
			update.DirectoryWatcher = &enabled
		}
	default:
		return update, errors.New(errors.ErrCodeInvalidInput, "unknown setting").WithDetail("key", key)
	}
	return update, nil
}
