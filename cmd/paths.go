package cmd

import (
	"github.com/grovetools/pollwatch/cli"
	"github.com/grovetools/pollwatch/logging"
	"github.com/grovetools/pollwatch/pkg/paths"
	"github.com/grovetools/pollwatch/state"
	"github.com/spf13/cobra"
)

// PathsOutput represents the paths used by pollwatch.
type PathsOutput struct {
	ConfigDir    string `json:"config_dir"`
	StateDir     string `json:"state_dir"`
	RuntimeDir   string `json:"runtime_dir"`
	GlobalConfig string `json:"global_config"`
	Socket       string `json:"socket"`
	PidFile      string `json:"pid_file"`
	LogDir       string `json:"log_dir"`
	StateFile    string `json:"state_file"`
}

func NewPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by pollwatch",
		Long: `Print the paths used by pollwatch.

This command outputs the paths in JSON format by default, making it easy
to parse from scripts and other tools.

The paths follow the XDG Base Directory Specification, or live under
POLLWATCH_HOME when it is set:
- config_dir: Configuration files (pollwatch.yml)
- state_dir: Daemon state (pid file, logs, last watched directory)
- runtime_dir: The daemon socket`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cli.GetOptions(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd, PathsOutput{
				ConfigDir:    paths.ConfigDir(),
				StateDir:     paths.StateDir(),
				RuntimeDir:   paths.RuntimeDir(),
				GlobalConfig: paths.GlobalConfigPath(),
				Socket:       cfg.Daemon.SocketPath(),
				PidFile:      cfg.Daemon.PidFilePath(),
				LogDir:       logging.LogDir(),
				StateFile:    state.DefaultPath(),
			})
		},
	}

	return cmd
}
