package cmd

import (
	"bufio"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/grovetools/pollwatch/errors"
	"github.com/grovetools/pollwatch/logging"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		Long: `Prints the most recent daemon log file.

Examples:
  # Follow the daemon log
  pollwatch logs -f

  # Show the last 50 lines
  pollwatch logs --tail 50`,
		Args: cobra.NoArgs,
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().Int("tail", -1, "Number of lines to show from the end of the log (default: all)")

	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	follow, _ := cmd.Flags().GetBool("follow")
	lines, _ := cmd.Flags().GetInt("tail")

	path, err := daemonLogFile(logging.LoadConfig())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	offset, err := printLastLines(w, path, lines)
	if err != nil {
		return err
	}
	if !follow {
		return nil
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Location: &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:   stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return fmt.Errorf("failed to follow %s: %w", path, err)
	}
	defer t.Cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				continue
			}
			fmt.Fprintln(w, line.Text)
		case <-ctx.Done():
			return t.Stop()
		}
	}
}

// daemonLogFile returns the configured log file, or the newest daemon log in
// the default log directory.
func daemonLogFile(cfg logging.Config) (string, error) {
	if cfg.File.Path != "" {
		path := logging.FilePath("daemon", cfg)
		if _, err := os.Stat(path); err != nil {
			return "", errors.New(errors.ErrCodeInvalidInput, "daemon log file not found").WithDetail("path", path)
		}
		return path, nil
	}

	matches, err := filepath.Glob(filepath.Join(logging.LogDir(), "daemon-*.log"))
	if err != nil || len(matches) == 0 {
		return "", errors.New(errors.ErrCodeInvalidInput, "no daemon log files found").
			WithDetail("dir", logging.LogDir())
	}
	// Names carry the date, so lexical order is chronological.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// printLastLines writes the last n lines of path, or every line when n < 0,
// and returns the offset following the last byte read.
func printLastLines(w io.Writer, path string, n int) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var (
		ring   []string
		offset int64
	)
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			offset += int64(len(line))
			line = line[:len(line)-1]
			switch {
			case n < 0:
				fmt.Fprintln(w, line)
			case n > 0:
				ring = append(ring, line)
				if len(ring) > n {
					ring = ring[1:]
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return offset, err
		}
	}

	for _, line := range ring {
		fmt.Fprintln(w, line)
	}
	return offset, nil
}
