package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/grovetools/pollwatch/logging"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/grovetools/pollwatch/tui/theme"
	"github.com/spf13/cobra"
)

// timeNow is replaced in tests to pin relative timestamps.
var timeNow = time.Now

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// statusPrinter writes styled status lines to the command's output.
func statusPrinter(cmd *cobra.Command) *logging.PrettyLogger {
	return logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
}

// notificationPrinter writes notifications either as JSON lines or as
// human-readable blocks.
type notificationPrinter struct {
	w    io.Writer
	json bool
	now  func() time.Time
}

func newNotificationPrinter(w io.Writer, jsonLines bool) *notificationPrinter {
	return &notificationPrinter{w: w, json: jsonLines, now: timeNow}
}

func (p *notificationPrinter) Print(n watch.Notification) error {
	if p.json {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.w, string(data))
		return err
	}

	t := theme.DefaultTheme
	fmt.Fprintf(p.w, "%s %s\n", t.Muted.Render(n.Time.Format("15:04:05")), t.Accent.Render(string(n.Kind)))
	switch {
	case n.Volumes != nil:
		writeVolumes(p.w, n.Volumes)
	case n.Directory != nil:
		writeDirectory(p.w, n.Directory, p.now())
	case n.Setting != nil:
		fmt.Fprintf(p.w, "  %s = %v\n", n.Setting.Name, n.Setting.Value)
	}
	return nil
}

func writeVolumes(w io.Writer, snap *watch.VolumeSnapshot) {
	t := theme.DefaultTheme
	ids := make([]string, 0, len(snap.Volumes))
	for id := range snap.Volumes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		v := snap.Volumes[id]
		line := fmt.Sprintf("  %s %s", theme.IconVolume, t.Volume.Render(v.Path))
		if v.Label != "" {
			line += " " + t.Muted.Render("("+v.Label+")")
		}
		if v.TotalBytes > 0 {
			line += fmt.Sprintf("  %s free of %s", humanize.Bytes(v.FreeBytes), humanize.Bytes(v.TotalBytes))
		}
		if id == snap.SystemVolumeID {
			line += " " + t.Warning.Render("system")
		}
		fmt.Fprintln(w, line)
	}
}

func writeDirectory(w io.Writer, snap *watch.DirectorySnapshot, now time.Time) {
	t := theme.DefaultTheme
	fmt.Fprintf(w, "  %s  %d directories, %d files, %s\n",
		t.Bold.Render(snap.RootPath),
		snap.DirectoryCount(), snap.FileCount(),
		humanize.Bytes(uint64(snap.TotalSizeBytes)))

	for _, e := range sortedEntries(snap) {
		when := humanize.RelTime(e.ModTime, now, "ago", "from now")
		if e.IsDir {
			fmt.Fprintf(w, "    %s %s/  %s\n", theme.IconDirectory, t.Directory.Render(e.Name), t.Muted.Render(when))
			continue
		}
		fmt.Fprintf(w, "    %s %s  %s  %s\n", theme.IconFile, t.File.Render(e.Name),
			humanize.Bytes(uint64(e.Size)), t.Muted.Render(when))
	}
}

// sortedEntries lists directories first, then files, each by name.
func sortedEntries(snap *watch.DirectorySnapshot) []watch.Entry {
	entries := make([]watch.Entry, 0, snap.DirectoryCount()+snap.FileCount())
	for _, e := range snap.Entries() {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries
}
