package watch

import (
	"context"

	"github.com/grovetools/pollwatch/errors"
	"github.com/sirupsen/logrus"
)

const directoryWatcherName = "directory"

// directoryWatcher tracks the immediate children of the monitored directory.
// baseline is only touched by the loop goroutine.
type directoryWatcher struct {
	dirs     DirectoryLister
	state    *watchState
	emit     func(Notification)
	logger   *logrus.Entry
	baseline []string
}

func (w *directoryWatcher) poll(ctx context.Context) error {
	c := w.state.beginDirectoryCycle()
	if c.suppressed {
		w.baseline = c.baseline
		metricSuppressedCycles.Inc()
		w.logger.WithField("directory", c.directory).Debug("Skipping poll after directory switch")
		return nil
	}
	if !c.enabled || c.directory == "" {
		return nil
	}

	entries, err := w.dirs.ListEntries(ctx, c.directory)
	if err != nil {
		return errors.ListingFailed(directoryWatcherName, c.directory, err)
	}

	// A switch landed while we were listing; the result describes the old
	// directory and the next cycle is suppressed anyway.
	if w.state.currentGeneration() != c.generation {
		return nil
	}

	if !Changed(w.baseline, entries) {
		return nil
	}

	snap, err := NewDirectorySnapshot(c.directory, entries, w.dirs)
	if err != nil {
		return err
	}

	n := newNotification(KindDirectoryContentsChanged)
	n.Directory = snap
	w.emit(n)
	w.baseline = entries
	return nil
}
