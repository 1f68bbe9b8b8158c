package watch

import (
	"context"

	"github.com/grovetools/pollwatch/errors"
)

const driveWatcherName = "drive"

// driveWatcher tracks the set of mounted volumes. baseline is only touched by
// the loop goroutine.
type driveWatcher struct {
	volumes  VolumeLister
	state    *watchState
	emit     func(Notification)
	baseline []string
}

func (w *driveWatcher) poll(ctx context.Context) error {
	if !w.state.driveWatcherEnabled() {
		return nil
	}

	paths, err := w.volumes.ListVolumes(ctx)
	if err != nil {
		return errors.ListingFailed(driveWatcherName, "", err)
	}
	if !Changed(w.baseline, paths) {
		return nil
	}

	n := newNotification(KindVolumesChanged)
	n.Volumes = NewVolumeSnapshot(ctx, paths, w.volumes)
	w.emit(n)
	w.baseline = paths
	return nil
}
