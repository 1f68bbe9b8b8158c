package watch

import (
	"sync"
	"time"
)

// watchState is the mutable configuration shared between the controller and
// its loops. Every field is guarded by mu.
type watchState struct {
	mu sync.RWMutex

	directory        string
	generation       uint64
	pollInterval     time.Duration
	driveEnabled     bool
	directoryEnabled bool

	// suppress skips exactly one directory poll after a switch. The switch
	// snapshot's entries are handed to the loop as its next baseline.
	suppress        bool
	pendingBaseline []string
}

// Settings is a point-in-time copy of the controller configuration.
type Settings struct {
	MonitoredDirectory      string        `json:"monitored_directory"`
	PollInterval            time.Duration `json:"-"`
	PollIntervalMs          int64         `json:"poll_interval_ms"`
	DriveWatcherEnabled     bool          `json:"drive_watcher_enabled"`
	DirectoryWatcherEnabled bool          `json:"directory_watcher_enabled"`
}

func (s *watchState) settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Settings{
		MonitoredDirectory:      s.directory,
		PollInterval:            s.pollInterval,
		PollIntervalMs:          s.pollInterval.Milliseconds(),
		DriveWatcherEnabled:     s.driveEnabled,
		DirectoryWatcherEnabled: s.directoryEnabled,
	}
}

func (s *watchState) interval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pollInterval
}

func (s *watchState) monitoredDirectory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.directory
}

func (s *watchState) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *watchState) driveWatcherEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.driveEnabled
}

func (s *watchState) directoryWatcherEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.directoryEnabled
}

// setInterval reports whether the value changed.
func (s *watchState) setInterval(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pollInterval == d {
		return false
	}
	s.pollInterval = d
	return true
}

func (s *watchState) setDriveEnabled(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driveEnabled == v {
		return false
	}
	s.driveEnabled = v
	return true
}

func (s *watchState) setDirectoryEnabled(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.directoryEnabled == v {
		return false
	}
	s.directoryEnabled = v
	return true
}

// switchDirectory raises the suppression flag and installs dir together with
// the baseline the loop adopts on its suppressed cycle.
func (s *watchState) switchDirectory(dir string, baseline []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppress = true
	s.pendingBaseline = baseline
	s.directory = dir
	s.generation++
}

// directoryCycle is what the directory loop reads at the top of a cycle.
type directoryCycle struct {
	directory  string
	generation uint64
	enabled    bool
	suppressed bool
	baseline   []string
}

// beginDirectoryCycle consumes the suppression flag, if set.
func (s *watchState) beginDirectoryCycle() directoryCycle {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := directoryCycle{
		directory:  s.directory,
		generation: s.generation,
		enabled:    s.directoryEnabled,
	}
	if s.suppress {
		c.suppressed = true
		c.baseline = s.pendingBaseline
		s.suppress = false
		s.pendingBaseline = nil
	}
	return c
}
