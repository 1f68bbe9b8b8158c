package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeVolumes struct {
	mu       sync.Mutex
	paths    []string
	info     map[string]VolumeInfo
	infoErr  map[string]error
	failures int
	calls    int
	system   string
}

func newFakeVolumes(paths ...string) *fakeVolumes {
	return &fakeVolumes{
		paths:   paths,
		info:    make(map[string]VolumeInfo),
		infoErr: make(map[string]error),
		system:  "C",
	}
}

func (f *fakeVolumes) set(paths ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = paths
}

func (f *fakeVolumes) failNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = n
}

func (f *fakeVolumes) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeVolumes) ListVolumes(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, fs.ErrPermission
	}
	return append([]string(nil), f.paths...), nil
}

func (f *fakeVolumes) VolumeInfo(ctx context.Context, path string) (VolumeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.infoErr[path]; err != nil {
		return VolumeInfo{}, err
	}
	info, ok := f.info[path]
	if !ok {
		return VolumeInfo{Path: path, TotalBytes: 100, FreeBytes: 50}, nil
	}
	return info, nil
}

func (f *fakeVolumes) SystemVolumeID() string { return f.system }

type fakeDirs struct {
	mu      sync.Mutex
	entries map[string][]string
	info    map[string]EntryInfo
	infoErr map[string]error
	listErr error
	calls   map[string]int
}

func newFakeDirs() *fakeDirs {
	return &fakeDirs{
		entries: make(map[string][]string),
		info:    make(map[string]EntryInfo),
		infoErr: make(map[string]error),
		calls:   make(map[string]int),
	}
}

// addDir registers dir (normalised) as an existing directory.
func (f *fakeDirs) addDir(dir string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir = NormalizeDirectory(dir)
	if _, ok := f.entries[dir]; !ok {
		f.entries[dir] = nil
	}
}

func (f *fakeDirs) addFile(dir, name string, size int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := filepath.Join(dir, name)
	f.entries[NormalizeDirectory(dir)] = append(f.entries[NormalizeDirectory(dir)], p)
	f.info[p] = EntryInfo{Size: size, ModTime: time.Unix(1700000000, 0)}
	return p
}

func (f *fakeDirs) addSubdir(dir, name string) string {
	f.mu.Lock()
	p := filepath.Join(dir, name)
	f.entries[NormalizeDirectory(dir)] = append(f.entries[NormalizeDirectory(dir)], p)
	f.info[p] = EntryInfo{IsDir: true, ModTime: time.Unix(1700000000, 0)}
	f.mu.Unlock()
	f.addDir(p)
	return p
}

func (f *fakeDirs) remove(dir, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := NormalizeDirectory(dir)
	kept := f.entries[key][:0:0]
	for _, e := range f.entries[key] {
		if e != path {
			kept = append(kept, e)
		}
	}
	f.entries[key] = kept
	delete(f.info, path)
}

func (f *fakeDirs) listCalls(dir string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[NormalizeDirectory(dir)]
}

func (f *fakeDirs) ListEntries(ctx context.Context, dir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[dir]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	entries, ok := f.entries[dir]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return append([]string(nil), entries...), nil
}

func (f *fakeDirs) EntryInfo(path string) (EntryInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.infoErr[path]; err != nil {
		return EntryInfo{}, err
	}
	info, ok := f.info[path]
	if !ok {
		return EntryInfo{}, fs.ErrNotExist
	}
	return info, nil
}

func (f *fakeDirs) IsDirectory(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[path]
	return ok
}

// recorder is a Sink that keeps every notification it receives.
type recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recorder) Notify(n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	return nil
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

func (r *recorder) ofKind(kind Kind) []Notification {
	var out []Notification
	for _, n := range r.all() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) count(kind Kind) int { return len(r.ofKind(kind)) }

func (r *recorder) waitFor(t *testing.T, kind Kind, n int) []Notification {
	t.Helper()
	require.Eventually(t, func() bool { return r.count(kind) >= n }, 2*time.Second, 2*time.Millisecond,
		"expected %d %s notifications", n, kind)
	return r.ofKind(kind)
}

func testRoot(name string) string {
	return NormalizeDirectory(filepath.Join(string(filepath.Separator), name))
}

func testOptions(dir string) Options {
	opts := DefaultOptions()
	opts.PollInterval = 5 * time.Millisecond
	opts.Backoff = BackoffConfig{Initial: time.Millisecond, Max: 10 * time.Millisecond}
	opts.Directory = dir
	return opts
}
