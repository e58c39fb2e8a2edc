package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"testpass/internal/engine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type event struct {
	kind engine.EventKind
	path string
}

type fakeSink struct {
	mu       sync.Mutex
	events   []event
	relevant func(path string) bool
	stops    atomic.Int32
}

func (s *fakeSink) HandleEvent(kind engine.EventKind, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event{kind, path})
	return s.relevant == nil || s.relevant(path)
}

func (s *fakeSink) RequestStop(context.Context) error {
	s.stops.Add(1)
	return nil
}

func (s *fakeSink) has(kind engine.EventKind, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.kind == kind && e.path == path {
			return true
		}
	}
	return false
}

func (s *fakeSink) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var paths []string
	for _, e := range s.events {
		paths = append(paths, e.path)
	}
	return paths
}

// serve runs the watcher in the background and returns the number of runs
// performed so far.
func serve(t *testing.T, w *Watcher) *atomic.Int32 {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	runs := &atomic.Int32{}
	done := make(chan error, 1)
	go func() {
		done <- w.Serve(ctx, func(context.Context) { runs.Add(1) })
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return runs
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_ForwardsEvents(t *testing.T) {
	root := t.TempDir()
	sink := &fakeSink{}
	w, err := New(Options{Root: root, Debounce: 20 * time.Millisecond}, sink)
	require.NoError(t, err)
	serve(t, w)

	path := filepath.Join(root, "math_tp.go")
	write(t, path, "package main\n")
	require.Eventually(t, func() bool { return sink.has(engine.Add, path) }, 2*time.Second, 10*time.Millisecond)

	write(t, path, "package main\n\n")
	require.Eventually(t, func() bool { return sink.has(engine.Change, path) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool { return sink.has(engine.Delete, path) }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresNonSourceFiles(t *testing.T) {
	root := t.TempDir()
	sink := &fakeSink{}
	w, err := New(Options{Root: root, Debounce: 20 * time.Millisecond}, sink)
	require.NoError(t, err)
	serve(t, w)

	write(t, filepath.Join(root, "notes.txt"), "x")
	marker := filepath.Join(root, "marker.go")
	write(t, marker, "package main\n")

	require.Eventually(t, func() bool { return sink.has(engine.Add, marker) }, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, sink.paths(), filepath.Join(root, "notes.txt"))
}

func TestWatcher_NewDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "vendor"), 0o755))
	sink := &fakeSink{}
	w, err := New(Options{
		Root:     root,
		Debounce: 20 * time.Millisecond,
		Skips:    func(name string) bool { return name == "vendor" },
	}, sink)
	require.NoError(t, err)
	serve(t, w)

	sub := filepath.Join(root, "api")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher time to pick up the directory.
	require.Eventually(t, func() bool {
		path := filepath.Join(sub, "touched.go")
		write(t, path, "package api\n")
		return sink.has(engine.Add, path) || sink.has(engine.Change, path)
	}, 2*time.Second, 50*time.Millisecond)

	write(t, filepath.Join(root, "vendor", "lib.go"), "package lib\n")
	marker := filepath.Join(root, "marker.go")
	write(t, marker, "package main\n")
	require.Eventually(t, func() bool { return sink.has(engine.Add, marker) }, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, sink.paths(), filepath.Join(root, "vendor", "lib.go"))
}

func TestWatcher_DebouncedRerun(t *testing.T) {
	root := t.TempDir()
	sink := &fakeSink{relevant: func(path string) bool { return filepath.Base(path) != "other.go" }}
	w, err := New(Options{Root: root, Debounce: 50 * time.Millisecond}, sink)
	require.NoError(t, err)
	runs := serve(t, w)

	path := filepath.Join(root, "math_tp.go")
	for i := 0; i < 5; i++ {
		write(t, path, "package main\n")
	}

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, sink.stops.Load())

	write(t, filepath.Join(root, "other.go"), "package main\n")
	require.Eventually(t, func() bool { return sink.has(engine.Add, filepath.Join(root, "other.go")) }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.EqualValues(t, 1, runs.Load(), "irrelevant events do not rerun")
}

func TestWatcher_Trigger(t *testing.T) {
	w, err := New(Options{Root: t.TempDir()}, &fakeSink{})
	require.NoError(t, err)

	w.Trigger()
	w.Trigger()
	runs := serve(t, w)

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, runs.Load(), "pending triggers coalesce")
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(Options{Root: filepath.Join(t.TempDir(), "absent")}, &fakeSink{})
	assert.Error(t, err)
}
