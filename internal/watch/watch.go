// Package watch turns file-system changes into engine events and reruns.
// Events are forwarded to the engine as they arrive; relevant ones schedule a
// debounced rerun that first stops the active run.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"testpass/internal/engine"
)

// Sink receives file events and stop requests. *engine.Engine implements it.
type Sink interface {
	HandleEvent(kind engine.EventKind, path string) bool
	RequestStop(ctx context.Context) error
}

var _ Sink = (*engine.Engine)(nil)

// Options configure a Watcher.
type Options struct {
	Root     string
	Debounce time.Duration
	// Skips reports whether a directory with the given name is not watched.
	Skips  func(name string) bool
	Logger *zap.Logger
}

// Watcher watches a directory tree for Go file changes.
type Watcher struct {
	fs        *fsnotify.Watcher
	sink      Sink
	skips     func(string) bool
	debounced func(func())
	trigger   chan struct{}
	logger    *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// New watches every directory below opts.Root that is not skipped.
func New(opts Options, sink Sink) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.Skips == nil {
		opts.Skips = func(string) bool { return false }
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		fs:        fsw,
		sink:      sink,
		skips:     opts.Skips,
		debounced: debounce.New(opts.Debounce),
		trigger:   make(chan struct{}, 1),
		logger:    opts.Logger,
	}
	if _, err := w.addTree(opts.Root, false); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fs.Close()
	})
	return w.closeErr
}

// Trigger requests a run without waiting for a file event.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Serve forwards events until ctx is done and calls run once per trigger.
// Runs happen on the calling goroutine, so they never overlap.
func (w *Watcher) Serve(ctx context.Context, run func(ctx context.Context)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- w.watch(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return <-errc
		case err := <-errc:
			return err
		case <-w.trigger:
			run(ctx)
		}
	}
}

func (w *Watcher) watch(ctx context.Context) error {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	var kind engine.EventKind
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.skips(filepath.Base(event.Name)) {
				return
			}
			relevant, err := w.addTree(event.Name, true)
			if err != nil {
				w.logger.Warn("failed to watch directory", zap.String("path", event.Name), zap.Error(err))
			}
			if relevant {
				w.schedule(ctx)
			}
			return
		}
		kind = engine.Add
	case event.Has(fsnotify.Write):
		kind = engine.Change
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		kind = engine.Delete
	default:
		return
	}
	if !isSource(event.Name) {
		return
	}

	relevant := w.sink.HandleEvent(kind, event.Name)
	w.logger.Debug("file event",
		zap.Stringer("kind", kind),
		zap.String("path", event.Name),
		zap.Bool("relevant", relevant))
	if relevant {
		w.schedule(ctx)
	}
}

// schedule requests a rerun once events have been quiet for the debounce
// period. The active run is stopped before the rerun is signalled.
func (w *Watcher) schedule(ctx context.Context) {
	w.debounced(func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.sink.RequestStop(ctx); err != nil {
			return
		}
		w.Trigger()
	})
}

// addTree watches root and its subdirectories. With emit set, Go files
// found on the way are reported as added, since their events were missed,
// and relevant tells whether the sink cared about any of them.
func (w *Watcher) addTree(root string, emit bool) (relevant bool, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != root && os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != root && w.skips(d.Name()) {
				return filepath.SkipDir
			}
			if err := w.fs.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			return nil
		}
		if emit && isSource(path) && w.sink.HandleEvent(engine.Add, path) {
			relevant = true
		}
		return nil
	})
	return relevant, err
}

func isSource(path string) bool {
	return strings.HasSuffix(path, ".go")
}
