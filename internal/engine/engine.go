// Package engine owns the state of a test session: the file registry, the
// test tree, the dependency graph and the active run. File events are queued
// and applied as one batch right before the next run starts.
package engine

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"testpass/internal/domain"
	"testpass/internal/execution"
	"testpass/internal/modules"
)

// EventKind is the kind of a file-system event.
type EventKind int

const (
	Add EventKind = iota
	Change
	Delete
)

func (k EventKind) String() string {
	switch k {
	case Add:
		return "add"
	case Change:
		return "change"
	case Delete:
		return "delete"
	}
	return "unknown"
}

// Evaluator declares the tests of a file into file.Group.
type Evaluator interface {
	Evaluate(ctx context.Context, file *domain.File) error
}

// Reporter receives run events and load failures.
type Reporter interface {
	execution.Reporter
	ReloadFailed(err *ReloadError)
}

// RunOptions control how a run is reported.
type RunOptions struct {
	Verbose bool
	Quiet   bool
}

// Options configure an Engine.
type Options struct {
	Host      modules.Host
	Evaluator Evaluator

	// IsTestPath reports whether an added file is a test file.
	IsTestPath func(path string) bool

	// Reporter builds the reporter of each run. Runs are not reported when nil.
	Reporter func(RunOptions) Reporter

	// Console receives the output of test code.
	Console *execution.Console
	Logger  *zap.Logger
}

type event struct {
	kind EventKind
	path string

	// force registers an added file even when it does not look like a test.
	force bool
}

// Engine is the context of a test session.
type Engine struct {
	mu sync.Mutex

	registry  *domain.Registry
	top       *domain.Group
	graph     *modules.Graph
	loader    *modules.Loader
	evaluator Evaluator

	isTestPath  func(string) bool
	newReporter func(RunOptions) Reporter
	console     *execution.Console
	logger      *zap.Logger

	pending []event
	retry   map[string]struct{}
	active  *execution.Runner
}

// New creates an Engine with no files.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	isTestPath := opts.IsTestPath
	if isTestPath == nil {
		isTestPath = func(string) bool { return false }
	}

	e := &Engine{
		registry:    domain.NewRegistry(),
		top:         domain.NewTop(),
		evaluator:   opts.Evaluator,
		isTestPath:  isTestPath,
		newReporter: opts.Reporter,
		console:     opts.Console,
		logger:      logger,
		retry:       make(map[string]struct{}),
	}
	e.graph = modules.NewGraph(e.registry.Has, modules.NewCache())
	e.loader = modules.NewLoader(e.graph, opts.Host, logger.Named("modules"))
	return e
}

// Top returns the top-level group. It must not be read while a run is
// active on another goroutine.
func (e *Engine) Top() *domain.Group {
	return e.top
}

// Registry returns the file registry.
func (e *Engine) Registry() *domain.Registry {
	return e.registry
}

// Graph returns the dependency graph.
func (e *Engine) Graph() *modules.Graph {
	return e.graph
}

// AddFile queues path for registration as a test file.
func (e *Engine) AddFile(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, event{kind: Add, path: filepath.Clean(path), force: true})
}

// HandleEvent queues a file-system event and reports whether it calls for
// a new run. The event only takes effect in the next StartRun or Load.
func (e *Engine) HandleEvent(kind EventKind, path string) bool {
	path = filepath.Clean(path)

	e.mu.Lock()
	defer e.mu.Unlock()

	relevant := e.registry.Has(path) || e.graph.Has(path)
	if kind == Add {
		relevant = relevant || e.isTestPath(path) || len(e.retry) > 0
	}
	if !relevant {
		return false
	}
	e.pending = append(e.pending, event{kind: kind, path: path})
	e.logger.Debug("event queued", zap.Stringer("kind", kind), zap.String("path", path))
	return true
}

// Load applies the queued events without running anything.
func (e *Engine) Load(ctx context.Context) ([]*ReloadError, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		return nil, ErrAlreadyRunning
	}
	return e.apply(ctx), nil
}

// StartRun applies the queued events and runs the resulting tree. It blocks
// until the run ends or is stopped.
func (e *Engine) StartRun(ctx context.Context, opts RunOptions) (*domain.RunResult, error) {
	e.mu.Lock()
	if e.active != nil {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}

	reloadErrs := e.apply(ctx)

	var reporter execution.Reporter
	if e.newReporter != nil {
		r := e.newReporter(opts)
		for _, err := range reloadErrs {
			r.ReloadFailed(err)
		}
		reporter = r
	}

	runner := execution.NewRunner(e.top, reporter, e.console, e.logger.Named("runner"))
	runner.ID = uuid.NewString()
	for _, err := range reloadErrs {
		runner.ReloadErrors = append(runner.ReloadErrors, err)
	}
	e.active = runner
	e.mu.Unlock()

	result, err := runner.Run(ctx)

	e.mu.Lock()
	e.active = nil
	e.mu.Unlock()
	return result, err
}

// RequestStop stops the active run and waits until it has ended. It
// returns immediately when nothing runs.
func (e *Engine) RequestStop(ctx context.Context) error {
	e.mu.Lock()
	runner := e.active
	e.mu.Unlock()
	if runner == nil {
		return nil
	}

	runner.Stop()
	select {
	case <-runner.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// Close stops the active run.
func (e *Engine) Close(ctx context.Context) error {
	return e.RequestStop(ctx)
}
