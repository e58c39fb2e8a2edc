package execution

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"testpass/internal/domain"
)

// Runner executes a snapshot of the test tree. A Runner is single-use:
// Start may be called any number of times but only the first call runs.
type Runner struct {
	top      *domain.Group
	reporter Reporter
	console  *Console
	logger   *zap.Logger

	once    sync.Once
	done    chan struct{}
	stopped atomic.Bool

	result *domain.RunResult
	err    error

	// ID and ReloadErrors are copied into the result. Set them before Start.
	ID           string
	ReloadErrors []error
}

var _ Executor = (*Runner)(nil)

// NewRunner creates a Runner over top. console may be nil when test output
// should not be captured.
func NewRunner(top *domain.Group, reporter Reporter, console *Console, logger *zap.Logger) *Runner {
	if reporter == nil {
		reporter = NopReporter{}
	}
	if console == nil {
		console = NewConsole(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		top:      top,
		reporter: reporter,
		console:  console,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the run in the background.
func (r *Runner) Start(ctx context.Context) {
	r.once.Do(func() {
		go func() {
			defer close(r.done)
			r.result, r.err = r.run(ctx)
		}()
	})
}

// Wait blocks until the run ends. A stopped run is not an error.
func (r *Runner) Wait() (*domain.RunResult, error) {
	<-r.done
	return r.result, r.err
}

// Run starts the run and waits for it.
func (r *Runner) Run(ctx context.Context) (*domain.RunResult, error) {
	r.Start(ctx)
	return r.Wait()
}

// Stop requests cancellation. The test or hook in flight completes, its
// afterEach and the afterAll hooks of the enclosing groups still run, and no
// further test starts.
func (r *Runner) Stop() {
	r.stopped.Store(true)
}

// Done is closed once the run has ended.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) checkStop(ctx context.Context) error {
	if r.stopped.Load() || ctx.Err() != nil {
		return ErrStopped
	}
	return nil
}

func (r *Runner) run(ctx context.Context) (result *domain.RunResult, err error) {
	result = &domain.RunResult{
		ID:           r.ID,
		ReloadErrors: r.ReloadErrors,
		StartedAt:    time.Now(),
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("runner crashed: %w", &PanicError{Value: rec, Stack: debug.Stack()})
			result.Status = domain.StatusErrored
		}
		result.Duration = time.Since(result.StartedAt)
		result.Tally()
		r.reporter.RunFinished(result)
	}()

	roots := SelectRoots(r.top)
	r.reporter.RunStarted(len(roots))
	r.logger.Debug("run started", zap.Int("files", len(roots)))

	for _, root := range roots {
		if r.checkStop(ctx) != nil {
			result.Status = domain.StatusStopped
			break
		}
		file := root.OwnerFile()
		fr := &domain.FileResult{}
		if file != nil {
			fr.Path, fr.Header = file.Path, file.Header
			r.reporter.FileStarted(file)
		}
		result.Files = append(result.Files, fr)

		state := &fileState{result: fr, ordinals: ordinals(root)}
		runErr := r.runGroup(ctx, root, state)
		r.reporter.FileFinished(fr)

		if errors.Is(runErr, ErrStopped) {
			result.Status = domain.StatusStopped
			break
		}
		if runErr != nil {
			return result, runErr
		}
	}

	r.logger.Debug("run finished", zap.Int("files", len(result.Files)), zap.Bool("stopped", result.Status == domain.StatusStopped))
	return result, nil
}

// SelectRoots returns the file root groups that take part in a run, in
// registration order. The first focused root discards every root collected
// before it and from then on only focused roots are kept.
func SelectRoots(top *domain.Group) []*domain.Group {
	var roots []*domain.Group
	focused := false
	for _, child := range top.Selected() {
		group, ok := child.(*domain.Group)
		if !ok {
			continue
		}
		if group.Focused() {
			if !focused {
				focused = true
				roots = roots[:0]
			}
			roots = append(roots, group)
		} else if !focused {
			roots = append(roots, group)
		}
	}
	return roots
}

// fileState is the per-file bookkeeping of a run.
type fileState struct {
	result   *domain.FileResult
	ordinals map[*domain.Test]int
}

func ordinals(root *domain.Group) map[*domain.Test]int {
	tests := root.Tests()
	index := make(map[*domain.Test]int, len(tests))
	for i, t := range tests {
		index[t] = i + 1
	}
	return index
}

func (r *Runner) runGroup(ctx context.Context, g *domain.Group, state *fileState) error {
	if g.Skip {
		for _, t := range g.Tests() {
			r.skip(t, state)
		}
		return nil
	}

	if err := r.runHooks(ctx, g, domain.BeforeAll, nil); err != nil {
		r.hookFailed(state, domain.BeforeAll, g, nil, err)
		return nil
	}

	err := r.runChildren(ctx, g, state)

	if hookErr := r.runHooks(ctx, g, domain.AfterAll, nil); hookErr != nil {
		r.hookFailed(state, domain.AfterAll, g, nil, hookErr)
	}
	return err
}

func (r *Runner) runChildren(ctx context.Context, g *domain.Group, state *fileState) error {
	for _, child := range g.Selected() {
		if err := r.checkStop(ctx); err != nil {
			return err
		}

		switch node := child.(type) {
		case *domain.Test:
			r.runTestSlot(ctx, g, node, state)
		case *domain.Group:
			var groupErr error
			if err := r.runHooks(ctx, g, domain.BeforeEach, node); err != nil {
				r.hookFailed(state, domain.BeforeEach, g, node, err)
			} else {
				groupErr = r.runGroup(ctx, node, state)
			}
			if err := r.runHooks(ctx, g, domain.AfterEach, node); err != nil {
				r.hookFailed(state, domain.AfterEach, g, node, err)
			}
			if groupErr != nil {
				return groupErr
			}
		}
	}
	return nil
}

// runTestSlot runs one test surrounded by the Each hooks of its group, all
// inside the test's capture.
func (r *Runner) runTestSlot(ctx context.Context, g *domain.Group, t *domain.Test, state *fileState) {
	if t.Skip {
		r.skip(t, state)
		return
	}

	t.Reset()
	out := &capture{}
	restore := r.console.redirect(out)
	start := time.Now()

	if err := r.runHooks(ctx, g, domain.BeforeEach, t); err != nil {
		t.AddFailure(domain.Failure{
			Line:    t.Line,
			Message: "beforeEach hook failed",
			Err:     err,
		})
	} else {
		r.runTest(ctx, t, state, out)
	}
	passed := len(t.Failures) == 0
	duration := time.Since(start)

	afterErr := r.runHooks(ctx, g, domain.AfterEach, t)
	restore()
	if afterErr != nil {
		r.hookFailed(state, domain.AfterEach, g, t, afterErr)
	}

	result := r.newResult(t, state)
	result.Passed = passed
	result.Failures = append([]domain.Failure(nil), t.Failures...)
	result.Logs = out.lines()
	result.Duration = duration
	state.result.Add(result)
	r.reporter.TestFinished(result)
}

// runTest calls the test function and settles its disposition.
func (r *Runner) runTest(ctx context.Context, t *domain.Test, state *fileState, out *capture) {
	tc := &controller{
		ctx:     ctx,
		test:    t,
		name:    t.DisplayName(state.ordinals[t]),
		capture: out,
	}
	err := call(func() error { return t.Fn(tc) })

	switch {
	case err == nil && t.Catch != nil:
		t.AddFailure(domain.Failure{Line: t.Line, Message: "Expected an error to be thrown"})
	case err != nil && t.Catch != nil && matches(t.Catch, err):
		// Expected. The error settles the test, soft failures included.
		t.Reset()
	case err != nil:
		t.AddFailure(domain.Failure{Line: t.Line, Err: err})
	}
}

func matches(match domain.ErrorMatcher, err error) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return match(err)
}

func (r *Runner) runHooks(ctx context.Context, g *domain.Group, kind domain.HookKind, child domain.Node) error {
	for _, hook := range g.Hooks(kind) {
		if err := call(func() error { return hook(ctx, child) }); err != nil {
			return err
		}
	}
	return nil
}

// call runs fn, turning a panic into a PanicError.
func call(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return fn()
}

func (r *Runner) skip(t *domain.Test, state *fileState) {
	result := r.newResult(t, state)
	result.Skipped = true
	state.result.Add(result)
	r.reporter.TestFinished(result)
}

func (r *Runner) newResult(t *domain.Test, state *fileState) *domain.TestResult {
	return &domain.TestResult{
		Test:     t,
		Name:     t.DisplayName(state.ordinals[t]),
		FilePath: state.result.Path,
		Line:     t.Line,
	}
}

func (r *Runner) hookFailed(state *fileState, kind domain.HookKind, g *domain.Group, child domain.Node, err error) {
	hookErr := &domain.HookError{
		Kind:  kind,
		Group: g.Name,
		File:  state.result.Path,
		Err:   err,
	}
	if child != nil {
		hookErr.Child = child.ID()
		if t, ok := child.(*domain.Test); ok {
			hookErr.Child = t.DisplayName(state.ordinals[t])
		}
	}
	state.result.HookErrors = append(state.result.HookErrors, hookErr)
	r.reporter.HookFailed(hookErr)
	r.logger.Debug("hook failed", zap.Stringer("kind", kind), zap.String("group", g.Name), zap.Error(err))
}
