package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"testpass/internal/domain"
)

// apply consumes the queued events, reloads every stale file in
// registration order and rebuilds the children of the top-level group.
// Callers hold e.mu.
func (e *Engine) apply(ctx context.Context) []*ReloadError {
	stale := make(map[string]struct{}, len(e.retry))
	for path := range e.retry {
		stale[path] = struct{}{}
	}

	events := e.coalesce(e.pending)
	e.pending = nil
	for _, ev := range events {
		switch ev.kind {
		case Add:
			if ev.force || e.isTestPath(ev.path) {
				e.registry.Add(ev.path)
				stale[ev.path] = struct{}{}
				continue
			}
			e.invalidate(ev.path, stale)
		case Change:
			e.invalidate(ev.path, stale)
		case Delete:
			if e.registry.Remove(ev.path) != nil {
				e.graph.Forget(ev.path)
				delete(stale, ev.path)
				delete(e.retry, ev.path)
				e.logger.Debug("test file removed", zap.String("path", ev.path))
				continue
			}
			e.invalidate(ev.path, stale)
			e.graph.Forget(ev.path)
		}
	}

	var errs []*ReloadError
	for _, file := range e.registry.Files() {
		if _, ok := stale[file.Path]; !ok {
			continue
		}
		if err := e.load(ctx, file); err != nil {
			errs = append(errs, err)
		}
	}

	e.rebuild()
	return errs
}

// coalesce turns a delete of a registered file that is followed by an add
// of the same path into a change, so files saved through a rename keep their
// position. Callers hold e.mu.
func (e *Engine) coalesce(events []event) []event {
	out := make([]event, 0, len(events))
	deleted := make(map[string]int)
	for _, ev := range events {
		switch ev.kind {
		case Delete:
			if e.registry.Has(ev.path) {
				deleted[ev.path] = len(out)
			}
		case Add:
			if i, ok := deleted[ev.path]; ok {
				out[i].kind = Change
				delete(deleted, ev.path)
				continue
			}
		}
		out = append(out, ev)
	}
	return out
}

// invalidate marks path, when it is a test file, and every test file
// depending on it as stale.
func (e *Engine) invalidate(path string, stale map[string]struct{}) {
	if e.registry.Has(path) {
		stale[path] = struct{}{}
	}
	for _, affected := range e.graph.Invalidate(path) {
		if e.registry.Has(affected) {
			stale[affected] = struct{}{}
		}
	}
}

// load evaluates file into a fresh root group. On failure the file has no
// group and is retried on the next cycle.
func (e *Engine) load(ctx context.Context, file *domain.File) *ReloadError {
	delete(e.retry, file.Path)
	e.graph.Invalidate(file.Path)

	file.Header = ""
	file.Group = domain.NewGroup("", e.top, file)

	err := func() error {
		if _, err := e.loader.Load(file.Path, ""); err != nil {
			return err
		}
		if e.evaluator == nil {
			return fmt.Errorf("no evaluator configured")
		}
		return e.evaluator.Evaluate(ctx, file)
	}()
	if err != nil {
		file.Group = nil
		e.graph.Invalidate(file.Path)
		e.retry[file.Path] = struct{}{}
		e.logger.Debug("test file failed to load", zap.String("path", file.Path), zap.Error(err))
		return &ReloadError{Path: file.Path, Err: err}
	}

	e.logger.Debug("test file loaded", zap.String("path", file.Path), zap.Int("children", len(file.Group.Children)))
	return nil
}

// rebuild sets the children of the top-level group to the loaded root
// groups in registration order. Groups of files that were not reloaded keep
// their identity.
func (e *Engine) rebuild() {
	children := make([]domain.Node, 0, e.registry.Len())
	for _, file := range e.registry.Files() {
		if file.Group == nil {
			continue
		}
		file.Group.Parent = e.top
		children = append(children, file.Group)
	}
	e.top.Children = children
}
