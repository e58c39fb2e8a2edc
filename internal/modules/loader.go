package modules

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrExternal is returned for units outside the project, such as the
// standard library or third-party modules. They are never tracked.
var ErrExternal = errors.New("external unit")

// Host reads a unit and lists the units it imports.
type Host interface {
	// Owns reports whether path belongs to the project.
	Owns(path string) bool
	Load(path string) (*Unit, error)
}

// Loader is the load interceptor: every unit load goes through it so the
// graph sees the edge before the unit itself is loaded.
type Loader struct {
	graph  *Graph
	host   Host
	logger *zap.Logger
}

// NewLoader creates a new Loader
func NewLoader(graph *Graph, host Host, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		graph:  graph,
		host:   host,
		logger: logger,
	}
}

// Load loads path on behalf of parent, which is empty for test files loaded
// directly. Cached units are returned as is.
func (l *Loader) Load(path, parent string) (*Unit, error) {
	if !l.host.Owns(path) {
		return nil, ErrExternal
	}
	l.graph.RecordEdge(path, parent)

	if unit := l.graph.cache.Get(path); unit != nil {
		return unit, nil
	}

	unit, err := l.host.Load(path)
	if err != nil {
		return nil, err
	}
	l.graph.cache.Put(unit)
	l.logger.Debug("unit loaded",
		zap.String("path", path),
		zap.String("parent", parent),
		zap.Int("children", len(unit.Children)))

	for _, child := range unit.Children {
		if _, err := l.Load(child, path); err != nil {
			if errors.Is(err, ErrExternal) {
				continue
			}
			return nil, fmt.Errorf("failed to load %s imported by %s: %w", child, path, err)
		}
	}
	return unit, nil
}
