// Package modules tracks which loaded code units are used by which test files.
//
// The graph only stores reverse edges: for every unit, the set of units that
// imported it. Forward edges are read from the cached units when a unit is
// invalidated.
package modules

import "sort"

type set map[string]struct{}

// Graph is the reverse-dependency index of the loaded units.
type Graph struct {
	importers map[string]set
	isTest    func(path string) bool
	cache     *Cache
}

// NewGraph creates an empty Graph. isTest reports whether a path is a
// registered test file; edges are only tracked below those.
func NewGraph(isTest func(path string) bool, cache *Cache) *Graph {
	if cache == nil {
		cache = NewCache()
	}
	return &Graph{
		importers: make(map[string]set),
		isTest:    isTest,
		cache:     cache,
	}
}

// Cache returns the cache of active units.
func (g *Graph) Cache() *Cache {
	return g.cache
}

// RecordEdge records that parent caused child to load. The edge is only
// recorded when parent is a test file or is itself tracked. Units outside
// every test's closure are ignored.
func (g *Graph) RecordEdge(child, parent string) {
	if parent == "" || child == parent {
		return
	}
	if !g.isTest(parent) && !g.IsTracked(parent) {
		return
	}
	if parents, ok := g.importers[child]; ok {
		parents[parent] = struct{}{}
		return
	}
	g.importers[child] = set{parent: {}}
}

// IsTracked reports whether some test's load graph reached path.
func (g *Graph) IsTracked(path string) bool {
	return len(g.importers[path]) > 0
}

// Has reports whether path has recorded dependents or is an active unit.
func (g *Graph) Has(path string) bool {
	return g.IsTracked(path) || g.cache.Has(path)
}

// Importers returns the direct importers of path in lexical order.
func (g *Graph) Importers(path string) []string {
	return sorted(g.importers[path])
}

// Invalidate drops path from the active units and returns every unit that
// transitively imports it. The walk is breadth-first and does not expand
// past test files: they are returned as leaves. Every returned unit is
// dropped from the cache too. An unknown path yields nothing.
func (g *Graph) Invalidate(path string) []string {
	if !g.Has(path) {
		return nil
	}

	visited := set{path: {}}
	queue := []string{path}
	var affected []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		importers := sorted(g.importers[current])
		g.release(current)
		if current != path {
			affected = append(affected, current)
			if g.isTest(current) {
				continue
			}
		}
		for _, importer := range importers {
			if _, ok := visited[importer]; ok {
				continue
			}
			visited[importer] = struct{}{}
			queue = append(queue, importer)
		}
	}

	sort.Strings(affected)
	return affected
}

// Forget removes every trace of path, for units that no longer exist.
func (g *Graph) Forget(path string) {
	g.release(path)
	delete(g.importers, path)
	for child, parents := range g.importers {
		delete(parents, path)
		if len(parents) == 0 {
			delete(g.importers, child)
		}
	}
}

// release uncaches path and severs the edges to its children.
func (g *Graph) release(path string) {
	unit := g.cache.Delete(path)
	if unit == nil {
		return
	}
	for _, child := range unit.Children {
		parents, ok := g.importers[child]
		if !ok {
			continue
		}
		delete(parents, path)
		if len(parents) == 0 {
			delete(g.importers, child)
		}
	}
}

func sorted(s set) []string {
	paths := make([]string, 0, len(s))
	for path := range s {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
