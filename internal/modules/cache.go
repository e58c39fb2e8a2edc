package modules

import "sort"

// Unit is one loaded code unit.
type Unit struct {
	Path string

	// Children are the units this one caused to load, in import order.
	Children []string

	Source []byte
}

// Cache holds the active units by path.
type Cache struct {
	units map[string]*Unit
}

// NewCache creates an empty Cache
func NewCache() *Cache {
	return &Cache{units: make(map[string]*Unit)}
}

// Get returns the cached unit at path, or nil.
func (c *Cache) Get(path string) *Unit {
	return c.units[path]
}

// Has reports whether path is cached.
func (c *Cache) Has(path string) bool {
	_, ok := c.units[path]
	return ok
}

// Put caches u, replacing any unit with the same path.
func (c *Cache) Put(u *Unit) {
	c.units[u.Path] = u
}

// Delete drops path and returns the unit that was cached there.
func (c *Cache) Delete(path string) *Unit {
	u := c.units[path]
	delete(c.units, path)
	return u
}

// Paths returns the cached paths in lexical order.
func (c *Cache) Paths() []string {
	paths := make([]string, 0, len(c.units))
	for path := range c.units {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of cached units.
func (c *Cache) Len() int {
	return len(c.units)
}
