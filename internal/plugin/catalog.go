package plugin

import (
	"slices"
	"sync"
)

// Entry point groups.
const (
	// EntryPointGroup is loaded automatically during bootstrap.
	EntryPointGroup = "distill11"

	// SubcommandGroup plugins are imported when their name matches the
	// subcommand on the command line.
	SubcommandGroup = "distill.subcommand"
)

// EntryPoint is a plugin advertised under a group.
type EntryPoint struct {
	Name  string
	Group string

	// Dist names the package providing the entry point.
	Dist string

	Load Factory
}

// DistInfo records an entry point the manager loaded.
type DistInfo struct {
	Name  string
	Group string
	Dist  string
}

// Source resolves plugin names.
type Source interface {
	// Lookup returns the factory for name.
	Lookup(name string) (Factory, bool)

	// EntryPoints lists the plugins advertised under group.
	EntryPoints(group string) []EntryPoint
}

// Catalog is an in-process Source filled at init time.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]catalogEntry
	order   []string
}

type catalogEntry struct {
	factory Factory
	groups  []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]catalogEntry)}
}

// Provide makes factory importable as name and advertises it under groups.
// It panics if factory is nil or name is provided twice.
func (c *Catalog) Provide(name string, factory Factory, groups ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if factory == nil {
		panic("plugin: Provide factory is nil")
	}
	if _, dup := c.entries[name]; dup {
		panic("plugin: Provide called twice for " + name)
	}
	c.entries[name] = catalogEntry{factory: factory, groups: slices.Clone(groups)}
	c.order = append(c.order, name)
}

// Lookup returns the factory provided under name.
func (c *Catalog) Lookup(name string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]
	return e.factory, ok
}

// EntryPoints returns the catalog entries advertised under group, in the
// order they were provided.
func (c *Catalog) EntryPoints(group string) []EntryPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var eps []EntryPoint
	for _, name := range c.order {
		e := c.entries[name]
		if slices.Contains(e.groups, group) {
			eps = append(eps, EntryPoint{Name: name, Group: group, Dist: "builtin", Load: e.factory})
		}
	}
	return eps
}

var defaultCatalog = NewCatalog()

// Provide registers a plugin in the process-wide catalog. Packages call it
// from init.
func Provide(name string, factory Factory, groups ...string) {
	defaultCatalog.Provide(name, factory, groups...)
}

// DefaultCatalog returns the process-wide catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}
