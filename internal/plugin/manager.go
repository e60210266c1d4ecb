package plugin

import (
	"fmt"
	"os"
	"reflect"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/dshills/distill/internal/hook"
)

// Manager tracks registered plugins and owns their hook registry.
//
// A Manager belongs to a single bootstrap and is not safe for concurrent
// use.
type Manager struct {
	registry *hook.Registry

	// Registered plugins by canonical name
	plugins map[string]Plugin

	// Registration order (for deterministic iteration)
	order []string

	blocked map[string]bool

	sources  []Source
	distinfo []DistInfo

	getenv func(string) string
	tracer *log.Logger

	// seq numbers unnamed plugins
	seq int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSources sets the sources plugin names resolve through, in order.
func WithSources(sources ...Source) ManagerOption {
	return func(m *Manager) {
		m.sources = sources
	}
}

// WithGetenv replaces os.Getenv for environment lookups.
func WithGetenv(fn func(string) string) ManagerOption {
	return func(m *Manager) {
		m.getenv = fn
	}
}

// NewManager creates a manager with the built-in hook specs declared. By
// default names resolve through DefaultCatalog.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		registry: hook.NewRegistry(),
		plugins:  make(map[string]Plugin),
		blocked:  make(map[string]bool),
		sources:  []Source{DefaultCatalog()},
		getenv:   os.Getenv,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.AddHookSpecs(BuiltinSpecs()...); err != nil {
		return nil, err
	}
	return m, nil
}

// Hooks returns the manager's hook registry.
func (m *Manager) Hooks() *hook.Registry {
	return m.registry
}

// AddHookSpecs declares additional hooks.
func (m *Manager) AddHookSpecs(specs ...hook.Spec) error {
	for _, spec := range specs {
		if err := m.registry.AddSpec(spec); err != nil {
			return err
		}
	}
	return nil
}

// AddSource appends a source consulted after the existing ones.
func (m *Manager) AddSource(s Source) {
	m.sources = append(m.sources, s)
}

// EnableTracing sends registration and dispatch traces to l.
func (m *Manager) EnableTracing(l *log.Logger) {
	m.tracer = l
	m.registry.SetTracer(l)
}

func (m *Manager) trace(msg string, keyvals ...any) {
	if m.tracer != nil {
		m.tracer.Debug(msg, keyvals...)
	}
}

// Register adds p under name, or under its canonical name when name is
// empty. It returns the name used.
//
// Registering a plugin value that is already registered, or a blocked name,
// does nothing and returns "". Hook implementations for undeclared hooks are
// kept and bound if the hook is declared later. Historic hooks are replayed
// to the new implementations before Register fires plugin_registered.
func (m *Manager) Register(p Plugin, name string) (string, error) {
	if p == nil {
		return "", ErrNilPlugin
	}
	if !reflect.TypeOf(p).Comparable() {
		return "", fmt.Errorf("%w: %T", ErrNotComparable, p)
	}
	if m.NameOf(p) != "" {
		return "", nil
	}
	if name == "" {
		name = m.canonicalName(p)
	}
	if m.blocked[name] {
		m.trace("plugin blocked", "plugin", name)
		return "", nil
	}
	if _, taken := m.plugins[name]; taken {
		return "", fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	reg := &Registrar{name: name, manager: m}
	if err := p.Register(reg); err != nil {
		return "", fmt.Errorf("register plugin %s: %w", name, err)
	}

	m.plugins[name] = p
	m.order = append(m.order, name)
	m.trace("registering plugin", "plugin", name, "impls", len(reg.impls))

	for _, d := range reg.impls {
		err := m.registry.AddImpl(d.hook, d.impl)
		if hook.IsUnknownSpec(err) {
			m.trace("deferring unknown hook", "plugin", name, "hook", d.hook)
			err = m.registry.Defer(d.hook, d.impl)
		}
		if err != nil {
			m.Unregister(name)
			return "", err
		}
	}

	if err := m.registry.CallHistoric(HookPluginRegistered, hook.Args{"plugin": p, "manager": m}, nil); err != nil {
		return name, err
	}

	if req, ok := p.(Requirer); ok {
		for _, dep := range req.RequiredPlugins() {
			if err := m.ImportPlugin(dep); err != nil {
				return name, err
			}
		}
	}
	return name, nil
}

func (m *Manager) canonicalName(p Plugin) string {
	if n, ok := p.(Named); ok && n.PluginName() != "" {
		return n.PluginName()
	}
	m.seq++
	return fmt.Sprintf("%T#%d", p, m.seq)
}

// Unregister removes the plugin registered under name and all its hook
// implementations.
func (m *Manager) Unregister(name string) (Plugin, bool) {
	p, ok := m.plugins[name]
	if !ok {
		return nil, false
	}
	m.registry.Remove(name)
	delete(m.plugins, name)
	m.order = slices.DeleteFunc(m.order, func(n string) bool { return n == name })
	m.trace("unregistered plugin", "plugin", name)
	return p, true
}

// SetBlocked prevents name from being registered and unregisters it if it
// already is.
func (m *Manager) SetBlocked(name string) {
	m.blocked[name] = true
	m.Unregister(name)
}

// IsBlocked reports whether name is blocked.
func (m *Manager) IsBlocked(name string) bool {
	return m.blocked[name]
}

// GetPlugin returns the plugin registered under name.
func (m *Manager) GetPlugin(name string) Plugin {
	return m.plugins[name]
}

// HasPlugin reports whether a plugin is registered under name.
func (m *Manager) HasPlugin(name string) bool {
	_, ok := m.plugins[name]
	return ok
}

// NameOf returns the name p is registered under, or "".
func (m *Manager) NameOf(p Plugin) string {
	if p == nil || !reflect.TypeOf(p).Comparable() {
		return ""
	}
	for _, name := range m.order {
		if m.plugins[name] == p {
			return name
		}
	}
	return ""
}

// Plugins returns the registered plugin names in registration order.
func (m *Manager) Plugins() []string {
	return slices.Clone(m.order)
}

// ImportPlugin resolves name through the manager's sources and registers the
// result. Registered and blocked names are skipped.
func (m *Manager) ImportPlugin(name string) error {
	if name == "" || m.blocked[name] || m.HasPlugin(name) {
		return nil
	}
	for _, src := range m.sources {
		factory, ok := src.Lookup(name)
		if !ok {
			continue
		}
		p, err := factory()
		if err != nil {
			return &ImportError{Name: name, Err: err}
		}
		_, err = m.Register(p, name)
		return err
	}
	return &ImportError{Name: name, Err: ErrPluginNotFound}
}

// LoadEntryPoints registers every plugin advertised under group, skipping
// names that are already registered or blocked. It returns the number of
// plugins loaded.
func (m *Manager) LoadEntryPoints(group string) (int, error) {
	count := 0
	for _, src := range m.sources {
		for _, ep := range src.EntryPoints(group) {
			if m.HasPlugin(ep.Name) || m.blocked[ep.Name] {
				continue
			}
			p, err := ep.Load()
			if err != nil {
				return count, &ImportError{Name: ep.Name, Err: err}
			}
			if _, err := m.Register(p, ep.Name); err != nil {
				return count, err
			}
			m.distinfo = append(m.distinfo, DistInfo{Name: ep.Name, Group: group, Dist: ep.Dist})
			count++
		}
	}
	m.trace("loaded entry points", "group", group, "count", count)
	return count, nil
}

// ImportSubcommand imports the plugin advertising subcmd under
// SubcommandGroup, if any source has one.
func (m *Manager) ImportSubcommand(subcmd string) error {
	if subcmd == "" {
		return nil
	}
	for _, src := range m.sources {
		for _, ep := range src.EntryPoints(SubcommandGroup) {
			if ep.Name == subcmd {
				return m.ImportPlugin(subcmd)
			}
		}
	}
	return nil
}

// DistInfo returns the entry points loaded so far.
func (m *Manager) DistInfo() []DistInfo {
	return slices.Clone(m.distinfo)
}

// Warn records a warning through the historic logwarning hook.
func (m *Manager) Warn(code, message string) error {
	return m.registry.CallHistoric(HookLogWarning, hook.Args{
		"code":       code,
		"message":    message,
		"fslocation": nil,
		"nodeid":     nil,
	}, nil)
}
