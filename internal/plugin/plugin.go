package plugin

import "github.com/dshills/distill/internal/hook"

// Plugin declares hook implementations on the Registrar it is handed. The
// same plugin value is registered at most once per Manager, so it must be
// comparable; pointer types are the usual choice.
type Plugin interface {
	Register(r *Registrar) error
}

// Named plugins pick their own canonical name.
type Named interface {
	PluginName() string
}

// Requirer plugins name other plugins to import right after they register.
type Requirer interface {
	RequiredPlugins() []string
}

// Factory constructs a plugin on import.
type Factory func() (Plugin, error)

// Registrar collects a plugin's hook implementations during registration.
type Registrar struct {
	name    string
	manager *Manager
	impls   []declaredImpl
}

type declaredImpl struct {
	hook string
	impl *hook.Impl
}

// Name returns the canonical name the plugin is registered under.
func (r *Registrar) Name() string {
	return r.name
}

// Manager returns the manager performing the registration.
func (r *Registrar) Manager() *Manager {
	return r.manager
}

// Hook declares a plain implementation of the named hook.
func (r *Registrar) Hook(name string, fn hook.Func, opts ...hook.ImplOption) {
	impl := &hook.Impl{Plugin: r.name, Func: fn}
	for _, opt := range opts {
		opt(impl)
	}
	r.impls = append(r.impls, declaredImpl{hook: name, impl: impl})
}

// Wrapper declares a wrapper around the named hook's implementations.
func (r *Registrar) Wrapper(name string, fn hook.WrapperFunc, opts ...hook.ImplOption) {
	impl := &hook.Impl{Plugin: r.name, Wrapper: fn}
	for _, opt := range opts {
		opt(impl)
	}
	r.impls = append(r.impls, declaredImpl{hook: name, impl: impl})
}

// FuncPlugin adapts a registration function to a Plugin. Each value returned
// by NewFuncPlugin is a distinct plugin.
type FuncPlugin struct {
	name string
	fn   func(r *Registrar) error
}

// NewFuncPlugin returns a named plugin whose Register calls fn.
func NewFuncPlugin(name string, fn func(r *Registrar) error) *FuncPlugin {
	return &FuncPlugin{name: name, fn: fn}
}

// PluginName returns the name given to NewFuncPlugin.
func (p *FuncPlugin) PluginName() string {
	return p.name
}

// Register calls the wrapped function.
func (p *FuncPlugin) Register(r *Registrar) error {
	return p.fn(r)
}
