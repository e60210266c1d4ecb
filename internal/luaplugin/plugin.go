package luaplugin

import (
	"fmt"
	"slices"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/distill/internal/hook"
	"github.com/dshills/distill/internal/plugin"
	plua "github.com/dshills/distill/internal/plugin/lua"
)

// ModuleName is the Lua module, and global, plugins declare hooks through.
const ModuleName = "distill"

// Plugin is a plugin implemented by a Lua file. The file runs once, when the
// plugin is opened; the hooks it declares are registered with a manager
// later.
//
// A Plugin owns a Lua state and must be closed.
type Plugin struct {
	name string
	path string

	state *plua.State

	hooks    []declaredHook
	requires []string

	// objects caches the Lua view of Go values handed to hooks.
	objects map[any]*lua.LTable
}

type declaredHook struct {
	name    string
	fn      *lua.LFunction
	wrapper bool
	opts    []hook.ImplOption
}

type options struct {
	timeout  time.Duration
	requires []string
}

// Option configures Open.
type Option func(*options)

// WithExecutionTimeout bounds each chunk and hook call.
func WithExecutionTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithRequires adds plugins to import after this one registers.
func WithRequires(names ...string) Option {
	return func(o *options) {
		o.requires = append(o.requires, names...)
	}
}

// Open runs the Lua file at path and returns the plugin it declares. A
// script error is returned as a *LoadError.
func Open(name, path string, opts ...Option) (*Plugin, error) {
	o := options{timeout: plua.DefaultExecutionTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Plugin{
		name:     name,
		path:     path,
		state:    plua.NewState(plua.WithExecutionTimeout(o.timeout)),
		requires: slices.Clone(o.requires),
		objects:  make(map[any]*lua.LTable),
	}
	p.installModule()

	if err := p.state.DoFile(path); err != nil {
		_ = p.state.Close()
		return nil, &LoadError{Path: path, Err: err}
	}
	return p, nil
}

// PluginName returns the name the plugin registers under.
func (p *Plugin) PluginName() string {
	return p.name
}

// Path returns the Lua file the plugin was loaded from.
func (p *Plugin) Path() string {
	return p.path
}

// RequiredPlugins returns the plugins named through distill.plugins and
// the manifest.
func (p *Plugin) RequiredPlugins() []string {
	return slices.Clone(p.requires)
}

// Hooks returns the names of the hooks the script declared, in order.
func (p *Plugin) Hooks() []string {
	names := make([]string, 0, len(p.hooks))
	for _, h := range p.hooks {
		names = append(names, h.name)
	}
	return names
}

// Register declares the script's hooks on r.
func (p *Plugin) Register(r *plugin.Registrar) error {
	if p.state.IsClosed() {
		return ErrClosed
	}
	for _, h := range p.hooks {
		if h.wrapper {
			r.Wrapper(h.name, p.wrapperFunc(h), h.opts...)
		} else {
			r.Hook(h.name, p.hookFunc(h), h.opts...)
		}
	}
	return nil
}

// Close releases the Lua state. It is safe to call more than once.
func (p *Plugin) Close() error {
	p.objects = make(map[any]*lua.LTable)
	return p.state.Close()
}

// hookFunc calls a Lua implementation with the hook arguments as a table
// and converts its first result.
func (p *Plugin) hookFunc(h declaredHook) hook.Func {
	return func(args hook.Args) (any, error) {
		res, err := p.state.CallFunction(h.fn, p.argsTable(args))
		if err != nil {
			return nil, &HookError{Plugin: p.name, Hook: h.name, Err: err}
		}
		if len(res) == 0 || res[0] == lua.LNil {
			return nil, nil
		}
		return p.state.Bridge().ToGoValue(res[0]), nil
	}
}

// wrapperFunc calls a Lua wrapper as fn(args, next). next runs the wrapped
// implementations and returns their results as a list. A wrapper that
// returns a list replaces the results; one that never calls next has it
// called on return.
func (p *Plugin) wrapperFunc(h declaredHook) hook.WrapperFunc {
	return func(args hook.Args, next func() ([]any, error)) ([]any, error) {
		var (
			called   bool
			results  []any
			innerErr error
		)
		nextFn := p.state.L.NewFunction(func(L *lua.LState) int {
			if called {
				L.RaiseError("next called more than once")
				return 0
			}
			called = true
			results, innerErr = next()
			if innerErr != nil {
				L.RaiseError("%s", innerErr.Error())
				return 0
			}
			L.Push(p.state.Bridge().ToLuaValue(results))
			return 1
		})

		res, err := p.state.CallFunction(h.fn, p.argsTable(args), nextFn)
		if innerErr != nil {
			return nil, innerErr
		}
		if err != nil {
			return nil, &HookError{Plugin: p.name, Hook: h.name, Err: err}
		}
		if !called {
			if results, err = next(); err != nil {
				return nil, err
			}
		}
		if len(res) > 0 {
			if l, ok := p.state.Bridge().ToGoValue(res[0]).([]any); ok {
				return l, nil
			}
		}
		return results, nil
	}
}

// installModule exposes the distill module through require and as a global.
func (p *Plugin) installModule() {
	mod := p.state.L.NewTable()
	p.state.L.SetField(mod, "name", lua.LString(p.name))
	p.state.L.SetField(mod, "hook", p.state.L.NewFunction(p.luaHook))
	p.state.L.SetField(mod, "wrapper", p.state.L.NewFunction(p.luaWrapper))
	p.state.L.SetField(mod, "plugins", p.state.L.NewFunction(p.luaPlugins))

	p.state.PreloadModule(ModuleName, func(L *lua.LState) int {
		L.Push(mod)
		return 1
	})
	p.state.L.SetGlobal(ModuleName, mod)
}

// hook(name, fn [, opts])
// Declares an implementation of the named hook. opts may set tryfirst or
// trylast.
func (p *Plugin) luaHook(L *lua.LState) int {
	p.declare(L, false)
	return 0
}

// wrapper(name, fn [, opts])
// Declares a wrapper around the named hook.
func (p *Plugin) luaWrapper(L *lua.LState) int {
	p.declare(L, true)
	return 0
}

func (p *Plugin) declare(L *lua.LState, wrapper bool) {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	if name == "" {
		L.ArgError(1, "hook name cannot be empty")
		return
	}

	h := declaredHook{name: name, fn: fn, wrapper: wrapper}
	if opts, ok := L.Get(3).(*lua.LTable); ok {
		first, _ := p.state.Bridge().TableBool(opts, "tryfirst")
		last, _ := p.state.Bridge().TableBool(opts, "trylast")
		if first && last {
			L.ArgError(3, "tryfirst and trylast are exclusive")
			return
		}
		if first {
			h.opts = append(h.opts, hook.TryFirst())
		}
		if last {
			h.opts = append(h.opts, hook.TryLast())
		}
	}
	p.hooks = append(p.hooks, h)
}

// plugins(name, ...) or plugins{name, ...}
// Names plugins to import once this one is registered.
func (p *Plugin) luaPlugins(L *lua.LState) int {
	for i := 1; i <= L.GetTop(); i++ {
		names, err := p.state.Bridge().StringList(L.Get(i))
		if err != nil {
			L.ArgError(i, err.Error())
			return 0
		}
		for _, n := range names {
			if !slices.Contains(p.requires, n) {
				p.requires = append(p.requires, n)
			}
		}
	}
	return 0
}

func (p *Plugin) String() string {
	return fmt.Sprintf("luaplugin %s (%s)", p.name, p.path)
}
