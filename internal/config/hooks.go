package config

import (
	"fmt"

	"github.com/dshills/distill/internal/hook"
	"github.com/dshills/distill/internal/parser"
	"github.com/dshills/distill/internal/plugin"
)

// Warning is one logwarning record.
type Warning struct {
	Code       string
	Message    string
	FSLocation string
	NodeID     string
}

func (w Warning) String() string {
	return w.Code + " " + w.Message
}

// The On* helpers declare typed implementations of the built-in hooks. They
// unpack hook.Args so Go plugins never handle the untyped map.

// OnNamespace implements namespace. The returned entries are merged into
// Config.Namespace.
func OnNamespace(r *plugin.Registrar, fn func() map[string]any, opts ...hook.ImplOption) {
	r.Hook(plugin.HookNamespace, func(hook.Args) (any, error) {
		if ns := fn(); len(ns) > 0 {
			return ns, nil
		}
		return nil, nil
	}, opts...)
}

// OnAddOption implements addoption.
func OnAddOption(r *plugin.Registrar, fn func(p *parser.Parser) error, opts ...hook.ImplOption) {
	r.Hook(plugin.HookAddOption, func(args hook.Args) (any, error) {
		p, err := argOf[*parser.Parser](args, "parser")
		if err != nil {
			return nil, err
		}
		return nil, fn(p)
	}, opts...)
}

// OnConfigure implements configure.
func OnConfigure(r *plugin.Registrar, fn func(c *Config) error, opts ...hook.ImplOption) {
	r.Hook(plugin.HookConfigure, configHook(fn), opts...)
}

// OnUnconfigure implements unconfigure.
func OnUnconfigure(r *plugin.Registrar, fn func(c *Config) error, opts ...hook.ImplOption) {
	r.Hook(plugin.HookUnconfigure, configHook(fn), opts...)
}

func configHook(fn func(c *Config) error) hook.Func {
	return func(args hook.Args) (any, error) {
		c, err := argOf[*Config](args, "config")
		if err != nil {
			return nil, err
		}
		return nil, fn(c)
	}
}

// OnLogWarning implements logwarning.
func OnLogWarning(r *plugin.Registrar, fn func(w Warning) error, opts ...hook.ImplOption) {
	r.Hook(plugin.HookLogWarning, func(args hook.Args) (any, error) {
		return nil, fn(warningFromArgs(args))
	}, opts...)
}

// OnCmdlineParse implements cmdline_parse. Returning a nil Config passes
// the call on to the next implementation.
func OnCmdlineParse(r *plugin.Registrar, fn func(m *plugin.Manager, subcmd string, args []string) (*Config, error), opts ...hook.ImplOption) {
	r.Hook(plugin.HookCmdlineParse, func(args hook.Args) (any, error) {
		m, err := argOf[*plugin.Manager](args, "pluginmanager")
		if err != nil {
			return nil, err
		}
		subcmd, _ := args["subcmd"].(string)
		argv, _ := args["args"].([]string)
		c, err := fn(m, subcmd, argv)
		if c == nil || err != nil {
			return nil, err
		}
		return c, nil
	}, opts...)
}

// OnCmdlineMain implements cmdline_main. handled reports whether fn took
// care of the invocation; when false the next implementation runs.
func OnCmdlineMain(r *plugin.Registrar, fn func(c *Config) (code int, handled bool, err error), opts ...hook.ImplOption) {
	r.Hook(plugin.HookCmdlineMain, func(args hook.Args) (any, error) {
		c, err := argOf[*Config](args, "config")
		if err != nil {
			return nil, err
		}
		code, handled, err := fn(c)
		if err != nil || !handled {
			return nil, err
		}
		return code, nil
	}, opts...)
}

// OnLoadInitialConftests implements load_initial_conftests.
func OnLoadInitialConftests(r *plugin.Registrar, fn func(c *Config, p *parser.Parser, args []string) error, opts ...hook.ImplOption) {
	r.Hook(plugin.HookLoadInitialConftests, func(args hook.Args) (any, error) {
		c, err := argOf[*Config](args, "early_config")
		if err != nil {
			return nil, err
		}
		p, err := argOf[*parser.Parser](args, "parser")
		if err != nil {
			return nil, err
		}
		argv, _ := args["args"].([]string)
		return nil, fn(c, p, argv)
	}, opts...)
}

func argOf[T any](args hook.Args, name string) (T, error) {
	v, ok := args[name].(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("hook argument %q: expected %T, got %T", name, zero, args[name])
	}
	return v, nil
}

func warningFromArgs(args hook.Args) Warning {
	var w Warning
	w.Code, _ = args["code"].(string)
	w.Message, _ = args["message"].(string)
	w.FSLocation, _ = args["fslocation"].(string)
	w.NodeID, _ = args["nodeid"].(string)
	return w
}
