package luaplugin

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/distill/internal/config"
	"github.com/dshills/distill/internal/hook"
	"github.com/dshills/distill/internal/parser"
	"github.com/dshills/distill/internal/plugin"
)

// argsTable converts hook arguments to a Lua table keyed by parameter name.
func (p *Plugin) argsTable(args hook.Args) *lua.LTable {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := p.state.L.CreateTable(0, len(args))
	for _, k := range keys {
		t.RawSetString(k, p.toLua(args[k], args))
	}
	return t
}

// toLua converts a hook argument. The parser, config and manager become
// objects with methods; a plugin becomes its registered name.
func (p *Plugin) toLua(v any, args hook.Args) lua.LValue {
	switch v := v.(type) {
	case *parser.Parser:
		return p.object(v, func(t *lua.LTable) { p.bindParser(t, v) })
	case *config.Config:
		return p.object(v, func(t *lua.LTable) { p.bindConfig(t, v) })
	case *plugin.Manager:
		return p.object(v, func(t *lua.LTable) { p.bindManager(t, v) })
	case plugin.Plugin:
		if m, ok := args["manager"].(*plugin.Manager); ok {
			return lua.LString(m.NameOf(v))
		}
	}
	return p.state.Bridge().ToLuaValue(v)
}

// object returns the cached table for key, building it with bind once.
func (p *Plugin) object(key any, bind func(t *lua.LTable)) *lua.LTable {
	if t, ok := p.objects[key]; ok {
		return t
	}
	t := p.state.L.NewTable()
	bind(t)
	p.objects[key] = t
	return t
}

// setMethods installs fns on t. Methods are called with colon syntax, so
// arguments start at index 2.
func (p *Plugin) setMethods(t *lua.LTable, fns map[string]lua.LGFunction) {
	for name, fn := range fns {
		p.state.L.SetField(t, name, p.state.L.NewFunction(fn))
	}
}

func raise(L *lua.LState, err error) int {
	L.RaiseError("%s", err.Error())
	return 0
}

func (p *Plugin) bindParser(t *lua.LTable, ps *parser.Parser) {
	p.setMethods(t, map[string]lua.LGFunction{
		// parser:addoption{"--name", "-n", action=, type=, dest=, default=, help=, choices=}
		"addoption": func(L *lua.LState) int {
			return p.addOption(L, ps.AddOption)
		},
		// parser:getgroup(name [, description [, after]]) -> group
		"getgroup": func(L *lua.LState) int {
			name := L.CheckString(2)
			g := ps.GetGroup(name, L.OptString(3, ""), L.OptString(4, ""))
			L.Push(p.object(g, func(gt *lua.LTable) {
				p.state.L.SetField(gt, "name", lua.LString(g.Name()))
				p.setMethods(gt, map[string]lua.LGFunction{
					"addoption": func(L *lua.LState) int {
						return p.addOption(L, g.AddOption)
					},
				})
			}))
			return 1
		},
		// parser:addini(name, help [, type [, default]])
		"addini": func(L *lua.LState) int {
			name := L.CheckString(2)
			help := L.OptString(3, "")
			typ, err := parser.ParseIniType(L.OptString(4, ""))
			if err != nil {
				L.ArgError(4, err.Error())
				return 0
			}
			def, err := p.iniDefault(typ, L.Get(5))
			if err != nil {
				L.ArgError(5, err.Error())
				return 0
			}
			if err := ps.AddIni(name, help, typ, def); err != nil {
				return raise(L, err)
			}
			return 0
		},
	})
}

func (p *Plugin) addOption(L *lua.LState, add func(*parser.Option) error) int {
	opt, err := p.optionFromTable(L.CheckTable(2))
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	if err := add(opt); err != nil {
		return raise(L, err)
	}
	return 0
}

// optionFromTable converts an addoption table. Flag names are the string
// entries of the sequence part plus an optional names list.
func (p *Plugin) optionFromTable(t *lua.LTable) (*parser.Option, error) {
	b := p.state.Bridge()

	names := b.Positional(t)
	extra, err := b.StringList(t.RawGetString("names"))
	if err != nil {
		return nil, fmt.Errorf("names: %w", err)
	}
	names = append(names, extra...)

	action, _ := b.TableString(t, "action")
	typ, _ := b.TableString(t, "type")
	kind, err := parser.ParseKind(action, typ)
	if err != nil {
		return nil, err
	}

	opt := &parser.Option{Names: names, Kind: kind}
	opt.Dest, _ = b.TableString(t, "dest")
	opt.Help, _ = b.TableString(t, "help")
	opt.Hidden, _ = b.TableBool(t, "hidden")
	if v := t.RawGetString("default"); v != lua.LNil {
		opt.Default = b.ToGoValue(v)
	}
	if opt.Choices, err = b.StringList(t.RawGetString("choices")); err != nil {
		return nil, fmt.Errorf("choices: %w", err)
	}
	return opt, nil
}

func (p *Plugin) iniDefault(typ parser.IniType, lv lua.LValue) (any, error) {
	if lv == lua.LNil {
		return nil, nil
	}
	switch typ {
	case parser.IniArgs, parser.IniLineList, parser.IniPathList:
		return p.state.Bridge().StringList(lv)
	}
	return p.state.Bridge().ToGoValue(lv), nil
}

func (p *Plugin) bindConfig(t *lua.LTable, c *config.Config) {
	b := p.state.Bridge()
	p.setMethods(t, map[string]lua.LGFunction{
		// config:getoption(name [, default])
		"getoption": func(L *lua.LState) int {
			name := L.CheckString(2)
			v, err := c.GetOption(name)
			switch {
			case errors.Is(err, config.ErrUnknownOption) && L.GetTop() >= 3:
				L.Push(L.Get(3))
				return 1
			case err != nil:
				return raise(L, err)
			case v == nil && L.GetTop() >= 3:
				L.Push(L.Get(3))
				return 1
			}
			L.Push(b.ToLuaValue(v))
			return 1
		},
		// config:getini(name)
		"getini": func(L *lua.LState) int {
			v, err := c.GetIni(L.CheckString(2))
			if err != nil {
				return raise(L, err)
			}
			L.Push(b.ToLuaValue(v))
			return 1
		},
		"rootdir": func(L *lua.LState) int {
			L.Push(lua.LString(c.RootDir()))
			return 1
		},
		"inifile": func(L *lua.LState) int {
			L.Push(lua.LString(c.IniFile()))
			return 1
		},
		"invocation_dir": func(L *lua.LState) int {
			L.Push(lua.LString(c.InvocationDir()))
			return 1
		},
		"args": func(L *lua.LState) int {
			L.Push(b.ToLuaValue(c.Args()))
			return 1
		},
		"subcommand": func(L *lua.LState) int {
			L.Push(lua.LString(c.Subcommand()))
			return 1
		},
		"version": func(L *lua.LState) int {
			L.Push(lua.LString(c.Version()))
			return 1
		},
		// config:warn(code, message)
		"warn": func(L *lua.LState) int {
			if err := c.Warn(L.CheckString(2), L.CheckString(3)); err != nil {
				return raise(L, err)
			}
			return 0
		},
		// config:echo(...) writes its arguments, space separated, to stdout.
		"echo": func(L *lua.LState) int {
			parts := make([]string, 0, L.GetTop()-1)
			for i := 2; i <= L.GetTop(); i++ {
				parts = append(parts, L.ToStringMeta(L.Get(i)).String())
			}
			if _, err := io.WriteString(c.Stdout(), strings.Join(parts, " ")+"\n"); err != nil {
				return raise(L, err)
			}
			return 0
		},
		// config:addcleanup(fn)
		"addcleanup": func(L *lua.LState) int {
			fn := L.CheckFunction(2)
			c.AddCleanup(func() error {
				if _, err := p.state.CallFunction(fn); err != nil {
					return &HookError{Plugin: p.name, Hook: "cleanup", Err: err}
				}
				return nil
			})
			return 0
		},
		"pluginmanager": func(L *lua.LState) int {
			m := c.PluginManager()
			L.Push(p.object(m, func(mt *lua.LTable) { p.bindManager(mt, m) }))
			return 1
		},
	})
}

func (p *Plugin) bindManager(t *lua.LTable, m *plugin.Manager) {
	p.setMethods(t, map[string]lua.LGFunction{
		"has_plugin": func(L *lua.LState) int {
			L.Push(lua.LBool(m.HasPlugin(L.CheckString(2))))
			return 1
		},
		"is_blocked": func(L *lua.LState) int {
			L.Push(lua.LBool(m.IsBlocked(L.CheckString(2))))
			return 1
		},
		"plugins": func(L *lua.LState) int {
			L.Push(p.state.Bridge().ToLuaValue(m.Plugins()))
			return 1
		},
		// manager:import(name) imports a plugin, honoring blocks.
		"import": func(L *lua.LState) int {
			if err := m.ImportPlugin(L.CheckString(2)); err != nil {
				return raise(L, err)
			}
			return 0
		},
	})
}
