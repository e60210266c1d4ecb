package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// builtinModules can always be required.
var builtinModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
}

// Sandbox restricts a Lua state to computation plus the modules the host
// preloads. There is no file, process or debug access.
type Sandbox struct {
	L *lua.LState

	// Preloaded module roots; "distill" also admits "distill.*".
	allowed map[string]bool
}

// NewSandbox creates a sandbox for L. Call Install before running code.
func NewSandbox(L *lua.LState) *Sandbox {
	return &Sandbox{
		L:       L,
		allowed: make(map[string]bool),
	}
}

// Install removes the chunk loaders and replaces require.
func (s *Sandbox) Install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.installRequire()
}

// Allow admits module name, and its dotted submodules, through require.
// The module itself must be preloaded with PreloadModule.
func (s *Sandbox) Allow(name string) {
	s.allowed[name] = true
}

// Allowed reports whether require(name) may proceed.
func (s *Sandbox) Allowed(name string) bool {
	if builtinModules[name] || s.allowed[name] {
		return true
	}
	root, _, found := strings.Cut(name, ".")
	return found && s.allowed[root]
}

// installRequire clears the package search paths and installs a require
// that only resolves builtin and allowed modules.
func (s *Sandbox) installRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	original := s.L.GetGlobal("require")
	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !s.Allowed(name) {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(original)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}
