package parser

import "maps"

// Built-in destination names.
const (
	DestHelp        = "help"
	DestVersion     = "version"
	DestPlugins     = "plugins"
	DestOverrideIni = "override_ini"
	DestIniFile     = "inifilename"
	DestRootDir     = "rootdir"
	DestConfCutDir  = "confcutdir"
	DestNoConftest  = "noconftest"
	DestFileOrDir   = "file_or_dir"
)

// Namespace is the typed result of a parse. Built-in destinations are
// fields; options contributed by plugins live in Extra.
type Namespace struct {
	Help        bool
	Version     bool
	Plugins     []string
	OverrideIni []string
	IniFile     string
	RootDir     string
	ConfCutDir  string
	NoConftest  bool

	// FileOrDir holds the positional arguments.
	FileOrDir []string

	Extra map[string]any
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{Extra: make(map[string]any)}
}

// builtinKind returns the kind a built-in destination is stored as.
func builtinKind(dest string) (Kind, bool) {
	switch dest {
	case DestHelp, DestVersion, DestNoConftest:
		return KindBool, true
	case DestPlugins, DestOverrideIni:
		return KindAppend, true
	case DestIniFile, DestRootDir, DestConfCutDir:
		return KindString, true
	}
	return 0, false
}

// field returns a pointer to the struct field backing a built-in destination.
func (ns *Namespace) field(dest string) any {
	switch dest {
	case DestHelp:
		return &ns.Help
	case DestVersion:
		return &ns.Version
	case DestNoConftest:
		return &ns.NoConftest
	case DestPlugins:
		return &ns.Plugins
	case DestOverrideIni:
		return &ns.OverrideIni
	case DestIniFile:
		return &ns.IniFile
	case DestRootDir:
		return &ns.RootDir
	case DestConfCutDir:
		return &ns.ConfCutDir
	}
	return nil
}

// Get returns the value stored under dest.
func (ns *Namespace) Get(dest string) (any, bool) {
	if dest == DestFileOrDir {
		return ns.FileOrDir, true
	}
	switch p := ns.field(dest).(type) {
	case *bool:
		return *p, true
	case *string:
		return *p, true
	case *[]string:
		return *p, true
	}
	v, ok := ns.Extra[dest]
	return v, ok
}

// SetDefault records v for a plugin destination unless one is already set.
// Built-in destinations keep their zero values as defaults.
func (ns *Namespace) SetDefault(dest string, v any) {
	if _, builtin := builtinKind(dest); builtin || dest == DestFileOrDir {
		return
	}
	if ns.Extra == nil {
		ns.Extra = make(map[string]any)
	}
	if _, ok := ns.Extra[dest]; !ok {
		ns.Extra[dest] = v
	}
}

// Copy returns a deep copy of the namespace.
func (ns *Namespace) Copy() *Namespace {
	c := *ns
	c.Plugins = cloneStrings(ns.Plugins)
	c.OverrideIni = cloneStrings(ns.OverrideIni)
	c.FileOrDir = cloneStrings(ns.FileOrDir)
	c.Extra = maps.Clone(ns.Extra)
	if c.Extra == nil {
		c.Extra = make(map[string]any)
	}
	for k, v := range c.Extra {
		if l, ok := v.([]string); ok {
			c.Extra[k] = cloneStrings(l)
		}
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
