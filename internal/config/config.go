package config

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"mvdan.cc/sh/v3/shell"

	"github.com/dshills/distill/internal/config/loader"
	"github.com/dshills/distill/internal/hook"
	"github.com/dshills/distill/internal/parser"
	"github.com/dshills/distill/internal/plugin"
)

// CorePluginName is the name the Config registers its own hooks under.
const CorePluginName = "distillconfig"

// Config drives the bootstrap of one invocation and gives plugins access
// to the resolved options, ini values and plugin manager.
//
// A Config is not safe for concurrent use.
type Config struct {
	opts    Options
	manager *plugin.Manager
	parser  *parser.Parser
	tracer  *log.Logger

	state State
	id    string

	// option is the final namespace; known is the known-args pre-parse.
	option   *parser.Namespace
	known    *parser.Namespace
	opt2dest map[string]string

	subcmd   string
	args     []string
	origArgs []string

	invocationDir string
	rootDir       string
	iniFile       string
	iniCfg        loader.Section
	iniLists      map[string][]string
	iniCache      map[string]any
	overrideIni   []string

	namespace map[string]any
	warnings  []Warning
	cleanup   []func() error
}

// New creates a Config bound to m and registers its core plugin. The
// namespace and addoption hooks are fired here, so plugins registered
// later still receive them.
func New(m *plugin.Manager, opts ...Option) (*Config, error) {
	c := &Config{
		opts:      newOptions(opts),
		manager:   m,
		id:        uuid.NewString(),
		option:    parser.NewNamespace(),
		opt2dest:  map[string]string{parser.DestFileOrDir: parser.DestFileOrDir},
		iniCfg:    loader.Section{},
		iniCache:  make(map[string]any),
		namespace: make(map[string]any),
	}
	if c.opts.Tracer != nil {
		c.tracer = c.opts.Tracer.WithPrefix("distill config")
	}

	cwd, err := c.opts.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine invocation dir: %w", err)
	}
	c.invocationDir = cwd

	c.parser = parser.New("distill", "distill subcommand [options] [file_or_dir] [file_or_dir] [...]", c.processopt)

	if _, err := m.Register(&corePlugin{config: c}, CorePluginName); err != nil {
		return nil, err
	}
	err = m.Hooks().CallHistoric(plugin.HookNamespace, hook.Args{}, func(result any) error {
		entries, ok := result.(map[string]any)
		if !ok {
			return fmt.Errorf("namespace hook returned %T, want map[string]any", result)
		}
		maps.Copy(c.namespace, entries)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := m.Hooks().CallHistoric(plugin.HookAddOption, hook.Args{"parser": c.parser}, nil); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) trace(msg string, keyvals ...any) {
	if c.tracer != nil {
		c.tracer.Debug(msg, keyvals...)
	}
}

// processopt records the flag to dest mapping of every accepted option and
// seeds its default into the option namespace.
func (c *Config) processopt(opt *parser.Option) {
	for _, name := range opt.Names {
		c.opt2dest[strings.TrimLeft(name, "-")] = opt.Dest
		c.opt2dest[name] = opt.Dest
	}
	c.opt2dest[opt.Dest] = opt.Dest
	if opt.Default != nil {
		c.option.SetDefault(opt.Dest, opt.Default)
	}
}

// PluginManager returns the plugin manager.
func (c *Config) PluginManager() *plugin.Manager {
	return c.manager
}

// Hooks returns the hook registry.
func (c *Config) Hooks() *hook.Registry {
	return c.manager.Hooks()
}

// Parser returns the option parser.
func (c *Config) Parser() *parser.Parser {
	return c.parser
}

// InvocationID identifies this run in traces.
func (c *Config) InvocationID() string {
	return c.id
}

// Version returns the program version.
func (c *Config) Version() string {
	return c.opts.Version
}

// Stdout returns the writer for regular output.
func (c *Config) Stdout() io.Writer {
	return c.opts.Stdout
}

// Stderr returns the writer for diagnostics.
func (c *Config) Stderr() io.Writer {
	return c.opts.Stderr
}

// Getenv reads an environment variable through the configured lookup.
func (c *Config) Getenv(key string) string {
	return c.opts.Getenv(key)
}

// Subcommand returns the subcommand being run.
func (c *Config) Subcommand() string {
	return c.subcmd
}

// Args returns the positional arguments after parsing.
func (c *Config) Args() []string {
	return slices.Clone(c.args)
}

// OrigArgs returns the arguments Parse was called with.
func (c *Config) OrigArgs() []string {
	return slices.Clone(c.origArgs)
}

// InvocationDir returns the directory the program was started in.
func (c *Config) InvocationDir() string {
	return c.invocationDir
}

// RootDir returns the resolved root directory.
func (c *Config) RootDir() string {
	return c.rootDir
}

// IniFile returns the ini file in use, or "".
func (c *Config) IniFile() string {
	return c.iniFile
}

// IniConfig returns a copy of the raw ini section.
func (c *Config) IniConfig() map[string]string {
	return maps.Clone(c.iniCfg)
}

// Option returns a copy of the parsed option namespace.
func (c *Config) Option() *parser.Namespace {
	return c.option.Copy()
}

// KnownArgs returns a copy of the namespace from the known-args pre-parse,
// or nil before it ran.
func (c *Config) KnownArgs() *parser.Namespace {
	if c.known == nil {
		return nil
	}
	return c.known.Copy()
}

// GetOption returns the value of an option by flag name or dest.
func (c *Config) GetOption(name string) (any, error) {
	dest, ok := c.opt2dest[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOption, name)
	}
	v, _ := c.option.Get(dest)
	return v, nil
}

// GetOptionOr is GetOption with def returned for unknown or unset options.
func (c *Config) GetOptionOr(name string, def any) any {
	v, err := c.GetOption(name)
	if err != nil || v == nil {
		return def
	}
	return v
}

// GetIni returns the value of a declared ini key. An -o override wins over
// the ini file, which wins over the declared default. The value is typed
// by the key's IniType and cached.
func (c *Config) GetIni(name string) (any, error) {
	if v, ok := c.iniCache[name]; ok {
		return v, nil
	}
	v, err := c.getIni(name)
	if err != nil {
		return nil, err
	}
	c.iniCache[name] = v
	return v, nil
}

func (c *Config) getIni(name string) (any, error) {
	spec, ok := c.parser.Ini(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIni, name)
	}
	raw, ok, err := c.override(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Array values keep their elements as written.
		if elems, isList := c.iniLists[name]; isList {
			switch spec.Type {
			case parser.IniPathList:
				return c.iniPaths(elems), nil
			case parser.IniArgs, parser.IniLineList:
				return nonNil(slices.Clone(elems)), nil
			}
		}
		raw, ok = c.iniCfg[name]
	}
	if !ok {
		return spec.DefaultValue(), nil
	}

	switch spec.Type {
	case parser.IniPathList:
		return c.iniPaths(strings.Fields(raw)), nil
	case parser.IniArgs:
		fields, err := shell.Fields(raw, c.opts.Getenv)
		if err != nil {
			return nil, &UsageError{Msg: "invalid value for ini key " + name, Err: err}
		}
		return nonNil(fields), nil
	case parser.IniLineList:
		var lines []string
		for _, l := range strings.Split(raw, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
		return nonNil(lines), nil
	case parser.IniBool:
		b, err := parseBool(raw)
		if err != nil {
			return nil, &UsageError{Msg: "invalid value for ini key " + name, Err: err}
		}
		return b, nil
	}
	return raw, nil
}

// iniPaths resolves relative paths against the ini file's directory.
func (c *Config) iniPaths(elems []string) []string {
	base := c.rootDir
	if c.iniFile != "" {
		base = filepath.Dir(c.iniFile)
	}
	paths := make([]string, 0, len(elems))
	for _, p := range elems {
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		paths = append(paths, p)
	}
	return paths
}

// GetIniStrings is GetIni for list-typed keys.
func (c *Config) GetIniStrings(name string) ([]string, error) {
	v, err := c.GetIni(name)
	if err != nil {
		return nil, err
	}
	l, ok := v.([]string)
	if !ok {
		return nil, fmt.Errorf("ini key %s is %T, not a list", name, v)
	}
	return l, nil
}

// override returns the last -o value given for name.
func (c *Config) override(name string) (string, bool, error) {
	var (
		value string
		found bool
	)
	for _, entry := range c.overrideIni {
		key, val, ok := strings.Cut(entry, "=")
		if !ok {
			return "", false, usageErrorf("-o/--override-ini expects option=value style.")
		}
		if key == name {
			value, found = val, true
		}
	}
	return value, found, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "t", "true", "on", "1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid truth value %q", s)
}

// AddIniValue registers an ini key from a plugin at any point. Cached
// values are kept.
func (c *Config) AddIniValue(name, help string, typ parser.IniType, def any) error {
	return c.parser.AddIni(name, help, typ, def)
}

// Namespace returns a copy of the entries plugins contributed through the
// namespace hook.
func (c *Config) Namespace() map[string]any {
	return maps.Clone(c.namespace)
}

// Warn records a warning through the logwarning hook.
func (c *Config) Warn(code, message string) error {
	return c.manager.Warn(code, message)
}

// Warnings returns every warning recorded so far, including those issued
// before the Config existed.
func (c *Config) Warnings() []Warning {
	return slices.Clone(c.warnings)
}

// AddCleanup registers fn to run when the Config is unconfigured. Cleanups
// run in reverse order of registration.
func (c *Config) AddCleanup(fn func() error) {
	c.cleanup = append(c.cleanup, fn)
}

// DoConfigure fires the configure hook.
func (c *Config) DoConfigure() error {
	if err := c.advance(StateConfigured); err != nil {
		return err
	}
	return c.Hooks().CallHistoric(plugin.HookConfigure, hook.Args{"config": c}, nil)
}

// EnsureUnconfigure fires unconfigure once if the Config was configured and
// then drains the cleanup stack. It is safe to call more than once.
func (c *Config) EnsureUnconfigure() error {
	var errs []error
	if c.state == StateConfigured {
		c.state = StateUnconfigured
		if _, err := c.Hooks().Call(plugin.HookUnconfigure, hook.Args{"config": c}); err != nil {
			errs = append(errs, err)
		}
		c.Hooks().ClearHistory(plugin.HookConfigure)
	}
	c.state = StateUnconfigured
	for len(c.cleanup) > 0 {
		fn := c.cleanup[len(c.cleanup)-1]
		c.cleanup = c.cleanup[:len(c.cleanup)-1]
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
