// Package conftest loads local config modules: confdistill.lua files found
// in the directories leading to the invocation's targets. Each file is a Lua
// plugin and is registered with the plugin manager under its path.
package conftest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/distill/internal/config"
	"github.com/dshills/distill/internal/luaplugin"
	"github.com/dshills/distill/internal/parser"
	"github.com/dshills/distill/internal/plugin"
)

// FileName is the name of a local config module.
const FileName = "confdistill.lua"

// DuplicatePath records a module reached through a second path that
// resolves to an already imported file.
type DuplicatePath struct {
	Path     string
	Resolved string
	First    string
}

func (d DuplicatePath) String() string {
	return fmt.Sprintf("%s resolves to %s, already imported as %s", d.Path, d.Resolved, d.First)
}

// Loader imports local config modules. It implements
// config.LocalConfigLoader.
//
// A Loader is bound to one Config by SetInitial and is not safe for
// concurrent use.
type Loader struct {
	timeout time.Duration
	logger  *log.Logger

	config     *config.Config
	manager    *plugin.Manager
	confcutdir string
	noconftest bool

	// modules maps a resolved path to its plugin.
	modules map[string]*luaplugin.Plugin
	// seen maps a resolved path to the path it was first imported through.
	seen map[string]string
	// dirs caches the modules that apply to a directory.
	dirs map[string][]*luaplugin.Plugin

	order      []string
	duplicates []DuplicatePath
	closed     bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithTimeout bounds each Lua call of the loaded modules.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.timeout = d
	}
}

// WithLogger traces module imports.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		modules: make(map[string]*luaplugin.Plugin),
		seen:    make(map[string]string),
		dirs:    make(map[string][]*luaplugin.Plugin),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) trace(msg string, keyvals ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, keyvals...)
	}
}

// SetInitial loads the modules for the targets named in ns, or for the
// invocation directory when none of them exist. Node-id suffixes
// ("file::name") are ignored. The loaded modules are closed when c is
// unconfigured.
func (l *Loader) SetInitial(c *config.Config, ns *parser.Namespace, _ []string) error {
	l.config = c
	l.manager = c.PluginManager()
	l.noconftest = ns.NoConftest
	if ns.ConfCutDir != "" {
		l.confcutdir = absFrom(c.InvocationDir(), ns.ConfCutDir)
	}
	c.AddCleanup(l.Close)

	found := false
	for _, target := range ns.FileOrDir {
		path, _, _ := strings.Cut(target, "::")
		anchor := absFrom(c.InvocationDir(), path)
		if _, err := os.Stat(anchor); err != nil {
			continue
		}
		found = true
		if _, err := l.Modules(anchor); err != nil {
			return err
		}
	}
	if !found {
		if _, err := l.Modules(c.InvocationDir()); err != nil {
			return err
		}
	}
	return nil
}

// Modules returns the modules that apply to path, importing them on first
// use. They are ordered from the outermost directory inwards. Directories
// above the confcutdir are skipped.
func (l *Loader) Modules(path string) ([]*luaplugin.Plugin, error) {
	if l.noconftest {
		return nil, nil
	}
	if l.closed {
		return nil, luaplugin.ErrClosed
	}

	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}
	if mods, ok := l.dirs[dir]; ok {
		return mods, nil
	}

	var mods []*luaplugin.Plugin
	for _, parent := range parts(dir) {
		if l.confcutdir != "" && strictlyBelow(l.confcutdir, parent) {
			continue
		}
		candidate := filepath.Join(parent, FileName)
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		mod, err := l.importModule(candidate)
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}
	l.dirs[dir] = mods
	return mods, nil
}

// importModule loads and registers the module at path once per resolved
// file.
func (l *Loader) importModule(path string) (*luaplugin.Plugin, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	if mod, ok := l.modules[resolved]; ok {
		if first := l.seen[resolved]; first != path {
			l.duplicates = append(l.duplicates, DuplicatePath{Path: path, Resolved: resolved, First: first})
			l.trace("duplicate conftest", "path", path, "first", first)
		}
		return mod, nil
	}

	var opts []luaplugin.Option
	if l.timeout > 0 {
		opts = append(opts, luaplugin.WithExecutionTimeout(l.timeout))
	}
	mod, err := luaplugin.Open(resolved, path, opts...)
	if err != nil {
		return nil, importFailure(path, err)
	}
	l.modules[resolved] = mod
	l.seen[resolved] = path
	l.order = append(l.order, resolved)
	l.trace("loaded conftest", "path", path)

	// Directories already cached below the module see it too.
	moddir := filepath.Dir(path)
	for dir, mods := range l.dirs {
		if (dir == moddir || strictlyBelow(dir, moddir)) && !slices.Contains(mods, mod) {
			l.dirs[dir] = append(mods, mod)
		}
	}

	if _, err := l.manager.Register(mod, resolved); err != nil {
		return nil, fmt.Errorf("register %s: %w", path, err)
	}
	return mod, nil
}

// importFailure converts a script error into the failure reported to the
// user, keeping only the script's own frames.
func importFailure(path string, err error) error {
	var le *luaplugin.LoadError
	if !errors.As(err, &le) {
		return &config.LocalConfigImportFailure{Path: path, Err: err}
	}
	return &config.LocalConfigImportFailure{
		Path:      path,
		Err:       errors.New(le.Message()),
		Traceback: le.Traceback(),
	}
}

// Loaded returns the resolved paths of the imported modules in import
// order.
func (l *Loader) Loaded() []string {
	return slices.Clone(l.order)
}

// Duplicates returns the modules that were reached through more than one
// path.
func (l *Loader) Duplicates() []DuplicatePath {
	return slices.Clone(l.duplicates)
}

// Close closes every imported module. It is safe to call more than once.
func (l *Loader) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	var errs []error
	for _, resolved := range l.order {
		if err := l.modules[resolved].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func absFrom(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// parts returns the ancestors of dir from the root down to dir itself.
func parts(dir string) []string {
	var out []string
	for {
		out = append(out, dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	slices.Reverse(out)
	return out
}

// strictlyBelow reports whether p lies inside dir and is not dir itself.
func strictlyBelow(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
