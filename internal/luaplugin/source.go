package luaplugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/distill/internal/plugin"
)

// EnvPluginPath lists extra plugin directories, separated like PATH.
const EnvPluginPath = "DISTILL_PLUGIN_PATH"

// Source resolves plugin names to installed Lua plugins. A plugin is either
// a directory holding plugin.yaml or init.lua, or a single name.lua file.
// Earlier search paths win.
//
// Source implements plugin.Source. Plugins it opens stay open until Close.
type Source struct {
	paths   []string
	timeout time.Duration
	logger  *log.Logger

	discovered map[string]*PluginInfo
	scanned    bool

	opened []*Plugin
}

// PluginInfo contains discovery information about a plugin.
type PluginInfo struct {
	Name     string
	Path     string
	Manifest *Manifest
	Err      error
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithPaths sets the plugin search paths.
func WithPaths(paths ...string) SourceOption {
	return func(s *Source) {
		s.paths = paths
	}
}

// WithTimeout bounds each Lua call of the plugins the source opens.
func WithTimeout(d time.Duration) SourceOption {
	return func(s *Source) {
		s.timeout = d
	}
}

// WithLogger traces plugins that fail discovery. Errors also reports them.
func WithLogger(l *log.Logger) SourceOption {
	return func(s *Source) {
		s.logger = l
	}
}

// NewSource creates a source searching DefaultPaths(os.Getenv) unless
// WithPaths is given.
func NewSource(opts ...SourceOption) *Source {
	s := &Source{
		paths:      DefaultPaths(os.Getenv),
		discovered: make(map[string]*PluginInfo),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultPaths returns the plugin search path: DISTILL_PLUGIN_PATH, then
// $XDG_DATA_HOME/distill/plugins, then ~/.local/share/distill/plugins.
func DefaultPaths(getenv func(string) string) []string {
	var paths []string
	for _, p := range filepath.SplitList(getenv(EnvPluginPath)) {
		if p != "" {
			paths = append(paths, p)
		}
	}
	if xdg := getenv("XDG_DATA_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "distill", "plugins"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".local", "share", "distill", "plugins"))
	}
	return paths
}

// Paths returns the configured search paths.
func (s *Source) Paths() []string {
	return s.paths
}

// Discover scans the search paths and returns every plugin found, sorted
// by name.
func (s *Source) Discover() []*PluginInfo {
	s.discovered = make(map[string]*PluginInfo)
	for _, base := range s.paths {
		if err := s.discoverInPath(base); err != nil && s.logger != nil {
			s.logger.Debug("skipping plugin path", "path", base, "err", err)
		}
	}
	s.scanned = true
	return s.sorted()
}

func (s *Source) sorted() []*PluginInfo {
	plugins := make([]*PluginInfo, 0, len(s.discovered))
	for _, info := range s.discovered {
		plugins = append(plugins, info)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Name < plugins[j].Name
	})
	return plugins
}

// list returns the plugins from the last scan, scanning once if needed.
func (s *Source) list() []*PluginInfo {
	if !s.scanned {
		return s.Discover()
	}
	return s.sorted()
}

func (s *Source) discoverInPath(base string) error {
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(base, entry.Name())
		var info *PluginInfo
		if entry.IsDir() {
			info = inspectDir(entry.Name(), path)
		} else if filepath.Ext(entry.Name()) == ".lua" {
			name := strings.TrimSuffix(entry.Name(), ".lua")
			info = &PluginInfo{Name: name, Path: base, Manifest: newSingleFileManifest(name, path)}
		} else {
			continue
		}

		if info.Err != nil && s.logger != nil {
			s.logger.Debug("invalid plugin", "path", path, "err", info.Err)
		}
		if _, exists := s.discovered[info.Name]; !exists {
			s.discovered[info.Name] = info
		}
	}
	return nil
}

// inspectDir examines a plugin directory.
func inspectDir(name, path string) *PluginInfo {
	info := &PluginInfo{Name: name, Path: path}

	if _, err := os.Stat(filepath.Join(path, ManifestFile)); err == nil {
		m, err := LoadManifestFromDir(path)
		if err != nil {
			info.Err = fmt.Errorf("invalid manifest: %w", err)
			return info
		}
		info.Manifest = m
		info.Name = m.Name
		return info
	}

	if _, err := os.Stat(filepath.Join(path, "init.lua")); err == nil {
		info.Manifest = newSingleFileManifest(name, filepath.Join(path, "init.lua"))
		return info
	}

	info.Err = ErrNoEntryPoint
	return info
}

// Get returns discovery info for name.
func (s *Source) Get(name string) (*PluginInfo, bool) {
	s.list()
	info, ok := s.discovered[name]
	return info, ok
}

// Errors returns the plugins that failed discovery.
func (s *Source) Errors() []*PluginInfo {
	var errored []*PluginInfo
	for _, info := range s.list() {
		if info.Err != nil {
			errored = append(errored, info)
		}
	}
	return errored
}

// Lookup implements plugin.Source.
func (s *Source) Lookup(name string) (plugin.Factory, bool) {
	info, ok := s.Get(name)
	if !ok {
		return nil, false
	}
	return s.factory(info), true
}

// EntryPoints implements plugin.Source. Plugins that failed discovery are
// left out.
func (s *Source) EntryPoints(group string) []plugin.EntryPoint {
	var eps []plugin.EntryPoint
	for _, info := range s.list() {
		if info.Err != nil || !info.Manifest.Advertises(group) {
			continue
		}
		eps = append(eps, plugin.EntryPoint{
			Name:  info.Name,
			Group: group,
			Dist:  info.Manifest.Dist(),
			Load:  s.factory(info),
		})
	}
	return eps
}

func (s *Source) factory(info *PluginInfo) plugin.Factory {
	return func() (plugin.Plugin, error) {
		if info.Err != nil {
			return nil, info.Err
		}
		var opts []Option
		if s.timeout > 0 {
			opts = append(opts, WithExecutionTimeout(s.timeout))
		}
		opts = append(opts, WithRequires(info.Manifest.Requires...))
		p, err := Open(info.Name, info.Manifest.MainPath(), opts...)
		if err != nil {
			return nil, err
		}
		s.opened = append(s.opened, p)
		return p, nil
	}
}

// Close closes every plugin the source opened and returns their errors
// joined.
func (s *Source) Close() error {
	var errs []error
	for _, p := range s.opened {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close plugin %s: %w", p.PluginName(), err))
		}
	}
	s.opened = nil
	return errors.Join(errs...)
}
