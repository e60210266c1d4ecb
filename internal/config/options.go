package config

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/dshills/distill/internal/config/loader"
	"github.com/dshills/distill/internal/parser"
	"github.com/dshills/distill/internal/plugin"
)

// Environment variables read during bootstrap.
const (
	EnvAddopts = "DISTILL_ADDOPTS"
	EnvDebug   = "DISTILL_DEBUG"
)

// LocalConfigLoader imports the local config modules that apply to the
// invocation. It runs from load_initial_conftests with the known-args
// namespace.
type LocalConfigLoader interface {
	SetInitial(c *Config, ns *parser.Namespace, args []string) error
}

// Options holds a Config's process dependencies. Tests replace them to
// avoid touching the real environment.
type Options struct {
	Getenv func(string) string
	Getwd  func() (string, error)
	FS     loader.FileSystem

	Stdout io.Writer
	Stderr io.Writer

	// Sources resolve plugin names; DefaultCatalog when empty.
	Sources []plugin.Source

	LocalLoader LocalConfigLoader

	// Plugins are registered before the command line is parsed.
	Plugins []plugin.Plugin

	// PluginArgs are handled like -p values before parsing.
	PluginArgs []string

	Version string

	// HelpWidth wraps help output; zero means the terminal width.
	HelpWidth int

	// Tracer receives the debug trace. Main sets it from DISTILL_DEBUG.
	Tracer *log.Logger
}

// Option configures Options.
type Option func(*Options)

// WithGetenv replaces os.Getenv.
func WithGetenv(fn func(string) string) Option {
	return func(o *Options) {
		o.Getenv = fn
	}
}

// WithEnv serves environment lookups from env.
func WithEnv(env map[string]string) Option {
	return WithGetenv(func(k string) string { return env[k] })
}

// WithGetwd replaces os.Getwd.
func WithGetwd(fn func() (string, error)) Option {
	return func(o *Options) {
		o.Getwd = fn
	}
}

// WithDir makes dir the invocation directory.
func WithDir(dir string) Option {
	return WithGetwd(func() (string, error) { return dir, nil })
}

// WithFS replaces the file system used for ini discovery.
func WithFS(fsys loader.FileSystem) Option {
	return func(o *Options) {
		o.FS = fsys
	}
}

// WithOutput sets the writers for regular output and diagnostics.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *Options) {
		o.Stdout = stdout
		o.Stderr = stderr
	}
}

// WithSources sets the plugin sources.
func WithSources(sources ...plugin.Source) Option {
	return func(o *Options) {
		o.Sources = sources
	}
}

// WithLocalLoader sets the loader for local config modules.
func WithLocalLoader(l LocalConfigLoader) Option {
	return func(o *Options) {
		o.LocalLoader = l
	}
}

// WithPlugins registers plugins ahead of parsing.
func WithPlugins(plugins ...plugin.Plugin) Option {
	return func(o *Options) {
		o.Plugins = append(o.Plugins, plugins...)
	}
}

// WithPluginArgs applies -p style values ahead of parsing.
func WithPluginArgs(args ...string) Option {
	return func(o *Options) {
		o.PluginArgs = append(o.PluginArgs, args...)
	}
}

// WithVersion sets the version reported by --version and checked against
// minversion.
func WithVersion(v string) Option {
	return func(o *Options) {
		o.Version = v
	}
}

// WithHelpWidth fixes the help output width.
func WithHelpWidth(w int) Option {
	return func(o *Options) {
		o.HelpWidth = w
	}
}

// WithTracer sends the debug trace to l.
func WithTracer(l *log.Logger) Option {
	return func(o *Options) {
		o.Tracer = l
	}
}

func newOptions(opts []Option) Options {
	o := Options{
		Getenv:  os.Getenv,
		Getwd:   os.Getwd,
		FS:      loader.DefaultFS(),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Version: "dev",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
