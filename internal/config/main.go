package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/dshills/distill/internal/hook"
	"github.com/dshills/distill/internal/plugin"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitInternalError = 3
	ExitUsageError    = 4
)

// Main runs one invocation and returns its exit code. args[0] is the
// subcommand unless it starts with "-".
func Main(args []string, opts ...Option) int {
	o := newOptions(opts)
	if o.Tracer == nil && o.Getenv(EnvDebug) != "" {
		var closeTrace func()
		o.Tracer, closeTrace = NewTracer(o.Stderr)
		defer closeTrace()
		opts = append(opts, WithTracer(o.Tracer))
	}

	subcmd, rest := splitSubcommand(args)
	c, err := prepare(subcmd, rest, o, opts)
	if err != nil {
		return report(o.Stderr, err)
	}

	code, err := run(c)
	if uerr := c.EnsureUnconfigure(); uerr != nil && err == nil {
		err = uerr
	}
	printWarnings(o.Stderr, c.Warnings())
	if err != nil {
		return report(o.Stderr, err)
	}
	return code
}

// NewTracer returns the debug logger used for DISTILL_DEBUG. It writes to a
// duplicate of w's descriptor when w is a file; call the returned func to
// release it.
func NewTracer(w io.Writer) (*log.Logger, func()) {
	tw, closeTrace := traceWriter(w)
	return log.NewWithOptions(tw, log.Options{
		Level:  log.DebugLevel,
		Prefix: "distill",
	}), closeTrace
}

func splitSubcommand(args []string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", args
	}
	return args[0], args[1:]
}

// prepare builds the manager and Config and runs cmdline_parse.
func prepare(subcmd string, args []string, o Options, opts []Option) (*Config, error) {
	mopts := []plugin.ManagerOption{plugin.WithGetenv(o.Getenv)}
	if len(o.Sources) > 0 {
		mopts = append(mopts, plugin.WithSources(o.Sources...))
	}
	m, err := plugin.NewManager(mopts...)
	if err != nil {
		return nil, err
	}
	if o.Tracer != nil {
		m.EnableTracing(o.Tracer)
	}

	c, err := New(m, opts...)
	if err != nil {
		return nil, err
	}
	if c.tracer != nil {
		c.tracer = c.tracer.With("invocation", c.id)
	}

	for _, p := range o.Plugins {
		if _, err := m.Register(p, ""); err != nil {
			_ = c.EnsureUnconfigure()
			return nil, err
		}
	}
	for _, arg := range o.PluginArgs {
		if err := m.ConsiderPluginArg(arg); err != nil {
			_ = c.EnsureUnconfigure()
			return nil, err
		}
	}

	res, err := m.Hooks().CallFirst(plugin.HookCmdlineParse, hook.Args{
		"pluginmanager": m,
		"subcmd":        subcmd,
		"args":          args,
	})
	if err != nil {
		printWarnings(o.Stderr, c.Warnings())
		_ = c.EnsureUnconfigure()
		return nil, err
	}
	parsed, ok := res.(*Config)
	if !ok {
		_ = c.EnsureUnconfigure()
		return nil, fmt.Errorf("cmdline_parse returned %T, want *config.Config", res)
	}
	return parsed, nil
}

// run configures c and dispatches cmdline_main.
func run(c *Config) (int, error) {
	if err := c.DoConfigure(); err != nil {
		return 0, err
	}
	res, err := c.Hooks().CallFirst(plugin.HookCmdlineMain, hook.Args{"config": c})
	if err != nil {
		return 0, err
	}
	if res == nil {
		if c.subcmd == "" {
			return 0, &UsageError{Err: fmt.Errorf("%w: none given", ErrUnknownSubcommand)}
		}
		return 0, &UsageError{Err: fmt.Errorf("%w %q", ErrUnknownSubcommand, c.subcmd)}
	}
	code, ok := res.(int)
	if !ok {
		return 0, fmt.Errorf("cmdline_main returned %T, want int", res)
	}
	return code, nil
}

// report prints err and returns the matching exit code.
func report(w io.Writer, err error) int {
	style := lipgloss.NewRenderer(w).NewStyle().Foreground(lipgloss.Color("196"))

	var (
		failure   *LocalConfigImportFailure
		usage     *UsageError
		importErr *plugin.ImportError
	)
	switch {
	case errors.As(err, &failure):
		lines := []string{"Traceback (most recent call first):"}
		for _, frame := range failure.Traceback {
			lines = append(lines, "  "+frame)
		}
		lines = append(lines, strings.Split(failure.Err.Error(), "\n")...)
		lines = append(lines, "ERROR: could not load "+failure.Path)
		for _, line := range lines {
			fmt.Fprintln(w, style.Render(line))
		}
		return ExitUsageError
	case errors.As(err, &usage), errors.As(err, &importErr):
		fmt.Fprintln(w, style.Render("ERROR: "+err.Error()))
		return ExitUsageError
	}
	fmt.Fprintln(w, style.Bold(true).Render("INTERNAL ERROR: "+err.Error()))
	return ExitInternalError
}

func printWarnings(w io.Writer, warnings []Warning) {
	if len(warnings) == 0 {
		return
	}
	logger := log.NewWithOptions(w, log.Options{Prefix: "distill"})
	for _, warn := range warnings {
		logger.Warn(warn.Message, "code", warn.Code)
	}
}
