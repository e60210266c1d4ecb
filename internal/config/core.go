package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dshills/distill/internal/hook"
	"github.com/dshills/distill/internal/parser"
	"github.com/dshills/distill/internal/plugin"
)

// corePlugin holds the Config's own hook implementations.
type corePlugin struct {
	config *Config
}

func (p *corePlugin) PluginName() string { return CorePluginName }

func (p *corePlugin) Register(r *plugin.Registrar) error {
	c := p.config
	OnAddOption(r, addCoreOptions)
	OnLogWarning(r, func(w Warning) error {
		c.warnings = append(c.warnings, w)
		c.trace("warning", "code", w.Code, "message", w.Message)
		return nil
	})
	OnCmdlineParse(r, func(_ *plugin.Manager, subcmd string, args []string) (*Config, error) {
		if err := c.Parse(subcmd, args); err != nil {
			return nil, err
		}
		return c, nil
	})
	OnCmdlineMain(r, func(c *Config) (int, bool, error) {
		switch {
		case c.option.Version:
			return ExitOK, true, c.showVersion(c.Stdout())
		case c.option.Help:
			return ExitOK, true, c.showHelp(c.Stdout())
		}
		return 0, false, nil
	}, hook.TryFirst())
	OnLoadInitialConftests(r, func(c *Config, _ *parser.Parser, args []string) error {
		if c.opts.LocalLoader == nil {
			return nil
		}
		return c.opts.LocalLoader.SetInitial(c, c.known, args)
	}, hook.TryLast())
	return nil
}

// addCoreOptions declares the options every invocation understands.
func addCoreOptions(p *parser.Parser) error {
	general := p.GetGroup("general", "general", "")
	generalOpts := []*parser.Option{
		{Names: []string{"-h", "--help"}, Kind: parser.KindBool, Help: "show help message and configuration info"},
		{Names: []string{"--version"}, Kind: parser.KindBool, Help: "display distill version and information about plugins"},
		{Names: []string{"-p", "--plugin"}, Dest: parser.DestPlugins, Kind: parser.KindAppend,
			Help: "early-load the given plugin module name or entry point (multi-allowed); 'no:NAME' blocks a plugin"},
	}
	for _, opt := range generalOpts {
		if err := general.AddOption(opt); err != nil {
			return err
		}
	}

	cfg := p.GetGroup("distill-config", "configuration", "general")
	configOpts := []*parser.Option{
		{Names: []string{"-o", "--override-ini"}, Dest: parser.DestOverrideIni, Kind: parser.KindAppend,
			Help: "override ini option with \"option=value\" style, e.g. -o addopts=-x"},
		{Names: []string{"-c", "--inifile"}, Dest: parser.DestIniFile, Kind: parser.KindString,
			Help: "load configuration from FILE instead of trying to locate one of the implicit configuration files"},
		{Names: []string{"--rootdir"}, Kind: parser.KindString,
			Help: "define root directory for tests; environment variables may be used"},
		{Names: []string{"--confcutdir"}, Kind: parser.KindString,
			Help: "only load confdistill.lua files relative to the specified dir"},
		{Names: []string{"--noconftest"}, Kind: parser.KindBool,
			Help: "don't load any confdistill.lua files"},
	}
	for _, opt := range configOpts {
		if err := cfg.AddOption(opt); err != nil {
			return err
		}
	}
	return nil
}

// showHelp writes usage, options, ini keys and the resolved setup.
func (c *Config) showHelp(w io.Writer) error {
	if err := c.parser.Help(w, c.subcmd, c.helpWidth()); err != nil {
		return err
	}
	if err := c.parser.IniHelp(w, "[distill] ini-options in the first distill.ini|distill.toml|tox.ini|setup.cfg file found:"); err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("\nenvironment variables:\n")
	fmt.Fprintf(&b, "  %-24s extra command line options\n", EnvAddopts)
	fmt.Fprintf(&b, "  %-24s comma-separated plugins to load during startup\n", plugin.EnvPlugins)
	fmt.Fprintf(&b, "  %-24s set to enable the debug trace\n", EnvDebug)
	for _, line := range c.parser.ExtraInfo() {
		fmt.Fprintf(&b, "%s\n", line)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// showVersion writes the version and any plugins loaded from entry points.
func (c *Config) showVersion(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "This is distill version %s\n", c.opts.Version)
	if dist := c.manager.DistInfo(); len(dist) > 0 {
		b.WriteString("registered plugins:\n")
		for _, d := range dist {
			fmt.Fprintf(&b, "  %s (%s)\n", d.Name, d.Dist)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (c *Config) helpWidth() int {
	if c.opts.HelpWidth > 0 {
		return c.opts.HelpWidth
	}
	if f, ok := c.opts.Stdout.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 80
}
