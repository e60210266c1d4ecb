package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/Masterminds/semver/v3"
	"mvdan.cc/sh/v3/shell"

	"github.com/dshills/distill/internal/hook"
	"github.com/dshills/distill/internal/parser"
	"github.com/dshills/distill/internal/plugin"
)

// Parse runs the bootstrap for subcmd and args: environment and ini
// addopts, ini discovery, plugin loading, local config modules and the
// final option parse. It may be called once.
//
// When --help or --version is given Parse stops after the final parse
// without error and Args stays empty.
func (c *Config) Parse(subcmd string, args []string) error {
	if c.state != StateCreated {
		return ErrAlreadyParsed
	}
	c.subcmd = subcmd
	c.origArgs = slices.Clone(args)

	if err := c.Hooks().CallHistoric(plugin.HookAddHooks, hook.Args{"pluginmanager": c.manager}, nil); err != nil {
		return err
	}

	args, err := c.preparse(subcmd, slices.Clone(args))
	if err != nil {
		return err
	}

	positional, err := c.parser.ParseSetOption(subcmd, args, c.option)
	if errors.Is(err, parser.ErrPrintHelp) {
		c.trace("help requested, skipping argument resolution")
		return nil
	}
	if err != nil {
		return parseUsageError(err)
	}
	if len(positional) == 0 {
		if c.invocationDir == c.rootDir {
			if positional, err = c.GetIniStrings("testpaths"); err != nil {
				return err
			}
		}
		if len(positional) == 0 {
			positional = []string{c.invocationDir}
		}
	}
	c.args = positional
	return c.advance(StateOptionsParsed)
}

// preparse runs every bootstrap step before the final parse and returns
// the effective argument list.
func (c *Config) preparse(subcmd string, args []string) ([]string, error) {
	addopts, err := shell.Fields(c.opts.Getenv(EnvAddopts), c.opts.Getenv)
	if err != nil {
		return nil, &UsageError{Msg: "invalid " + EnvAddopts, Err: err}
	}
	args = append(addopts, args...)
	if err := c.advance(StatePreParsed); err != nil {
		return nil, err
	}

	if err := c.initIni(subcmd, args); err != nil {
		return nil, err
	}
	iniAddopts, err := c.GetIniStrings("addopts")
	if err != nil {
		return nil, err
	}
	args = append(slices.Clone(iniAddopts), args...)

	if err := c.checkVersion(); err != nil {
		return nil, err
	}
	if err := c.loadPlugins(subcmd, args); err != nil {
		return nil, err
	}

	known, _, err := c.parser.ParseKnownAndUnknownArgs(subcmd, args, c.option.Copy())
	if err != nil {
		return nil, parseUsageError(err)
	}
	if known.ConfCutDir == "" && c.iniFile != "" {
		known.ConfCutDir = filepath.Dir(c.iniFile)
	}
	c.known = known

	_, err = c.Hooks().Call(plugin.HookLoadInitialConftests, hook.Args{
		"early_config": c,
		"parser":       c.parser,
		"args":         slices.Clone(args),
	})
	var failure *LocalConfigImportFailure
	if errors.As(err, &failure) && (known.Help || known.Version) {
		if werr := c.Warn("I1", fmt.Sprintf("could not load initial conftests (%s)", failure.Path)); werr != nil {
			return nil, werr
		}
		err = nil
	}
	if err != nil {
		return nil, err
	}
	if err := c.advance(StateConftestsLoaded); err != nil {
		return nil, err
	}
	return args, nil
}

// initIni resolves the ini file and rootdir from a tolerant parse and
// declares the ini keys every invocation understands.
func (c *Config) initIni(subcmd string, args []string) error {
	ns, unknown, err := c.parser.ParseKnownAndUnknownArgs(subcmd, args, c.option.Copy())
	if err != nil {
		return parseUsageError(err)
	}

	finder := &setupFinder{
		fs:     c.opts.FS,
		cwd:    c.invocationDir,
		getenv: c.opts.Getenv,
		warn: func(code, message string) {
			_ = c.Warn(code, message)
		},
	}
	setup, err := finder.determine(ns.IniFile, append(slices.Clone(ns.FileOrDir), unknown...), ns.RootDir)
	if err != nil {
		return err
	}
	c.rootDir, c.iniFile, c.iniCfg, c.iniLists = setup.rootDir, setup.iniFile, setup.cfg, setup.lists
	c.trace("ini resolved", "rootdir", c.rootDir, "inifile", c.iniFile)

	c.parser.SetExtraInfo("rootdir", c.rootDir)
	c.parser.SetExtraInfo("inifile", c.iniFile)

	for _, spec := range []parser.IniSpec{
		{Name: "addopts", Help: "extra command line options", Type: parser.IniArgs},
		{Name: "minversion", Help: "minimally required distill version", Type: parser.IniString},
		{Name: "testpaths", Help: "directories to use when no file or directory is given on the command line", Type: parser.IniArgs},
	} {
		if err := c.parser.AddIni(spec.Name, spec.Help, spec.Type, spec.Default); err != nil {
			return err
		}
	}
	c.overrideIni = slices.Clone(ns.OverrideIni)
	return c.advance(StateIniResolved)
}

// checkVersion enforces the ini minversion against the running version.
// Development builds without a semantic version are never rejected.
func (c *Config) checkVersion() error {
	v, err := c.GetIni("minversion")
	if err != nil {
		return err
	}
	minver, _ := v.(string)
	if minver == "" {
		return nil
	}
	required, err := semver.NewVersion(minver)
	if err != nil {
		return usageErrorf("%s: invalid minversion %q", c.iniFile, minver)
	}
	current, err := semver.NewVersion(c.opts.Version)
	if err != nil {
		c.trace("skipping minversion check", "version", c.opts.Version)
		return nil
	}
	if current.LessThan(required) {
		return usageErrorf("%s: requires distill-%s, actual distill-%s", c.iniFile, minver, c.opts.Version)
	}
	return nil
}

// loadPlugins applies -p arguments, entry points, the subcommand plugin
// and DISTILL_PLUGINS, in that order. Blocks from DISTILL_PLUGINS take
// effect before any entry point loads.
func (c *Config) loadPlugins(subcmd string, args []string) error {
	if err := c.manager.ConsiderPreparse(subcmd, args); err != nil {
		return err
	}
	c.manager.ConsiderEnvBlocks()
	if _, err := c.manager.LoadEntryPoints(plugin.EntryPointGroup); err != nil {
		return err
	}
	if err := c.manager.ImportSubcommand(subcmd); err != nil {
		return err
	}
	return c.manager.ConsiderEnv()
}

func parseUsageError(err error) error {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return &UsageError{Err: err}
	}
	return err
}
