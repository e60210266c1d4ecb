// Package main is the entry point for the distill command.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	_ "github.com/dshills/distill/internal/builtin/showconfig"
	"github.com/dshills/distill/internal/config"
	"github.com/dshills/distill/internal/conftest"
	"github.com/dshills/distill/internal/luaplugin"
	"github.com/dshills/distill/internal/plugin"
)

// version is set via ldflags during build.
var version = "dev"

// luaTimeout bounds every Lua call made by installed plugins and conftests.
const luaTimeout = 30 * time.Second

// ExitError carries the exit code of an invocation out of RunE.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return config.ExitInternalError
	}
	return config.ExitOK
}

// newRootCmd builds the root command. distill parses its own command line
// because the grammar is only known once plugins have registered options.
func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "distill [subcommand] [options] [file_or_dir ...]",
		Short:              "An extensible command-line tool driven by plugins",
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code := invoke(args); code != config.ExitOK {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
}

func invoke(args []string) int {
	// One tracer serves the bootstrap and both Lua loaders. Nil disables
	// tracing everywhere.
	var tracer *log.Logger
	if os.Getenv(config.EnvDebug) != "" {
		var closeTrace func()
		tracer, closeTrace = config.NewTracer(os.Stderr)
		defer closeTrace()
	}

	source := luaplugin.NewSource(
		luaplugin.WithTimeout(luaTimeout),
		luaplugin.WithLogger(tracer),
	)
	defer func() {
		if err := source.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "distill: closing plugins:", err)
		}
	}()

	opts := []config.Option{
		config.WithVersion(version),
		config.WithSources(plugin.DefaultCatalog(), source),
		config.WithPlugins(discoveryReport(source)),
		config.WithLocalLoader(conftest.NewLoader(
			conftest.WithTimeout(luaTimeout),
			conftest.WithLogger(tracer),
		)),
	}
	if tracer != nil {
		opts = append(opts, config.WithTracer(tracer))
	}
	return config.Main(args, opts...)
}

// discoveryReport warns, once the config is set up, about installed
// plugins that could not be read.
func discoveryReport(source *luaplugin.Source) plugin.Plugin {
	return plugin.NewFuncPlugin("luadiscovery", func(r *plugin.Registrar) error {
		config.OnConfigure(r, func(c *config.Config) error {
			for _, info := range source.Errors() {
				msg := fmt.Sprintf("skipping installed plugin %s (%s): %v", info.Name, info.Path, info.Err)
				if err := c.Warn("P1", msg); err != nil {
					return err
				}
			}
			return nil
		})
		return nil
	})
}
