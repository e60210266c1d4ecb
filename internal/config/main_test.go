package config

import (
	"bytes"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/dshills/distill/internal/parser"
	"github.com/dshills/distill/internal/plugin"
)

// failingLoader fails every local config import.
type failingLoader struct {
	path  string
	calls int
}

func (l *failingLoader) SetInitial(*Config, *parser.Namespace, []string) error {
	l.calls++
	return &LocalConfigImportFailure{
		Path:      l.path,
		Err:       errors.New("confdistill.lua:3: attempt to call a nil value"),
		Traceback: []string{"confdistill.lua:3: in main chunk"},
	}
}

type mainResult struct {
	code   int
	stdout string
	stderr string
}

func runMain(t *testing.T, dir string, args []string, opts ...Option) mainResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	opts = append([]Option{
		WithDir(dir),
		WithEnv(nil),
		WithOutput(&stdout, &stderr),
		WithSources(plugin.NewCatalog()),
		WithHelpWidth(100),
	}, opts...)
	code := Main(args, opts...)
	return mainResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func rootWithIni(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "distill.ini"), "[distill]\n")
	return root
}

func TestMainSubcommand(t *testing.T) {
	root := rootWithIni(t)
	var log []string
	p := plugin.NewFuncPlugin("greet", func(r *plugin.Registrar) error {
		OnConfigure(r, func(*Config) error {
			log = append(log, "configure")
			return nil
		})
		OnCmdlineMain(r, func(c *Config) (int, bool, error) {
			if c.Subcommand() != "greet" {
				return 0, false, nil
			}
			log = append(log, "main "+strings.Join(c.Args(), ","))
			return 7, true, nil
		})
		OnUnconfigure(r, func(*Config) error {
			log = append(log, "unconfigure")
			return nil
		})
		return nil
	})

	res := runMain(t, root, []string{"greet", "x"}, WithPlugins(p))
	if res.code != 7 {
		t.Fatalf("Main() = %d, want 7; stderr:\n%s", res.code, res.stderr)
	}
	want := []string{"configure", "main x", "unconfigure"}
	if !slices.Equal(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestMainUnknownSubcommand(t *testing.T) {
	res := runMain(t, rootWithIni(t), []string{"frob"})
	if res.code != ExitUsageError {
		t.Errorf("Main() = %d, want %d", res.code, ExitUsageError)
	}
	if !strings.Contains(res.stderr, `unknown subcommand "frob"`) {
		t.Errorf("stderr = %q", res.stderr)
	}
}

func TestMainNoSubcommand(t *testing.T) {
	res := runMain(t, rootWithIni(t), nil)
	if res.code != ExitUsageError {
		t.Errorf("Main() = %d, want %d", res.code, ExitUsageError)
	}
	if !strings.Contains(res.stderr, "none given") {
		t.Errorf("stderr = %q", res.stderr)
	}
}

func TestMainUsageError(t *testing.T) {
	res := runMain(t, rootWithIni(t), []string{"run", "--no-such-flag"})
	if res.code != ExitUsageError {
		t.Errorf("Main() = %d, want %d", res.code, ExitUsageError)
	}
	if !strings.Contains(res.stderr, "ERROR:") {
		t.Errorf("stderr = %q", res.stderr)
	}
}

func TestMainMissingPlugin(t *testing.T) {
	res := runMain(t, rootWithIni(t), []string{"run", "-p", "nowhere"})
	if res.code != ExitUsageError {
		t.Errorf("Main() = %d, want %d", res.code, ExitUsageError)
	}
	if !strings.Contains(res.stderr, "nowhere") {
		t.Errorf("stderr = %q", res.stderr)
	}
}

func TestMainInternalError(t *testing.T) {
	p := plugin.NewFuncPlugin("broken", func(r *plugin.Registrar) error {
		OnCmdlineMain(r, func(*Config) (int, bool, error) {
			return 0, false, errors.New("kaput")
		})
		return nil
	})
	res := runMain(t, rootWithIni(t), []string{"run"}, WithPlugins(p))
	if res.code != ExitInternalError {
		t.Errorf("Main() = %d, want %d", res.code, ExitInternalError)
	}
	if !strings.Contains(res.stderr, "INTERNAL ERROR: kaput") {
		t.Errorf("stderr = %q", res.stderr)
	}
}

func TestMainHelp(t *testing.T) {
	res := runMain(t, rootWithIni(t), []string{"--help"})
	if res.code != ExitOK {
		t.Fatalf("Main() = %d, want 0; stderr:\n%s", res.code, res.stderr)
	}
	for _, want := range []string{"usage:", "--override-ini", "addopts (args)", EnvAddopts, "rootdir:"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestMainVersion(t *testing.T) {
	res := runMain(t, rootWithIni(t), []string{"--version"}, WithVersion("1.2.3"))
	if res.code != ExitOK {
		t.Fatalf("Main() = %d, want 0", res.code)
	}
	if !strings.Contains(res.stdout, "This is distill version 1.2.3") {
		t.Errorf("stdout = %q", res.stdout)
	}
}

func TestMainLocalConfigFailure(t *testing.T) {
	root := rootWithIni(t)
	path := filepath.Join(root, "confdistill.lua")

	t.Run("aborts", func(t *testing.T) {
		loader := &failingLoader{path: path}
		res := runMain(t, root, []string{"run"}, WithLocalLoader(loader))
		if res.code != ExitUsageError {
			t.Errorf("Main() = %d, want %d", res.code, ExitUsageError)
		}
		if !strings.Contains(res.stderr, "ERROR: could not load "+path) {
			t.Errorf("stderr = %q", res.stderr)
		}
		if !strings.Contains(res.stderr, "in main chunk") {
			t.Errorf("stderr missing traceback: %q", res.stderr)
		}
	})

	for _, flag := range []string{"--help", "--version"} {
		t.Run(flag, func(t *testing.T) {
			loader := &failingLoader{path: path}
			res := runMain(t, root, []string{flag}, WithLocalLoader(loader))
			if res.code != ExitOK {
				t.Errorf("Main() = %d, want 0; stderr:\n%s", res.code, res.stderr)
			}
			if loader.calls != 1 {
				t.Errorf("loader called %d times, want 1", loader.calls)
			}
			if res.stdout == "" {
				t.Error("no help or version output")
			}
			if !strings.Contains(res.stderr, "could not load initial conftests ("+path+")") {
				t.Errorf("stderr missing warning: %q", res.stderr)
			}
		})
	}
}

func TestMainBlockPluginFromEnv(t *testing.T) {
	cat := plugin.NewCatalog()
	loaded := false
	cat.Provide("extra", func() (plugin.Plugin, error) {
		loaded = true
		return plugin.NewFuncPlugin("extra", func(*plugin.Registrar) error { return nil }), nil
	})

	res := runMain(t, rootWithIni(t), []string{"--version", "-p", "no:extra"},
		WithSources(cat),
		WithEnv(map[string]string{plugin.EnvPlugins: "extra"}),
	)
	if res.code != ExitOK {
		t.Fatalf("Main() = %d; stderr:\n%s", res.code, res.stderr)
	}
	if loaded {
		t.Error("blocked plugin was loaded")
	}
}

func TestMainEnvDisablesEntryPoint(t *testing.T) {
	cat := plugin.NewCatalog()
	loaded := false
	cat.Provide("extra", func() (plugin.Plugin, error) {
		loaded = true
		return plugin.NewFuncPlugin("extra", func(*plugin.Registrar) error { return nil }), nil
	}, plugin.EntryPointGroup)

	res := runMain(t, rootWithIni(t), []string{"--version"},
		WithSources(cat),
		WithEnv(map[string]string{plugin.EnvPlugins: "-extra"}),
	)
	if res.code != ExitOK {
		t.Fatalf("Main() = %d; stderr:\n%s", res.code, res.stderr)
	}
	if loaded {
		t.Error("entry point disabled through the environment was loaded")
	}
}

func TestMainSharedTracer(t *testing.T) {
	var trace bytes.Buffer
	tracer, closeTrace := NewTracer(&trace)
	defer closeTrace()
	if tracer.GetLevel() != log.DebugLevel {
		t.Errorf("NewTracer() level = %v, want debug", tracer.GetLevel())
	}

	res := runMain(t, rootWithIni(t), []string{"--version"}, WithTracer(tracer))
	if res.code != ExitOK {
		t.Fatalf("Main() = %d; stderr:\n%s", res.code, res.stderr)
	}
	if !strings.Contains(trace.String(), "ini resolved") {
		t.Errorf("trace = %q, want bootstrap lines", trace.String())
	}
	if strings.Contains(res.stderr, "ini resolved") {
		t.Errorf("stderr = %q, trace written outside the given tracer", res.stderr)
	}
}

func TestSplitSubcommand(t *testing.T) {
	tests := []struct {
		args     []string
		wantSub  string
		wantRest []string
	}{
		{nil, "", nil},
		{[]string{"run", "-x"}, "run", []string{"-x"}},
		{[]string{"-x", "run"}, "", []string{"-x", "run"}},
	}
	for _, tt := range tests {
		sub, rest := splitSubcommand(tt.args)
		if sub != tt.wantSub || !slices.Equal(rest, tt.wantRest) {
			t.Errorf("splitSubcommand(%v) = %q, %v; want %q, %v", tt.args, sub, rest, tt.wantSub, tt.wantRest)
		}
	}
}
