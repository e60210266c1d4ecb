package conftest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/dshills/distill/internal/config"
	"github.com/dshills/distill/internal/luaplugin"
	"github.com/dshills/distill/internal/plugin"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func resolved(t *testing.T, path string) string {
	t.Helper()
	r, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// project creates a rootdir holding distill.ini.
func project(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "proj")
	writeFile(t, filepath.Join(root, "distill.ini"), "[distill]\n")
	return root
}

func parse(t *testing.T, root string, args ...string) (*config.Config, *Loader, error) {
	t.Helper()
	m, err := plugin.NewManager(plugin.WithSources(plugin.NewCatalog()), plugin.WithGetenv(func(string) string { return "" }))
	if err != nil {
		t.Fatal(err)
	}
	loader := NewLoader()
	c, err := config.New(m,
		config.WithDir(root),
		config.WithEnv(nil),
		config.WithOutput(&bytes.Buffer{}, &bytes.Buffer{}),
		config.WithLocalLoader(loader),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = loader.Close() })
	return c, loader, c.Parse("run", args)
}

func TestSetInitialImportsOnce(t *testing.T) {
	root := project(t)
	top := writeFile(t, filepath.Join(root, FileName), `distill.hook("addoption", function(args)
  args.parser:addoption{"--fromconf", action = "store_true"}
end)`)
	sub := writeFile(t, filepath.Join(root, "sub", FileName), "-- sub")
	writeFile(t, filepath.Join(root, "sub", "a", "data.txt"), "")
	writeFile(t, filepath.Join(root, "sub", "b", "data.txt"), "")

	c, loader, err := parse(t, root, "--fromconf", "sub/a", "sub/b/data.txt")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []string{resolved(t, top), resolved(t, sub)}
	if got := loader.Loaded(); !slices.Equal(got, want) {
		t.Errorf("Loaded() = %v, want %v", got, want)
	}
	if len(loader.Duplicates()) != 0 {
		t.Errorf("Duplicates() = %v", loader.Duplicates())
	}
	if v, err := c.GetOption("fromconf"); err != nil || v != true {
		t.Errorf("GetOption(fromconf) = %v, %v", v, err)
	}
	for _, p := range want {
		if !c.PluginManager().HasPlugin(p) {
			t.Errorf("%s not registered", p)
		}
	}

	mods, err := loader.Modules(filepath.Join(root, "sub", "a"))
	if err != nil || len(mods) != 2 {
		t.Errorf("Modules(sub/a) = %v, %v", mods, err)
	}
	if got := len(loader.Loaded()); got != 2 {
		t.Errorf("Modules() imported again, Loaded() has %d entries", got)
	}
}

func TestSetInitialTargets(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"no targets", nil, []string{FileName}},
		{"missing target", []string{"nowhere"}, []string{FileName}},
		{"node id", []string{"sub/case.txt::first"}, []string{FileName, "sub/" + FileName}},
		{"confcutdir", []string{"--confcutdir=sub", "sub"}, []string{"sub/" + FileName}},
		{"noconftest", []string{"--noconftest", "sub"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := project(t)
			writeFile(t, filepath.Join(filepath.Dir(root), FileName), `error("above the rootdir")`)
			writeFile(t, filepath.Join(root, FileName), "")
			writeFile(t, filepath.Join(root, "sub", FileName), "")
			writeFile(t, filepath.Join(root, "sub", "case.txt"), "")

			_, loader, err := parse(t, root, tt.args...)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			var want []string
			for _, rel := range tt.want {
				want = append(want, resolved(t, filepath.Join(root, rel)))
			}
			if got := loader.Loaded(); !slices.Equal(got, want) {
				t.Errorf("Loaded() = %v, want %v", got, want)
			}
		})
	}
}

func TestSetInitialFailure(t *testing.T) {
	root := project(t)
	path := writeFile(t, filepath.Join(root, "sub", FileName), `local function setup()
  error("broken conftest")
end
setup()
`)

	_, _, err := parse(t, root, "sub")
	var failure *config.LocalConfigImportFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Parse() error = %v, want *LocalConfigImportFailure", err)
	}
	if failure.Path != path {
		t.Errorf("Path = %q, want %q", failure.Path, path)
	}
	if !strings.Contains(failure.Err.Error(), "broken conftest") {
		t.Errorf("Err = %v", failure.Err)
	}
	if len(failure.Traceback) == 0 {
		t.Error("Traceback is empty")
	}
}

func TestDuplicateThroughSymlink(t *testing.T) {
	root := project(t)
	writeFile(t, filepath.Join(root, "a", FileName), "")
	if err := os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "b")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, loader, err := parse(t, root, "a", "b")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := len(loader.Loaded()); got != 1 {
		t.Errorf("Loaded() = %v, want one module", loader.Loaded())
	}
	dups := loader.Duplicates()
	if len(dups) != 1 || dups[0].Path != filepath.Join(root, "b", FileName) {
		t.Errorf("Duplicates() = %v", dups)
	}
}

func TestClosedOnUnconfigure(t *testing.T) {
	root := project(t)
	writeFile(t, filepath.Join(root, FileName), "")

	c, loader, err := parse(t, root)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := c.DoConfigure(); err != nil {
		t.Fatal(err)
	}
	if err := c.EnsureUnconfigure(); err != nil {
		t.Fatal(err)
	}
	if _, err := loader.Modules(root); !errors.Is(err, luaplugin.ErrClosed) {
		t.Errorf("Modules() after unconfigure error = %v, want ErrClosed", err)
	}
	if err := loader.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestMainWithConftest(t *testing.T) {
	root := project(t)
	writeFile(t, filepath.Join(root, FileName), `
distill.hook("cmdline_main", function(args)
  args.config:echo("local", args.config:subcommand())
  return 0
end)`)

	var stdout, stderr bytes.Buffer
	code := config.Main([]string{"check"},
		config.WithDir(root),
		config.WithEnv(nil),
		config.WithOutput(&stdout, &stderr),
		config.WithSources(plugin.NewCatalog()),
		config.WithLocalLoader(NewLoader()),
	)
	if code != config.ExitOK {
		t.Fatalf("Main() = %d; stderr:\n%s", code, stderr.String())
	}
	if stdout.String() != "local check\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestMainHelpWithBrokenConftest(t *testing.T) {
	root := project(t)
	path := writeFile(t, filepath.Join(root, FileName), `error("nope")`)

	for _, tt := range []struct {
		args []string
		code int
		want string
	}{
		{[]string{"check"}, config.ExitUsageError, "ERROR: could not load " + path},
		{[]string{"--help"}, config.ExitOK, "could not load initial conftests (" + path + ")"},
	} {
		var stdout, stderr bytes.Buffer
		code := config.Main(tt.args,
			config.WithDir(root),
			config.WithEnv(nil),
			config.WithOutput(&stdout, &stderr),
			config.WithSources(plugin.NewCatalog()),
			config.WithHelpWidth(100),
			config.WithLocalLoader(NewLoader()),
		)
		if code != tt.code {
			t.Errorf("Main(%v) = %d, want %d", tt.args, code, tt.code)
		}
		if !strings.Contains(stderr.String(), tt.want) {
			t.Errorf("Main(%v) stderr = %q, want %q", tt.args, stderr.String(), tt.want)
		}
	}
}
