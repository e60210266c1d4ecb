package luaplugin

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/dshills/distill/internal/plugin"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeLua(t, dir, ManifestFile, `
name: greet
version: 1.2.0
description: says hello
main: main.lua
entry_points: [distill11]
requires: [helper]
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if m.Name != "greet" || m.Version != "1.2.0" {
		t.Errorf("manifest = %+v", m)
	}
	if m.MainPath() != filepath.Join(dir, "main.lua") {
		t.Errorf("MainPath() = %q", m.MainPath())
	}
	if !m.Advertises(plugin.EntryPointGroup) || m.Advertises(plugin.SubcommandGroup) {
		t.Errorf("EntryPoints = %v", m.EntryPoints)
	}
	if m.Dist() != "greet-1.2.0" {
		t.Errorf("Dist() = %q", m.Dist())
	}
	if !slices.Equal(m.Requires, []string{"helper"}) {
		t.Errorf("Requires = %v", m.Requires)
	}
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Manifest
		wantErr error
	}{
		{"valid", Manifest{Name: "a-b_c", Version: "0.1.0", Main: "init.lua"}, nil},
		{"missing name", Manifest{Version: "1.0.0", Main: "init.lua"}, ErrMissingName},
		{"bad name", Manifest{Name: "Bad Name", Version: "1.0.0", Main: "init.lua"}, ErrInvalidName},
		{"bad version", Manifest{Name: "a", Version: "one", Main: "init.lua"}, ErrInvalidVersion},
		{"bad main", Manifest{Name: "a", Version: "1.0.0", Main: "init.py"}, ErrInvalidMain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeLua(t, dir, ManifestFile, "name: bare\n")
	m, err := LoadManifestFromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Main != "init.lua" || m.Version != "0.0.0" {
		t.Errorf("defaults not applied: %+v", m)
	}
}

// installTree builds a plugin search path with every supported layout.
func installTree(t *testing.T) (string, string) {
	t.Helper()
	first, second := t.TempDir(), t.TempDir()

	writeLua(t, first, "greet/"+ManifestFile, "name: greet\nversion: 1.0.0\nentry_points: [distill11]\n")
	writeLua(t, first, "greet/init.lua", `distill.hook("addoption", function() end)`)
	writeLua(t, first, "bare/init.lua", `distill.plugins("single")`)
	writeLua(t, first, "single.lua", `-- nothing`)
	writeLua(t, first, "broken/"+ManifestFile, "name: Broken!\n")
	writeLua(t, first, "empty/README", "")
	writeLua(t, first, "notes.txt", "")

	writeLua(t, second, "single.lua", `error("shadowed")`)
	writeLua(t, second, "sub/"+ManifestFile, "name: sub\nentry_points: [distill.subcommand]\n")
	writeLua(t, second, "sub/init.lua", `error("sub failed")`)
	return first, second
}

func TestSourceDiscover(t *testing.T) {
	first, second := installTree(t)
	s := NewSource(WithPaths(first, second, filepath.Join(first, "missing")))

	var names []string
	for _, info := range s.Discover() {
		names = append(names, info.Name)
	}
	want := []string{"bare", "broken", "empty", "greet", "single", "sub"}
	if !slices.Equal(names, want) {
		t.Errorf("Discover() names = %v, want %v", names, want)
	}

	info, ok := s.Get("single")
	if !ok || info.Path != first {
		t.Errorf("Get(single) = %+v, want the first path to win", info)
	}

	var errored []string
	for _, info := range s.Errors() {
		errored = append(errored, info.Name)
	}
	if !slices.Equal(errored, []string{"broken", "empty"}) {
		t.Errorf("Errors() = %v", errored)
	}
	if info, _ := s.Get("empty"); !errors.Is(info.Err, ErrNoEntryPoint) {
		t.Errorf("empty plugin error = %v", info.Err)
	}
}

func TestSourceAsPluginSource(t *testing.T) {
	first, second := installTree(t)
	s := NewSource(WithPaths(first, second))
	defer s.Close()

	m, err := plugin.NewManager(plugin.WithSources(s))
	if err != nil {
		t.Fatal(err)
	}

	n, err := m.LoadEntryPoints(plugin.EntryPointGroup)
	if err != nil {
		t.Fatalf("LoadEntryPoints() error = %v", err)
	}
	if n != 1 || !m.HasPlugin("greet") {
		t.Errorf("LoadEntryPoints() = %d, plugins %v", n, m.Plugins())
	}
	if dist := m.DistInfo(); len(dist) != 1 || dist[0].Dist != "greet-1.0.0" {
		t.Errorf("DistInfo() = %v", dist)
	}

	if err := m.ImportPlugin("bare"); err != nil {
		t.Fatalf("ImportPlugin(bare) error = %v", err)
	}
	if !m.HasPlugin("single") {
		t.Error("plugin required by bare was not imported")
	}

	err = m.ImportSubcommand("sub")
	var le *LoadError
	if !errors.As(err, &le) {
		t.Errorf("ImportSubcommand(sub) error = %v, want *LoadError", err)
	}

	if err := m.ImportPlugin("broken"); err == nil {
		t.Error("ImportPlugin(broken) expected error")
	}
	if _, ok := s.Lookup("nowhere"); ok {
		t.Error("Lookup(nowhere) found a plugin")
	}
}

func TestSourceClose(t *testing.T) {
	first, second := installTree(t)
	s := NewSource(WithPaths(first, second))

	for _, name := range []string{"greet", "single"} {
		factory, ok := s.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%s) not found", name)
		}
		if _, err := factory(); err != nil {
			t.Fatalf("factory(%s) error = %v", name, err)
		}
	}
	if got := len(s.opened); got != 2 {
		t.Fatalf("opened %d plugins, want 2", got)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if len(s.opened) != 0 {
		t.Errorf("Close() left %d plugins open", len(s.opened))
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestDefaultPaths(t *testing.T) {
	env := map[string]string{
		EnvPluginPath:   "/a" + string(filepath.ListSeparator) + "/b",
		"XDG_DATA_HOME": "/xdg",
	}
	paths := DefaultPaths(func(k string) string { return env[k] })
	if len(paths) < 3 {
		t.Fatalf("DefaultPaths() = %v", paths)
	}
	want := []string{"/a", "/b", filepath.Join("/xdg", "distill", "plugins")}
	if !slices.Equal(paths[:3], want) {
		t.Errorf("DefaultPaths() = %v, want prefix %v", paths, want)
	}
}
