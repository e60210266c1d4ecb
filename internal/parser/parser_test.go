package parser

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// newCoreParser returns a parser with the options the bootstrap always declares.
func newCoreParser(t *testing.T) *Parser {
	t.Helper()
	p := New("distill", "distill <subcommand> [options] [file_or_dir ...]", nil)
	core := []*Option{
		{Names: []string{"-h", "--help"}, Kind: KindBool, Help: "show help"},
		{Names: []string{"--version"}, Kind: KindBool, Help: "show version"},
		{Names: []string{"-p", "--plugin"}, Dest: DestPlugins, Kind: KindAppend, Help: "load plugin"},
		{Names: []string{"-o", "--override-ini"}, Kind: KindAppend, Help: "override ini"},
		{Names: []string{"-c", "--inifile"}, Dest: DestIniFile, Help: "ini file"},
	}
	g := p.GetGroup("general", "general options", "")
	for _, opt := range core {
		if err := g.AddOption(opt); err != nil {
			t.Fatalf("AddOption(%v) error = %v", opt.Names, err)
		}
	}
	return p
}

func TestAddOptionDerivesDest(t *testing.T) {
	p := New("distill", "", nil)
	opt := &Option{Names: []string{"-x", "--max-rows"}, Kind: KindInt}
	if err := p.AddOption(opt); err != nil {
		t.Fatalf("AddOption() error = %v", err)
	}
	if opt.Dest != "max_rows" {
		t.Errorf("Dest = %q, want max_rows", opt.Dest)
	}
	if opt.Long() != "max-rows" || opt.Short() != "x" {
		t.Errorf("Long/Short = %q/%q, want max-rows/x", opt.Long(), opt.Short())
	}
}

func TestAddOptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  *Option
		want any
	}{
		{name: "no names", opt: &Option{}, want: ErrNoNames},
		{name: "short only", opt: &Option{Names: []string{"-q"}}, want: ErrNoLongName},
		{name: "bad name", opt: &Option{Names: []string{"quiet"}}, want: &InvalidNameError{}},
		{name: "two shorts", opt: &Option{Names: []string{"-q", "-Q", "--quiet"}}, want: &ConflictError{}},
		{name: "bad default", opt: &Option{Names: []string{"--rows"}, Kind: KindInt, Default: "ten"}, want: &ConflictError{}},
		{name: "choices on bool", opt: &Option{Names: []string{"--fast"}, Kind: KindBool, Choices: []string{"a"}}, want: &ConflictError{}},
		{name: "reserved dest", opt: &Option{Names: []string{"--files"}, Dest: DestFileOrDir}, want: &ConflictError{}},
		{name: "builtin dest wrong kind", opt: &Option{Names: []string{"--show-help"}, Dest: DestHelp, Kind: KindString}, want: &ConflictError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New("distill", "", nil)
			err := p.AddOption(tt.opt)
			if err == nil {
				t.Fatal("AddOption() error = nil, want error")
			}
			switch want := tt.want.(type) {
			case *InvalidNameError:
				var target *InvalidNameError
				if !errors.As(err, &target) {
					t.Errorf("AddOption() error = %v, want InvalidNameError", err)
				}
			case *ConflictError:
				var target *ConflictError
				if !errors.As(err, &target) {
					t.Errorf("AddOption() error = %v, want ConflictError", err)
				}
			case error:
				if !errors.Is(err, want) {
					t.Errorf("AddOption() error = %v, want %v", err, want)
				}
			}
		})
	}
}

func TestAddOptionConflicts(t *testing.T) {
	p := newCoreParser(t)

	err := p.AddOption(&Option{Names: []string{"-c", "--columns"}})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("AddOption() error = %v, want ConflictError", err)
	}
	if conflict.Name != "-c" {
		t.Errorf("ConflictError.Name = %q, want -c", conflict.Name)
	}

	// A shared destination must keep its kind.
	if err := p.AddOption(&Option{Names: []string{"--color"}, Dest: "color", Kind: KindString}); err != nil {
		t.Fatalf("AddOption(--color) error = %v", err)
	}
	if err := p.AddOption(&Option{Names: []string{"--colour"}, Dest: "color", Kind: KindString}); err != nil {
		t.Errorf("AddOption(--colour) sharing dest error = %v", err)
	}
	if err := p.AddOption(&Option{Names: []string{"--no-color"}, Dest: "color", Kind: KindBool}); !errors.As(err, &conflict) {
		t.Errorf("AddOption(--no-color) error = %v, want ConflictError", err)
	}
}

func TestProcessOptSeesEveryOption(t *testing.T) {
	var seen []string
	p := New("distill", "", func(opt *Option) { seen = append(seen, opt.Dest) })
	_ = p.AddOption(&Option{Names: []string{"--a"}})
	_ = p.GetGroup("g", "", "").AddOption(&Option{Names: []string{"--b"}})
	_ = p.AddOption(&Option{Names: []string{"--a"}}) // rejected

	if !reflect.DeepEqual(seen, []string{"a", "b"}) {
		t.Errorf("processopt saw %v, want [a b]", seen)
	}
}

func TestGetGroupOrdering(t *testing.T) {
	p := New("distill", "", nil)
	p.GetGroup("general", "", "")
	p.GetGroup("output", "", "")
	p.GetGroup("debug", "", "general")

	if again := p.GetGroup("general", "ignored", ""); again.Description() != "general" {
		t.Errorf("GetGroup() returned a new group for an existing name")
	}

	var names []string
	for _, g := range p.Groups() {
		names = append(names, g.Name())
	}
	want := []string{"general", "debug", "output", AnonymousGroup}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Groups() = %v, want %v", names, want)
	}
}

func TestParseKnownAndUnknownArgs(t *testing.T) {
	p := newCoreParser(t)

	args := []string{"--flag1", "-c", "distill.ini", "data", "--later=3", "-zq", "-o", "k=v", "more"}
	ns, unknown, err := p.ParseKnownAndUnknownArgs("sub", args, nil)
	if err != nil {
		t.Fatalf("ParseKnownAndUnknownArgs() error = %v", err)
	}

	if ns.IniFile != "distill.ini" {
		t.Errorf("IniFile = %q, want distill.ini", ns.IniFile)
	}
	if !reflect.DeepEqual(ns.OverrideIni, []string{"k=v"}) {
		t.Errorf("OverrideIni = %v, want [k=v]", ns.OverrideIni)
	}
	if !reflect.DeepEqual(ns.FileOrDir, []string{"data", "more"}) {
		t.Errorf("FileOrDir = %v, want [data more]", ns.FileOrDir)
	}
	wantUnknown := []string{"--flag1", "--later=3", "-zq"}
	if !reflect.DeepEqual(unknown, wantUnknown) {
		t.Errorf("unknown = %v, want %v", unknown, wantUnknown)
	}
}

func TestParseKnownAndUnknownArgsGrowingGrammar(t *testing.T) {
	p := newCoreParser(t)
	args := []string{"--rows", "5", "in.csv"}

	_, unknown, err := p.ParseKnownAndUnknownArgs("sub", args, nil)
	if err != nil {
		t.Fatalf("first pass error = %v", err)
	}
	if !reflect.DeepEqual(unknown, []string{"--rows"}) {
		t.Fatalf("first pass unknown = %v, want [--rows]", unknown)
	}

	if err := p.AddOption(&Option{Names: []string{"--rows"}, Kind: KindInt}); err != nil {
		t.Fatalf("AddOption() error = %v", err)
	}
	ns, err := p.ParseKnownArgs("sub", args, nil)
	if err != nil {
		t.Fatalf("second pass error = %v", err)
	}
	if got, _ := ns.Get("rows"); got != 5 {
		t.Errorf("rows = %v, want 5", got)
	}
	if !reflect.DeepEqual(ns.FileOrDir, []string{"in.csv"}) {
		t.Errorf("FileOrDir = %v, want [in.csv]", ns.FileOrDir)
	}
}

func TestParseKnownArgsRejectsUnknown(t *testing.T) {
	p := newCoreParser(t)
	p.SetExtraInfo("rootdir", "/work")

	_, err := p.ParseKnownArgs("sub", []string{"--bogus"}, nil)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("ParseKnownArgs() error = %v, want ParseError", err)
	}
	msg := perr.Error()
	if !strings.HasPrefix(msg, "distill sub: error: ") {
		t.Errorf("message %q lacks program prefix", msg)
	}
	if !strings.Contains(msg, "bogus") || !strings.Contains(msg, "rootdir: /work") {
		t.Errorf("message %q should name the flag and the extra info", msg)
	}
}

func TestParseSetOptionPrintHelp(t *testing.T) {
	p := newCoreParser(t)
	ns := NewNamespace()

	args, err := p.ParseSetOption("sub", []string{"--help", "x"}, ns)
	if !errors.Is(err, ErrPrintHelp) {
		t.Fatalf("ParseSetOption() error = %v, want ErrPrintHelp", err)
	}
	if !ns.Help {
		t.Error("Help not set on namespace")
	}
	if !reflect.DeepEqual(args, []string{"x"}) {
		t.Errorf("args = %v, want [x]", args)
	}

	ns = NewNamespace()
	args, err = p.ParseSetOption("sub", []string{"x", "y"}, ns)
	if err != nil {
		t.Fatalf("ParseSetOption() error = %v", err)
	}
	if !reflect.DeepEqual(args, []string{"x", "y"}) {
		t.Errorf("args = %v, want [x y]", args)
	}
}

func TestDefaultRoundTrip(t *testing.T) {
	ns := NewNamespace()
	p := New("distill", "", func(opt *Option) {
		if opt.Default != nil {
			ns.SetDefault(opt.Dest, opt.Default)
		}
	})
	if err := p.AddOption(&Option{Names: []string{"--delimiter"}, Default: ","}); err != nil {
		t.Fatalf("AddOption() error = %v", err)
	}
	if err := p.AddOption(&Option{Names: []string{"--columns"}, Kind: KindAppend, Default: []any{"a", "b"}}); err != nil {
		t.Fatalf("AddOption() error = %v", err)
	}
	if err := p.AddOption(&Option{Names: []string{"-v", "--verbose"}, Kind: KindCount, Default: 2}); err != nil {
		t.Fatalf("AddOption() error = %v", err)
	}

	if _, err := p.ParseSetOption("sub", nil, ns); err != nil {
		t.Fatalf("ParseSetOption() error = %v", err)
	}
	if got, ok := ns.Get("delimiter"); !ok || got != "," {
		t.Errorf("delimiter = %v (ok=%v), want ,", got, ok)
	}
	if got, _ := ns.Get("columns"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("columns = %v, want [a b]", got)
	}
	if got, _ := ns.Get("verbose"); got != 2 {
		t.Errorf("verbose = %v, want 2", got)
	}

	again := ns.Copy()
	if _, err := p.ParseSetOption("sub", []string{"-v"}, again); err != nil {
		t.Fatalf("ParseSetOption(-v) error = %v", err)
	}
	if got, _ := again.Get("verbose"); got != 3 {
		t.Errorf("verbose after -v = %v, want 3", got)
	}
}

func TestSetDefaultFirstWins(t *testing.T) {
	ns := NewNamespace()
	ns.SetDefault("mode", "fast")
	ns.SetDefault("mode", "slow")
	if got, _ := ns.Get("mode"); got != "fast" {
		t.Errorf("mode = %v, want fast", got)
	}
}

func TestAppendAndCount(t *testing.T) {
	p := newCoreParser(t)
	_ = p.AddOption(&Option{Names: []string{"-v", "--verbose"}, Kind: KindCount})

	ns, err := p.ParseKnownArgs("sub", []string{"-p", "a", "-vv", "--plugin=b", "-v"}, nil)
	if err != nil {
		t.Fatalf("ParseKnownArgs() error = %v", err)
	}
	if !reflect.DeepEqual(ns.Plugins, []string{"a", "b"}) {
		t.Errorf("Plugins = %v, want [a b]", ns.Plugins)
	}
	if got, _ := ns.Get("verbose"); got != 3 {
		t.Errorf("verbose = %v, want 3", got)
	}
}

func TestChoices(t *testing.T) {
	p := New("distill", "", nil)
	_ = p.AddOption(&Option{Names: []string{"--format"}, Choices: []string{"text", "toml"}, Default: "text"})

	if _, err := p.ParseKnownArgs("", []string{"--format", "xml"}, nil); err == nil {
		t.Error("ParseKnownArgs() accepted a value outside choices")
	}
	ns, err := p.ParseKnownArgs("", []string{"--format", "toml"}, nil)
	if err != nil {
		t.Fatalf("ParseKnownArgs() error = %v", err)
	}
	if got, _ := ns.Get("format"); got != "toml" {
		t.Errorf("format = %v, want toml", got)
	}
}

func TestNamespaceCopyIsDeep(t *testing.T) {
	ns := NewNamespace()
	ns.OverrideIni = []string{"a=1"}
	ns.Extra["cols"] = []string{"x"}

	c := ns.Copy()
	c.OverrideIni[0] = "b=2"
	c.Extra["cols"].([]string)[0] = "y"
	c.Extra["new"] = true

	if ns.OverrideIni[0] != "a=1" {
		t.Error("Copy shares OverrideIni")
	}
	if ns.Extra["cols"].([]string)[0] != "x" {
		t.Error("Copy shares Extra slices")
	}
	if _, ok := ns.Extra["new"]; ok {
		t.Error("Copy shares Extra map")
	}
}

func TestAddIni(t *testing.T) {
	p := New("distill", "", nil)
	if err := p.AddIni("testpaths", "default targets", IniArgs, nil); err != nil {
		t.Fatalf("AddIni() error = %v", err)
	}
	if err := p.AddIni("testpaths", "targets", IniArgs, nil); err != nil {
		t.Errorf("AddIni() redeclare with same type error = %v", err)
	}
	var conflict *ConflictError
	if err := p.AddIni("testpaths", "", IniBool, nil); !errors.As(err, &conflict) {
		t.Errorf("AddIni() with new type error = %v, want ConflictError", err)
	}

	spec, ok := p.Ini("testpaths")
	if !ok {
		t.Fatal("Ini(testpaths) not found")
	}
	if spec.Help != "targets" {
		t.Errorf("Help = %q, want replaced help", spec.Help)
	}
	if got := spec.DefaultValue(); !reflect.DeepEqual(got, []string{}) {
		t.Errorf("DefaultValue() = %#v, want empty list", got)
	}
	if len(p.Inis()) != 1 {
		t.Errorf("Inis() = %v, want one entry", p.Inis())
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		action, typ string
		want        Kind
		wantErr     bool
	}{
		{"", "", KindString, false},
		{"store", "int", KindInt, false},
		{"store_true", "", KindBool, false},
		{"append", "", KindAppend, false},
		{"count", "", KindCount, false},
		{"store", "float", 0, true},
		{"store_const", "", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.action, tt.typ)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q, %q) error = %v, wantErr %v", tt.action, tt.typ, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q, %q) = %v, want %v", tt.action, tt.typ, got, tt.want)
		}
	}
}

func TestHelp(t *testing.T) {
	p := newCoreParser(t)
	_ = p.AddOption(&Option{Names: []string{"--secret"}, Kind: KindBool, Hidden: true, Help: "hidden"})
	_ = p.AddOption(&Option{Names: []string{"--rows"}, Kind: KindInt, Help: "rows to keep"})
	_ = p.AddIni("addopts", "extra options", IniArgs, nil)

	var buf bytes.Buffer
	if err := p.Help(&buf, "sub", 0); err != nil {
		t.Fatalf("Help() error = %v", err)
	}
	if err := p.IniHelp(&buf, "[distill] ini-options:"); err != nil {
		t.Fatalf("IniHelp() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"usage: distill", "general options:", "--inifile", AnonymousGroup + ":", "--rows", "addopts (args)"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "--secret") {
		t.Errorf("help output shows hidden option:\n%s", out)
	}
}
