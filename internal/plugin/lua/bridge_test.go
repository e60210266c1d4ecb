package lua

import (
	"reflect"
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestBridgeToGoValue(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := state.Bridge()

	if err := state.DoString(`
		seq = {"a", "b"}
		rec = {name = "x", n = 3, ratio = 0.5, on = true}
		nested = {list = {1, 2}}
		holes = {[1] = "a", [3] = "c"}
	`); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		global string
		want   any
	}{
		{"seq", []any{"a", "b"}},
		{"rec", map[string]any{"name": "x", "n": 3, "ratio": 0.5, "on": true}},
		{"nested", map[string]any{"list": []any{1, 2}}},
		{"holes", map[string]any{"1": "a", "3": "c"}},
		{"missing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.global, func(t *testing.T) {
			got := b.ToGoValue(state.L.GetGlobal(tt.global))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToGoValue(%s) = %#v, want %#v", tt.global, got, tt.want)
			}
		})
	}
}

func TestBridgeCycle(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(`loop = {}; loop.self = loop`); err != nil {
		t.Fatal(err)
	}
	got := state.Bridge().ToGoValue(state.L.GetGlobal("loop"))
	want := map[string]any{"self": nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToGoValue(loop) = %#v, want %#v", got, want)
	}
}

func TestBridgeRoundTrip(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := state.Bridge()

	values := []any{
		nil,
		true,
		7,
		1.5,
		"text",
		[]any{"a", 1},
		map[string]any{"k": []any{"v"}},
	}
	for _, v := range values {
		got := b.ToGoValue(b.ToLuaValue(v))
		if !reflect.DeepEqual(got, v) {
			t.Errorf("round trip of %#v = %#v", v, got)
		}
	}
}

func TestBridgeToLuaValue(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := state.Bridge()

	tbl, ok := b.ToLuaValue([]string{"x", "y"}).(*glua.LTable)
	if !ok || tbl.Len() != 2 || tbl.RawGetInt(2) != glua.LString("y") {
		t.Errorf("ToLuaValue([]string) = %v", tbl)
	}

	type opaque struct{ n int }
	ud, ok := b.ToLuaValue(&opaque{n: 1}).(*glua.LUserData)
	if !ok {
		t.Fatal("pointer did not become userdata")
	}
	if ud.Value.(*opaque).n != 1 {
		t.Error("userdata lost its value")
	}

	if v := b.ToLuaValue(uint8(9)); v != glua.LNumber(9) {
		t.Errorf("ToLuaValue(uint8) = %v", v)
	}
}

func TestBridgeStringList(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := state.Bridge()

	tests := []struct {
		name    string
		code    string
		want    []string
		wantErr bool
	}{
		{"list", `v = {"a", "b"}`, []string{"a", "b"}, false},
		{"single", `v = "a"`, []string{"a"}, false},
		{"nil", `v = nil`, nil, false},
		{"mixed", `v = {"a", 1}`, nil, true},
		{"number", `v = 3`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := state.DoString(tt.code); err != nil {
				t.Fatal(err)
			}
			got, err := b.StringList(state.L.GetGlobal("v"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("StringList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("StringList() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBridgeTableFields(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := state.Bridge()

	if err := state.DoString(`opts = {"--flag", "-f", dest = "flag", hidden = true}`); err != nil {
		t.Fatal(err)
	}
	opts := state.L.GetGlobal("opts").(*glua.LTable)

	if got := b.Positional(opts); !reflect.DeepEqual(got, []string{"--flag", "-f"}) {
		t.Errorf("Positional() = %v", got)
	}
	if s, ok := b.TableString(opts, "dest"); !ok || s != "flag" {
		t.Errorf("TableString(dest) = %q, %v", s, ok)
	}
	if v, ok := b.TableBool(opts, "hidden"); !ok || !v {
		t.Errorf("TableBool(hidden) = %v, %v", v, ok)
	}
	if _, ok := b.TableBool(opts, "absent"); ok {
		t.Error("TableBool(absent) reported set")
	}
}
