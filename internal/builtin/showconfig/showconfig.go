// Package showconfig provides the "showconfig" subcommand, which prints the
// configuration an invocation resolved: rootdir, ini file, arguments, ini
// values and loaded plugins. The raw ini section is printed next to the
// typed values.
//
// The package registers itself in the default plugin catalog; importing it
// for side effects is enough:
//
//	import _ "github.com/dshills/distill/internal/builtin/showconfig"
package showconfig

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/distill/internal/config"
	"github.com/dshills/distill/internal/parser"
	"github.com/dshills/distill/internal/plugin"
)

// Name is the subcommand and plugin name.
const Name = "showconfig"

// Output formats.
const (
	FormatText = "text"
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

func init() {
	plugin.Provide(Name, func() (plugin.Plugin, error) {
		return New(), nil
	}, plugin.SubcommandGroup)
}

// Report is the resolved configuration.
type Report struct {
	InvocationID  string            `toml:"invocation_id" yaml:"invocation_id"`
	Version       string            `toml:"version" yaml:"version"`
	RootDir       string            `toml:"rootdir" yaml:"rootdir"`
	IniFile       string            `toml:"inifile" yaml:"inifile"`
	InvocationDir string            `toml:"invocation_dir" yaml:"invocation_dir"`
	OrigArgs      []string          `toml:"orig_args" yaml:"orig_args"`
	Args          []string          `toml:"args" yaml:"args"`
	Plugins       []string          `toml:"plugins" yaml:"plugins"`
	Ini           map[string]any    `toml:"ini" yaml:"ini"`
	IniRaw        map[string]string `toml:"ini_raw" yaml:"ini_raw"`
}

// New returns the showconfig plugin.
func New() plugin.Plugin {
	return plugin.NewFuncPlugin(Name, func(r *plugin.Registrar) error {
		config.OnAddOption(r, addOptions)
		config.OnCmdlineMain(r, func(c *config.Config) (int, bool, error) {
			if c.Subcommand() != Name {
				return 0, false, nil
			}
			rep, err := Collect(c)
			if err != nil {
				return 0, true, err
			}
			format, _ := c.GetOptionOr("showconfig_format", FormatText).(string)
			if err := Write(c.Stdout(), rep, format); err != nil {
				return 0, true, err
			}
			return config.ExitOK, true, nil
		})
		return nil
	})
}

func addOptions(p *parser.Parser) error {
	g := p.GetGroup(Name, "showconfig", "")
	return g.AddOption(&parser.Option{
		Names:   []string{"--format"},
		Dest:    "showconfig_format",
		Kind:    parser.KindString,
		Default: FormatText,
		Choices: []string{FormatText, FormatTOML, FormatYAML},
		Help:    "output format",
	})
}

// Collect gathers the report from a parsed config. Every declared ini key
// is included, with its default when the ini file does not set it.
func Collect(c *config.Config) (*Report, error) {
	rep := &Report{
		InvocationID:  c.InvocationID(),
		Version:       c.Version(),
		RootDir:       c.RootDir(),
		IniFile:       c.IniFile(),
		InvocationDir: c.InvocationDir(),
		OrigArgs:      c.OrigArgs(),
		Args:          c.Args(),
		Plugins:       c.PluginManager().Plugins(),
		Ini:           make(map[string]any),
		IniRaw:        c.IniConfig(),
	}
	for _, spec := range c.Parser().Inis() {
		v, err := c.GetIni(spec.Name)
		if err != nil {
			return nil, err
		}
		if v != nil {
			rep.Ini[spec.Name] = v
		}
	}
	return rep, nil
}

// Write renders rep in format.
func Write(w io.Writer, rep *Report, format string) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return writeText(w, rep)
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeText(w io.Writer, rep *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "invocation: %s\n", rep.InvocationID)
	fmt.Fprintf(&b, "version: %s\n", rep.Version)
	fmt.Fprintf(&b, "rootdir: %s\n", rep.RootDir)
	inifile := rep.IniFile
	if inifile == "" {
		inifile = "(none)"
	}
	fmt.Fprintf(&b, "inifile: %s\n", inifile)
	fmt.Fprintf(&b, "invocation dir: %s\n", rep.InvocationDir)
	fmt.Fprintf(&b, "command line: %s\n", strings.Join(rep.OrigArgs, " "))
	fmt.Fprintf(&b, "args: %s\n", strings.Join(rep.Args, " "))
	fmt.Fprintf(&b, "plugins: %s\n", strings.Join(rep.Plugins, ", "))

	if len(rep.Ini) > 0 {
		b.WriteString("ini:\n")
	}
	for _, k := range sortedKeys(rep.Ini) {
		fmt.Fprintf(&b, "  %s = %s\n", k, iniString(rep.Ini[k]))
	}
	if len(rep.IniRaw) > 0 {
		b.WriteString("ini file:\n")
	}
	for _, k := range sortedKeys(rep.IniRaw) {
		fmt.Fprintf(&b, "  %s = %q\n", k, rep.IniRaw[k])
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func iniString(v any) string {
	switch v := v.(type) {
	case []string:
		return strings.Join(v, " ")
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
