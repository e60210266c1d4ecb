package parser

import (
	"fmt"
	"slices"
	"sort"
)

// AnonymousGroup is the title of the group options land in when added
// directly on the Parser.
const AnonymousGroup = "custom options"

// Parser collects option and ini declarations and parses command lines
// against them.
type Parser struct {
	prog  string
	usage string

	// processopt is called for every accepted option.
	processopt func(*Option)

	groups    []*OptionGroup
	anonymous *OptionGroup

	// flags maps every spelling ("--x", "-x") to its option.
	flags map[string]*Option
	// dests maps each destination to the kind stored there.
	dests map[string]Kind

	inis     map[string]IniSpec
	iniNames []string

	extraInfo map[string]string
}

// New creates a parser. prog names the program in usage and error output;
// processopt, if non-nil, sees every option once it is accepted.
func New(prog, usage string, processopt func(*Option)) *Parser {
	p := &Parser{
		prog:       prog,
		usage:      usage,
		processopt: processopt,
		flags:      make(map[string]*Option),
		dests:      make(map[string]Kind),
		inis:       make(map[string]IniSpec),
		extraInfo:  make(map[string]string),
	}
	p.anonymous = &OptionGroup{name: AnonymousGroup, parser: p}
	return p
}

// OptionGroup is a titled set of options.
type OptionGroup struct {
	name        string
	description string
	options     []*Option
	parser      *Parser
}

// Name returns the group's name.
func (g *OptionGroup) Name() string {
	return g.name
}

// Description returns the group's help title.
func (g *OptionGroup) Description() string {
	if g.description != "" {
		return g.description
	}
	return g.name
}

// Options returns the group's options in registration order.
func (g *OptionGroup) Options() []*Option {
	return slices.Clone(g.options)
}

// AddOption validates opt against every option registered so far and adds
// it to the group.
func (g *OptionGroup) AddOption(opt *Option) error {
	if err := g.parser.register(opt); err != nil {
		return err
	}
	g.options = append(g.options, opt)
	if g.parser.processopt != nil {
		g.parser.processopt(opt)
	}
	return nil
}

// AddOption adds opt to the anonymous group.
func (p *Parser) AddOption(opt *Option) error {
	return p.anonymous.AddOption(opt)
}

// GetGroup returns the group called name, creating it when missing. A new
// group is placed after the group named after, or at the end.
func (p *Parser) GetGroup(name, description, after string) *OptionGroup {
	for _, g := range p.groups {
		if g.name == name {
			return g
		}
	}
	g := &OptionGroup{name: name, description: description, parser: p}
	i := len(p.groups)
	for j, existing := range p.groups {
		if existing.name == after {
			i = j + 1
			break
		}
	}
	p.groups = slices.Insert(p.groups, i, g)
	return g
}

// Groups returns the named groups followed by the anonymous group.
func (p *Parser) Groups() []*OptionGroup {
	return append(slices.Clone(p.groups), p.anonymous)
}

// Options returns every option in group order.
func (p *Parser) Options() []*Option {
	var out []*Option
	for _, g := range p.Groups() {
		out = append(out, g.options...)
	}
	return out
}

func (p *Parser) register(opt *Option) error {
	if err := opt.resolve(); err != nil {
		return err
	}
	for _, name := range opt.flagNames() {
		if prev, ok := p.flags[name]; ok {
			return &ConflictError{
				Name:   name,
				Reason: fmt.Sprintf("conflicts with %s", prev.display()),
			}
		}
	}
	if opt.Dest == DestFileOrDir {
		return &ConflictError{Name: opt.display(), Reason: "destination file_or_dir is reserved for positional arguments"}
	}
	if want, ok := builtinKind(opt.Dest); ok && want != opt.Kind {
		return &ConflictError{
			Name:   opt.display(),
			Reason: fmt.Sprintf("built-in destination %q is %s, not %s", opt.Dest, want, opt.Kind),
		}
	}
	if prev, ok := p.dests[opt.Dest]; ok && prev != opt.Kind {
		return &ConflictError{
			Name:   opt.display(),
			Reason: fmt.Sprintf("destination %q already stores %s", opt.Dest, prev),
		}
	}

	for _, name := range opt.flagNames() {
		p.flags[name] = opt
	}
	p.dests[opt.Dest] = opt.Kind
	return nil
}

// AddIni declares an ini key. Declaring a key again with the same type
// replaces its help and default.
func (p *Parser) AddIni(name, help string, typ IniType, def any) error {
	if typ == "" {
		typ = IniString
	}
	if prev, ok := p.inis[name]; ok {
		if prev.Type != typ {
			return &ConflictError{
				Name:   name,
				Reason: fmt.Sprintf("ini key already declared as %s", prev.Type),
			}
		}
	} else {
		p.iniNames = append(p.iniNames, name)
	}
	p.inis[name] = IniSpec{Name: name, Help: help, Type: typ, Default: def}
	return nil
}

// Ini returns the declaration of an ini key.
func (p *Parser) Ini(name string) (IniSpec, bool) {
	spec, ok := p.inis[name]
	return spec, ok
}

// Inis returns every ini declaration in registration order.
func (p *Parser) Inis() []IniSpec {
	out := make([]IniSpec, 0, len(p.iniNames))
	for _, name := range p.iniNames {
		out = append(out, p.inis[name])
	}
	return out
}

// SetExtraInfo records a line shown with help and parse errors.
func (p *Parser) SetExtraInfo(key, value string) {
	p.extraInfo[key] = value
}

// ExtraInfo returns the recorded lines as "key: value", sorted by key.
func (p *Parser) ExtraInfo() []string {
	keys := make([]string, 0, len(p.extraInfo))
	for k := range p.extraInfo {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+p.extraInfo[k])
	}
	return lines
}
