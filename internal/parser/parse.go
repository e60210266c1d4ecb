package parser

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// ParseKnownAndUnknownArgs parses args against the options registered so
// far. Flags the grammar does not know are returned as leftovers instead of
// failing, together with any value that follows them in "--flag=value" form.
// A nil ns starts from an empty namespace.
func (p *Parser) ParseKnownAndUnknownArgs(subcmd string, args []string, ns *Namespace) (*Namespace, []string, error) {
	if ns == nil {
		ns = NewNamespace()
	}
	fs, commit := p.flagSet(subcmd, ns)
	known, unknown := splitKnown(fs, args)
	if err := fs.Parse(known); err != nil {
		return ns, unknown, p.parseError(subcmd, err)
	}
	commit()
	ns.FileOrDir = slices.Clone(fs.Args())
	return ns, unknown, nil
}

// ParseKnownArgs parses args strictly: any flag the grammar does not know
// is an error.
func (p *Parser) ParseKnownArgs(subcmd string, args []string, ns *Namespace) (*Namespace, error) {
	if ns == nil {
		ns = NewNamespace()
	}
	fs, commit := p.flagSet(subcmd, ns)
	if err := fs.Parse(args); err != nil {
		return ns, p.parseError(subcmd, err)
	}
	commit()
	ns.FileOrDir = slices.Clone(fs.Args())
	return ns, nil
}

// ParseSetOption is the final parse. It fills ns and returns the positional
// arguments. When --help or --version was given it still fills ns but
// returns ErrPrintHelp so the caller can skip the remaining bootstrap.
func (p *Parser) ParseSetOption(subcmd string, args []string, ns *Namespace) ([]string, error) {
	if _, err := p.ParseKnownArgs(subcmd, args, ns); err != nil {
		return nil, err
	}
	if ns.Help || ns.Version {
		return ns.FileOrDir, ErrPrintHelp
	}
	return ns.FileOrDir, nil
}

func (p *Parser) progName(subcmd string) string {
	if subcmd == "" {
		return p.prog
	}
	return p.prog + " " + subcmd
}

func (p *Parser) parseError(subcmd string, err error) error {
	if errors.Is(err, pflag.ErrHelp) {
		err = errors.New("unknown flag: --help")
	}
	return &ParseError{Prog: p.progName(subcmd), Err: err, Info: p.ExtraInfo()}
}

// flagSet builds a pflag grammar from every registered option, bound to ns.
// Built-in destinations bind straight to the namespace fields; plugin
// destinations bind to holders that commit copies back into ns.Extra.
func (p *Parser) flagSet(subcmd string, ns *Namespace) (*pflag.FlagSet, func()) {
	fs := pflag.NewFlagSet(p.progName(subcmd), pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.SortFlags = false
	if ns.Extra == nil {
		ns.Extra = make(map[string]any)
	}

	holders := make(map[string]*holder)
	for _, opt := range p.Options() {
		target := ns.field(opt.Dest)
		if target == nil {
			h, ok := holders[opt.Dest]
			if !ok {
				h = newHolder(opt, ns.Extra[opt.Dest])
				holders[opt.Dest] = h
			}
			target = h.ptr()
		}
		bindFlag(fs, opt, target)
	}

	commit := func() {
		for dest, h := range holders {
			ns.Extra[dest] = h.value()
		}
	}
	return fs, commit
}

func bindFlag(fs *pflag.FlagSet, opt *Option, target any) {
	switch opt.Kind {
	case KindString:
		ptr := target.(*string)
		if len(opt.Choices) > 0 {
			fs.VarP(&choiceValue{p: ptr, choices: opt.Choices}, opt.long, opt.short, opt.Help)
		} else {
			fs.StringVarP(ptr, opt.long, opt.short, *ptr, opt.Help)
		}
	case KindBool:
		ptr := target.(*bool)
		fs.BoolVarP(ptr, opt.long, opt.short, *ptr, opt.Help)
	case KindInt:
		ptr := target.(*int)
		fs.IntVarP(ptr, opt.long, opt.short, *ptr, opt.Help)
	case KindCount:
		// CountVarP zeroes its target; keep the seeded default.
		ptr := target.(*int)
		start := *ptr
		fs.CountVarP(ptr, opt.long, opt.short, opt.Help)
		*ptr = start
	case KindAppend:
		ptr := target.(*[]string)
		fs.StringArrayVarP(ptr, opt.long, opt.short, *ptr, opt.Help)
	}

	flag := fs.Lookup(opt.long)
	if opt.Hidden {
		flag.Hidden = true
	}
	for _, alias := range opt.aliases {
		fs.AddFlag(&pflag.Flag{
			Name:        alias,
			Usage:       opt.Help,
			Value:       flag.Value,
			DefValue:    flag.DefValue,
			NoOptDefVal: flag.NoOptDefVal,
			Hidden:      true,
		})
	}
}

// splitKnown partitions args into tokens the grammar recognizes (with their
// values) and unrecognized flag tokens. Everything after "--" is known.
func splitKnown(fs *pflag.FlagSet, args []string) (known, unknown []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			return append(known, args[i:]...), unknown
		case len(a) < 2 || a[0] != '-':
			known = append(known, a)
		case strings.HasPrefix(a, "--"):
			name, _, hasValue := strings.Cut(a[2:], "=")
			f := fs.Lookup(name)
			if f == nil {
				unknown = append(unknown, a)
				continue
			}
			known = append(known, a)
			if !hasValue && f.NoOptDefVal == "" && i+1 < len(args) {
				i++
				known = append(known, args[i])
			}
		default:
			f := fs.ShorthandLookup(a[1:2])
			if f == nil {
				unknown = append(unknown, a)
				continue
			}
			if f.NoOptDefVal == "" {
				known = append(known, a)
				if len(a) == 2 && i+1 < len(args) {
					i++
					known = append(known, args[i])
				}
				continue
			}
			if shortClusterKnown(fs, a[1:]) {
				known = append(known, a)
			} else {
				unknown = append(unknown, a)
			}
		}
	}
	return known, unknown
}

// shortClusterKnown reports whether every shorthand in a cluster like "vvx"
// is declared. A shorthand that takes a value swallows the rest.
func shortClusterKnown(fs *pflag.FlagSet, cluster string) bool {
	for i := 0; i < len(cluster); i++ {
		if cluster[i] == '=' {
			return true
		}
		f := fs.ShorthandLookup(cluster[i : i+1])
		if f == nil {
			return false
		}
		if f.NoOptDefVal == "" {
			return true
		}
	}
	return true
}

// holder stores a plugin destination during one parse.
type holder struct {
	kind Kind
	s    string
	b    bool
	n    int
	list []string
}

func newHolder(opt *Option, current any) *holder {
	h := &holder{kind: opt.Kind}
	v := current
	if v == nil {
		v = opt.Default
	}
	switch x := v.(type) {
	case string:
		h.s = x
	case bool:
		h.b = x
	case int:
		h.n = x
	case []string:
		h.list = cloneStrings(x)
	}
	return h
}

func (h *holder) ptr() any {
	switch h.kind {
	case KindBool:
		return &h.b
	case KindInt, KindCount:
		return &h.n
	case KindAppend:
		return &h.list
	}
	return &h.s
}

func (h *holder) value() any {
	switch h.kind {
	case KindBool:
		return h.b
	case KindInt, KindCount:
		return h.n
	case KindAppend:
		if h.list == nil {
			return []string{}
		}
		return cloneStrings(h.list)
	}
	return h.s
}

// choiceValue is a string flag limited to a fixed set of values.
type choiceValue struct {
	p       *string
	choices []string
}

func (c *choiceValue) String() string {
	if c.p == nil {
		return ""
	}
	return *c.p
}

func (c *choiceValue) Set(s string) error {
	if !slices.Contains(c.choices, s) {
		return fmt.Errorf("invalid choice %q (choose from %s)", s, strings.Join(c.choices, ", "))
	}
	*c.p = s
	return nil
}

func (c *choiceValue) Type() string {
	return "string"
}
