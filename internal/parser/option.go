package parser

import (
	"fmt"
	"strings"
)

// Kind selects how an option consumes the command line.
type Kind int

// Option kinds.
const (
	// KindString stores the flag's value.
	KindString Kind = iota

	// KindBool stores true when the flag is present.
	KindBool

	// KindInt stores the flag's value as an integer.
	KindInt

	// KindCount counts occurrences (-vvv).
	KindCount

	// KindAppend collects every occurrence.
	KindAppend
)

// String returns the action name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "store"
	case KindBool:
		return "store_true"
	case KindInt:
		return "store_int"
	case KindCount:
		return "count"
	case KindAppend:
		return "append"
	default:
		return "unknown"
	}
}

// ParseKind maps an action name and value type to a Kind. An empty action
// means "store"; an empty type means "string".
func ParseKind(action, typ string) (Kind, error) {
	switch action {
	case "", "store":
		switch typ {
		case "", "string":
			return KindString, nil
		case "int":
			return KindInt, nil
		}
		return 0, fmt.Errorf("%w: type %q", ErrUnknownKind, typ)
	case "store_true":
		return KindBool, nil
	case "count":
		return KindCount, nil
	case "append":
		return KindAppend, nil
	}
	return 0, fmt.Errorf("%w: action %q", ErrUnknownKind, action)
}

// Option declares one command-line option.
type Option struct {
	// Names are the flag spellings, e.g. "-c" and "--inifile".
	Names []string

	// Dest is the namespace key. Derived from the first long name when empty.
	Dest string

	Kind    Kind
	Default any
	Help    string

	// Choices restricts a KindString option to a fixed set of values.
	Choices []string

	// Hidden options are parsed but left out of help output.
	Hidden bool

	long    string
	short   string
	aliases []string
}

// Long returns the primary long flag name without dashes.
func (o *Option) Long() string {
	return o.long
}

// Short returns the one-letter shorthand, or "".
func (o *Option) Short() string {
	return o.short
}

// resolve splits the names, derives Dest, and normalizes Default.
func (o *Option) resolve() error {
	if len(o.Names) == 0 {
		return ErrNoNames
	}
	o.long, o.short, o.aliases = "", "", nil
	for _, name := range o.Names {
		switch {
		case strings.HasPrefix(name, "--") && len(name) > 2 && name[2] != '-':
			if o.long == "" {
				o.long = name[2:]
			} else {
				o.aliases = append(o.aliases, name[2:])
			}
		case len(name) == 2 && name[0] == '-' && name[1] != '-':
			if o.short != "" {
				return &ConflictError{Name: name, Reason: "only one shorthand allowed per option"}
			}
			o.short = name[1:]
		default:
			return &InvalidNameError{Name: name}
		}
	}
	if o.long == "" {
		return fmt.Errorf("%w: %s", ErrNoLongName, strings.Join(o.Names, "/"))
	}
	if o.Dest == "" {
		o.Dest = strings.ReplaceAll(o.long, "-", "_")
	}
	if len(o.Choices) > 0 && o.Kind != KindString {
		return &ConflictError{Name: o.display(), Reason: "choices require a string option"}
	}

	def, err := normalizeDefault(o.Kind, o.Default)
	if err != nil {
		return &ConflictError{Name: o.display(), Reason: err.Error()}
	}
	o.Default = def
	return nil
}

func (o *Option) display() string {
	return strings.Join(o.Names, "/")
}

// flagNames returns every spelling the option occupies in the grammar.
func (o *Option) flagNames() []string {
	names := []string{"--" + o.long}
	for _, a := range o.aliases {
		names = append(names, "--"+a)
	}
	if o.short != "" {
		names = append(names, "-"+o.short)
	}
	return names
}

// normalizeDefault coerces v to the Go type used for kind. A nil default
// stays nil; the zero value is used at parse time.
func normalizeDefault(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindInt, KindCount:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n == float64(int(n)) {
				return int(n), nil
			}
		}
	case KindAppend:
		switch l := v.(type) {
		case []string:
			return append([]string(nil), l...), nil
		case []any:
			out := make([]string, 0, len(l))
			for _, item := range l {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("default list item %v is not a string", item)
				}
				out = append(out, s)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("default %v (%T) does not fit %s", v, v, kind)
}
