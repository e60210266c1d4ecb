package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// Help writes the usage line and every option group. Lines are wrapped to
// width columns; width <= 0 disables wrapping.
func (p *Parser) Help(w io.Writer, subcmd string, width int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "usage: %s\n\n", p.usage)
	b.WriteString("positional arguments:\n  file_or_dir\n")

	for _, g := range p.Groups() {
		if len(g.options) == 0 {
			continue
		}
		usages := p.groupFlagSet(subcmd, g).FlagUsagesWrapped(width)
		if usages == "" {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n%s", g.Description(), usages)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// groupFlagSet builds a grammar holding only g's options, bound to a
// scratch namespace so defaults render without touching real state.
func (p *Parser) groupFlagSet(subcmd string, g *OptionGroup) *pflag.FlagSet {
	scratch := &Parser{prog: p.prog, anonymous: &OptionGroup{options: g.options}}
	fs, _ := scratch.flagSet(subcmd, NewNamespace())
	return fs
}

// IniHelp writes the declared ini keys under header.
func (p *Parser) IniHelp(w io.Writer, header string) error {
	inis := p.Inis()
	if len(inis) == 0 {
		return nil
	}
	width := 0
	for _, spec := range inis {
		if n := len(spec.Name) + len(spec.Type) + 3; n > width {
			width = n
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n\n", header)
	for _, spec := range inis {
		label := fmt.Sprintf("%s (%s)", spec.Name, spec.Type)
		fmt.Fprintf(&b, "  %-*s  %s\n", width, label, spec.Help)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
