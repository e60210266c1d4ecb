// Package config bootstraps an invocation: it turns the command line, the
// environment, ini files and local config modules into a resolved Config.
//
// The bootstrap moves through fixed states:
//
//	created -> pre-parsed -> ini-resolved -> conftests-loaded
//	        -> options-parsed -> configured -> unconfigured
//
// Plugins take part through hooks. The On* helpers in this package declare
// typed implementations of the built-in hooks:
//
//	plugin.NewFuncPlugin("report", func(r *plugin.Registrar) error {
//	    config.OnAddOption(r, func(p *parser.Parser) error {
//	        return p.AddOption(&parser.Option{Names: []string{"--report"}, Kind: parser.KindString})
//	    })
//	    config.OnConfigure(r, func(c *config.Config) error {
//	        dest, _ := c.GetOption("report")
//	        ...
//	    })
//	    return nil
//	})
//
// Main wires everything together and maps failures to exit codes.
package config
