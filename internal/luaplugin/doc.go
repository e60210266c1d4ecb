// Package luaplugin runs plugins written in Lua.
//
// A plugin file declares hook implementations through the distill module,
// which is both a global and available through require:
//
//	local distill = require("distill")
//
//	distill.plugins("helper")
//
//	distill.hook("addoption", function(args)
//	    args.parser:addoption{"--greeting", default = "hello", help = "what to say"}
//	    args.parser:addini("greet_targets", "names to greet", "args")
//	end)
//
//	distill.hook("cmdline_main", function(args)
//	    if args.config:subcommand() ~= "greet" then
//	        return nil
//	    end
//	    args.config:echo(args.config:getoption("greeting"))
//	    return 0
//	end, {trylast = true})
//
// Hook functions receive one table holding the hook's arguments by name.
// The parser, config and plugin manager arguments are objects whose
// methods are called with colon syntax. Returning nil means no result.
//
// Wrappers are declared with distill.wrapper and receive a second argument,
// next, which runs the wrapped implementations and returns their results.
//
// Installed plugins are found by Source; local config modules are loaded
// by the conftest package.
package luaplugin
