// Package plugin provides the plugin manager for distill.
//
// A Plugin is any comparable value that declares its hook implementations
// explicitly through a Registrar:
//
//	type csvPlugin struct{}
//
//	func (csvPlugin) PluginName() string { return "csv" }
//
//	func (p csvPlugin) Register(r *plugin.Registrar) error {
//	    r.Hook(plugin.HookConfigure, func(args hook.Args) (any, error) {
//	        // ...
//	        return nil, nil
//	    })
//	    return nil
//	}
//
// The Manager owns the hook registry. It resolves plugin names through
// Sources: the compiled-in Catalog, which packages fill from init functions
// the way database/sql drivers register themselves, and installed Lua plugin
// packages. Plugins are requested with -p on the command line, through the
// DISTILL_PLUGINS environment variable, or by advertising an entry point
// group that the bootstrap loads.
//
// # Blocking
//
// A plugin argument of the form "no:NAME" (or "-NAME" in the environment)
// blocks NAME: it is unregistered if present and never loaded afterwards.
package plugin
