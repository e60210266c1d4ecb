package plugin

import "github.com/dshills/distill/internal/hook"

// Built-in hook names.
const (
	HookAddHooks             = "addhooks"
	HookNamespace            = "namespace"
	HookPluginRegistered     = "plugin_registered"
	HookAddOption            = "addoption"
	HookConfigure            = "configure"
	HookUnconfigure          = "unconfigure"
	HookLogWarning           = "logwarning"
	HookCmdlineParse         = "cmdline_parse"
	HookCmdlineMain          = "cmdline_main"
	HookLoadInitialConftests = "load_initial_conftests"
)

// BuiltinSpecs returns the hook declarations every Manager starts with.
func BuiltinSpecs() []hook.Spec {
	return []hook.Spec{
		// Lets plugins declare new hooks through Manager.AddHookSpecs.
		{Name: HookAddHooks, Historic: true, Params: []string{"pluginmanager"}},
		// Results are merged into the configuration's read-only namespace.
		{Name: HookNamespace, Historic: true},
		{Name: HookPluginRegistered, Historic: true, Params: []string{"plugin", "manager"}},
		{Name: HookAddOption, Historic: true, Params: []string{"parser"}},
		{Name: HookConfigure, Historic: true, Params: []string{"config"}},
		{Name: HookUnconfigure, Params: []string{"config"}},
		{Name: HookLogWarning, Historic: true, Params: []string{"code", "message", "fslocation", "nodeid"}},
		{Name: HookCmdlineParse, FirstResult: true, Params: []string{"pluginmanager", "subcmd", "args"}},
		// The execution entry point; returns the process exit code.
		{Name: HookCmdlineMain, FirstResult: true, Params: []string{"config"}},
		{Name: HookLoadInitialConftests, Params: []string{"early_config", "parser", "args"}},
	}
}
