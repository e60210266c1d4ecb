package plugin

import (
	"strings"
)

// EnvPlugins lists plugins to import at startup, separated by commas or
// colons.
const EnvPlugins = "DISTILL_PLUGINS"

// blockedPrefix is the alternative module name also blocked by -p no:NAME.
const blockedPrefix = "distill_"

// ParsePluginArg splits a -p value into the plugin name and whether it
// requests blocking. "no:NAME" and "-NAME" both block NAME.
func ParsePluginArg(arg string) (name string, block bool) {
	switch {
	case strings.HasPrefix(arg, "no:"):
		return arg[len("no:"):], true
	case strings.HasPrefix(arg, "-"):
		return arg[1:], true
	default:
		return arg, false
	}
}

// ConsiderPluginArg applies a single -p value: it either blocks a name or
// imports a plugin.
func (m *Manager) ConsiderPluginArg(arg string) error {
	name, block := ParsePluginArg(arg)
	if name == "" {
		return nil
	}
	if block {
		m.SetBlocked(name)
		if !strings.HasPrefix(name, blockedPrefix) {
			m.SetBlocked(blockedPrefix + name)
		}
		return nil
	}
	return m.ImportPlugin(name)
}

// ConsiderPreparse applies every -p value found in the arguments of
// subcmd, stopping at "--". Accepted forms are "-p NAME", "-pNAME",
// "--plugin NAME" and "--plugin=NAME".
func (m *Manager) ConsiderPreparse(subcmd string, args []string) error {
	values := PluginArgs(args)
	if len(values) > 0 {
		m.trace("preparse plugin args", "subcmd", subcmd, "values", values)
	}
	for _, v := range values {
		if err := m.ConsiderPluginArg(v); err != nil {
			return err
		}
	}
	return nil
}

// PluginArgs extracts the -p values from args in order.
func PluginArgs(args []string) []string {
	var values []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			return values
		case a == "-p" || a == "--plugin":
			if i+1 < len(args) {
				values = append(values, args[i+1])
				i++
			}
		case strings.HasPrefix(a, "--plugin="):
			values = append(values, a[len("--plugin="):])
		case strings.HasPrefix(a, "-p") && !strings.HasPrefix(a, "--"):
			values = append(values, a[2:])
		}
	}
	return values
}

// ConsiderEnvBlocks applies the blocking entries of DISTILL_PLUGINS
// ("-NAME" or "no:NAME") without importing anything. It runs before entry
// points load so a blocked entry point never registers.
func (m *Manager) ConsiderEnvBlocks() {
	for _, entry := range SplitPluginList(m.getenv(EnvPlugins)) {
		if _, block := ParsePluginArg(entry); block {
			_ = m.ConsiderPluginArg(entry)
		}
	}
}

// ConsiderEnv handles every DISTILL_PLUGINS entry like a -p value.
func (m *Manager) ConsiderEnv() error {
	for _, entry := range SplitPluginList(m.getenv(EnvPlugins)) {
		if err := m.ConsiderPluginArg(entry); err != nil {
			return err
		}
	}
	return nil
}

// SplitPluginList splits a comma or colon separated list of plugin names,
// dropping blanks.
func SplitPluginList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ':'
	})
	names := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			names = append(names, f)
		}
	}
	return names
}
