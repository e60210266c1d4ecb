package luaplugin

import (
	"errors"
	"fmt"

	plua "github.com/dshills/distill/internal/plugin/lua"
)

// Errors for plugin discovery and loading.
var (
	// ErrNoEntryPoint is returned for a plugin directory with neither a
	// manifest nor an init.lua.
	ErrNoEntryPoint = errors.New("plugin has no entry point")

	// ErrClosed is returned when calling into a closed plugin.
	ErrClosed = errors.New("lua plugin is closed")
)

// LoadError reports a Lua file that failed to run.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s", e.Path, e.Message())
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Message returns the error the script raised.
func (e *LoadError) Message() string {
	return plua.Message(e.Err)
}

// Traceback returns the script's stack frames, innermost first.
func (e *LoadError) Traceback() []string {
	return plua.Traceback(e.Err)
}

// HookError reports a Lua hook implementation that raised.
type HookError struct {
	Plugin string
	Hook   string
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("plugin %s: hook %s: %s", e.Plugin, e.Hook, plua.Message(e.Err))
}

func (e *HookError) Unwrap() error {
	return e.Err
}
