package plugin

import (
	"errors"
	"fmt"
)

// Plugin manager errors.
var (
	// ErrPluginNotFound is returned when no source provides a plugin name.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNilPlugin is returned when registering a nil plugin.
	ErrNilPlugin = errors.New("plugin is nil")

	// ErrNotComparable is returned for plugin values that cannot be compared
	// for identity (maps, slices, funcs, or structs holding them).
	ErrNotComparable = errors.New("plugin value is not comparable")

	// ErrNameTaken is returned when a different plugin already uses a name.
	ErrNameTaken = errors.New("plugin name already registered")
)

// ImportError reports a plugin that could not be resolved or constructed.
type ImportError struct {
	Name string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("error importing plugin %q: %v", e.Name, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
