package lua

import (
	"errors"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a chunk or call runs past the
	// state's timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrNotFunction is returned when a value expected to be callable is not.
	ErrNotFunction = errors.New("lua value is not a function")
)

// Message returns the error text a Lua script raised, without the stack
// traceback gopher-lua appends.
func Message(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return apiErr.Object.String()
	}
	if err == nil {
		return ""
	}
	msg, _, _ := strings.Cut(err.Error(), "\nstack traceback:")
	return msg
}

// Traceback returns the script frames of err's stack traceback, innermost
// first. Frames executing Go functions ("[G]") are dropped.
func Traceback(err error) []string {
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return nil
	}
	var frames []string
	for _, line := range strings.Split(apiErr.StackTrace, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "stack traceback:" || strings.HasPrefix(line, "[G]") {
			continue
		}
		frames = append(frames, line)
	}
	return frames
}
