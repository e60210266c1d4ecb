package config

import (
	"errors"
	"fmt"
)

// Errors returned by Config.
var (
	// ErrAlreadyParsed is returned by a second call to Parse.
	ErrAlreadyParsed = errors.New("config: arguments can be parsed at most once")

	// ErrUnknownIni is returned by GetIni for an undeclared key.
	ErrUnknownIni = errors.New("unknown ini key")

	// ErrUnknownOption is returned by GetOption for an unregistered option.
	ErrUnknownOption = errors.New("no option named")

	// ErrUnknownSubcommand is returned when no plugin handles cmdline_main.
	ErrUnknownSubcommand = errors.New("unknown subcommand")
)

// UsageError reports a mistake in how the program was invoked. Main exits
// with ExitUsageError for it.
type UsageError struct {
	Msg string
	Err error
}

func (e *UsageError) Error() string {
	switch {
	case e.Msg == "":
		return e.Err.Error()
	case e.Err == nil:
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// LocalConfigImportFailure reports a local config module that failed to
// load. Traceback holds the module's own stack frames, innermost first.
type LocalConfigImportFailure struct {
	Path      string
	Err       error
	Traceback []string
}

func (e *LocalConfigImportFailure) Error() string {
	return fmt.Sprintf("could not load %s: %v", e.Path, e.Err)
}

func (e *LocalConfigImportFailure) Unwrap() error {
	return e.Err
}

// StateError reports a lifecycle transition that is not allowed.
type StateError struct {
	From State
	To   State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("config: cannot move from %s to %s", e.From, e.To)
}
