package parser

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPrintHelp is returned by ParseSetOption when --help or --version was
// requested. It is a control signal, not a failure.
var ErrPrintHelp = errors.New("help requested")

// Option declaration errors.
var (
	// ErrNoNames is returned for an option without flag names.
	ErrNoNames = errors.New("option has no names")

	// ErrNoLongName is returned when an option lacks a --long name.
	ErrNoLongName = errors.New("option needs a --long name")

	// ErrUnknownKind is returned for an unrecognized action or type.
	ErrUnknownKind = errors.New("unknown option kind")
)

// InvalidNameError reports a malformed flag name.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid option name %q: expected -x or --long-name", e.Name)
}

// ConflictError reports an option or ini key that collides with an existing one.
type ConflictError struct {
	Name   string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("option %s: %s", e.Name, e.Reason)
}

// ParseError reports a command line the grammar rejected.
type ParseError struct {
	Prog string
	Err  error

	// Info holds "key: value" lines describing the resolved setup.
	Info []string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: error: %v", e.Prog, e.Err)
	for _, line := range e.Info {
		b.WriteString("\n  ")
		b.WriteString(line)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
