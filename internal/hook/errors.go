package hook

import (
	"errors"
	"fmt"
)

// Registry errors.
var (
	// ErrHistoricWrapper is returned when a wrapper targets a historic spec.
	ErrHistoricWrapper = errors.New("hook: wrapper implementations cannot attach to historic hooks")

	// ErrNotHistoric is returned by CallHistoric for a non-historic spec.
	ErrNotHistoric = errors.New("hook: spec is not historic")

	// ErrEmptyImpl is returned when an implementation has neither Func nor Wrapper.
	ErrEmptyImpl = errors.New("hook: implementation has no function")

	// ErrConflictingOrder is returned when an implementation is both tryfirst and trylast.
	ErrConflictingOrder = errors.New("hook: implementation cannot be both tryfirst and trylast")
)

// DuplicateSpecError reports a second declaration of a spec name.
type DuplicateSpecError struct {
	Name string
}

func (e *DuplicateSpecError) Error() string {
	return fmt.Sprintf("hook: spec %q already declared", e.Name)
}

// UnknownSpecError reports a reference to an undeclared spec.
type UnknownSpecError struct {
	Name string
}

func (e *UnknownSpecError) Error() string {
	return fmt.Sprintf("hook: unknown hook %q", e.Name)
}

// ArgumentError reports a call missing one of the spec's parameters.
type ArgumentError struct {
	Hook  string
	Param string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("hook: call to %q missing argument %q", e.Hook, e.Param)
}

// IsUnknownSpec reports whether err is an UnknownSpecError.
func IsUnknownSpec(err error) bool {
	var u *UnknownSpecError
	return errors.As(err, &u)
}
