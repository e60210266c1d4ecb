package hook

// Args carries the keyword arguments of a hook call.
type Args map[string]any

// Func is a plain hook implementation. A nil result means "no result".
type Func func(args Args) (any, error)

// WrapperFunc surrounds the plain implementations of a call. next runs the
// inner implementations (and any inner wrappers) and returns their outcome;
// the wrapper returns the outcome seen by its caller.
type WrapperFunc func(args Args, next func() ([]any, error)) ([]any, error)

// ResultCallback receives each non-nil result of a historic call.
type ResultCallback func(result any) error

// Spec declares a hook.
type Spec struct {
	// Name identifies the hook.
	Name string

	// Historic specs record calls and replay them to late implementations.
	Historic bool

	// FirstResult specs stop at the first non-nil result.
	FirstResult bool

	// Params lists the argument names every call must supply.
	Params []string
}

// Impl is a hook implementation attached by a plugin.
type Impl struct {
	// Plugin is the canonical name of the owning plugin.
	Plugin string

	Func    Func
	Wrapper WrapperFunc

	TryFirst bool
	TryLast  bool
}

// IsWrapper reports whether the implementation is a wrapper.
func (i *Impl) IsWrapper() bool {
	return i.Wrapper != nil
}

func (i *Impl) validate() error {
	if i.Func == nil && i.Wrapper == nil {
		return ErrEmptyImpl
	}
	if i.TryFirst && i.TryLast {
		return ErrConflictingOrder
	}
	return nil
}

// ImplOption adjusts an implementation's ordering.
type ImplOption func(*Impl)

// TryFirst runs the implementation before unmarked ones.
func TryFirst() ImplOption {
	return func(i *Impl) { i.TryFirst = true }
}

// TryLast runs the implementation after unmarked ones.
func TryLast() ImplOption {
	return func(i *Impl) { i.TryLast = true }
}
