package hook

import "slices"

// Call invokes every implementation of name and returns the non-nil results
// in dispatch order. For a firstresult spec the slice holds at most one
// element and dispatch stops once it is found.
//
// An error from any implementation stops the call and is returned unchanged.
func (r *Registry) Call(name string, args Args) ([]any, error) {
	c, ok := r.callers[name]
	if !ok {
		return nil, &UnknownSpecError{Name: name}
	}
	if err := c.checkArgs(args); err != nil {
		return nil, err
	}
	r.trace("hook call", name, "")

	plain := slices.Clone(c.nonwrappers)
	next := func() ([]any, error) {
		return r.callPlain(c, plain, args, nil)
	}
	for _, w := range slices.Clone(c.wrappers) {
		inner := next
		wrapper := w
		next = func() ([]any, error) {
			r.trace("hook wrap", name, wrapper.Plugin)
			return wrapper.Wrapper(args, inner)
		}
	}
	return next()
}

// CallFirst is Call for firstresult specs. It returns nil when no
// implementation produced a result.
func (r *Registry) CallFirst(name string, args Args) (any, error) {
	results, err := r.Call(name, args)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return results[0], nil
}

// CallHistoric records the call in the spec's log and invokes every current
// implementation. Each non-nil result is handed to cb as soon as its
// implementation returns. Implementations attached later receive the same
// call, and cb, when they register.
func (r *Registry) CallHistoric(name string, args Args, cb ResultCallback) error {
	c, ok := r.callers[name]
	if !ok {
		return &UnknownSpecError{Name: name}
	}
	if !c.spec.Historic {
		return ErrNotHistoric
	}
	if err := c.checkArgs(args); err != nil {
		return err
	}
	c.history = append(c.history, historicCall{args: args, cb: cb})
	r.trace("hook call historic", name, "")

	_, err := r.callPlain(c, slices.Clone(c.nonwrappers), args, cb)
	return err
}

func (r *Registry) callPlain(c *caller, impls []*Impl, args Args, cb ResultCallback) ([]any, error) {
	var results []any
	for i := len(impls) - 1; i >= 0; i-- {
		impl := impls[i]
		r.trace("hook impl", c.spec.Name, impl.Plugin)
		res, err := impl.Func(args)
		if err != nil {
			return results, err
		}
		if res == nil {
			continue
		}
		if cb != nil {
			if err := cb(res); err != nil {
				return results, err
			}
		}
		results = append(results, res)
		if c.spec.FirstResult {
			break
		}
	}
	return results, nil
}

func (c *caller) checkArgs(args Args) error {
	for _, p := range c.spec.Params {
		if _, ok := args[p]; !ok {
			return &ArgumentError{Hook: c.spec.Name, Param: p}
		}
	}
	return nil
}
