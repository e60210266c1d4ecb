package hook

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
)

// Registry holds hook specs, their implementations, and historic call logs.
type Registry struct {
	callers map[string]*caller
	order   []string

	// Implementations of hooks nobody has declared yet.
	pending     map[string][]*Impl
	pendingKeys []string

	tracer *log.Logger
}

// caller dispatches a single spec.
type caller struct {
	spec Spec

	// Both slices are kept in ascending priority; dispatch walks them backwards.
	nonwrappers []*Impl
	wrappers    []*Impl

	history []historicCall
}

// historicCall is one entry of a historic spec's call log.
type historicCall struct {
	args Args
	cb   ResultCallback
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		callers: make(map[string]*caller),
		pending: make(map[string][]*Impl),
	}
}

// SetTracer attaches a logger that receives one debug line per dispatch.
// A nil logger disables tracing.
func (r *Registry) SetTracer(l *log.Logger) {
	r.tracer = l
}

// AddSpec declares a hook. Implementations deferred for the name are bound
// now, which replays nothing since the spec has no history yet. Deferred
// wrappers cannot attach to a historic spec; they are dropped and reported
// together, and the remaining implementations stay bound.
func (r *Registry) AddSpec(spec Spec) error {
	if _, ok := r.callers[spec.Name]; ok {
		return &DuplicateSpecError{Name: spec.Name}
	}
	c := &caller{spec: spec}
	r.callers[spec.Name] = c
	r.order = append(r.order, spec.Name)

	deferred := r.pending[spec.Name]
	if len(deferred) == 0 {
		return nil
	}
	delete(r.pending, spec.Name)
	r.pendingKeys = slices.DeleteFunc(r.pendingKeys, func(k string) bool { return k == spec.Name })
	var errs []error
	for _, impl := range deferred {
		if spec.Historic && impl.IsWrapper() {
			errs = append(errs, fmt.Errorf("%w: %s on %s", ErrHistoricWrapper, impl.Plugin, spec.Name))
			continue
		}
		if err := r.bind(c, impl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HasSpec reports whether name is declared.
func (r *Registry) HasSpec(name string) bool {
	_, ok := r.callers[name]
	return ok
}

// Spec returns the declaration for name.
func (r *Registry) Spec(name string) (Spec, bool) {
	c, ok := r.callers[name]
	if !ok {
		return Spec{}, false
	}
	return c.spec, true
}

// Specs returns all declared specs in declaration order.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.callers[name].spec)
	}
	return specs
}

// AddImpl attaches impl to the named spec. For historic specs every recorded
// call is replayed against impl before AddImpl returns; an error from the
// replay is returned, with the implementation left attached.
func (r *Registry) AddImpl(name string, impl *Impl) error {
	if err := impl.validate(); err != nil {
		return err
	}
	c, ok := r.callers[name]
	if !ok {
		return &UnknownSpecError{Name: name}
	}
	return r.bind(c, impl)
}

// Defer keeps impl until a spec named name is declared. Plugins written
// against a newer or older hook set stay loadable this way.
func (r *Registry) Defer(name string, impl *Impl) error {
	if err := impl.validate(); err != nil {
		return err
	}
	if c, ok := r.callers[name]; ok {
		return r.bind(c, impl)
	}
	if _, ok := r.pending[name]; !ok {
		r.pendingKeys = append(r.pendingKeys, name)
	}
	r.pending[name] = append(r.pending[name], impl)
	return nil
}

// Pending returns the names of undeclared hooks that have implementations.
func (r *Registry) Pending() []string {
	return slices.Clone(r.pendingKeys)
}

func (r *Registry) bind(c *caller, impl *Impl) error {
	if impl.IsWrapper() {
		if c.spec.Historic {
			return ErrHistoricWrapper
		}
		c.wrappers = insertImpl(c.wrappers, impl)
		return nil
	}
	c.nonwrappers = insertImpl(c.nonwrappers, impl)
	if c.spec.Historic {
		return r.replay(c, impl)
	}
	return nil
}

// insertImpl places impl by its ordering marks: trylast at the bottom,
// tryfirst at the top, everything else just below the tryfirst band.
func insertImpl(list []*Impl, impl *Impl) []*Impl {
	switch {
	case impl.TryLast:
		return slices.Insert(list, 0, impl)
	case impl.TryFirst:
		return append(list, impl)
	}
	i := len(list) - 1
	for i >= 0 && list[i].TryFirst {
		i--
	}
	return slices.Insert(list, i+1, impl)
}

func (r *Registry) replay(c *caller, impl *Impl) error {
	for _, h := range c.history {
		r.trace("hook replay", c.spec.Name, impl.Plugin)
		res, err := impl.Func(h.args)
		if err != nil {
			return err
		}
		if res != nil && h.cb != nil {
			if err := h.cb(res); err != nil {
				return err
			}
		}
	}
	return nil
}

// Remove detaches every implementation owned by plugin, including deferred
// ones. History is kept.
func (r *Registry) Remove(plugin string) {
	owned := func(i *Impl) bool { return i.Plugin == plugin }
	for _, c := range r.callers {
		c.nonwrappers = slices.DeleteFunc(c.nonwrappers, owned)
		c.wrappers = slices.DeleteFunc(c.wrappers, owned)
	}
	for name, impls := range r.pending {
		impls = slices.DeleteFunc(impls, owned)
		if len(impls) == 0 {
			delete(r.pending, name)
			r.pendingKeys = slices.DeleteFunc(r.pendingKeys, func(k string) bool { return k == name })
			continue
		}
		r.pending[name] = impls
	}
}

// Impls returns the implementations of name in dispatch order, wrappers first.
func (r *Registry) Impls(name string) []*Impl {
	c, ok := r.callers[name]
	if !ok {
		return nil
	}
	out := make([]*Impl, 0, len(c.wrappers)+len(c.nonwrappers))
	for i := len(c.wrappers) - 1; i >= 0; i-- {
		out = append(out, c.wrappers[i])
	}
	for i := len(c.nonwrappers) - 1; i >= 0; i-- {
		out = append(out, c.nonwrappers[i])
	}
	return out
}

// ClearHistory drops the call log of name.
func (r *Registry) ClearHistory(name string) {
	if c, ok := r.callers[name]; ok {
		c.history = nil
	}
}

// History returns the number of recorded calls of name.
func (r *Registry) History(name string) int {
	if c, ok := r.callers[name]; ok {
		return len(c.history)
	}
	return 0
}

func (r *Registry) trace(msg, hook, plugin string) {
	if r.tracer == nil {
		return
	}
	if plugin == "" {
		r.tracer.Debug(msg, "hook", hook)
		return
	}
	r.tracer.Debug(msg, "hook", hook, "plugin", plugin)
}
