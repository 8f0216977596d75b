// Package funcreg models the user-defined function registry as an external
// collaborator: transform/untransform/filter/key-extraction functions a
// caller may register by name. This package doesn't load code by name
// itself (that's the host's job, same as the database runtime); it gives
// the engine a single, explicit value to thread through a call instead of
// module-level mutable globals, so no process-wide state survives between
// calls.
package funcreg

import "github.com/rpcpool/lset/ldt"

// TransformFunc encodes a value before it is written to a list.
type TransformFunc func(ldt.Value) (ldt.Value, error)

// Registry resolves function names to callables. A caller implements this
// once (e.g. backed by a map, or by a plugin loader) and the engine never
// caches anything from it beyond a single call's Context.
type Registry interface {
	KeyFunc(name string) (ldt.KeyFunc, bool)
	Transform(name string) (TransformFunc, bool)
	UnTransform(name string) (ldt.UnTransformFunc, bool)
	Filter(name string) (ldt.FilterFunc, bool)
}

// Context bundles the resolved functions and arguments for exactly one API
// call, replacing any equivalent process-wide globals.
type Context struct {
	KeyFunc     ldt.KeyFunc
	Transform   TransformFunc
	UnTransform ldt.UnTransformFunc
	Filter      ldt.FilterFunc
	FilterArgs  []any
}

// Resolve builds a Context for one call from an LsetMap's registered
// function names (set at create/settings time) plus a per-call filter
// override (the filter/fargs parameters every read-path API accepts).
func Resolve(reg Registry, keyFuncName, transformName, unTransformName, filterName string, filterArgs []any) Context {
	var ctx Context
	if reg == nil {
		return Context{Filter: nil, FilterArgs: filterArgs}
	}
	if keyFuncName != "" {
		if fn, ok := reg.KeyFunc(keyFuncName); ok {
			ctx.KeyFunc = fn
		}
	}
	if transformName != "" {
		if fn, ok := reg.Transform(transformName); ok {
			ctx.Transform = fn
		}
	}
	if unTransformName != "" {
		if fn, ok := reg.UnTransform(unTransformName); ok {
			ctx.UnTransform = fn
		}
	}
	if filterName != "" {
		if fn, ok := reg.Filter(filterName); ok {
			ctx.Filter = fn
		}
	}
	ctx.FilterArgs = filterArgs
	return ctx
}

// MapRegistry is a Registry backed by plain maps, enough for tests and for
// callers who just want to register a handful of named functions without
// writing their own Registry.
type MapRegistry struct {
	KeyFuncs     map[string]ldt.KeyFunc
	Transforms   map[string]TransformFunc
	UnTransforms map[string]ldt.UnTransformFunc
	Filters      map[string]ldt.FilterFunc
}

// NewMapRegistry returns an empty MapRegistry ready for Register* calls.
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{
		KeyFuncs:     make(map[string]ldt.KeyFunc),
		Transforms:   make(map[string]TransformFunc),
		UnTransforms: make(map[string]ldt.UnTransformFunc),
		Filters:      make(map[string]ldt.FilterFunc),
	}
}

func (r *MapRegistry) RegisterKeyFunc(name string, fn ldt.KeyFunc) { r.KeyFuncs[name] = fn }
func (r *MapRegistry) RegisterTransform(name string, fn TransformFunc) { r.Transforms[name] = fn }
func (r *MapRegistry) RegisterUnTransform(name string, fn ldt.UnTransformFunc) {
	r.UnTransforms[name] = fn
}
func (r *MapRegistry) RegisterFilter(name string, fn ldt.FilterFunc) { r.Filters[name] = fn }

func (r *MapRegistry) KeyFunc(name string) (ldt.KeyFunc, bool) {
	fn, ok := r.KeyFuncs[name]
	return fn, ok
}

func (r *MapRegistry) Transform(name string) (TransformFunc, bool) {
	fn, ok := r.Transforms[name]
	return fn, ok
}

func (r *MapRegistry) UnTransform(name string) (ldt.UnTransformFunc, bool) {
	fn, ok := r.UnTransforms[name]
	return fn, ok
}

func (r *MapRegistry) Filter(name string) (ldt.FilterFunc, bool) {
	fn, ok := r.Filters[name]
	return fn, ok
}
