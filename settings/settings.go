// Package settings applies configuration to a fresh LsetMap at create time.
// The LSET core itself only consumes the resulting LsetMap; loading a named
// user module and maintaining the table of packaged presets are treated as
// an external collaborator this package models with a small interface and
// a reference map-backed implementation, the way hawkingrei-badger/options.go
// ships a DefaultOptions preset alongside the Options struct it configures.
package settings

import (
	"fmt"

	"github.com/rpcpool/lset/ldt"
)

// AdjustFunc mutates an LsetMap in place. Both a loaded user module's
// adjust_settings entry point and a named package in the table below have
// this shape.
type AdjustFunc func(*ldt.LsetMap) error

// Module is a loadable user module: a named reference resolved by the host,
// exposing an optional adjust_settings hook and any function names it
// wants registered on the resulting LsetMap.
type Module interface {
	AdjustSettings(lm *ldt.LsetMap) error
}

// ModuleLoader resolves a string UserModule argument to a Module. A caller
// wires this to whatever code-loading mechanism the host provides; this
// package never loads code itself.
type ModuleLoader interface {
	LoadModule(name string) (Module, error)
}

// Registry is the packaged-settings table: named presets whose
// entries mutate an LsetMap, looked up by a structured UserModule's
// "Package" field.
type Registry struct {
	packages map[string]AdjustFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{packages: make(map[string]AdjustFunc)}
}

// Register adds (or replaces) a named preset.
func (r *Registry) Register(name string, fn AdjustFunc) {
	r.packages[name] = fn
}

// Lookup returns the preset registered under name, if any.
func (r *Registry) Lookup(name string) (AdjustFunc, bool) {
	fn, ok := r.packages[name]
	return fn, ok
}

// StructuredModule is the shape of a structured (non-string) UserModule
// argument: a "Package" name into the Registry, plus any recognized
// options applied directly. Unknown entries are ignored.
type StructuredModule struct {
	Package string
	Options map[string]any
}

// ApplyOptions copies recognized entries from Options onto lm.
// Unrecognized keys are silently ignored.
func (m StructuredModule) ApplyOptions(lm *ldt.LsetMap) error {
	for key, val := range m.Options {
		switch key {
		case "Modulo":
			n, err := toInt(val)
			if err != nil {
				return fmt.Errorf("%w: Modulo: %v", ldt.ErrUserModuleBad, err)
			}
			lm.Modulo = n
		case "Threshold":
			n, err := toInt(val)
			if err != nil {
				return fmt.Errorf("%w: Threshold: %v", ldt.ErrUserModuleBad, err)
			}
			lm.Threshold = n
		case "HashCellMaxList":
			n, err := toInt(val)
			if err != nil {
				return fmt.Errorf("%w: HashCellMaxList: %v", ldt.ErrUserModuleBad, err)
			}
			lm.HashCellMaxList = n
		case "SetTypeStore":
			s, ok := val.(ldt.SetTypeStore)
			if !ok {
				return fmt.Errorf("%w: SetTypeStore must be ldt.SetTypeStore", ldt.ErrUserModuleBad)
			}
			lm.SetTypeStore = s
		case "KeyType":
			kt, ok := val.(ldt.KeyType)
			if !ok {
				return fmt.Errorf("%w: KeyType must be ldt.KeyType", ldt.ErrUserModuleBad)
			}
			lm.KeyType = kt
		case "StoreMode":
			sm, ok := val.(ldt.StoreMode)
			if !ok {
				return fmt.Errorf("%w: StoreMode must be ldt.StoreMode", ldt.ErrUserModuleBad)
			}
			lm.StoreMode = sm
		case "KeyFunction":
			s, ok := val.(string)
			if !ok {
				return fmt.Errorf("%w: KeyFunction must be a string", ldt.ErrUserModuleBad)
			}
			lm.KeyFunction = s
		case "Transform":
			s, ok := val.(string)
			if !ok {
				return fmt.Errorf("%w: Transform must be a string", ldt.ErrUserModuleBad)
			}
			lm.Transform = s
		case "UnTransform":
			s, ok := val.(string)
			if !ok {
				return fmt.Errorf("%w: UnTransform must be a string", ldt.ErrUserModuleBad)
			}
			lm.UnTransform = s
		case "UserModule":
			s, ok := val.(string)
			if !ok {
				return fmt.Errorf("%w: UserModule must be a string", ldt.ErrUserModuleBad)
			}
			lm.UserModule = s
		case "StoreLimit":
			n, err := toInt(val)
			if err != nil {
				return fmt.Errorf("%w: StoreLimit: %v", ldt.ErrUserModuleBad, err)
			}
			lm.StoreLimit = n
		}
	}
	return nil
}

// toInt accepts float64 alongside Go's integer types since a JSON number
// decoded into an interface{} (settings.DecodeStructuredModule's Options
// map) always arrives as float64.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

// Apply is the entry point create calls with whatever userModule
// argument it was given: nil, a string module name, or a StructuredModule.
func Apply(lm *ldt.LsetMap, userModule any, loader ModuleLoader, registry *Registry) error {
	switch m := userModule.(type) {
	case nil:
		return nil
	case string:
		if loader == nil {
			return ldt.ErrUserModuleNotFound
		}
		mod, err := loader.LoadModule(m)
		if err != nil {
			return fmt.Errorf("%w: %v", ldt.ErrUserModuleNotFound, err)
		}
		return mod.AdjustSettings(lm)
	case StructuredModule:
		if m.Package != "" && registry != nil {
			if fn, ok := registry.Lookup(m.Package); ok {
				if err := fn(lm); err != nil {
					return err
				}
			}
		}
		return m.ApplyOptions(lm)
	default:
		return fmt.Errorf("%w: unrecognized user module type %T", ldt.ErrUserModuleBad, userModule)
	}
}
