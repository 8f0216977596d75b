package lset

import (
	"github.com/rpcpool/lset/ldt"
	"github.com/rpcpool/lset/settings"
)

// CreateOption refines the LsetMap that create() builds, applied after
// userModule so that a caller can layer idiomatic Go configuration on top
// of (or instead of) a loaded/structured user module.
type CreateOption func(*settings.StructuredModule)

func setOpt(key string, val any) CreateOption {
	return func(m *settings.StructuredModule) {
		if m.Options == nil {
			m.Options = make(map[string]any)
		}
		m.Options[key] = val
	}
}

// WithModulo sets the bucket count M (default 128).
func WithModulo(n int) CreateOption { return setOpt("Modulo", n) }

// WithThreshold sets the compact-to-regular rehash trigger (default 101).
func WithThreshold(n int) CreateOption { return setOpt("Threshold", n) }

// WithHashCellMaxList sets the inline-to-subrec promotion size per cell
// (default 4, SubRecord layout only).
func WithHashCellMaxList(n int) CreateOption { return setOpt("HashCellMaxList", n) }

// WithSetTypeStore chooses the TopRecord or SubRecord persistence layout
// (default SubRecord).
func WithSetTypeStore(s ldt.SetTypeStore) CreateOption { return setOpt("SetTypeStore", s) }

// WithKeyType marks members as atomic scalars or complex structured values
// (default atomic).
func WithKeyType(k ldt.KeyType) CreateOption { return setOpt("KeyType", k) }

// WithStoreMode selects how member values are packed (default SMList).
// SMBinary is declared but not implemented; requesting it fails Create
// with ErrInputParm.
func WithStoreMode(m ldt.StoreMode) CreateOption { return setOpt("StoreMode", m) }

// WithKeyFunction registers the name of a key-extraction function,
// resolved against the Engine's funcreg.Registry on every call.
func WithKeyFunction(name string) CreateOption { return setOpt("KeyFunction", name) }

// WithTransform registers the name of a write-path encoding function.
func WithTransform(name string) CreateOption { return setOpt("Transform", name) }

// WithUnTransform registers the name of a read-path decoding function.
func WithUnTransform(name string) CreateOption { return setOpt("UnTransform", name) }

// WithStoreLimit sets the advisory capacity ceiling; enforcement is a
// declared non-goal.
func WithStoreLimit(n int) CreateOption { return setOpt("StoreLimit", n) }
