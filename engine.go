// Package lset is the public surface of the Large Set (LSET) engine: a
// server-resident, persistent set embedded in a single user-chosen bin of a
// host database record. It never touches storage directly — every
// durable effect is routed through the host.TopRecord/host.SubRecordHost
// contracts an Engine is constructed with.
package lset

import (
	"context"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/rpcpool/lset/funcreg"
	"github.com/rpcpool/lset/host"
	"github.com/rpcpool/lset/ldt"
	"github.com/rpcpool/lset/settings"
	"github.com/rpcpool/lset/subrecord"
)

var log = logging.Logger("lset")

// Engine bundles the collaborators the core logic declares out of scope
// for itself: a sub-record host for the SubRecord layout, the user-defined
// function registry, the packaged-settings module, and a clock. One Engine
// is typically constructed once per process and reused across every LSET
// bin it touches.
type Engine struct {
	SubHost      host.SubRecordHost
	Functions    funcreg.Registry
	ModuleLoader settings.ModuleLoader
	Packages     *settings.Registry
	Clock        host.Clock
}

// NewEngine returns an Engine with a real-time Clock. Functions,
// ModuleLoader, and Packages may all be left nil; a nil Functions registry
// means no KeyFunction/Transform/UnTransform/Filter name ever resolves, a
// nil ModuleLoader rejects a string userModule, and with a nil Packages a
// structured userModule's Package reference is ignored (its Options still
// apply).
func NewEngine(subHost host.SubRecordHost) *Engine {
	return &Engine{SubHost: subHost, Clock: host.SystemClock}
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return host.SystemClock()
	}
	return e.Clock()
}

// validateRecBinAndMap validates a bin against the descriptor rules below.
// When mustExist is true, the top
// record must exist, the bin must be present, and its value must be a
// valid, version-compatible Descriptor, or a typed error is returned. When
// mustExist is false, either an absent bin (nil, nil) or a valid descriptor
// is accepted; a present-but-corrupt descriptor is still rejected.
func (e *Engine) validateRecBinAndMap(ctx context.Context, topRec host.TopRecord, bin string, mustExist bool) (*ldt.Descriptor, error) {
	if err := ldt.ValidateBinName(bin); err != nil {
		return nil, err
	}

	exists, err := topRec.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		if mustExist {
			return nil, ldt.ErrTopRecNotFound
		}
		return nil, nil
	}

	raw, ok, err := topRec.GetBin(ctx, bin)
	if err != nil {
		return nil, err
	}
	if !ok {
		if mustExist {
			return nil, ldt.ErrBinDoesNotExist
		}
		return nil, nil
	}

	desc, ok := raw.(*ldt.Descriptor)
	if !ok {
		return nil, ldt.ErrBinDamaged
	}
	if err := ldt.ValidateDescriptor(&desc.Property); err != nil {
		return nil, err
	}
	return desc, nil
}

func (e *Engine) resolve(lm *ldt.LsetMap, filterName string, fargs []any) funcreg.Context {
	return funcreg.Resolve(e.Functions, lm.KeyFunction, lm.Transform, lm.UnTransform, filterName, fargs)
}

func (e *Engine) commit(ctx context.Context, topRec host.TopRecord, bin string, desc *ldt.Descriptor) error {
	if err := topRec.PutBin(ctx, bin, desc, false); err != nil {
		return fmt.Errorf("%w: %v", ldt.ErrTopRecUpdate, err)
	}
	if err := topRec.SetLDTFlag(ctx, bin); err != nil {
		return fmt.Errorf("%w: %v", ldt.ErrTopRecUpdate, err)
	}
	if err := topRec.Update(ctx); err != nil {
		return fmt.Errorf("%w: %v", ldt.ErrTopRecUpdate, err)
	}
	return nil
}

func (e *Engine) manager(topRec host.TopRecord) *subrecord.Manager {
	return &subrecord.Manager{Host: e.SubHost, Parent: topRec}
}

// subCtx returns sctx if non-nil, or a freshly created one plus a release
// function the caller must defer: a missing context is lazily created per
// call.
func (e *Engine) subCtx(topRec host.TopRecord, sctx *subrecord.Context) (*subrecord.Context, func(context.Context) error) {
	if sctx != nil {
		return sctx, func(context.Context) error { return nil }
	}
	owned := subrecord.NewContext(e.SubHost, topRec)
	return owned, owned.Release
}
