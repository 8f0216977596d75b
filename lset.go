package lset

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"

	"github.com/rpcpool/lset/funcreg"
	"github.com/rpcpool/lset/host"
	"github.com/rpcpool/lset/ldt"
	"github.com/rpcpool/lset/settings"
	"github.com/rpcpool/lset/subrecord"
	"github.com/rpcpool/lset/toprecord"
)

// Create builds a fresh Descriptor from defaults, layers a userModule
// (string package name, *settings.StructuredModule, or nil) and then any
// CreateOption overrides on top, and persists it as bin's value. A second
// create against the same bin, or, for the TopRecord layout, against a
// record that already carries a TopRecord-layout LSET in any bin, fails
// with ErrBinAlreadyExists.
func (e *Engine) Create(ctx context.Context, topRec host.TopRecord, bin string, userModule any, opts ...CreateOption) error {
	existing, err := e.validateRecBinAndMap(ctx, topRec, bin, false)
	if err != nil {
		return err
	}
	if existing != nil {
		return ldt.ErrBinAlreadyExists
	}

	lm := ldt.DefaultLsetMap()
	if err := settings.Apply(&lm, userModule, e.ModuleLoader, e.Packages); err != nil {
		return err
	}
	sm := settings.StructuredModule{}
	for _, opt := range opts {
		opt(&sm)
	}
	if err := sm.ApplyOptions(&lm); err != nil {
		return err
	}

	if lm.StoreMode == ldt.SMBinary {
		return fmt.Errorf("%w: binary store mode is not supported", ldt.ErrInputParm)
	}

	if lm.SetTypeStore == ldt.STRecord {
		reserved, err := toprecord.Reserved(ctx, topRec)
		if err != nil {
			return err
		}
		if reserved {
			return ldt.ErrBinAlreadyExists
		}
		if err := toprecord.Init(ctx, topRec); err != nil {
			return err
		}
	}

	prop := ldt.PropertyMap{
		Magic:      ldt.Magic,
		LdtType:    ldt.LdtType,
		Version:    ldt.Version,
		RecType:    ldt.RecTypeTop,
		BinName:    bin,
		CreateTime: e.now(),
	}
	desc := &ldt.Descriptor{Property: prop, Lset: lm}
	if err := e.commit(ctx, topRec, bin, desc); err != nil {
		return err
	}
	log.Infof("created LSET bin %q (layout=%v)", bin, lm.SetTypeStore)
	return nil
}

// CreateFromJSON decodes a serialized packaged-settings document and
// creates bin with it, for callers that keep LSET presets as JSON config
// rather than building a settings.StructuredModule in Go.
func (e *Engine) CreateFromJSON(ctx context.Context, topRec host.TopRecord, bin string, doc []byte, opts ...CreateOption) error {
	sm, err := settings.DecodeStructuredModule(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ldt.ErrUserModuleBad, err)
	}
	return e.Create(ctx, topRec, bin, sm, opts...)
}

// Add inserts a single value, dispatching to whichever
// persistence layout the bin's descriptor was created with.
func (e *Engine) Add(ctx context.Context, topRec host.TopRecord, bin string, value ldt.Value, sctx *subrecord.Context) error {
	desc, err := e.validateRecBinAndMap(ctx, topRec, bin, true)
	if err != nil {
		return err
	}
	fctx := e.resolve(&desc.Lset, "", nil)

	if err := e.insertOne(ctx, topRec, desc, value, fctx, sctx); err != nil {
		return err
	}
	return e.commit(ctx, topRec, bin, desc)
}

func (e *Engine) insertOne(ctx context.Context, topRec host.TopRecord, desc *ldt.Descriptor, value ldt.Value, fctx funcreg.Context, sctx *subrecord.Context) error {
	if desc.Lset.SetTypeStore == ldt.STRecord {
		return toprecord.Insert(ctx, topRec, &desc.Property, &desc.Lset, value, fctx)
	}
	active, release := e.subCtx(topRec, sctx)
	defer release(ctx)
	return subrecord.Insert(ctx, active, e.manager(topRec), &desc.Property, &desc.Lset, value, fctx)
}

// AddAll inserts values one at a time, in order.
// Every value that succeeded before a failure is kept and persisted — the
// descriptor and any promoted sub-records reflect the successful prefix —
// while the call itself reports the first failure via AddAllError so a
// caller can tell how far it got.
func (e *Engine) AddAll(ctx context.Context, topRec host.TopRecord, bin string, values []ldt.Value) error {
	desc, err := e.validateRecBinAndMap(ctx, topRec, bin, true)
	if err != nil {
		return err
	}
	fctx := e.resolve(&desc.Lset, "", nil)

	active, release := e.subCtx(topRec, nil)
	defer release(ctx)

	for i, v := range values {
		var insertErr error
		if desc.Lset.SetTypeStore == ldt.STRecord {
			insertErr = toprecord.Insert(ctx, topRec, &desc.Property, &desc.Lset, v, fctx)
		} else {
			insertErr = subrecord.Insert(ctx, active, e.manager(topRec), &desc.Property, &desc.Lset, v, fctx)
		}
		if insertErr != nil {
			if commitErr := e.commit(ctx, topRec, bin, desc); commitErr != nil {
				return commitErr
			}
			return &ldt.AddAllError{Index: i, Err: insertErr}
		}
	}
	return e.commit(ctx, topRec, bin, desc)
}

// Get performs a point lookup by key.
func (e *Engine) Get(ctx context.Context, topRec host.TopRecord, bin string, key ldt.Key, filterName string, fargs []any, sctx *subrecord.Context) (ldt.Value, bool, error) {
	desc, err := e.validateRecBinAndMap(ctx, topRec, bin, true)
	if err != nil {
		return nil, false, err
	}
	fctx := e.resolve(&desc.Lset, filterName, fargs)

	if desc.Lset.SetTypeStore == ldt.STRecord {
		return toprecord.Search(ctx, topRec, &desc.Lset, key, fctx)
	}
	active, release := e.subCtx(topRec, sctx)
	defer release(ctx)
	return subrecord.Search(ctx, active, e.manager(topRec), &desc.Lset, key, fctx)
}

// Exists reports membership without applying filter/transform decoding
// beyond what Get already needs to locate the key.
func (e *Engine) Exists(ctx context.Context, topRec host.TopRecord, bin string, key ldt.Key, sctx *subrecord.Context) (bool, error) {
	_, found, err := e.Get(ctx, topRec, bin, key, "", nil, sctx)
	return found, err
}

// Scan performs a full-set iteration, applying UnTransform and an
// optional named filter to every member.
func (e *Engine) Scan(ctx context.Context, topRec host.TopRecord, bin string, filterName string, fargs []any, sctx *subrecord.Context) ([]ldt.Value, error) {
	desc, err := e.validateRecBinAndMap(ctx, topRec, bin, true)
	if err != nil {
		return nil, err
	}
	fctx := e.resolve(&desc.Lset, filterName, fargs)

	if desc.Lset.SetTypeStore == ldt.STRecord {
		return toprecord.Scan(ctx, topRec, &desc.Lset, fctx)
	}
	active, release := e.subCtx(topRec, sctx)
	defer release(ctx)
	return subrecord.Scan(ctx, active, e.manager(topRec), &desc.Lset, fctx)
}

// Remove deletes by key, via swap-with-last on whichever
// list currently backs the key.
func (e *Engine) Remove(ctx context.Context, topRec host.TopRecord, bin string, key ldt.Key, sctx *subrecord.Context) (ldt.Value, bool, error) {
	desc, err := e.validateRecBinAndMap(ctx, topRec, bin, true)
	if err != nil {
		return nil, false, err
	}
	fctx := e.resolve(&desc.Lset, "", nil)

	var v ldt.Value
	var found bool
	if desc.Lset.SetTypeStore == ldt.STRecord {
		v, found, err = toprecord.Remove(ctx, topRec, &desc.Property, &desc.Lset, key, fctx)
	} else {
		active, release := e.subCtx(topRec, sctx)
		defer release(ctx)
		v, found, err = subrecord.Remove(ctx, active, e.manager(topRec), &desc.Property, &desc.Lset, key, fctx)
	}
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	if err := e.commit(ctx, topRec, bin, desc); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Destroy tears a bin down entirely: remove every sub-record (SubRecord
// layout) or hidden bucket bin (TopRecord layout) and finally the user bin
// itself. A bin that does not exist is reported as ErrBinDoesNotExist, a
// nonexistent top record as ErrTopRecNotFound — same as any other call.
func (e *Engine) Destroy(ctx context.Context, topRec host.TopRecord, bin string) error {
	desc, err := e.validateRecBinAndMap(ctx, topRec, bin, true)
	if err != nil {
		return err
	}

	if desc.Lset.SetTypeStore == ldt.STRecord {
		if err := toprecord.Destroy(ctx, topRec, &desc.Lset); err != nil {
			return err
		}
	} else {
		if err := subrecord.Destroy(ctx, e.manager(topRec), &desc.Property); err != nil {
			return err
		}
	}

	if err := topRec.DeleteBin(ctx, bin); err != nil {
		return fmt.Errorf("%w: %v", ldt.ErrDelete, err)
	}
	return topRec.Update(ctx)
}

// Size returns the cardinality of the set: the authoritative member count
// kept in the descriptor's PropertyMap, not a live scan.
func (e *Engine) Size(ctx context.Context, topRec host.TopRecord, bin string) (int, error) {
	desc, err := e.validateRecBinAndMap(ctx, topRec, bin, true)
	if err != nil {
		return 0, err
	}
	return desc.Property.ItemCount, nil
}

// Config is a read-only, typed snapshot of a bin's descriptor, useful for
// introspection without handing out the live, mutable LsetMap.
type Config struct {
	SetTypeStore    ldt.SetTypeStore
	StoreState      ldt.StoreState
	StoreMode       ldt.StoreMode
	KeyType         ldt.KeyType
	Modulo          int
	Threshold       int
	HashCellMaxList int
	ItemCount       int
	SubRecCount     int
	StoreLimit      int
	CreateTime      time.Time
}

// Config returns the current settings and live counters for bin.
func (e *Engine) Config(ctx context.Context, topRec host.TopRecord, bin string) (Config, error) {
	desc, err := e.validateRecBinAndMap(ctx, topRec, bin, true)
	if err != nil {
		return Config{}, err
	}
	return Config{
		SetTypeStore:    desc.Lset.SetTypeStore,
		StoreState:      desc.Lset.StoreState,
		StoreMode:       desc.Lset.StoreMode,
		KeyType:         desc.Lset.KeyType,
		Modulo:          desc.Lset.Modulo,
		Threshold:       desc.Lset.Threshold,
		HashCellMaxList: desc.Lset.HashCellMaxList,
		ItemCount:       desc.Property.ItemCount,
		SubRecCount:     desc.Property.SubRecCount,
		StoreLimit:      desc.Lset.StoreLimit,
		CreateTime:      desc.Property.CreateTime,
	}, nil
}

// GetCapacity returns the advisory StoreLimit; enforcement is a
// declared non-goal.
func (e *Engine) GetCapacity(ctx context.Context, topRec host.TopRecord, bin string) (int, error) {
	desc, err := e.validateRecBinAndMap(ctx, topRec, bin, true)
	if err != nil {
		return 0, err
	}
	return desc.Lset.StoreLimit, nil
}

// SetCapacity updates the advisory StoreLimit in place. A negative limit
// is rejected with ErrInputParm.
func (e *Engine) SetCapacity(ctx context.Context, topRec host.TopRecord, bin string, limit int) error {
	if limit < 0 {
		return fmt.Errorf("%w: capacity must be non-negative, got %d", ldt.ErrInputParm, limit)
	}
	desc, err := e.validateRecBinAndMap(ctx, topRec, bin, true)
	if err != nil {
		return err
	}
	desc.Lset.StoreLimit = limit
	return e.commit(ctx, topRec, bin, desc)
}

// Dump renders a human-readable diagnostic of bin's full descriptor and
// member set, using go-spew/go-humanize for readable formatting.
func (e *Engine) Dump(ctx context.Context, topRec host.TopRecord, bin string) (string, error) {
	desc, err := e.validateRecBinAndMap(ctx, topRec, bin, true)
	if err != nil {
		return "", err
	}
	members, err := e.Scan(ctx, topRec, bin, "", nil, nil)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "LSET bin %q: %s members, layout=%v, state=%v\n",
		bin, humanize.Comma(int64(desc.Property.ItemCount)), desc.Lset.SetTypeStore, desc.Lset.StoreState)
	fmt.Fprintf(&b, "descriptor:\n%s", spew.Sdump(desc))
	fmt.Fprintf(&b, "members (%d):\n%s", len(members), spew.Sdump(members))
	return b.String(), nil
}
