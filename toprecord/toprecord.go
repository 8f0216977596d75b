// Package toprecord implements the TopRecord persistence layout:
// every hash bucket is an additional, hidden bin of the top record itself,
// so total capacity is bounded by how much a single record can hold. There
// is no sub-record overflow in this layout; the entire driver operates
// against host.TopRecord bins.
package toprecord

import (
	"context"
	"fmt"

	logging "github.com/ipfs/go-log/v2"

	"github.com/rpcpool/lset/funcreg"
	"github.com/rpcpool/lset/host"
	"github.com/rpcpool/lset/ldt"
)

var log = logging.Logger("lset/toprecord")

// BinPrefix names the hidden per-bucket bins: bucket i lives in
// "LSetBin_<i>".
const BinPrefix = "LSetBin_"

func binName(i int) string {
	return fmt.Sprintf("%s%d", BinPrefix, i)
}

// Reserved reports whether this top record already carries a TopRecord
// layout LSET (bucket 0 is present), which the one-LSET-per-record
// restriction uses to reject a second TopRec-layout LSET in the same
// record with BinAlreadyExists.
func Reserved(ctx context.Context, h host.TopRecord) (bool, error) {
	_, ok, err := h.GetBin(ctx, binName(0))
	if err != nil {
		return false, err
	}
	return ok, nil
}

func getBucket(ctx context.Context, h host.TopRecord, i int) ([]ldt.Value, error) {
	raw, ok, err := h.GetBin(ctx, binName(i))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]ldt.Value)
	if !ok {
		return nil, fmt.Errorf("%w: bucket bin %d has unexpected type %T", ldt.ErrBinDamaged, i, raw)
	}
	return list, nil
}

// putBucket writes bucket i back and re-asserts the hidden + LDT flags on
// every write, since host APIs do not persist the flag across value
// replacement.
func putBucket(ctx context.Context, h host.TopRecord, i int, list []ldt.Value) error {
	name := binName(i)
	if err := h.PutBin(ctx, name, list, true); err != nil {
		return fmt.Errorf("%w: %v", ldt.ErrInsert, err)
	}
	return h.SetLDTFlag(ctx, name)
}

// Init creates bucket 0 empty, for a fresh compact-state TopRecord-layout
// LSET.
func Init(ctx context.Context, h host.TopRecord) error {
	return putBucket(ctx, h, 0, nil)
}

// Insert appends a value: compact-state appends to bucket 0 and
// rehashes at Threshold; regular-state computes the bucket and appends
// there. Both paths reject duplicates with ErrUniqueKeyViolation.
func Insert(ctx context.Context, h host.TopRecord, prop *ldt.PropertyMap, lm *ldt.LsetMap, value ldt.Value, fctx funcreg.Context) error {
	if lm.StoreState == ldt.SSCompact {
		if err := insertIntoBucket(ctx, h, 0, value, fctx); err != nil {
			return err
		}
		lm.TotalCount++
		prop.ItemCount++
		if lm.TotalCount >= lm.Threshold {
			if err := rehash(ctx, h, prop, lm); err != nil {
				return err
			}
		}
		return nil
	}

	key, err := ldt.ExtractKey(value, fctx.KeyFunc)
	if err != nil {
		return err
	}
	bucket, err := ldt.Bucket(key, lm.Modulo)
	if err != nil {
		return err
	}
	if err := insertIntoBucket(ctx, h, bucket, value, fctx); err != nil {
		return err
	}
	lm.TotalCount++
	prop.ItemCount++
	return nil
}

func insertIntoBucket(ctx context.Context, h host.TopRecord, i int, value ldt.Value, fctx funcreg.Context) error {
	list, err := getBucket(ctx, h, i)
	if err != nil {
		return err
	}
	key, err := ldt.ExtractKey(value, fctx.KeyFunc)
	if err != nil {
		return err
	}
	pos, err := ldt.SearchList(list, key, fctx.KeyFunc, fctx.UnTransform)
	if err != nil {
		return err
	}
	if pos != 0 {
		return ldt.ErrUniqueKeyViolation
	}
	stored := value
	if fctx.Transform != nil {
		stored, err = fctx.Transform(value)
		if err != nil {
			return err
		}
	}
	list = append(list, stored)
	return putBucket(ctx, h, i, list)
}

// rehash promotes a compact TopRecord-layout set into regular mode:
// snapshot bucket 0, clear it, allocate buckets 0..M-1 empty, flip
// StoreState, then reinsert every snapshot member with stats-update
// suppressed (the members were already counted; only their bucket
// placement changes).
func rehash(ctx context.Context, h host.TopRecord, prop *ldt.PropertyMap, lm *ldt.LsetMap) error {
	snapshot, err := getBucket(ctx, h, 0)
	if err != nil {
		return err
	}
	if err := putBucket(ctx, h, 0, nil); err != nil {
		return err
	}
	for i := 1; i < lm.Modulo; i++ {
		if err := putBucket(ctx, h, i, nil); err != nil {
			return err
		}
	}
	lm.StoreState = ldt.SSRegular

	for _, v := range snapshot {
		key, err := ldt.ExtractKey(v, nil)
		if err != nil {
			return err
		}
		bucket, err := ldt.Bucket(key, lm.Modulo)
		if err != nil {
			return err
		}
		list, err := getBucket(ctx, h, bucket)
		if err != nil {
			return err
		}
		list = append(list, v)
		if err := putBucket(ctx, h, bucket, list); err != nil {
			return err
		}
	}
	log.Infof("rehashed %d members into %d buckets", len(snapshot), lm.Modulo)
	return nil
}

// Search computes the bucket and scans it for key.
func Search(ctx context.Context, h host.TopRecord, lm *ldt.LsetMap, key ldt.Key, fctx funcreg.Context) (ldt.Value, bool, error) {
	i := 0
	if lm.StoreState == ldt.SSRegular {
		var err error
		i, err = ldt.Bucket(key, lm.Modulo)
		if err != nil {
			return nil, false, err
		}
	}
	list, err := getBucket(ctx, h, i)
	if err != nil {
		return nil, false, err
	}
	pos, err := ldt.SearchList(list, key, fctx.KeyFunc, fctx.UnTransform)
	if err != nil {
		return nil, false, err
	}
	if pos == 0 {
		return nil, false, nil
	}
	v := list[pos-1]
	if fctx.UnTransform != nil {
		v, err = fctx.UnTransform(v)
		if err != nil {
			return nil, false, err
		}
	}
	if fctx.Filter != nil {
		ok, err := fctx.Filter(v, fctx.FilterArgs)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
	}
	return v, true, nil
}

// Remove computes the bucket, searches it, and deletes via
// swap-with-last + truncate: order-breaking but O(1), the policy this
// implementation unifies both layouts on.
func Remove(ctx context.Context, h host.TopRecord, prop *ldt.PropertyMap, lm *ldt.LsetMap, key ldt.Key, fctx funcreg.Context) (ldt.Value, bool, error) {
	i := 0
	if lm.StoreState == ldt.SSRegular {
		var err error
		i, err = ldt.Bucket(key, lm.Modulo)
		if err != nil {
			return nil, false, err
		}
	}
	list, err := getBucket(ctx, h, i)
	if err != nil {
		return nil, false, err
	}
	pos, err := ldt.SearchList(list, key, fctx.KeyFunc, fctx.UnTransform)
	if err != nil {
		return nil, false, err
	}
	if pos == 0 {
		return nil, false, nil
	}
	removed := list[pos-1]
	list = ldt.RemoveAt(list, pos)
	if err := putBucket(ctx, h, i, list); err != nil {
		return nil, false, err
	}
	prop.ItemCount--
	if fctx.UnTransform != nil {
		removed, err = fctx.UnTransform(removed)
		if err != nil {
			return nil, false, err
		}
	}
	return removed, true, nil
}

// Scan iterates buckets 0..M-1 (or just bucket 0 in compact state),
// untransforming and filtering as it goes.
func Scan(ctx context.Context, h host.TopRecord, lm *ldt.LsetMap, fctx funcreg.Context) ([]ldt.Value, error) {
	n := 1
	if lm.StoreState == ldt.SSRegular {
		n = lm.Modulo
	}
	var out []ldt.Value
	for i := 0; i < n; i++ {
		list, err := getBucket(ctx, h, i)
		if err != nil {
			return nil, err
		}
		for _, v := range list {
			mv := v
			if fctx.UnTransform != nil {
				mv, err = fctx.UnTransform(mv)
				if err != nil {
					return nil, err
				}
			}
			if fctx.Filter != nil {
				ok, err := fctx.Filter(mv, fctx.FilterArgs)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
			}
			out = append(out, mv)
		}
	}
	return out, nil
}

// Destroy nulls out every LSetBin_i. The caller (package lset) deletes
// the user bin itself; this only tears down the hidden bucket bins.
func Destroy(ctx context.Context, h host.TopRecord, lm *ldt.LsetMap) error {
	n := 1
	if lm.StoreState == ldt.SSRegular {
		n = lm.Modulo
	}
	for i := 0; i < n; i++ {
		if err := h.DeleteBin(ctx, binName(i)); err != nil {
			return fmt.Errorf("%w: %v", ldt.ErrDelete, err)
		}
	}
	return nil
}
