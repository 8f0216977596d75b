package subrecord

import (
	"context"
	"fmt"

	logging "github.com/ipfs/go-log/v2"

	"github.com/rpcpool/lset/funcreg"
	"github.com/rpcpool/lset/ldt"
)

var log = logging.Logger("lset/subrecord")

// Insert implements the SubRecord layout's insert path: compact-list
// insert below Threshold, rehash into a hash directory at Threshold, then
// regular-mode cell insert.
func Insert(ctx context.Context, sctx *Context, mgr *Manager, prop *ldt.PropertyMap, lm *ldt.LsetMap, value ldt.Value, fctx funcreg.Context) error {
	if lm.StoreState == ldt.SSCompact {
		key, err := ldt.ExtractKey(value, fctx.KeyFunc)
		if err != nil {
			return err
		}
		pos, err := ldt.SearchList(lm.CompactList, key, fctx.KeyFunc, fctx.UnTransform)
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
		lm.CompactList = append(lm.CompactList, stored)
		lm.TotalCount++
		prop.ItemCount++

		if lm.TotalCount >= lm.Threshold {
			if err := rehash(ctx, sctx, mgr, prop, lm); err != nil {
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
	if err := InsertCell(ctx, sctx, mgr, prop, &lm.HashDirectory[bucket], value, lm.HashCellMaxList, fctx); err != nil {
		return err
	}
	lm.TotalCount++
	prop.ItemCount++
	return nil
}

// rehash promotes a compact SubRecord-layout set into regular mode:
// snapshot the compact list, allocate the hash directory, clear the
// compact list, flip StoreState, then reinsert every saved member through
// the cell state machine (stats already reflect these members, so
// prop.ItemCount/lm.TotalCount are not touched here; a cell promoted to a
// sub-record during reinsert still bumps prop.SubRecCount and may set
// prop.EsrDigest).
func rehash(ctx context.Context, sctx *Context, mgr *Manager, prop *ldt.PropertyMap, lm *ldt.LsetMap) error {
	snapshot := lm.CompactList
	lm.CompactList = nil
	lm.HashDirectory = ldt.NewHashDirectory(lm.Modulo)
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
		if err := InsertCell(ctx, sctx, mgr, prop, &lm.HashDirectory[bucket], v, lm.HashCellMaxList, funcreg.Context{}); err != nil {
			return fmt.Errorf("%w: rehash reinsert: %v", ldt.ErrInternal, err)
		}
	}
	log.Infof("rehashed %d members into %d buckets", len(snapshot), lm.Modulo)
	return nil
}

// Search looks up a key across both states.
func Search(ctx context.Context, sctx *Context, mgr *Manager, lm *ldt.LsetMap, key ldt.Key, fctx funcreg.Context) (ldt.Value, bool, error) {
	if lm.StoreState == ldt.SSCompact {
		pos, err := ldt.SearchList(lm.CompactList, key, fctx.KeyFunc, fctx.UnTransform)
		if err != nil {
			return nil, false, err
		}
		if pos == 0 {
			return nil, false, nil
		}
		return materialize(lm.CompactList[pos-1], fctx)
	}
	bucket, err := ldt.Bucket(key, lm.Modulo)
	if err != nil {
		return nil, false, err
	}
	return SearchCell(ctx, sctx, mgr, &lm.HashDirectory[bucket], key, fctx)
}

// Remove deletes a key across both states, via swap-with-last.
func Remove(ctx context.Context, sctx *Context, mgr *Manager, prop *ldt.PropertyMap, lm *ldt.LsetMap, key ldt.Key, fctx funcreg.Context) (ldt.Value, bool, error) {
	if lm.StoreState == ldt.SSCompact {
		pos, err := ldt.SearchList(lm.CompactList, key, fctx.KeyFunc, fctx.UnTransform)
		if err != nil {
			return nil, false, err
		}
		if pos == 0 {
			return nil, false, nil
		}
		removed := lm.CompactList[pos-1]
		lm.CompactList = ldt.RemoveAt(lm.CompactList, pos)
		prop.ItemCount--
		out, _, err := materializeNoFilter(removed, fctx)
		return out, true, err
	}
	bucket, err := ldt.Bucket(key, lm.Modulo)
	if err != nil {
		return nil, false, err
	}
	v, found, err := RemoveFromCell(ctx, sctx, mgr, &lm.HashDirectory[bucket], key, fctx)
	if err != nil || !found {
		return v, found, err
	}
	prop.ItemCount--
	return v, found, nil
}

// Scan walks the set: the compact list directly, or every
// directory cell in order, when regular.
func Scan(ctx context.Context, sctx *Context, mgr *Manager, lm *ldt.LsetMap, fctx funcreg.Context) ([]ldt.Value, error) {
	if lm.StoreState == ldt.SSCompact {
		var out []ldt.Value
		for _, v := range lm.CompactList {
			mv, ok, err := materialize(v, fctx)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, mv)
			}
		}
		return out, nil
	}
	var out []ldt.Value
	for i := range lm.HashDirectory {
		var err error
		out, err = ScanCell(ctx, sctx, mgr, &lm.HashDirectory[i], fctx, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Destroy removes the ESR (cascading sub-record removal through the
// host) if one was ever created.
func Destroy(ctx context.Context, mgr *Manager, prop *ldt.PropertyMap) error {
	return mgr.Destroy(ctx, prop)
}
