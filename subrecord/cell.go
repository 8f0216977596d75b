package subrecord

import (
	"context"
	"fmt"

	"github.com/rpcpool/lset/funcreg"
	"github.com/rpcpool/lset/ldt"
)

// InsertCell implements the hash-cell state machine's insert transition:
//
//	Empty --insert--> List (inline array of 1)
//	List  --insert, size < HashCellMaxList--> List (append)
//	List  --insert, size = HashCellMaxList--> Digest (promote into a sub-record)
//	Digest --insert--> Digest (append to subrec's list)
//
// Uniqueness is enforced against whichever list currently backs the cell.
func InsertCell(ctx context.Context, sctx *Context, mgr *Manager, prop *ldt.PropertyMap, cell *ldt.CellAnchor, value ldt.Value, maxList int, fctx funcreg.Context) error {
	key, err := ldt.ExtractKey(value, fctx.KeyFunc)
	if err != nil {
		return err
	}
	stored := value
	if fctx.Transform != nil {
		stored, err = fctx.Transform(value)
		if err != nil {
			return err
		}
	}

	switch cell.State {
	case ldt.CellEmpty:
		cell.State = ldt.CellList
		cell.List = []ldt.Value{stored}
		cell.ItemCount = 1
		return nil

	case ldt.CellList:
		pos, err := ldt.SearchList(cell.List, key, fctx.KeyFunc, fctx.UnTransform)
		if err != nil {
			return err
		}
		if pos != 0 {
			return ldt.ErrUniqueKeyViolation
		}
		if len(cell.List) < maxList {
			cell.List = append(cell.List, stored)
			cell.ItemCount++
			return nil
		}
		// HashCellMaxList reached: promote the inline list plus the new
		// value into a sub-record.
		full := make([]ldt.Value, 0, len(cell.List)+1)
		full = append(full, cell.List...)
		full = append(full, stored)
		digest, err := mgr.CreateChild(ctx, sctx, prop, full)
		if err != nil {
			return err
		}
		cell.State = ldt.CellDigest
		cell.List = nil
		cell.SubDigest = digest
		cell.ItemCount = len(full)
		cell.SubRecCount = 1
		return nil

	case ldt.CellDigest:
		_, list, err := mgr.Open(ctx, sctx, cell.SubDigest)
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
		// A Digest cell never promotes to Tree. Past the HashCellMaxList
		// threshold the sub-record's own list simply keeps growing; a
		// secondary-hash fan-out would replace this branch.
		list = append(list, stored)
		if err := mgr.Save(ctx, sctx, cell.SubDigest, list); err != nil {
			return err
		}
		cell.ItemCount++
		return nil

	case ldt.CellTree:
		return fmt.Errorf("%w: Tree cell state is reserved and never produced by this engine", ldt.ErrInternal)

	default:
		return fmt.Errorf("%w: unknown cell state %v", ldt.ErrInternal, cell.State)
	}
}

// SearchCell searches a hash cell: Empty misses, List searches inline,
// Digest opens the sub-record and searches its list, Tree is unreachable.
func SearchCell(ctx context.Context, sctx *Context, mgr *Manager, cell *ldt.CellAnchor, key ldt.Key, fctx funcreg.Context) (ldt.Value, bool, error) {
	switch cell.State {
	case ldt.CellEmpty:
		return nil, false, nil

	case ldt.CellList:
		pos, err := ldt.SearchList(cell.List, key, fctx.KeyFunc, fctx.UnTransform)
		if err != nil {
			return nil, false, err
		}
		if pos == 0 {
			return nil, false, nil
		}
		return materialize(cell.List[pos-1], fctx)

	case ldt.CellDigest:
		_, list, err := mgr.Open(ctx, sctx, cell.SubDigest)
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
		return materialize(list[pos-1], fctx)

	case ldt.CellTree:
		return nil, false, fmt.Errorf("%w: Tree cell state is not implemented", ldt.ErrInternal)

	default:
		return nil, false, fmt.Errorf("%w: unknown cell state %v", ldt.ErrInternal, cell.State)
	}
}

func materialize(v ldt.Value, fctx funcreg.Context) (ldt.Value, bool, error) {
	if fctx.UnTransform != nil {
		uv, err := fctx.UnTransform(v)
		if err != nil {
			return nil, false, err
		}
		v = uv
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

// RemoveFromCell locates, searches, and removes via swap-with-last,
// applied uniformly across cell states. A List-state cell reassigns its
// inline list; a Digest-state cell reassigns the sub-record's list and
// marks it dirty. An empty result is intentionally left in place rather
// than collapsed back to Empty: there is no reclamation outside of ESR
// teardown.
func RemoveFromCell(ctx context.Context, sctx *Context, mgr *Manager, cell *ldt.CellAnchor, key ldt.Key, fctx funcreg.Context) (ldt.Value, bool, error) {
	switch cell.State {
	case ldt.CellEmpty:
		return nil, false, nil

	case ldt.CellList:
		pos, err := ldt.SearchList(cell.List, key, fctx.KeyFunc, fctx.UnTransform)
		if err != nil {
			return nil, false, err
		}
		if pos == 0 {
			return nil, false, nil
		}
		removed := cell.List[pos-1]
		cell.List = ldt.RemoveAt(cell.List, pos)
		cell.ItemCount--
		out, _, err := materializeNoFilter(removed, fctx)
		return out, true, err

	case ldt.CellDigest:
		_, list, err := mgr.Open(ctx, sctx, cell.SubDigest)
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
		if err := mgr.Save(ctx, sctx, cell.SubDigest, list); err != nil {
			return nil, false, err
		}
		cell.ItemCount--
		out, _, err := materializeNoFilter(removed, fctx)
		return out, true, err

	case ldt.CellTree:
		return nil, false, fmt.Errorf("%w: Tree cell state is not implemented", ldt.ErrInternal)

	default:
		return nil, false, fmt.Errorf("%w: unknown cell state %v", ldt.ErrInternal, cell.State)
	}
}

func materializeNoFilter(v ldt.Value, fctx funcreg.Context) (ldt.Value, bool, error) {
	if fctx.UnTransform != nil {
		uv, err := fctx.UnTransform(v)
		if err != nil {
			return nil, false, err
		}
		v = uv
	}
	return v, true, nil
}

// ScanCell appends every member of cell to out, untransforming and
// filtering as it goes.
func ScanCell(ctx context.Context, sctx *Context, mgr *Manager, cell *ldt.CellAnchor, fctx funcreg.Context, out []ldt.Value) ([]ldt.Value, error) {
	var list []ldt.Value
	switch cell.State {
	case ldt.CellEmpty:
		return out, nil
	case ldt.CellList:
		list = cell.List
	case ldt.CellDigest:
		var err error
		_, list, err = mgr.Open(ctx, sctx, cell.SubDigest)
		if err != nil {
			return nil, err
		}
	case ldt.CellTree:
		return nil, fmt.Errorf("%w: Tree cell state is not implemented", ldt.ErrInternal)
	default:
		return nil, fmt.Errorf("%w: unknown cell state %v", ldt.ErrInternal, cell.State)
	}
	for _, v := range list {
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
