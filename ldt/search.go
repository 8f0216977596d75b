package ldt

// UnTransformFunc reverses a value's on-disk encoding after it is read back.
type UnTransformFunc func(Value) (Value, error)

// FilterFunc is an optional post-match predicate applied by get/scan/remove.
// fargs are opaque arguments passed through to it.
type FilterFunc func(v Value, fargs []any) (bool, error)

// SearchList performs the unique-set linear scan: for each non-nil
// slot, untransform, extract its key, and compare against searchKey. It
// returns the 1-based position of the first match, or 0 if none matched.
func SearchList(list []Value, searchKey Key, keyFn KeyFunc, unTransform UnTransformFunc) (int, error) {
	for i, slot := range list {
		if slot == nil {
			continue
		}
		v := slot
		if unTransform != nil {
			uv, err := unTransform(v)
			if err != nil {
				return 0, err
			}
			v = uv
		}
		k, err := ExtractKey(v, keyFn)
		if err != nil {
			return 0, err
		}
		if KeysEqual(k, searchKey) {
			return i + 1, nil
		}
	}
	return 0, nil
}

// RemoveAt removes the element at 1-based position pos from list using
// swap-with-last + truncate, preferred uniformly over prefix/suffix
// rebuild since LSET membership doesn't preserve order.
func RemoveAt(list []Value, pos int) []Value {
	i := pos - 1
	last := len(list) - 1
	list[i] = list[last]
	return list[:last]
}
