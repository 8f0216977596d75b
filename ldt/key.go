package ldt

import "fmt"

// IsAtomic reports whether v is a scalar the engine can use as its own key
// without a KeyFunction or canonical rendering.
func IsAtomic(v Value) bool {
	switch v.(type) {
	case string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// KeyFunc extracts a comparable key from a structured value. It is supplied
// by the caller through funcreg when KeyType is KeyTypeComplex and no
// canonical rendering is desired.
type KeyFunc func(Value) (Key, error)

// ExtractKey implements the ordered key-extraction rule set:
//  1. scalars are their own key,
//  2. else a registered key function is applied,
//  3. else the value is rendered as a canonical string.
func ExtractKey(v Value, keyFn KeyFunc) (Key, error) {
	if IsAtomic(v) {
		return Key(v), nil
	}
	if keyFn != nil {
		return keyFn(v)
	}
	return Key(fmt.Sprintf("%+v", v)), nil
}

// KeysEqual implements the cross-type-never-matches rule: two keys are equal
// only if they share a dynamic type and compare equal under it.
func KeysEqual(a, b Key) (equal bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if keyTypeOf(a) != keyTypeOf(b) {
		return false
	}
	// Complex keys rendered to canonical strings are always comparable;
	// a caller-supplied KeyFunc could in principle return a slice or map,
	// which would panic on ==. Treat that as "not equal" rather than crash.
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}

func keyTypeOf(k Key) string {
	return fmt.Sprintf("%T", k)
}
