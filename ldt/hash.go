package ldt

import (
	"fmt"
	"hash/crc32"
)

// Bucket computes the bucket index for a key under the given modulo:
//
//	bucket(k) = CRC32(k) mod Modulo
//
// Only string and numeric keys may be hashed this way; anything else
// reaching this point is an internal error, since every Value should
// have already been reduced to a scalar or canonical string key by
// ExtractKey before bucket selection runs.
func Bucket(k Key, modulo int) (int, error) {
	b, err := serializeForHash(k)
	if err != nil {
		return 0, err
	}
	sum := crc32.ChecksumIEEE(b)
	return int(sum % uint32(modulo)), nil
}

func serializeForHash(k Key) ([]byte, error) {
	switch v := k.(type) {
	case string:
		return []byte(v), nil
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return []byte(fmt.Sprintf("%v", v)), nil
	default:
		return nil, fmt.Errorf("%w: non-hashable key type %T", ErrInternal, k)
	}
}
