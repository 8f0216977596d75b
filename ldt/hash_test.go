package ldt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/lset/ldt"
)

func TestBucketIsStableAndInRange(t *testing.T) {
	k := ldt.Key("alice")
	b1, err := ldt.Bucket(k, 128)
	require.NoError(t, err)
	b2, err := ldt.Bucket(k, 128)
	require.NoError(t, err)
	require.Equal(t, b1, b2)
	require.GreaterOrEqual(t, b1, 0)
	require.Less(t, b1, 128)
}

func TestBucketRejectsNonScalarKey(t *testing.T) {
	_, err := ldt.Bucket(ldt.Key([]int{1, 2}), 128)
	require.ErrorIs(t, err, ldt.ErrInternal)
}

func TestBucketCoversNumericTypes(t *testing.T) {
	for _, k := range []ldt.Key{int(1), int64(1), uint32(1), float64(1)} {
		_, err := ldt.Bucket(k, 16)
		require.NoError(t, err)
	}
}
