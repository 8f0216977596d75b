package ldt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/lset/ldt"
)

func TestSearchListFindsAndMisses(t *testing.T) {
	list := []ldt.Value{"a", "b", "c"}
	pos, err := ldt.SearchList(list, ldt.Key("b"), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, pos)

	pos, err = ldt.SearchList(list, ldt.Key("z"), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 0, pos)
}

func TestSearchListSkipsNilSlots(t *testing.T) {
	list := []ldt.Value{"a", nil, "c"}
	pos, err := ldt.SearchList(list, ldt.Key("c"), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 3, pos)
}

func TestSearchListAppliesUnTransform(t *testing.T) {
	list := []ldt.Value{"YQ==", "Yg=="} // stand-in encoded values
	unT := func(v ldt.Value) (ldt.Value, error) {
		switch v {
		case "YQ==":
			return "a", nil
		case "Yg==":
			return "b", nil
		}
		return v, nil
	}
	pos, err := ldt.SearchList(list, ldt.Key("b"), nil, unT)
	require.NoError(t, err)
	require.Equal(t, 2, pos)
}

func TestRemoveAtSwapsWithLast(t *testing.T) {
	list := []ldt.Value{"a", "b", "c", "d"}
	list = ldt.RemoveAt(list, 2) // remove "b"
	require.Equal(t, []ldt.Value{"a", "d", "c"}, list)
}

func TestRemoveAtLastElement(t *testing.T) {
	list := []ldt.Value{"a"}
	list = ldt.RemoveAt(list, 1)
	require.Empty(t, list)
}
