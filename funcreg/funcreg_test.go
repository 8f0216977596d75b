package funcreg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/lset/funcreg"
	"github.com/rpcpool/lset/ldt"
)

func TestResolveLooksUpByName(t *testing.T) {
	reg := funcreg.NewMapRegistry()
	reg.RegisterKeyFunc("k", func(v ldt.Value) (ldt.Key, error) { return v, nil })
	reg.RegisterTransform("t", func(v ldt.Value) (ldt.Value, error) { return v, nil })
	reg.RegisterUnTransform("u", func(v ldt.Value) (ldt.Value, error) { return v, nil })
	reg.RegisterFilter("f", func(v ldt.Value, fargs []any) (bool, error) { return true, nil })

	ctx := funcreg.Resolve(reg, "k", "t", "u", "f", []any{1, 2})
	require.NotNil(t, ctx.KeyFunc)
	require.NotNil(t, ctx.Transform)
	require.NotNil(t, ctx.UnTransform)
	require.NotNil(t, ctx.Filter)
	require.Equal(t, []any{1, 2}, ctx.FilterArgs)
}

func TestResolveUnknownNamesLeaveFieldsNil(t *testing.T) {
	reg := funcreg.NewMapRegistry()
	ctx := funcreg.Resolve(reg, "missing", "", "", "", nil)
	require.Nil(t, ctx.KeyFunc)
	require.Nil(t, ctx.Transform)
}

func TestResolveNilRegistry(t *testing.T) {
	ctx := funcreg.Resolve(nil, "k", "t", "u", "f", nil)
	require.Nil(t, ctx.KeyFunc)
	require.Nil(t, ctx.Filter)
}
