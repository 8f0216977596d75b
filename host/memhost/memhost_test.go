package memhost_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/lset/host/memhost"
)

func TestTopRecordDoesNotExistUntilUpdate(t *testing.T) {
	ctx := context.Background()
	top := memhost.NewTopRecord()

	exists, err := top.Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)

	_, ok, err := top.GetBin(ctx, "anything")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, top.PutBin(ctx, "bin", "value", false))
	require.NoError(t, top.Update(ctx))

	exists, err = top.Exists(ctx)
	require.NoError(t, err)
	require.True(t, exists)

	v, ok, err := top.GetBin(ctx, "bin")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value", v)
}

func TestHiddenAndLDTFlagsTracked(t *testing.T) {
	ctx := context.Background()
	top := memhost.NewTopRecord()
	require.NoError(t, top.PutBin(ctx, "bucket0", nil, true))
	require.NoError(t, top.SetLDTFlag(ctx, "bucket0"))

	require.True(t, top.IsHidden("bucket0"))
	require.True(t, top.IsLDTBin("bucket0"))
}

func TestRemoveESRCascadesToSubRecords(t *testing.T) {
	ctx := context.Background()
	top := memhost.NewTopRecord()
	require.NoError(t, top.Update(ctx))
	h := memhost.NewHost()

	esr, err := h.CreateESR(ctx, top)
	require.NoError(t, err)

	sr, digest, err := h.CreateSubRec(ctx, top)
	require.NoError(t, err)
	require.NotNil(t, sr)
	require.NoError(t, h.AttachToESR(ctx, esr, digest))

	_, err = h.OpenSubRec(ctx, top, digest)
	require.NoError(t, err)

	require.NoError(t, h.RemoveESR(ctx, top, esr))

	_, err = h.OpenSubRec(ctx, top, digest)
	require.Error(t, err)
}
