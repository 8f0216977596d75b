package lset_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/lset"
	"github.com/rpcpool/lset/funcreg"
	"github.com/rpcpool/lset/host/memhost"
	"github.com/rpcpool/lset/ldt"
)

func newEngine() (*lset.Engine, *memhost.Host) {
	h := memhost.NewHost()
	e := lset.NewEngine(h)
	return e, h
}

func newTop(t *testing.T) *memhost.TopRecord {
	t.Helper()
	return memhost.NewTopRecord()
}

// Scenario 1: a duplicate add is rejected and the set's size is unaffected.
func TestDuplicateAddRejected(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)
	require.NoError(t, e.Create(ctx, top, "members", nil))
	require.NoError(t, e.Add(ctx, top, "members", 10, nil))

	err := e.Add(ctx, top, "members", 10, nil)
	require.ErrorIs(t, err, ldt.ErrUniqueKeyViolation)

	size, err := e.Size(ctx, top, "members")
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

// Scenario 2: TopRecord layout rehashes compact->regular at Threshold.
func TestTopRecordRehashAtThreshold(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)
	require.NoError(t, e.Create(ctx, top, "members", nil,
		lset.WithSetTypeStore(ldt.STRecord),
		lset.WithThreshold(3),
		lset.WithModulo(5),
	))

	for _, v := range []ldt.Value{1, 2, 3} {
		require.NoError(t, e.Add(ctx, top, "members", v, nil))
	}

	cfg, err := e.Config(ctx, top, "members")
	require.NoError(t, err)
	require.Equal(t, ldt.SSRegular, cfg.StoreState)
	require.Equal(t, 3, cfg.ItemCount)

	for _, v := range []ldt.Value{1, 2, 3} {
		found, err := e.Exists(ctx, top, "members", ldt.Key(v), nil)
		require.NoError(t, err)
		require.True(t, found)
	}
}

// Scenario 3: SubRecord layout with a small Modulo/Threshold/HashCellMaxList
// survives many inserts across the compact->regular transition and every
// cell's List->Digest promotion.
func TestSubRecordLayoutManyInserts(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)
	require.NoError(t, e.Create(ctx, top, "members", nil,
		lset.WithSetTypeStore(ldt.STSubRecord),
		lset.WithModulo(7),
		lset.WithThreshold(3),
		lset.WithHashCellMaxList(2),
	))

	for i := 0; i < 21; i++ {
		require.NoError(t, e.Add(ctx, top, "members", i, nil))
	}

	size, err := e.Size(ctx, top, "members")
	require.NoError(t, err)
	require.Equal(t, 21, size)

	members, err := e.Scan(ctx, top, "members", "", nil, nil)
	require.NoError(t, err)
	require.Len(t, members, 21)

	for i := 0; i < 21; i++ {
		found, err := e.Exists(ctx, top, "members", ldt.Key(i), nil)
		require.NoError(t, err)
		require.True(t, found, "expected member %d", i)
	}
}

// Scenario 4: add_all stops at the first failure but keeps (and persists)
// every value inserted before it.
func TestAddAllPartialFailurePersists(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)
	require.NoError(t, e.Create(ctx, top, "members", nil))

	err := e.AddAll(ctx, top, "members", []ldt.Value{10, 20, 30, 10})
	var addAllErr *ldt.AddAllError
	require.ErrorAs(t, err, &addAllErr)
	require.Equal(t, 3, addAllErr.Index)
	require.ErrorIs(t, addAllErr.Err, ldt.ErrUniqueKeyViolation)

	size, err := e.Size(ctx, top, "members")
	require.NoError(t, err)
	require.Equal(t, 3, size)
}

// Scenario 5: removing a member and re-adding it afterward succeeds.
func TestRemoveThenReAdd(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)
	require.NoError(t, e.Create(ctx, top, "members", nil))
	require.NoError(t, e.Add(ctx, top, "members", "alice", nil))

	v, found, err := e.Remove(ctx, top, "members", ldt.Key("alice"), nil)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, ldt.Value("alice"), v)

	size, err := e.Size(ctx, top, "members")
	require.NoError(t, err)
	require.Equal(t, 0, size)

	require.NoError(t, e.Add(ctx, top, "members", "alice", nil))
	size, err = e.Size(ctx, top, "members")
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

// Scenario 6: a registered KeyFunction extracts uniqueness from a complex
// (structured) value.
func TestComplexValueKeyFunctionUniqueness(t *testing.T) {
	ctx := context.Background()
	h := memhost.NewHost()

	type record struct {
		ID   string
		Name string
	}

	reg := funcreg.NewMapRegistry()
	reg.RegisterKeyFunc("by-id", func(v ldt.Value) (ldt.Key, error) {
		return v.(record).ID, nil
	})

	e := lset.NewEngine(h)
	e.Functions = reg
	top := newTop(t)

	require.NoError(t, e.Create(ctx, top, "members", nil,
		lset.WithKeyType(ldt.KeyTypeComplex),
		lset.WithKeyFunction("by-id"),
	))

	require.NoError(t, e.Add(ctx, top, "members", record{ID: "u1", Name: "Alice"}, nil))
	err := e.Add(ctx, top, "members", record{ID: "u1", Name: "Alice Again"}, nil)
	require.ErrorIs(t, err, ldt.ErrUniqueKeyViolation)

	found, err := e.Exists(ctx, top, "members", ldt.Key("u1"), nil)
	require.NoError(t, err)
	require.True(t, found)
}

// Scenario 6b: a registered Transform/UnTransform pair round-trips through
// the write path (Add) and the read path (Get/Scan) — the stored,
// transformed value is never surfaced to a caller untransformed.
func TestTransformUnTransformRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := memhost.NewHost()

	reg := funcreg.NewMapRegistry()
	reg.RegisterTransform("upper", func(v ldt.Value) (ldt.Value, error) {
		return strings.ToUpper(v.(string)), nil
	})
	reg.RegisterUnTransform("lower", func(v ldt.Value) (ldt.Value, error) {
		return strings.ToLower(v.(string)), nil
	})

	e := lset.NewEngine(h)
	e.Functions = reg
	top := newTop(t)

	require.NoError(t, e.Create(ctx, top, "members", nil,
		lset.WithTransform("upper"),
		lset.WithUnTransform("lower"),
	))

	require.NoError(t, e.Add(ctx, top, "members", "Alice", nil))

	v, found, err := e.Get(ctx, top, "members", ldt.Key("alice"), "", nil, nil)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, ldt.Value("alice"), v)

	members, err := e.Scan(ctx, top, "members", "", nil, nil)
	require.NoError(t, err)
	require.Equal(t, []ldt.Value{ldt.Value("alice")}, members)
}

// Scenario 7: destroy tears the bin down entirely; any call afterward sees
// BinDoesNotExist.
func TestDestroyThenOperationsFail(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)
	require.NoError(t, e.Create(ctx, top, "members", nil))
	require.NoError(t, e.Add(ctx, top, "members", "a", nil))

	require.NoError(t, e.Destroy(ctx, top, "members"))

	_, err := e.Size(ctx, top, "members")
	require.ErrorIs(t, err, ldt.ErrBinDoesNotExist)

	err = e.Add(ctx, top, "members", "b", nil)
	require.ErrorIs(t, err, ldt.ErrBinDoesNotExist)
}

func TestCreateRequiredBeforeUse(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)

	err := e.Add(ctx, top, "members", "a", nil)
	require.ErrorIs(t, err, ldt.ErrTopRecNotFound)
}

func TestCreateTwiceFails(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)
	require.NoError(t, e.Create(ctx, top, "members", nil))
	err := e.Create(ctx, top, "members", nil)
	require.ErrorIs(t, err, ldt.ErrBinAlreadyExists)
}

func TestCreateFromJSON(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)

	doc := []byte(`{"options": {"Modulo": 16, "Threshold": 50}}`)
	require.NoError(t, e.CreateFromJSON(ctx, top, "members", doc))

	cfg, err := e.Config(ctx, top, "members")
	require.NoError(t, err)
	require.Equal(t, 16, cfg.Modulo)
	require.Equal(t, 50, cfg.Threshold)
}

func TestCapacityGetSet(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)
	require.NoError(t, e.Create(ctx, top, "members", nil, lset.WithStoreLimit(100)))

	limit, err := e.GetCapacity(ctx, top, "members")
	require.NoError(t, err)
	require.Equal(t, 100, limit)

	require.NoError(t, e.SetCapacity(ctx, top, "members", 200))
	limit, err = e.GetCapacity(ctx, top, "members")
	require.NoError(t, err)
	require.Equal(t, 200, limit)
}

func TestSetCapacityRejectsNegative(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)
	require.NoError(t, e.Create(ctx, top, "members", nil, lset.WithStoreLimit(100)))

	err := e.SetCapacity(ctx, top, "members", -1)
	require.ErrorIs(t, err, ldt.ErrInputParm)

	limit, err := e.GetCapacity(ctx, top, "members")
	require.NoError(t, err)
	require.Equal(t, 100, limit)
}

func TestCreateRejectsBinaryStoreMode(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)

	err := e.Create(ctx, top, "members", nil, lset.WithStoreMode(ldt.SMBinary))
	require.ErrorIs(t, err, ldt.ErrInputParm)

	_, err = e.Size(ctx, top, "members")
	require.ErrorIs(t, err, ldt.ErrTopRecNotFound)
}

func TestDump(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	top := newTop(t)
	require.NoError(t, e.Create(ctx, top, "members", nil))
	require.NoError(t, e.Add(ctx, top, "members", "a", nil))

	out, err := e.Dump(ctx, top, "members")
	require.NoError(t, err)
	require.Contains(t, out, "members")
	require.Contains(t, out, "1")
}
