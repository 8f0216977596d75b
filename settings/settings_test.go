package settings_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/lset/ldt"
	"github.com/rpcpool/lset/settings"
)

func TestApplyOptionsRecognizedKeys(t *testing.T) {
	lm := ldt.DefaultLsetMap()
	sm := settings.StructuredModule{Options: map[string]any{
		"Modulo":          64,
		"Threshold":       50,
		"HashCellMaxList": 8,
		"KeyFunction":     "by-id",
	}}
	require.NoError(t, sm.ApplyOptions(&lm))
	require.Equal(t, 64, lm.Modulo)
	require.Equal(t, 50, lm.Threshold)
	require.Equal(t, 8, lm.HashCellMaxList)
	require.Equal(t, "by-id", lm.KeyFunction)
}

func TestApplyOptionsIgnoresUnknownKeys(t *testing.T) {
	lm := ldt.DefaultLsetMap()
	sm := settings.StructuredModule{Options: map[string]any{"NotARealOption": 1}}
	require.NoError(t, sm.ApplyOptions(&lm))
	require.Equal(t, ldt.DefaultLsetMap(), lm)
}

func TestApplyOptionsRejectsWrongType(t *testing.T) {
	lm := ldt.DefaultLsetMap()
	sm := settings.StructuredModule{Options: map[string]any{"Modulo": "not-a-number"}}
	err := sm.ApplyOptions(&lm)
	require.ErrorIs(t, err, ldt.ErrUserModuleBad)
}

func TestApplyDispatchesByUserModuleType(t *testing.T) {
	lm := ldt.DefaultLsetMap()
	require.NoError(t, settings.Apply(&lm, nil, nil, nil))

	reg := settings.NewRegistry()
	reg.Register("fast", func(lm *ldt.LsetMap) error {
		lm.Threshold = 1000
		return nil
	})
	sm := settings.StructuredModule{Package: "fast"}
	require.NoError(t, settings.Apply(&lm, sm, nil, reg))
	require.Equal(t, 1000, lm.Threshold)
}

func TestApplyRejectsUnrecognizedUserModuleType(t *testing.T) {
	lm := ldt.DefaultLsetMap()
	err := settings.Apply(&lm, 42, nil, nil)
	require.ErrorIs(t, err, ldt.ErrUserModuleBad)
}

func TestDecodeStructuredModuleFromJSON(t *testing.T) {
	doc := []byte(`{"package":"fast","options":{"Modulo":32}}`)
	sm, err := settings.DecodeStructuredModule(doc)
	require.NoError(t, err)
	require.Equal(t, "fast", sm.Package)
	require.Equal(t, float64(32), sm.Options["Modulo"])
}
