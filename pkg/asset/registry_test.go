package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

func TestRegistryDefine(t *testing.T) {
	r, err := NewRegistry(types.StringProperty("ns", "b"), types.LongProperty("ns", "a"))
	require.NoError(t, err)

	d, err := r.Define(types.StringProperty("ns", "b"))
	require.NoError(t, err)
	assert.Equal(t, types.ValueTypeString, d.ValueType)

	_, err = r.Define(types.BooleanProperty("ns", "b"))
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	_, err = r.Define(types.StringProperty("", "b"))
	assert.ErrorIs(t, err, types.ErrInvalidName)

	assert.Equal(t, []types.PropertyDefinition{
		types.LongProperty("ns", "a"),
		types.StringProperty("ns", "b"),
	}, r.Definitions())
}

func TestNewRegistryConflict(t *testing.T) {
	_, err := NewRegistry(types.StringProperty("ns", "x"), types.LongProperty("ns", "x"))
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestRegistryCheckPredicate(t *testing.T) {
	r, err := NewRegistry(types.LongProperty("ns", "count"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		p       types.Predicate
		wantErr bool
	}{
		{"nil", nil, false},
		{"leaf", types.MediaPackageIs("m"), false},
		{"registered type", types.LongProperty("ns", "count").Eq(1), false},
		{"unregistered slot", types.StringProperty("ns", "other").Exists(), false},
		{"wrong type", types.StringProperty("ns", "count").Exists(), true},
		{"nested in not", types.Not(types.BooleanProperty("ns", "count").NotExists()), true},
		{"nested in or", types.Or(types.Always(), types.StringProperty("ns", "count").Eq("1")), true},
		{"nested in and", types.And(types.StringProperty("ns", "count").Exists(), types.Always()), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.CheckPredicate(tt.p)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrTypeMismatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistryCheck(t *testing.T) {
	r, err := NewRegistry(types.StringProperty("ns", "agent"))
	require.NoError(t, err)

	ok, err := types.StringProperty("ns", "agent").Of("m", "x")
	require.NoError(t, err)
	assert.NoError(t, r.Check(ok))

	bad := types.Property{MediaPackageID: "m", Namespace: "ns", Name: "agent", Value: types.LongValue(1)}
	assert.ErrorIs(t, r.Check(bad), types.ErrTypeMismatch)

	def, found := r.Lookup("ns", "agent")
	require.True(t, found)
	assert.Equal(t, types.ValueTypeString, def.ValueType)
	_, found = r.Lookup("ns", "missing")
	assert.False(t, found)
}
