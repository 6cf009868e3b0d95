package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

func snap(mp string, version int64) *types.Snapshot {
	return &types.Snapshot{OrganizationID: "org", MediaPackageID: mp, Version: version}
}

func prop(mp, name string, v int64) types.Property {
	return types.Property{OrganizationID: "org", MediaPackageID: mp, Namespace: "ns", Name: name, Value: types.LongValue(v)}
}

func TestBuildRecords(t *testing.T) {
	rows := []*types.Snapshot{snap("a", 1), snap("a", 2), snap("b", 1), snap("c", 1)}
	byKey := map[types.MediaPackageKey][]types.Property{
		{OrganizationID: "org", MediaPackageID: "a"}: {prop("a", "x", 1), prop("a", "y", 2)},
		{OrganizationID: "org", MediaPackageID: "b"}: {prop("b", "y", 3)},
	}
	xOnly := types.PropertyFilter{Slots: []types.PropertyName{{Namespace: "ns", Name: "x"}}}

	t.Run("snapshot target", func(t *testing.T) {
		records := buildRecords(rows, true, xOnly, byKey)
		assert.Len(t, records, 4)
		assert.Len(t, records[0].Properties, 1)
		assert.Empty(t, records[2].Properties)
		assert.Len(t, records[2].sortProps, 1)
	})

	t.Run("properties only", func(t *testing.T) {
		records := buildRecords(rows, false, types.PropertyFilter{All: true}, byKey)
		assert.Len(t, records, 2)
		assert.Equal(t, int64(2), records[0].rep.Version, "represented by the highest matching version")
		assert.Nil(t, records[0].Snapshot)
		assert.Equal(t, "b", records[1].MediaPackageID)
	})
}

func TestPage(t *testing.T) {
	records := make([]Record, 5)
	tests := []struct {
		offset, limit, want int
	}{
		{0, 0, 5},
		{0, -1, 5},
		{1, 2, 2},
		{4, 10, 1},
		{5, 1, 0},
	}
	for _, tt := range tests {
		assert.Len(t, page(records, tt.offset, tt.limit), tt.want, "page(%d, %d)", tt.offset, tt.limit)
	}
}

func TestResultHelpers(t *testing.T) {
	a1, a2 := snap("a", 1), snap("a", 2)
	props := []types.Property{prop("a", "x", 1)}
	res := &Result{Records: []Record{
		{OrganizationID: "org", MediaPackageID: "a", Snapshot: a1, Properties: props},
		{OrganizationID: "org", MediaPackageID: "a", Snapshot: a2, Properties: props},
		{OrganizationID: "org", MediaPackageID: "b", Properties: []types.Property{prop("b", "x", 2)}},
	}}

	assert.Equal(t, 3, res.Size())
	assert.Equal(t, []*types.Snapshot{a1, a2}, res.Snapshots())
	assert.Equal(t, 2, res.CountProperties())

	docs := res.Documents()
	assert.Len(t, docs, 2)
	assert.Equal(t, []*types.Snapshot{a1, a2}, docs[0].Snapshots)
	assert.Empty(t, docs[1].Snapshots)

	head, ok := res.Head()
	assert.True(t, ok)
	v, ok := head.PropertyValue(types.LongProperty("ns", "x"))
	assert.True(t, ok)
	assert.True(t, v.Equal(types.LongValue(1)))
	_, ok = head.PropertyValue(types.StringProperty("ns", "x"))
	assert.False(t, ok, "a definition of another type does not read the value")

	_, ok = (&Result{}).Head()
	assert.False(t, ok)
}

func TestConjoin(t *testing.T) {
	a, b := types.MediaPackageIs("a"), types.IsLatestVersion()
	assert.Nil(t, conjoin(nil, nil))
	assert.Equal(t, a, conjoin(nil, a))
	assert.Equal(t, a, conjoin(a, nil))
	assert.Equal(t, types.And(a, b), conjoin(a, b))
}
