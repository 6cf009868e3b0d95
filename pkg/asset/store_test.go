package asset_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/assetstore/internal/memdb"
	"github.com/mesh-intelligence/assetstore/pkg/asset"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

var (
	agent = types.StringProperty("org.opencast.agent", "agent")
	count = types.LongProperty("org.opencast.stats", "count")
)

func newStore(t *testing.T, opts ...asset.Option) *asset.Store {
	t.Helper()
	b, err := memdb.Open()
	require.NoError(t, err)
	s := asset.New(b, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, org *asset.Scoped, mps ...string) {
	t.Helper()
	ctx := context.Background()
	for i, mp := range mps {
		_, err := org.Put(ctx, mp, []byte(mp), "")
		require.NoError(t, err)
		p, err := agent.Of(mp, mp)
		require.NoError(t, err)
		ok, err := org.SetProperty(ctx, p)
		require.NoError(t, err)
		require.True(t, ok)
		p, err = count.Of(mp, i)
		require.NoError(t, err)
		_, err = org.SetProperty(ctx, p)
		require.NoError(t, err)
	}
}

func TestSelectBuilderIsImmutable(t *testing.T) {
	org := newStore(t).ForOrganization("org")
	base := org.Select(org.Snapshot()).Where(types.MediaPackageIs("a"))

	narrowed := base.Where(types.IsLatestVersion()).OrderBy(types.Asc(types.OrderByVersion)).Page(1, 5).Name("narrow")
	other := base.OrderBy(types.Desc(types.OrderByCreatedAt))

	spec := base.Spec()
	assert.Equal(t, types.MediaPackageIs("a"), spec.Predicate)
	assert.Empty(t, spec.Orders)
	assert.Zero(t, spec.Offset)
	assert.Empty(t, spec.Label)

	assert.Equal(t, types.And(types.MediaPackageIs("a"), types.IsLatestVersion()), narrowed.Spec().Predicate)
	assert.Equal(t, []types.Order{types.Asc(types.OrderByVersion)}, narrowed.Spec().Orders)
	assert.Equal(t, []types.Order{types.Desc(types.OrderByCreatedAt)}, other.Spec().Orders)
	assert.Equal(t, "narrow", narrowed.Spec().Label)
}

func TestOrderByDoesNotShareBackingArray(t *testing.T) {
	org := newStore(t).ForOrganization("org")
	base := org.Select(org.Snapshot()).OrderBy(types.Asc(types.OrderByVersion))

	a := base.OrderBy(types.Asc(types.OrderByMediaPackageID))
	b := base.OrderBy(types.Desc(types.OrderBySeriesID))

	assert.Equal(t, types.OrderByMediaPackageID, a.Spec().Orders[1].Field)
	assert.Equal(t, types.OrderBySeriesID, b.Spec().Orders[1].Field)
}

func TestDeleteBuilderIsImmutable(t *testing.T) {
	org := newStore(t).ForOrganization("org")
	base := org.Delete("org", org.Properties())
	named := base.Where(types.MediaPackageIs("a")).Name("purge")

	assert.Nil(t, base.Spec().Predicate)
	assert.Empty(t, base.Spec().Label)
	assert.Equal(t, "org", named.Spec().Owner)
	assert.Equal(t, "purge", named.Spec().Label)
	assert.Equal(t, types.MediaPackageIs("a"), named.Spec().Predicate)
}

func TestLatest(t *testing.T) {
	ctx := context.Background()
	org := newStore(t).ForOrganization("org")

	_, ok, err := org.Latest(ctx, "mp")
	require.NoError(t, err)
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		_, err := org.Put(ctx, "mp", nil, "")
		require.NoError(t, err)
	}
	s, ok, err := org.Latest(ctx, "mp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), s.Version)

	latest, err := org.IsLatest(ctx, "mp", 3)
	require.NoError(t, err)
	assert.True(t, latest)

	got, ok, err := org.Get(ctx, "mp", 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Version)
}

func TestSelectPropertiesOnly(t *testing.T) {
	ctx := context.Background()
	org := newStore(t).ForOrganization("org")
	seed(t, org, "a", "b")
	_, err := org.Put(ctx, "a", nil, "")
	require.NoError(t, err)
	_, err = org.Put(ctx, "bare", nil, "")
	require.NoError(t, err)

	res, err := org.Select(count.Target()).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, res.Size(), "one record per media package with a selected property")

	rec, _ := res.Head()
	assert.Equal(t, "a", rec.MediaPackageID)
	assert.Nil(t, rec.Snapshot)
	assert.Equal(t, map[types.PropertyName]types.Value{count.Key(): types.LongValue(0)}, rec.Values())
}

func TestOrderByUnselectedProperty(t *testing.T) {
	ctx := context.Background()
	org := newStore(t).ForOrganization("org")
	seed(t, org, "a", "b", "c")

	res, err := org.Select(org.Snapshot()).OrderBy(types.ByProperty(count, true)).Run(ctx)
	require.NoError(t, err)
	var got []string
	for _, rec := range res.Records {
		got = append(got, rec.MediaPackageID)
		assert.Empty(t, rec.Properties, "sort keys are not returned")
	}
	assert.Equal(t, []string{"c", "b", "a"}, got)
}

func TestInvalidQueries(t *testing.T) {
	ctx := context.Background()
	org := newStore(t).ForOrganization("org")

	_, err := org.Select(org.Snapshot()).OrderBy(types.Order{Field: "size"}).Run(ctx)
	assert.ErrorIs(t, err, types.ErrInvalidOrder)

	_, err = org.Select(org.Snapshot()).Where(count.Eq("x")).Run(ctx)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	_, err = org.Delete("org").Run(ctx)
	assert.ErrorIs(t, err, types.ErrNoTarget)

	_, err = org.Delete("", org.Snapshot()).Run(ctx)
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestStoreLogsQueryRuns(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	org := newStore(t, asset.WithLogger(logger)).ForOrganization("org")
	seed(t, org, "a")

	_, err := org.Select(org.Snapshot()).Where(types.Named(types.And(agent.Eq("a"), types.IsLatestVersion()), "by-agent")).Name("lookup").Run(context.Background())
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "query run", entry["message"])
	assert.Equal(t, "select", entry["kind"])
	assert.Equal(t, "org", entry["organization"])
	assert.Equal(t, []any{"lookup", "by-agent"}, entry["labels"])
	assert.EqualValues(t, 1, entry["rows"])
}

func TestPutAllEmpty(t *testing.T) {
	snaps, err := newStore(t).PutAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestPutAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snaps, err := newStore(t, asset.WithImportWorkers(2)).PutAll(ctx, []types.SnapshotInput{
		{OrganizationID: "org", MediaPackageID: "a"},
		{OrganizationID: "org", MediaPackageID: "b"},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []*types.Snapshot{nil, nil}, snaps)
}
