package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/assetstore/internal/memdb"
	"github.com/mesh-intelligence/assetstore/pkg/asset"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

func TestMetricsDecorators(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := New(reg)

	backend, err := memdb.Open()
	require.NoError(t, err)
	store := asset.New(m.Backend(backend), m.Options()...)
	org := store.ForOrganization("org")

	_, err = org.Put(ctx, "mp-1", []byte("<mp/>"), "")
	require.NoError(t, err)
	_, err = org.Put(ctx, "mp-1", []byte("<mp/>"), "")
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SnapshotsPut))

	q := org.Select(org.Snapshot()).Where(types.MediaPackageIs("mp-1")).OrderBy(types.Desc(types.OrderByVersion))
	require.IsType(t, &asset.SelectDecorator{}, q)
	res, err := q.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Size())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("select", "ok")))

	_, err = store.ForOrganization("org").Delete("intruder", org.Snapshot()).Run(ctx)
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("delete", "error")))

	n, err := org.Delete("org", org.Snapshot()).Where(types.Not(types.IsLatestVersion())).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsDeleted))
	assert.Equal(t, 2, testutil.CollectAndCount(m.QueryDuration))
}
