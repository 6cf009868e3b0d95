package pebble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/assetstore/internal/storetest"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

func openTest(t *testing.T, dir string) *Backend {
	t.Helper()
	b, err := Open(types.Config{Backend: types.BackendPebble, DataDir: dir})
	require.NoError(t, err)
	return b
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Backend { return openTest(t, t.TempDir()) })
}

func TestReopenKeepsClaims(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b := openTest(t, dir)
	in := types.SnapshotInput{OrganizationID: "o", MediaPackageID: "m", Payload: []byte("doc")}
	_, err := b.PutSnapshot(ctx, in)
	require.NoError(t, err)
	ok, err := b.DeleteSnapshot(ctx, "o", "m", 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, b.Close())

	b = openTest(t, dir)
	defer b.Close()
	s, err := b.PutSnapshot(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Version)
}

func TestPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	b := openTest(t, t.TempDir())
	defer b.Close()

	for _, in := range []types.SnapshotInput{
		{OrganizationID: "o", MediaPackageID: "m"},
		{OrganizationID: "o", MediaPackageID: "mm"},
		{OrganizationID: "oo", MediaPackageID: "m"},
	} {
		_, err := b.PutSnapshot(ctx, in)
		require.NoError(t, err)
	}

	tx, err := b.Begin(ctx, false)
	require.NoError(t, err)
	defer tx.Rollback()
	rows, err := tx.MatchSnapshots(ctx, "o", nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "m", rows[0].MediaPackageID)
	assert.Equal(t, "mm", rows[1].MediaPackageID)

	latest, err := b.IsLatest(ctx, "o", "m", 1)
	require.NoError(t, err)
	assert.True(t, latest, "rows of media package mm do not count for m")
}

func TestLatestVersionRejectsMalformedKey(t *testing.T) {
	ctx := context.Background()
	b := openTest(t, t.TempDir())
	defer b.Close()

	_, err := b.PutSnapshot(ctx, types.SnapshotInput{OrganizationID: "o", MediaPackageID: "m"})
	require.NoError(t, err)
	malformed := append(prefix(snapshotTag, "o", "m"), "abc"...)
	require.NoError(t, b.db.Set(malformed, []byte("{}"), nil))

	_, err = b.IsLatest(ctx, "o", "m", 1)
	assert.ErrorIs(t, err, types.ErrStoreUnavailable)
}
