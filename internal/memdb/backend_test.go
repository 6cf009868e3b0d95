package memdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/assetstore/internal/storetest"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Backend {
		b, err := Open()
		require.NoError(t, err)
		return b
	})
}

func TestSchemaValidates(t *testing.T) {
	require.NoError(t, Schema().Validate())
}

func TestGetSnapshotReturnsCopy(t *testing.T) {
	ctx := context.Background()
	b, err := Open()
	require.NoError(t, err)

	_, err = b.PutSnapshot(ctx, types.SnapshotInput{OrganizationID: "o", MediaPackageID: "m", Payload: []byte("abc")})
	require.NoError(t, err)

	s, ok, err := b.GetSnapshot(ctx, "o", "m", 1)
	require.NoError(t, err)
	require.True(t, ok)
	s.Payload[0] = 'x'
	s.SeriesID = "changed"

	again, _, err := b.GetSnapshot(ctx, "o", "m", 1)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Payload))
	assert.Empty(t, again.SeriesID)
}

func TestReadTransactionIsolation(t *testing.T) {
	ctx := context.Background()
	b, err := Open()
	require.NoError(t, err)
	_, err = b.PutSnapshot(ctx, types.SnapshotInput{OrganizationID: "o", MediaPackageID: "m"})
	require.NoError(t, err)

	read, err := b.Begin(ctx, false)
	require.NoError(t, err)
	defer read.Rollback()

	_, err = b.PutSnapshot(ctx, types.SnapshotInput{OrganizationID: "o", MediaPackageID: "m"})
	require.NoError(t, err)

	rows, err := read.MatchSnapshots(ctx, "o", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "a read transaction does not see later commits")
}
