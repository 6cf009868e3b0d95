package jsonl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/assetstore/internal/memdb"
	"github.com/mesh-intelligence/assetstore/internal/sqlite"
	"github.com/mesh-intelligence/assetstore/pkg/asset"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

var agent = types.StringProperty("org.opencast.agent", "agent")

func seededStore(t *testing.T) *asset.Store {
	t.Helper()
	ctx := context.Background()
	b, err := memdb.Open()
	require.NoError(t, err)
	store := asset.New(b)
	org := store.ForOrganization("org")

	for _, mp := range []string{"a", "a", "a", "b"} {
		_, err := org.Put(ctx, mp, []byte("<mp id=\""+mp+"\"/>"), "series")
		require.NoError(t, err)
	}
	ok, err := org.DeleteSnapshot(ctx, "org", "a", 2)
	require.NoError(t, err)
	require.True(t, ok)

	for _, mp := range []string{"a", "b"} {
		p, err := agent.Of(mp, "agent-"+mp)
		require.NoError(t, err)
		_, err = org.SetProperty(ctx, p)
		require.NoError(t, err)
	}
	return store
}

func TestDumpRestore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := seededStore(t)

	stats, err := Dump(ctx, src.ForOrganization("org"), dir)
	require.NoError(t, err)
	assert.Equal(t, Stats{Snapshots: 3, Properties: 2}, stats)

	dst, err := sqlite.Open(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
	require.NoError(t, err)
	defer dst.Close()

	stats, err = Restore(ctx, dst, dir)
	require.NoError(t, err)
	assert.Equal(t, Stats{Snapshots: 3, Properties: 2}, stats)

	want, err := src.ForOrganization("org").Select(types.Snapshots(), types.Properties()).Run(ctx)
	require.NoError(t, err)
	got, err := asset.New(dst).ForOrganization("org").Select(types.Snapshots(), types.Properties()).Run(ctx)
	require.NoError(t, err)

	require.Equal(t, want.Size(), got.Size())
	for i, w := range want.Snapshots() {
		g := got.Snapshots()[i]
		assert.Equal(t, w.SnapshotID, g.SnapshotID)
		assert.Equal(t, w.Version, g.Version)
		assert.Equal(t, w.SeriesID, g.SeriesID)
		assert.Equal(t, string(w.Payload), string(g.Payload))
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt))
	}
	assert.Equal(t, want.CountProperties(), got.CountProperties())

	// The gap left by the deleted version is preserved.
	s, err := dst.PutSnapshot(ctx, types.SnapshotInput{OrganizationID: "org", MediaPackageID: "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), s.Version)
}

func TestRestoreTwiceFails(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	_, err := Dump(ctx, seededStore(t).ForOrganization("org"), dir)
	require.NoError(t, err)

	dst, err := memdb.Open()
	require.NoError(t, err)
	_, err = Restore(ctx, dst, dir)
	require.NoError(t, err)

	_, err = Restore(ctx, dst, dir)
	assert.ErrorIs(t, err, types.ErrInvalidVersion)
}

func TestRestoreSkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	snapshots := `{"snapshot_id":"s1","organization_id":"org","media_package_id":"a","version":1,"payload":"","created_at":"2024-01-01T00:00:00Z"}
not json

{"snapshot_id":"s2","organization_id":"org","media_package_id":"a","version":"two"}
`
	properties := `{"organization_id":"org","media_package_id":"a","namespace":"ns","name":"n","value":{"type":"long","value":7}}
{"organization_id":"org","media_package_id":"ghost","namespace":"ns","name":"n","value":{"type":"long","value":7}}
{"organization_id":"org","media_package_id":"a","namespace":"ns","name":"bad","value":{"type":"long","value":"x"}}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotsFile), []byte(snapshots), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, PropertiesFile), []byte(properties), 0o644))

	dst, err := memdb.Open()
	require.NoError(t, err)
	stats, err := Restore(ctx, dst, dir)
	require.NoError(t, err)
	assert.Equal(t, Stats{Snapshots: 1, Properties: 1, Skipped: 4}, stats)
}

func TestRestoreMissingDump(t *testing.T) {
	dst, err := memdb.Open()
	require.NoError(t, err)
	_, err = Restore(context.Background(), dst, t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteLinesIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")
	require.NoError(t, writeLines(path, []map[string]int{{"a": 1}, {"b": 2}}))

	lines, skipped, err := readLines(path)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Len(t, lines, 2)

	err = writeLines(path, []any{func() {}})
	assert.Error(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "a failed write leaves no temp file behind")

	lines, _, err = readLines(path)
	require.NoError(t, err)
	assert.Len(t, lines, 2, "a failed write leaves the previous file intact")
}
