package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mesh-intelligence/assetstore/internal/storetest"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

func openTest(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return b
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Backend { return openTest(t) })
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	b, err := Open(types.Config{Backend: types.BackendSQLite, DataDir: dir})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer b.Close()

	if b.Path() != filepath.Join(dir, DatabaseFile) {
		t.Errorf("Path() = %q", b.Path())
	}
	if _, err := os.Stat(b.Path()); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b, err := Open(config)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	in := types.SnapshotInput{OrganizationID: "org", MediaPackageID: "mp", SeriesID: "s", Payload: []byte("doc")}
	if _, err := b.PutSnapshot(ctx, in); err != nil {
		t.Fatalf("PutSnapshot failed: %v", err)
	}
	if _, err := b.DeleteSnapshot(ctx, "org", "mp", 1); err != nil {
		t.Fatalf("DeleteSnapshot failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Schema creation is idempotent and claims survive a restart.
	b, err = Open(config)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer b.Close()
	s, err := b.PutSnapshot(ctx, in)
	if err != nil {
		t.Fatalf("PutSnapshot failed: %v", err)
	}
	if s.Version != 2 {
		t.Errorf("version after reopen = %d, want 2", s.Version)
	}
}
