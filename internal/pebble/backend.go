// Package pebble implements a log-structured storage backend on Pebble.
// Write transactions are indexed batches committed with Sync; read
// transactions are point-in-time snapshots.
package pebble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Dir is the name of the Pebble directory inside the data directory.
const Dir = "pebble"

var _ types.Backend = (*Backend)(nil)

// Backend implements types.Backend on a Pebble database. Pebble batches do
// not detect conflicts, so writers are serialized by mu.
type Backend struct {
	mu     sync.Mutex
	db     *pebble.DB
	closed atomic.Bool
}

// Open opens (or creates) the database under config.DataDir.
func Open(config types.Config) (*Backend, error) {
	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	path := filepath.Join(dataDir, Dir)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, unavailable("opening pebble", err)
	}
	return &Backend{db: db}, nil
}

// Close closes the database. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Swap(true) {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return unavailable("closing pebble", err)
	}
	return nil
}

// Begin opens a read snapshot or a write batch.
func (b *Backend) Begin(ctx context.Context, writable bool) (types.Tx, error) {
	if !writable {
		if b.closed.Load() {
			return nil, types.ErrStoreClosed
		}
		snap := b.db.NewSnapshot()
		return &tx{r: snap, closer: snap.Close}, nil
	}

	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		return nil, types.ErrStoreClosed
	}
	batch := b.db.NewIndexedBatch()
	return &tx{r: batch, batch: batch, closer: batch.Close, unlock: b.mu.Unlock}, nil
}

func (b *Backend) write(ctx context.Context, fn func(t *tx) error) error {
	t, err := b.Begin(ctx, true)
	if err != nil {
		return err
	}
	defer t.Rollback()
	if err := fn(t.(*tx)); err != nil {
		return err
	}
	return t.Commit()
}

// PutSnapshot claims the next version and writes the row in one batch.
func (b *Backend) PutSnapshot(ctx context.Context, in types.SnapshotInput) (*types.Snapshot, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var s *types.Snapshot
	err := b.write(ctx, func(t *tx) error {
		last, err := t.lastClaim(in.OrganizationID, in.MediaPackageID)
		if err != nil {
			return err
		}
		latest, ok, err := t.latestVersion(in.OrganizationID, in.MediaPackageID)
		if err != nil {
			return err
		}
		if ok && latest > last {
			last = latest
		}
		s = &types.Snapshot{
			SnapshotID:     types.NewSnapshotID(),
			OrganizationID: in.OrganizationID,
			MediaPackageID: in.MediaPackageID,
			Version:        last + 1,
			SeriesID:       in.SeriesID,
			Payload:        append([]byte(nil), in.Payload...),
			CreatedAt:      time.Now().UTC(),
		}
		return t.putSnapshot(s)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RestoreSnapshot writes s unchanged and raises the key's claim.
func (b *Backend) RestoreSnapshot(ctx context.Context, s *types.Snapshot) error {
	if !types.ValidID(s.OrganizationID) || !types.ValidID(s.MediaPackageID) || !types.ValidID(s.SnapshotID) {
		return types.ErrInvalidID
	}
	if s.Version < 1 {
		return fmt.Errorf("%w: %d", types.ErrInvalidVersion, s.Version)
	}
	return b.write(ctx, func(t *tx) error {
		last, err := t.lastClaim(s.OrganizationID, s.MediaPackageID)
		if err != nil {
			return err
		}
		if s.Version <= last {
			return fmt.Errorf("%w: %d is not above claim %d", types.ErrInvalidVersion, s.Version, last)
		}
		return t.putSnapshot(s)
	})
}

// GetSnapshot returns one version; ok is false when it is not stored.
func (b *Backend) GetSnapshot(ctx context.Context, org, mediaPackageID string, version int64) (*types.Snapshot, bool, error) {
	if err := (types.MediaPackageKey{OrganizationID: org, MediaPackageID: mediaPackageID}).Validate(); err != nil {
		return nil, false, err
	}
	if b.closed.Load() {
		return nil, false, types.ErrStoreClosed
	}
	raw, ok, err := get(b.db, snapshotKey(org, mediaPackageID, version))
	if err != nil || !ok {
		return nil, false, err
	}
	var s types.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &s, true, nil
}

// DeleteSnapshot removes one version, and the media package's properties
// when no version remains.
func (b *Backend) DeleteSnapshot(ctx context.Context, org, mediaPackageID string, version int64) (bool, error) {
	if err := (types.MediaPackageKey{OrganizationID: org, MediaPackageID: mediaPackageID}).Validate(); err != nil {
		return false, err
	}
	var deleted bool
	err := b.write(ctx, func(t *tx) error {
		n, err := t.DeleteSnapshots(ctx, []types.SnapshotKey{{OrganizationID: org, MediaPackageID: mediaPackageID, Version: version}})
		if err != nil || n == 0 {
			return err
		}
		deleted = true
		_, err = t.DeleteOrphanProperties(ctx, []types.MediaPackageKey{{OrganizationID: org, MediaPackageID: mediaPackageID}})
		return err
	})
	return deleted, err
}

// IsLatest reports whether no stored version of the key exceeds version.
func (b *Backend) IsLatest(ctx context.Context, org, mediaPackageID string, version int64) (bool, error) {
	if err := (types.MediaPackageKey{OrganizationID: org, MediaPackageID: mediaPackageID}).Validate(); err != nil {
		return false, err
	}
	t, err := b.Begin(ctx, false)
	if err != nil {
		return false, err
	}
	defer t.Rollback()

	latest, ok, err := t.(*tx).latestVersion(org, mediaPackageID)
	if err != nil {
		return false, err
	}
	return !ok || latest <= version, nil
}

// SetProperty upserts p when its media package has a snapshot.
func (b *Backend) SetProperty(ctx context.Context, p types.Property) (bool, error) {
	if !types.ValidID(p.OrganizationID) || !types.ValidID(p.MediaPackageID) {
		return false, types.ErrInvalidID
	}
	if err := p.Definition().Validate(); err != nil {
		return false, err
	}
	var stored bool
	err := b.write(ctx, func(t *tx) error {
		_, ok, err := t.latestVersion(p.OrganizationID, p.MediaPackageID)
		if err != nil || !ok {
			return err
		}
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding property: %w", err)
		}
		if err := t.batch.Set(propertyKey(p.OrganizationID, p.MediaPackageID, p.Namespace, p.Name), data, nil); err != nil {
			return unavailable("writing property", err)
		}
		stored = true
		return nil
	})
	return stored, err
}

// get reads one value. ok is false when the key is absent.
func get(r pebble.Reader, k []byte) ([]byte, bool, error) {
	v, closer, err := r.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("reading key", err)
	}
	defer closer.Close()
	return append([]byte(nil), v...), true, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrStoreUnavailable, op, err)
}
