// Package memdb implements an in-memory storage backend on go-memdb. Read
// transactions are immutable snapshots of the radix trees; go-memdb admits
// one write transaction at a time.
package memdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

var _ types.Backend = (*Backend)(nil)

// Backend implements types.Backend in memory.
type Backend struct {
	db     *memdb.MemDB
	closed atomic.Bool
}

// Open creates an empty in-memory store.
func Open() (*Backend, error) {
	db, err := memdb.NewMemDB(Schema())
	if err != nil {
		return nil, fmt.Errorf("creating memdb: %w", err)
	}
	return &Backend{db: db}, nil
}

// Close marks the store closed. The data is released with the Backend.
func (b *Backend) Close() error {
	b.closed.Store(true)
	return nil
}

func (b *Backend) txn(write bool) (*memdb.Txn, error) {
	if b.closed.Load() {
		return nil, types.ErrStoreClosed
	}
	return b.db.Txn(write), nil
}

// PutSnapshot claims the next version and inserts the row.
func (b *Backend) PutSnapshot(ctx context.Context, in types.SnapshotInput) (*types.Snapshot, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	txn, err := b.txn(true)
	if err != nil {
		return nil, err
	}
	defer txn.Abort()

	last, err := lastClaim(txn, in.OrganizationID, in.MediaPackageID)
	if err != nil {
		return nil, err
	}
	latest, ok, err := latestVersion(txn, in.OrganizationID, in.MediaPackageID)
	if err != nil {
		return nil, err
	}
	if ok && latest > last {
		last = latest
	}

	s := &types.Snapshot{
		SnapshotID:     types.NewSnapshotID(),
		OrganizationID: in.OrganizationID,
		MediaPackageID: in.MediaPackageID,
		Version:        last + 1,
		SeriesID:       in.SeriesID,
		Payload:        append([]byte(nil), in.Payload...),
		CreatedAt:      time.Now().UTC(),
	}
	if err := txn.Insert(claimTable, &claim{OrganizationID: s.OrganizationID, MediaPackageID: s.MediaPackageID, LastVersion: s.Version}); err != nil {
		return nil, unavailable("writing version claim", err)
	}
	if err := txn.Insert(snapshotTable, s); err != nil {
		return nil, unavailable("inserting snapshot", err)
	}
	txn.Commit()
	return copySnapshot(s), nil
}

// RestoreSnapshot inserts s unchanged and raises the key's claim.
func (b *Backend) RestoreSnapshot(ctx context.Context, s *types.Snapshot) error {
	if !types.ValidID(s.OrganizationID) || !types.ValidID(s.MediaPackageID) || !types.ValidID(s.SnapshotID) {
		return types.ErrInvalidID
	}
	if s.Version < 1 {
		return fmt.Errorf("%w: %d", types.ErrInvalidVersion, s.Version)
	}
	txn, err := b.txn(true)
	if err != nil {
		return err
	}
	defer txn.Abort()

	last, err := lastClaim(txn, s.OrganizationID, s.MediaPackageID)
	if err != nil {
		return err
	}
	if s.Version <= last {
		return fmt.Errorf("%w: %d is not above claim %d", types.ErrInvalidVersion, s.Version, last)
	}
	if err := txn.Insert(claimTable, &claim{OrganizationID: s.OrganizationID, MediaPackageID: s.MediaPackageID, LastVersion: s.Version}); err != nil {
		return unavailable("writing version claim", err)
	}
	if err := txn.Insert(snapshotTable, copySnapshot(s)); err != nil {
		return unavailable("inserting snapshot", err)
	}
	txn.Commit()
	return nil
}

// GetSnapshot returns one version; ok is false when it is not stored.
func (b *Backend) GetSnapshot(ctx context.Context, org, mediaPackageID string, version int64) (*types.Snapshot, bool, error) {
	if err := (types.MediaPackageKey{OrganizationID: org, MediaPackageID: mediaPackageID}).Validate(); err != nil {
		return nil, false, err
	}
	txn, err := b.txn(false)
	if err != nil {
		return nil, false, err
	}
	raw, err := txn.First(snapshotTable, indexVersion, org, mediaPackageID, version)
	if err != nil {
		return nil, false, unavailable("getting snapshot", err)
	}
	if raw == nil {
		return nil, false, nil
	}
	return copySnapshot(raw.(*types.Snapshot)), true, nil
}

// DeleteSnapshot removes one version, and the media package's properties
// when no version remains.
func (b *Backend) DeleteSnapshot(ctx context.Context, org, mediaPackageID string, version int64) (bool, error) {
	if err := (types.MediaPackageKey{OrganizationID: org, MediaPackageID: mediaPackageID}).Validate(); err != nil {
		return false, err
	}
	t, err := b.Begin(ctx, true)
	if err != nil {
		return false, err
	}
	defer t.Rollback()

	n, err := t.DeleteSnapshots(ctx, []types.SnapshotKey{{OrganizationID: org, MediaPackageID: mediaPackageID, Version: version}})
	if err != nil || n == 0 {
		return false, err
	}
	if _, err := t.DeleteOrphanProperties(ctx, []types.MediaPackageKey{{OrganizationID: org, MediaPackageID: mediaPackageID}}); err != nil {
		return false, err
	}
	return true, t.Commit()
}

// IsLatest reports whether no stored version of the key exceeds version.
func (b *Backend) IsLatest(ctx context.Context, org, mediaPackageID string, version int64) (bool, error) {
	if err := (types.MediaPackageKey{OrganizationID: org, MediaPackageID: mediaPackageID}).Validate(); err != nil {
		return false, err
	}
	txn, err := b.txn(false)
	if err != nil {
		return false, err
	}
	latest, ok, err := latestVersion(txn, org, mediaPackageID)
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
	txn, err := b.txn(true)
	if err != nil {
		return false, err
	}
	defer txn.Abort()

	raw, err := txn.First(snapshotTable, indexMP, p.OrganizationID, p.MediaPackageID)
	if err != nil {
		return false, unavailable("checking media package", err)
	}
	if raw == nil {
		return false, nil
	}
	stored := p
	if err := txn.Insert(propertyTable, &stored); err != nil {
		return false, unavailable("upserting property", err)
	}
	txn.Commit()
	return true, nil
}

// Begin opens a transaction. go-memdb blocks a second writer until the first
// commits or aborts.
func (b *Backend) Begin(ctx context.Context, writable bool) (types.Tx, error) {
	txn, err := b.txn(writable)
	if err != nil {
		return nil, err
	}
	return &tx{txn: txn}, nil
}

func lastClaim(txn *memdb.Txn, org, mp string) (int64, error) {
	raw, err := txn.First(claimTable, indexID, org, mp)
	if err != nil {
		return 0, unavailable("reading version claim", err)
	}
	if raw == nil {
		return 0, nil
	}
	return raw.(*claim).LastVersion, nil
}

// latestVersion scans the media package's rows for the highest version.
func latestVersion(txn *memdb.Txn, org, mp string) (int64, bool, error) {
	it, err := txn.Get(snapshotTable, indexMP, org, mp)
	if err != nil {
		return 0, false, unavailable("reading versions", err)
	}
	var (
		latest int64
		found  bool
	)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		s := raw.(*types.Snapshot)
		if !found || s.Version > latest {
			latest, found = s.Version, true
		}
	}
	return latest, found, nil
}

func copySnapshot(s *types.Snapshot) *types.Snapshot {
	c := *s
	c.Payload = append([]byte(nil), s.Payload...)
	return &c
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrStoreUnavailable, op, err)
}
