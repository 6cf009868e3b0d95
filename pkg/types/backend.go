package types

import "context"

// SnapshotStore keeps versioned snapshots per (organization, media package).
type SnapshotStore interface {
	// PutSnapshot allocates the next version for the input's key and stores an
	// immutable row. Concurrent calls on one key never receive equal versions.
	PutSnapshot(ctx context.Context, in SnapshotInput) (*Snapshot, error)

	// GetSnapshot returns the snapshot of one version. ok is false when the
	// version is not stored; that is not an error.
	GetSnapshot(ctx context.Context, org, mediaPackageID string, version int64) (s *Snapshot, ok bool, err error)

	// DeleteSnapshot removes exactly one version. Returns false if absent.
	DeleteSnapshot(ctx context.Context, org, mediaPackageID string, version int64) (bool, error)

	// IsLatest reports whether no stored snapshot of the key has a greater
	// version than version.
	IsLatest(ctx context.Context, org, mediaPackageID string, version int64) (bool, error)
}

// PropertyStore upserts properties.
type PropertyStore interface {
	// SetProperty inserts p or overwrites the value of the existing row with
	// the same (organization, media package, namespace, name). Returns false
	// without writing when the media package has no snapshot in p's organization.
	SetProperty(ctx context.Context, p Property) (bool, error)
}

// Backend is a storage engine for snapshots and properties. Failures of the
// underlying engine are reported wrapped in ErrStoreUnavailable.
type Backend interface {
	SnapshotStore
	PropertyStore

	// Begin opens a transaction. Read transactions see a consistent view;
	// write transactions apply all of their changes or none of them.
	Begin(ctx context.Context, writable bool) (Tx, error)

	// RestoreSnapshot stores s with its own id, version and creation time and
	// raises the key's version claim to s.Version. Returns ErrInvalidVersion
	// unless s.Version is above the key's current claim.
	RestoreSnapshot(ctx context.Context, s *Snapshot) error

	// Close releases the engine. Further calls return ErrStoreClosed.
	Close() error
}

// Tx is one backend transaction. Rollback after Commit is a no-op, so callers
// may defer Rollback unconditionally.
type Tx interface {
	// MatchSnapshots returns the snapshot rows satisfying p, ordered by
	// organization, media package and version. An empty org matches rows of
	// every organization.
	MatchSnapshots(ctx context.Context, org string, p Predicate) ([]*Snapshot, error)

	// Properties returns the property rows of keys that fall under f.
	Properties(ctx context.Context, keys []MediaPackageKey, f PropertyFilter) ([]Property, error)

	// DeleteProperties removes the property rows of keys that fall under f and
	// returns how many rows were removed.
	DeleteProperties(ctx context.Context, keys []MediaPackageKey, f PropertyFilter) (int, error)

	// DeleteSnapshots removes the given snapshot rows and returns how many
	// existed.
	DeleteSnapshots(ctx context.Context, keys []SnapshotKey) (int, error)

	// DeleteOrphanProperties removes every property of the keys that no
	// longer have any snapshot.
	DeleteOrphanProperties(ctx context.Context, keys []MediaPackageKey) (int, error)

	Commit() error
	Rollback() error
}
