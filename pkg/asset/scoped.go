package asset

import (
	"context"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Scoped runs operations in one scope. Ordinary callers obtain it from
// Store.ForOrganization.
type Scoped struct {
	store *Store
	scope types.Scope
}

// Scope returns the handle's scope.
func (s *Scoped) Scope() types.Scope { return s.scope }

// Select starts a select of targets.
func (s *Scoped) Select(targets ...types.Target) SelectQuery {
	var q SelectQuery = selectQuery{
		engine: s.store.engine,
		spec:   SelectSpec{Scope: s.scope, Targets: targets},
	}
	for _, w := range s.store.selects {
		q = w(q)
	}
	return q
}

// Delete starts a delete of targets under owner's authority.
func (s *Scoped) Delete(owner string, targets ...types.Target) DeleteQuery {
	var q DeleteQuery = deleteQuery{
		engine: s.store.engine,
		spec:   DeleteSpec{Scope: s.scope, Owner: owner, Targets: targets},
	}
	for _, w := range s.store.deletes {
		q = w(q)
	}
	return q
}

// Snapshot targets snapshot rows.
func (s *Scoped) Snapshot() types.Target { return types.Snapshots() }

// Properties targets every property row.
func (s *Scoped) Properties() types.Target { return types.Properties() }

// PropertiesOf targets every property row of namespace.
func (s *Scoped) PropertiesOf(namespace string) types.Target { return types.PropertiesOf(namespace) }

// Property returns the registered definition of a slot.
func (s *Scoped) Property(namespace, name string) (types.PropertyDefinition, bool) {
	return s.store.engine.registry.Lookup(namespace, name)
}

// Put stores a new snapshot of mediaPackageID in the scope's organization.
func (s *Scoped) Put(ctx context.Context, mediaPackageID string, payload []byte, seriesID string) (*types.Snapshot, error) {
	return s.store.engine.backend.PutSnapshot(ctx, types.SnapshotInput{
		OrganizationID: s.scope.Organization(),
		MediaPackageID: mediaPackageID,
		SeriesID:       seriesID,
		Payload:        payload,
	})
}

// Get returns one version of a snapshot; ok is false when it is not stored.
func (s *Scoped) Get(ctx context.Context, mediaPackageID string, version int64) (*types.Snapshot, bool, error) {
	return s.store.engine.backend.GetSnapshot(ctx, s.scope.Organization(), mediaPackageID, version)
}

// Latest returns the highest stored version of a media package.
func (s *Scoped) Latest(ctx context.Context, mediaPackageID string) (*types.Snapshot, bool, error) {
	res, err := s.Select(types.Snapshots()).
		Where(types.And(types.MediaPackageIs(mediaPackageID), types.IsLatestVersion())).
		Run(ctx)
	if err != nil {
		return nil, false, err
	}
	rec, ok := res.Head()
	if !ok {
		return nil, false, nil
	}
	return rec.Snapshot, true, nil
}

// IsLatest reports whether no stored version of the media package exceeds
// version.
func (s *Scoped) IsLatest(ctx context.Context, mediaPackageID string, version int64) (bool, error) {
	return s.store.engine.backend.IsLatest(ctx, s.scope.Organization(), mediaPackageID, version)
}

// DeleteSnapshot removes one version under owner's authority.
func (s *Scoped) DeleteSnapshot(ctx context.Context, owner, mediaPackageID string, version int64) (bool, error) {
	if err := s.scope.Authorize(owner, nil); err != nil {
		return false, err
	}
	return s.store.engine.backend.DeleteSnapshot(ctx, s.scope.Organization(), mediaPackageID, version)
}

// SetProperty upserts p in the scope's organization. It returns false when
// the media package has no snapshot, and ErrTypeMismatch when p's slot is
// registered with another type.
func (s *Scoped) SetProperty(ctx context.Context, p types.Property) (bool, error) {
	if err := s.store.engine.registry.Check(p); err != nil {
		return false, err
	}
	p.OrganizationID = s.scope.Organization()
	return s.store.engine.backend.SetProperty(ctx, p)
}

// DeleteMediaPackage removes every snapshot and property of a media package
// in one transaction and returns the number of rows removed.
func (s *Scoped) DeleteMediaPackage(ctx context.Context, owner, mediaPackageID string) (int, error) {
	return s.Delete(owner, types.Snapshots(), types.Properties()).
		Where(types.MediaPackageIs(mediaPackageID)).
		Name("delete-media-package").
		Run(ctx)
}
