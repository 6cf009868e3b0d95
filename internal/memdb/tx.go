package memdb

import (
	"context"

	"github.com/hashicorp/go-memdb"

	"github.com/mesh-intelligence/assetstore/internal/eval"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// tx adapts a go-memdb transaction to types.Tx.
type tx struct {
	txn  *memdb.Txn
	done bool
}

var (
	_ types.Tx    = (*tx)(nil)
	_ eval.Source = evalSource{}
)

func (t *tx) snapshots(org string) ([]*types.Snapshot, error) {
	var (
		it  memdb.ResultIterator
		err error
	)
	switch {
	case org == "":
		it, err = t.txn.Get(snapshotTable, indexID)
	case !types.ValidID(org):
		return nil, nil
	default:
		it, err = t.txn.Get(snapshotTable, indexOrg, org)
	}
	if err != nil {
		return nil, unavailable("reading snapshots", err)
	}
	var out []*types.Snapshot
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*types.Snapshot))
	}
	return out, nil
}

func (t *tx) properties(key types.MediaPackageKey) ([]*types.Property, error) {
	if key.Validate() != nil {
		return nil, nil
	}
	it, err := t.txn.Get(propertyTable, indexMP, key.OrganizationID, key.MediaPackageID)
	if err != nil {
		return nil, unavailable("reading properties", err)
	}
	var out []*types.Property
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*types.Property))
	}
	return out, nil
}

func (t *tx) MatchSnapshots(ctx context.Context, org string, p types.Predicate) ([]*types.Snapshot, error) {
	rows, err := eval.Match(evalSource{t}, org, p)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Snapshot, len(rows))
	for i, s := range rows {
		out[i] = copySnapshot(s)
	}
	return out, nil
}

func (t *tx) Properties(ctx context.Context, keys []types.MediaPackageKey, f types.PropertyFilter) ([]types.Property, error) {
	if f.Empty() {
		return nil, nil
	}
	var out []types.Property
	for _, k := range keys {
		props, err := t.properties(k)
		if err != nil {
			return nil, err
		}
		for _, p := range props {
			if f.Matches(*p) {
				out = append(out, *p)
			}
		}
	}
	eval.SortProperties(out)
	return out, nil
}

func (t *tx) DeleteProperties(ctx context.Context, keys []types.MediaPackageKey, f types.PropertyFilter) (int, error) {
	if f.Empty() {
		return 0, nil
	}
	total := 0
	for _, k := range keys {
		props, err := t.properties(k)
		if err != nil {
			return 0, err
		}
		for _, p := range props {
			if !f.Matches(*p) {
				continue
			}
			if err := t.txn.Delete(propertyTable, p); err != nil {
				return 0, unavailable("deleting property", err)
			}
			total++
		}
	}
	return total, nil
}

func (t *tx) DeleteSnapshots(ctx context.Context, keys []types.SnapshotKey) (int, error) {
	total := 0
	for _, k := range keys {
		raw, err := t.txn.First(snapshotTable, indexVersion, k.OrganizationID, k.MediaPackageID, k.Version)
		if err != nil {
			return 0, unavailable("finding snapshot", err)
		}
		if raw == nil {
			continue
		}
		if err := t.txn.Delete(snapshotTable, raw); err != nil {
			return 0, unavailable("deleting snapshot", err)
		}
		total++
	}
	return total, nil
}

func (t *tx) DeleteOrphanProperties(ctx context.Context, keys []types.MediaPackageKey) (int, error) {
	total := 0
	for _, k := range keys {
		raw, err := t.txn.First(snapshotTable, indexMP, k.OrganizationID, k.MediaPackageID)
		if err != nil {
			return 0, unavailable("checking media package", err)
		}
		if raw != nil {
			continue
		}
		n, err := t.txn.DeleteAll(propertyTable, indexMP, k.OrganizationID, k.MediaPackageID)
		if err != nil {
			return 0, unavailable("deleting orphan properties", err)
		}
		total += n
	}
	return total, nil
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.txn.Commit()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.txn.Abort()
	return nil
}

// evalSource exposes a transaction's rows to the shared evaluator.
type evalSource struct{ t *tx }

func (s evalSource) Snapshots(org string) ([]*types.Snapshot, error) {
	return s.t.snapshots(org)
}

func (s evalSource) Properties(key types.MediaPackageKey) ([]types.Property, error) {
	props, err := s.t.properties(key)
	if err != nil {
		return nil, err
	}
	out := make([]types.Property, len(props))
	for i, p := range props {
		out[i] = *p
	}
	return out, nil
}
