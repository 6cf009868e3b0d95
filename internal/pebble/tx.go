package pebble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/mesh-intelligence/assetstore/internal/eval"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// tx reads through r. Write transactions also stage changes in batch, which
// is indexed so reads observe the staged writes.
type tx struct {
	r      pebble.Reader
	batch  *pebble.Batch
	closer func() error
	unlock func()
	done   bool
}

var (
	_ types.Tx    = (*tx)(nil)
	_ eval.Source = evalSource{}
)

// scan calls fn for every key with prefix p, in key order.
func (t *tx) scan(p []byte, fn func(k, v []byte) error) error {
	it, err := t.r.NewIter(&pebble.IterOptions{LowerBound: p, UpperBound: upperBound(p)})
	if err != nil {
		return unavailable("opening iterator", err)
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		if !bytes.HasPrefix(it.Key(), p) {
			break
		}
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	if err := it.Error(); err != nil {
		return unavailable("iterating", err)
	}
	return nil
}

func (t *tx) snapshots(org string) ([]*types.Snapshot, error) {
	p := []byte{snapshotTag, sep}
	if org != "" {
		if !types.ValidID(org) {
			return nil, nil
		}
		p = prefix(snapshotTag, org)
	}
	var out []*types.Snapshot
	err := t.scan(p, func(_, v []byte) error {
		var s types.Snapshot
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("decoding snapshot: %w", err)
		}
		out = append(out, &s)
		return nil
	})
	return out, err
}

func (t *tx) mediaPackageProperties(key types.MediaPackageKey, fn func(k []byte, p types.Property) error) error {
	if key.Validate() != nil {
		return nil
	}
	return t.scan(prefix(propertyTag, key.OrganizationID, key.MediaPackageID), func(k, v []byte) error {
		var p types.Property
		if err := json.Unmarshal(v, &p); err != nil {
			return fmt.Errorf("decoding property: %w", err)
		}
		return fn(k, p)
	})
}

// latestVersion reads the last key of the media package's snapshot range.
func (t *tx) latestVersion(org, mp string) (int64, bool, error) {
	p := prefix(snapshotTag, org, mp)
	it, err := t.r.NewIter(&pebble.IterOptions{LowerBound: p, UpperBound: upperBound(p)})
	if err != nil {
		return 0, false, unavailable("opening iterator", err)
	}
	defer it.Close()
	if !it.Last() {
		if err := it.Error(); err != nil {
			return 0, false, unavailable("iterating", err)
		}
		return 0, false, nil
	}
	k := it.Key()
	if len(k) != len(p)+8 {
		return 0, false, unavailable("reading latest version", fmt.Errorf("malformed snapshot key %q", k))
	}
	return decodeVersion(k[len(p):]), true, nil
}

func (t *tx) lastClaim(org, mp string) (int64, error) {
	raw, ok, err := get(t.r, claimKey(org, mp))
	if err != nil || !ok {
		return 0, err
	}
	return decodeVersion(raw), nil
}

func (t *tx) putSnapshot(s *types.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := t.batch.Set(claimKey(s.OrganizationID, s.MediaPackageID), encodeVersion(s.Version), nil); err != nil {
		return unavailable("writing version claim", err)
	}
	if err := t.batch.Set(snapshotKey(s.OrganizationID, s.MediaPackageID, s.Version), data, nil); err != nil {
		return unavailable("writing snapshot", err)
	}
	return nil
}

func (t *tx) MatchSnapshots(ctx context.Context, org string, p types.Predicate) ([]*types.Snapshot, error) {
	return eval.Match(evalSource{t}, org, p)
}

func (t *tx) properties(key types.MediaPackageKey) ([]types.Property, error) {
	var out []types.Property
	err := t.mediaPackageProperties(key, func(_ []byte, p types.Property) error {
		out = append(out, p)
		return nil
	})
	return out, err
}

func (t *tx) Properties(ctx context.Context, keys []types.MediaPackageKey, f types.PropertyFilter) ([]types.Property, error) {
	if f.Empty() {
		return nil, nil
	}
	var out []types.Property
	for _, k := range keys {
		err := t.mediaPackageProperties(k, func(_ []byte, p types.Property) error {
			if f.Matches(p) {
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *tx) DeleteProperties(ctx context.Context, keys []types.MediaPackageKey, f types.PropertyFilter) (int, error) {
	if f.Empty() {
		return 0, nil
	}
	var doomed [][]byte
	for _, k := range keys {
		err := t.mediaPackageProperties(k, func(key []byte, p types.Property) error {
			if f.Matches(p) {
				doomed = append(doomed, append([]byte(nil), key...))
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return t.deleteKeys(doomed)
}

func (t *tx) DeleteSnapshots(ctx context.Context, keys []types.SnapshotKey) (int, error) {
	var doomed [][]byte
	for _, k := range keys {
		sk := snapshotKey(k.OrganizationID, k.MediaPackageID, k.Version)
		_, ok, err := get(t.r, sk)
		if err != nil {
			return 0, err
		}
		if ok {
			doomed = append(doomed, sk)
		}
	}
	return t.deleteKeys(doomed)
}

func (t *tx) DeleteOrphanProperties(ctx context.Context, keys []types.MediaPackageKey) (int, error) {
	total := 0
	for _, k := range keys {
		_, ok, err := t.latestVersion(k.OrganizationID, k.MediaPackageID)
		if err != nil {
			return 0, err
		}
		if ok {
			continue
		}
		n, err := t.DeleteProperties(ctx, []types.MediaPackageKey{k}, types.PropertyFilter{All: true})
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (t *tx) deleteKeys(keys [][]byte) (int, error) {
	if t.batch == nil {
		return 0, fmt.Errorf("%w: delete in read transaction", types.ErrStoreUnavailable)
	}
	for _, k := range keys {
		if err := t.batch.Delete(k, nil); err != nil {
			return 0, unavailable("deleting key", err)
		}
	}
	return len(keys), nil
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.release()
	if t.batch == nil {
		return nil
	}
	if err := t.batch.Commit(pebble.Sync); err != nil {
		return unavailable("committing batch", err)
	}
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.release()
	return nil
}

func (t *tx) release() {
	_ = t.closer()
	if t.unlock != nil {
		t.unlock()
	}
}

// evalSource exposes a transaction's rows to the shared evaluator.
type evalSource struct{ t *tx }

func (s evalSource) Snapshots(org string) ([]*types.Snapshot, error) {
	return s.t.snapshots(org)
}

func (s evalSource) Properties(key types.MediaPackageKey) ([]types.Property, error) {
	return s.t.properties(key)
}
