package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// txn adapts a database transaction to types.Tx. It holds the backend lock
// taken by Begin until Commit or Rollback.
type txn struct {
	tx     *sql.Tx
	unlock func()
	done   bool
}

var _ types.Tx = (*txn)(nil)

func (t *txn) MatchSnapshots(ctx context.Context, org string, p types.Predicate) ([]*types.Snapshot, error) {
	where, args, err := compilePredicate(p)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + aliasedSnapshotColumns + " FROM snapshots s WHERE "
	if org != "" {
		query += "s.org_id = ? AND "
		args = append([]any{org}, args...)
	}
	query += "(" + where + ") ORDER BY s.org_id, s.mp_id, s.version"

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("matching snapshots", err)
	}
	defer rows.Close()

	var out []*types.Snapshot
	for rows.Next() {
		s, err := hydrateSnapshot(rows)
		if err != nil {
			return nil, unavailable("scanning snapshot", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating snapshots", err)
	}
	return out, nil
}

func (t *txn) Properties(ctx context.Context, keys []types.MediaPackageKey, f types.PropertyFilter) ([]types.Property, error) {
	if f.Empty() {
		return nil, nil
	}
	filter, filterArgs := compileFilter(f)
	query := "SELECT org_id, mp_id, namespace, name, value_type, value FROM properties WHERE org_id = ? AND mp_id = ? AND " +
		filter + " ORDER BY namespace, name"

	var out []types.Property
	for _, k := range keys {
		args := append([]any{k.OrganizationID, k.MediaPackageID}, filterArgs...)
		props, err := t.queryProperties(ctx, query, args)
		if err != nil {
			return nil, err
		}
		out = append(out, props...)
	}
	return out, nil
}

func (t *txn) queryProperties(ctx context.Context, query string, args []any) ([]types.Property, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("reading properties", err)
	}
	defer rows.Close()

	var out []types.Property
	for rows.Next() {
		var (
			p         types.Property
			valueType string
			raw       string
		)
		if err := rows.Scan(&p.OrganizationID, &p.MediaPackageID, &p.Namespace, &p.Name, &valueType, &raw); err != nil {
			return nil, unavailable("scanning property", err)
		}
		v, err := types.ParseValue(types.ValueType(valueType), raw)
		if err != nil {
			return nil, fmt.Errorf("decoding property %s:%s: %w", p.Namespace, p.Name, err)
		}
		p.Value = v
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating properties", err)
	}
	return out, nil
}

func (t *txn) DeleteProperties(ctx context.Context, keys []types.MediaPackageKey, f types.PropertyFilter) (int, error) {
	if f.Empty() {
		return 0, nil
	}
	filter, filterArgs := compileFilter(f)
	query := "DELETE FROM properties WHERE org_id = ? AND mp_id = ? AND " + filter

	total := 0
	for _, k := range keys {
		args := append([]any{k.OrganizationID, k.MediaPackageID}, filterArgs...)
		n, err := t.exec(ctx, "deleting properties", query, args...)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (t *txn) DeleteSnapshots(ctx context.Context, keys []types.SnapshotKey) (int, error) {
	total := 0
	for _, k := range keys {
		n, err := t.exec(ctx, "deleting snapshot",
			"DELETE FROM snapshots WHERE org_id = ? AND mp_id = ? AND version = ?",
			k.OrganizationID, k.MediaPackageID, k.Version,
		)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (t *txn) DeleteOrphanProperties(ctx context.Context, keys []types.MediaPackageKey) (int, error) {
	total := 0
	for _, k := range keys {
		n, err := t.exec(ctx, "deleting orphan properties",
			`DELETE FROM properties WHERE org_id = ? AND mp_id = ?
			 AND NOT EXISTS (SELECT 1 FROM snapshots s WHERE s.org_id = properties.org_id AND s.mp_id = properties.mp_id)`,
			k.OrganizationID, k.MediaPackageID,
		)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (t *txn) exec(ctx context.Context, op, query string, args ...any) (int, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, unavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(op, err)
	}
	return int(n), nil
}

func (t *txn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.unlock()
	if err := t.tx.Commit(); err != nil {
		return unavailable("committing transaction", err)
	}
	return nil
}

func (t *txn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.unlock()
	if err := t.tx.Rollback(); err != nil {
		return unavailable("rolling back transaction", err)
	}
	return nil
}
