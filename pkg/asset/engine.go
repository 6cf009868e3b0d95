package asset

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// engine executes select and delete specs against a backend.
type engine struct {
	backend  types.Backend
	registry *Registry
	logger   zerolog.Logger
}

// prepare validates the parts shared by select and delete and authorizes
// owner in scope.
func (e *engine) prepare(scope types.Scope, owner string, targets []types.Target, p types.Predicate) error {
	if len(targets) == 0 {
		return types.ErrNoTarget
	}
	if err := types.Validate(p); err != nil {
		return err
	}
	if err := e.registry.CheckPredicate(p); err != nil {
		return err
	}
	return scope.Authorize(owner, p)
}

func (e *engine) selectRecords(ctx context.Context, spec SelectSpec) (res *Result, err error) {
	start := time.Now()
	defer func() {
		n := 0
		if res != nil {
			n = len(res.Records)
		}
		e.logRun("select", spec.Scope, spec.Label, spec.Predicate, n, start, err)
	}()

	if spec.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", types.ErrInvalidPage, spec.Offset)
	}
	for _, o := range spec.Orders {
		if err := o.Validate(); err != nil {
			return nil, err
		}
	}
	if err := e.prepare(spec.Scope, spec.Scope.Owner, spec.Targets, spec.Predicate); err != nil {
		return nil, err
	}

	tx, err := e.backend.Begin(ctx, false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.MatchSnapshots(ctx, spec.Scope.Organization(), spec.Predicate)
	if err != nil {
		return nil, err
	}
	wantSnapshots, filter := types.SplitTargets(spec.Targets)
	keys := mediaPackageKeys(rows)

	load := filter
	for _, o := range spec.Orders {
		if o.Field == types.OrderByProperty && !load.All {
			load.Slots = append(slices.Clip(load.Slots), o.Property)
		}
	}
	props, err := tx.Properties(ctx, keys, load)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	byKey := make(map[types.MediaPackageKey][]types.Property, len(keys))
	for _, p := range props {
		k := types.MediaPackageKey{OrganizationID: p.OrganizationID, MediaPackageID: p.MediaPackageID}
		byKey[k] = append(byKey[k], p)
	}

	records := buildRecords(rows, wantSnapshots, filter, byKey)
	sortRecords(records, spec.Orders)

	res = &Result{Total: len(records), Offset: spec.Offset, Limit: spec.Limit}
	res.Records = page(records, spec.Offset, spec.Limit)
	return res, nil
}

// buildRecords turns matched rows into records. With a snapshot target each
// row is a record; otherwise each media package with at least one selected
// property is a record, represented by its highest matching version.
func buildRecords(rows []*types.Snapshot, wantSnapshots bool, filter types.PropertyFilter, byKey map[types.MediaPackageKey][]types.Property) []Record {
	var records []Record
	selected := func(k types.MediaPackageKey) []types.Property {
		var out []types.Property
		for _, p := range byKey[k] {
			if filter.Matches(p) {
				out = append(out, p)
			}
		}
		return out
	}

	if wantSnapshots {
		for _, s := range rows {
			k := s.MediaPackageKey()
			records = append(records, Record{
				OrganizationID: s.OrganizationID,
				MediaPackageID: s.MediaPackageID,
				Snapshot:       s,
				Properties:     selected(k),
				sortProps:      byKey[k],
				rep:            s,
			})
		}
		return records
	}

	for i, s := range rows {
		if i+1 < len(rows) && rows[i+1].MediaPackageKey() == s.MediaPackageKey() {
			continue
		}
		k := s.MediaPackageKey()
		sel := selected(k)
		if len(sel) == 0 {
			continue
		}
		records = append(records, Record{
			OrganizationID: s.OrganizationID,
			MediaPackageID: s.MediaPackageID,
			Properties:     sel,
			sortProps:      byKey[k],
			rep:            s,
		})
	}
	return records
}

func sortRecords(records []Record, orders []types.Order) {
	if len(orders) == 0 {
		return
	}
	slices.SortStableFunc(records, func(a, b Record) int {
		for _, o := range orders {
			c := compareBy(a, b, o)
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareBy(a, b Record, o types.Order) int {
	switch o.Field {
	case types.OrderByMediaPackageID:
		return strings.Compare(a.rep.MediaPackageID, b.rep.MediaPackageID)
	case types.OrderByOrganizationID:
		return strings.Compare(a.rep.OrganizationID, b.rep.OrganizationID)
	case types.OrderByVersion:
		return compareInt(a.rep.Version, b.rep.Version)
	case types.OrderByCreatedAt:
		return a.rep.CreatedAt.Compare(b.rep.CreatedAt)
	case types.OrderBySeriesID:
		return strings.Compare(a.rep.SeriesID, b.rep.SeriesID)
	case types.OrderByProperty:
		av, aok := lookup(a.sortProps, o.Property)
		bv, bok := lookup(b.sortProps, o.Property)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return -1
		case !bok:
			return 1
		}
		if c, ok := av.Compare(bv); ok {
			return c
		}
		return strings.Compare(string(av.Type()), string(bv.Type()))
	}
	return 0
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func lookup(props []types.Property, slot types.PropertyName) (types.Value, bool) {
	for _, p := range props {
		if p.Key() == slot {
			return p.Value, true
		}
	}
	return types.Value{}, false
}

func page(records []Record, offset, limit int) []Record {
	if offset >= len(records) {
		return nil
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}

func (e *engine) deleteRows(ctx context.Context, spec DeleteSpec) (count int, err error) {
	start := time.Now()
	defer func() {
		e.logRun("delete", spec.Scope, spec.Label, spec.Predicate, count, start, err)
	}()

	if err := e.prepare(spec.Scope, spec.Owner, spec.Targets, spec.Predicate); err != nil {
		return 0, err
	}

	tx, err := e.backend.Begin(ctx, true)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.MatchSnapshots(ctx, spec.Scope.Organization(), spec.Predicate)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	wantSnapshots, filter := types.SplitTargets(spec.Targets)
	keys := mediaPackageKeys(rows)

	if !filter.Empty() {
		n, err := tx.DeleteProperties(ctx, keys, filter)
		if err != nil {
			return 0, err
		}
		count += n
	}
	if wantSnapshots {
		snapshotKeys := make([]types.SnapshotKey, len(rows))
		for i, s := range rows {
			snapshotKeys[i] = s.Key()
		}
		n, err := tx.DeleteSnapshots(ctx, snapshotKeys)
		if err != nil {
			return 0, err
		}
		count += n
		if _, err := tx.DeleteOrphanProperties(ctx, keys); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// mediaPackageKeys returns the distinct media packages of rows in row order.
func mediaPackageKeys(rows []*types.Snapshot) []types.MediaPackageKey {
	var keys []types.MediaPackageKey
	seen := make(map[types.MediaPackageKey]bool)
	for _, s := range rows {
		k := s.MediaPackageKey()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func (e *engine) logRun(kind string, scope types.Scope, label string, p types.Predicate, n int, start time.Time, err error) {
	if p == nil {
		p = types.Always()
	}
	ev := e.logger.Debug()
	if err != nil {
		ev = e.logger.Error().Err(err)
	}
	labels := types.Labels(p)
	if label != "" {
		labels = append([]string{label}, labels...)
	}
	ev.Str("kind", kind).
		Str("organization", scope.OrganizationID).
		Bool("administrative", scope.Administrative).
		Strs("labels", labels).
		Stringer("predicate", p).
		Int("rows", n).
		Dur("duration", time.Since(start)).
		Msg("query run")
}
