// Package eval evaluates the predicate algebra in process for backends that
// have no query language of their own.
package eval

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Source is the read view a backend exposes to the evaluator.
type Source interface {
	// Snapshots returns the snapshot rows of org, or of every organization
	// when org is empty.
	Snapshots(org string) ([]*types.Snapshot, error)

	// Properties returns every property row of one media package.
	Properties(key types.MediaPackageKey) ([]types.Property, error)
}

// Row is one snapshot row joined with the facts of its media package that the
// predicate algebra can observe.
type Row struct {
	Snapshot      *types.Snapshot
	LatestVersion int64
	AnySeries     bool
	Properties    map[types.PropertyName]types.Value
}

// Match returns the rows of src that satisfy p, ordered by organization,
// media package and version.
func Match(src Source, org string, p types.Predicate) ([]*types.Snapshot, error) {
	if p == nil {
		p = types.Always()
	}
	snaps, err := src.Snapshots(org)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(snaps, compareRows)

	needProps := UsesProperties(p)
	var out []*types.Snapshot
	for start := 0; start < len(snaps); {
		key := snaps[start].MediaPackageKey()
		end := start
		for end < len(snaps) && snaps[end].MediaPackageKey() == key {
			end++
		}
		group := snaps[start:end]

		row := Row{LatestVersion: group[len(group)-1].Version}
		for _, s := range group {
			if s.HasSeries() {
				row.AnySeries = true
				break
			}
		}
		if needProps {
			props, err := src.Properties(key)
			if err != nil {
				return nil, err
			}
			row.Properties = Index(props)
		}
		for _, s := range group {
			row.Snapshot = s
			if Eval(p, row) {
				out = append(out, s)
			}
		}
		start = end
	}
	return out, nil
}

// Eval reports whether row satisfies p.
func Eval(p types.Predicate, row Row) bool {
	switch n := p.(type) {
	case nil, types.AlwaysTrue:
		return true
	case types.OrganizationIDEq:
		return row.Snapshot.OrganizationID == n.ID
	case types.MediaPackageIDEq:
		return row.Snapshot.MediaPackageID == n.ID
	case types.SeriesIDEq:
		return row.Snapshot.HasSeries() && row.Snapshot.SeriesID == n.ID
	case types.SeriesIDExists:
		return row.AnySeries
	case types.VersionIsLatest:
		return row.Snapshot.Version == row.LatestVersion
	case types.PropertyEq:
		v, ok := row.Properties[n.Definition.Key()]
		return ok && v.Equal(n.Value)
	case types.PropertyExists:
		_, ok := row.Properties[n.Definition.Key()]
		return ok
	case types.PropertyNotExists:
		_, ok := row.Properties[n.Definition.Key()]
		return !ok
	case types.AndPredicate:
		return Eval(n.Left, row) && Eval(n.Right, row)
	case types.OrPredicate:
		return Eval(n.Left, row) || Eval(n.Right, row)
	case types.NotPredicate:
		return !Eval(n.Operand, row)
	default:
		panic(fmt.Sprintf("eval: unknown predicate %T", p))
	}
}

// UsesProperties reports whether p inspects properties at all.
func UsesProperties(p types.Predicate) bool {
	switch n := p.(type) {
	case types.PropertyEq, types.PropertyExists, types.PropertyNotExists:
		return true
	case types.AndPredicate:
		return UsesProperties(n.Left) || UsesProperties(n.Right)
	case types.OrPredicate:
		return UsesProperties(n.Left) || UsesProperties(n.Right)
	case types.NotPredicate:
		return UsesProperties(n.Operand)
	default:
		return false
	}
}

// Index maps property rows by slot.
func Index(props []types.Property) map[types.PropertyName]types.Value {
	m := make(map[types.PropertyName]types.Value, len(props))
	for _, p := range props {
		m[p.Key()] = p.Value
	}
	return m
}

func compareRows(a, b *types.Snapshot) int {
	if c := strings.Compare(a.OrganizationID, b.OrganizationID); c != 0 {
		return c
	}
	if c := strings.Compare(a.MediaPackageID, b.MediaPackageID); c != 0 {
		return c
	}
	switch {
	case a.Version < b.Version:
		return -1
	case a.Version > b.Version:
		return 1
	}
	return 0
}

// SortProperties orders property rows by organization, media package,
// namespace and name.
func SortProperties(props []types.Property) {
	slices.SortFunc(props, func(a, b types.Property) int {
		if c := strings.Compare(a.OrganizationID, b.OrganizationID); c != 0 {
			return c
		}
		if c := strings.Compare(a.MediaPackageID, b.MediaPackageID); c != 0 {
			return c
		}
		if c := strings.Compare(a.Namespace, b.Namespace); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}
