package sqlite

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Subqueries correlated with the outer snapshot row "s".
const (
	sqlSeriesExists = `EXISTS (SELECT 1 FROM snapshots x WHERE x.org_id = s.org_id AND x.mp_id = s.mp_id AND x.series_id IS NOT NULL)`
	sqlLatest       = `s.version = (SELECT MAX(x.version) FROM snapshots x WHERE x.org_id = s.org_id AND x.mp_id = s.mp_id)`
	sqlPropertySlot = `EXISTS (SELECT 1 FROM properties p WHERE p.org_id = s.org_id AND p.mp_id = s.mp_id AND p.namespace = ? AND p.name = ?`
)

// whereClause collects the SQL text and positional arguments of a predicate.
type whereClause struct {
	sql  strings.Builder
	args []any
}

// compilePredicate translates p into a boolean SQL expression over the
// snapshot row aliased "s".
func compilePredicate(p types.Predicate) (string, []any, error) {
	var w whereClause
	if err := w.compile(p); err != nil {
		return "", nil, err
	}
	return w.sql.String(), w.args, nil
}

func (w *whereClause) compile(p types.Predicate) error {
	switch n := p.(type) {
	case nil, types.AlwaysTrue:
		w.sql.WriteString("1 = 1")
	case types.OrganizationIDEq:
		w.sql.WriteString("s.org_id = ?")
		w.args = append(w.args, n.ID)
	case types.MediaPackageIDEq:
		w.sql.WriteString("s.mp_id = ?")
		w.args = append(w.args, n.ID)
	case types.SeriesIDEq:
		w.sql.WriteString("(s.series_id IS NOT NULL AND s.series_id = ?)")
		w.args = append(w.args, n.ID)
	case types.SeriesIDExists:
		w.sql.WriteString(sqlSeriesExists)
	case types.VersionIsLatest:
		w.sql.WriteString(sqlLatest)
	case types.PropertyEq:
		w.sql.WriteString(sqlPropertySlot + " AND p.value_type = ? AND p.value = ?)")
		w.args = append(w.args, n.Definition.Namespace, n.Definition.Name, string(n.Value.Type()), n.Value.Encode())
	case types.PropertyExists:
		w.slot(n.Definition)
	case types.PropertyNotExists:
		w.sql.WriteString("NOT ")
		w.slot(n.Definition)
	case types.AndPredicate:
		return w.binary(n.Left, "AND", n.Right)
	case types.OrPredicate:
		return w.binary(n.Left, "OR", n.Right)
	case types.NotPredicate:
		w.sql.WriteString("NOT (")
		if err := w.compile(n.Operand); err != nil {
			return err
		}
		w.sql.WriteString(")")
	default:
		return fmt.Errorf("unsupported predicate %T", p)
	}
	return nil
}

func (w *whereClause) slot(d types.PropertyDefinition) {
	w.sql.WriteString(sqlPropertySlot + ")")
	w.args = append(w.args, d.Namespace, d.Name)
}

func (w *whereClause) binary(l types.Predicate, op string, r types.Predicate) error {
	w.sql.WriteString("(")
	if err := w.compile(l); err != nil {
		return err
	}
	w.sql.WriteString(" " + op + " ")
	if err := w.compile(r); err != nil {
		return err
	}
	w.sql.WriteString(")")
	return nil
}

// compileFilter translates a property filter into a boolean SQL expression
// over the unaliased properties table. An empty filter matches nothing.
func compileFilter(f types.PropertyFilter) (string, []any) {
	if f.All {
		return "1 = 1", nil
	}
	var (
		terms []string
		args  []any
	)
	if len(f.Namespaces) > 0 {
		terms = append(terms, "namespace IN ("+placeholders(len(f.Namespaces))+")")
		for _, ns := range f.Namespaces {
			args = append(args, ns)
		}
	}
	for _, s := range f.Slots {
		terms = append(terms, "(namespace = ? AND name = ?)")
		args = append(args, s.Namespace, s.Name)
	}
	if len(terms) == 0 {
		return "1 = 0", nil
	}
	return "(" + strings.Join(terms, " OR ") + ")", args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
