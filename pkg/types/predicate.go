package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Predicate is a boolean condition over the joined view of one snapshot row
// and the properties of its media package. The set of variants is closed;
// backends switch over them exhaustively.
//
// Snapshot-level variants (OrganizationIDEq, MediaPackageIDEq, SeriesIDEq,
// VersionIsLatest) test the row itself. SeriesIDExists tests every version of
// the row's media package. Property variants test the media package's
// properties and are scoped to one exact (namespace, name) slot.
type Predicate interface {
	fmt.Stringer
	predicate()
}

// AlwaysTrue matches every row.
type AlwaysTrue struct{}

// OrganizationIDEq matches rows owned by one organization.
type OrganizationIDEq struct{ ID string }

// MediaPackageIDEq matches rows of one media package.
type MediaPackageIDEq struct{ ID string }

// SeriesIDEq matches snapshot rows whose series equals ID. Rows without a
// series never match.
type SeriesIDEq struct{ ID string }

// SeriesIDExists matches rows whose media package has a series on any version.
type SeriesIDExists struct{}

// VersionIsLatest matches rows that carry the highest stored version of
// their media package.
type VersionIsLatest struct{}

// PropertyEq matches when the media package's property of Definition equals
// Value. A missing property never matches.
type PropertyEq struct {
	Definition PropertyDefinition
	Value      Value
	err        error
}

// PropertyExists matches when the media package has a property of Definition.
type PropertyExists struct{ Definition PropertyDefinition }

// PropertyNotExists matches when the media package lacks a property of Definition.
type PropertyNotExists struct{ Definition PropertyDefinition }

// AndPredicate is the conjunction of two predicates. Label is diagnostic only.
type AndPredicate struct {
	Left, Right Predicate
	Label       string
}

// OrPredicate is the disjunction of two predicates. Label is diagnostic only.
type OrPredicate struct {
	Left, Right Predicate
	Label       string
}

// NotPredicate is the complement of a predicate. Label is diagnostic only.
type NotPredicate struct {
	Operand Predicate
	Label   string
}

func (AlwaysTrue) predicate()        {}
func (OrganizationIDEq) predicate()  {}
func (MediaPackageIDEq) predicate()  {}
func (SeriesIDEq) predicate()        {}
func (SeriesIDExists) predicate()    {}
func (VersionIsLatest) predicate()   {}
func (PropertyEq) predicate()        {}
func (PropertyExists) predicate()    {}
func (PropertyNotExists) predicate() {}
func (AndPredicate) predicate()      {}
func (OrPredicate) predicate()       {}
func (NotPredicate) predicate()      {}

// Always returns the predicate that matches everything.
func Always() Predicate { return AlwaysTrue{} }

// OrganizationIs matches rows of the organization id.
func OrganizationIs(id string) Predicate { return OrganizationIDEq{ID: id} }

// MediaPackageIs matches rows of the media package id.
func MediaPackageIs(id string) Predicate { return MediaPackageIDEq{ID: id} }

// SeriesIs matches snapshot rows that belong to the series id.
func SeriesIs(id string) Predicate { return SeriesIDEq{ID: id} }

// HasSeries matches media packages with a series on any version.
func HasSeries() Predicate { return SeriesIDExists{} }

// IsLatestVersion matches the latest snapshot row of each media package.
func IsLatestVersion() Predicate { return VersionIsLatest{} }

// And folds its arguments into a left-leaning conjunction. Nil arguments are
// skipped; And() with no usable argument is Always().
func And(ps ...Predicate) Predicate {
	return fold(ps, func(l, r Predicate) Predicate { return AndPredicate{Left: l, Right: r} })
}

// Or folds its arguments into a left-leaning disjunction. Nil arguments are
// skipped; Or() with no usable argument is Always().
func Or(ps ...Predicate) Predicate {
	return fold(ps, func(l, r Predicate) Predicate { return OrPredicate{Left: l, Right: r} })
}

// Not complements p.
func Not(p Predicate) Predicate {
	return NotPredicate{Operand: orAlways(p)}
}

func fold(ps []Predicate, join func(l, r Predicate) Predicate) Predicate {
	var acc Predicate
	for _, p := range ps {
		if p == nil {
			continue
		}
		if acc == nil {
			acc = p
			continue
		}
		acc = join(acc, p)
	}
	return orAlways(acc)
}

func orAlways(p Predicate) Predicate {
	if p == nil {
		return AlwaysTrue{}
	}
	return p
}

// Named attaches a diagnostic label to a composed node (And, Or, Not).
// Leaf predicates are returned unchanged. Labels never affect evaluation.
func Named(p Predicate, label string) Predicate {
	switch n := p.(type) {
	case AndPredicate:
		n.Label = label
		return n
	case OrPredicate:
		n.Label = label
		return n
	case NotPredicate:
		n.Label = label
		return n
	default:
		return p
	}
}

// Labels collects the diagnostic labels of p in depth-first order.
func Labels(p Predicate) []string {
	var out []string
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch n := p.(type) {
		case AndPredicate:
			if n.Label != "" {
				out = append(out, n.Label)
			}
			walk(n.Left)
			walk(n.Right)
		case OrPredicate:
			if n.Label != "" {
				out = append(out, n.Label)
			}
			walk(n.Left)
			walk(n.Right)
		case NotPredicate:
			if n.Label != "" {
				out = append(out, n.Label)
			}
			walk(n.Operand)
		}
	}
	walk(p)
	return out
}

// Validate reports ErrTypeMismatch for any PropertyEq whose value does not
// have its definition's type, and ErrInvalidName for definitions without a slot.
func Validate(p Predicate) error {
	switch n := p.(type) {
	case nil, AlwaysTrue, OrganizationIDEq, MediaPackageIDEq, SeriesIDEq, SeriesIDExists, VersionIsLatest:
		return nil
	case PropertyEq:
		if n.err != nil {
			return n.err
		}
		if err := n.Definition.Validate(); err != nil {
			return err
		}
		if n.Value.Type() != n.Definition.ValueType {
			return fmt.Errorf("%w: %s expects %s, got %s", ErrTypeMismatch, n.Definition.Key(), n.Definition.ValueType, n.Value.Type())
		}
		return nil
	case PropertyExists:
		return n.Definition.Validate()
	case PropertyNotExists:
		return n.Definition.Validate()
	case AndPredicate:
		if err := Validate(n.Left); err != nil {
			return err
		}
		return Validate(n.Right)
	case OrPredicate:
		if err := Validate(n.Left); err != nil {
			return err
		}
		return Validate(n.Right)
	case NotPredicate:
		return Validate(n.Operand)
	default:
		return fmt.Errorf("unknown predicate %T", p)
	}
}

// OrganizationIDs returns every organization id named by an OrganizationIDEq
// node in p.
func OrganizationIDs(p Predicate) []string {
	var out []string
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch n := p.(type) {
		case OrganizationIDEq:
			out = append(out, n.ID)
		case AndPredicate:
			walk(n.Left)
			walk(n.Right)
		case OrPredicate:
			walk(n.Left)
			walk(n.Right)
		case NotPredicate:
			walk(n.Operand)
		}
	}
	walk(p)
	return out
}

func (AlwaysTrue) String() string         { return "true" }
func (p OrganizationIDEq) String() string { return "organization = " + strconv.Quote(p.ID) }
func (p MediaPackageIDEq) String() string { return "mediaPackage = " + strconv.Quote(p.ID) }
func (p SeriesIDEq) String() string       { return "series = " + strconv.Quote(p.ID) }
func (SeriesIDExists) String() string     { return "series exists" }
func (VersionIsLatest) String() string    { return "version is latest" }

func (p PropertyEq) String() string {
	return p.Definition.Key().String() + " = " + p.Value.String()
}

func (p PropertyExists) String() string {
	return p.Definition.Key().String() + " exists"
}

func (p PropertyNotExists) String() string {
	return p.Definition.Key().String() + " not exists"
}

func (p AndPredicate) String() string {
	return labeled(p.Label, "("+p.Left.String()+" AND "+p.Right.String()+")")
}

func (p OrPredicate) String() string {
	return labeled(p.Label, "("+p.Left.String()+" OR "+p.Right.String()+")")
}

func (p NotPredicate) String() string {
	return labeled(p.Label, "NOT "+p.Operand.String())
}

func labeled(label, s string) string {
	if label == "" {
		return s
	}
	var b strings.Builder
	b.WriteString(label)
	b.WriteByte(':')
	b.WriteString(s)
	return b.String()
}
