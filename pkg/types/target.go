package types

import "strconv"

// Target is the object of a select or delete: snapshot rows, the whole
// property set, every property of a namespace, or one property slot.
// Targets are not predicates; they decide which rows an operation touches
// once the predicate has chosen the media packages.
type Target interface {
	target()
	String() string
}

// SnapshotTarget selects snapshot rows.
type SnapshotTarget struct{}

// PropertiesTarget selects every property row.
type PropertiesTarget struct{}

// NamespaceTarget selects every property row under Namespace.
type NamespaceTarget struct{ Namespace string }

// PropertyTarget selects the property rows of one slot.
type PropertyTarget struct{ Definition PropertyDefinition }

func (SnapshotTarget) target()   {}
func (PropertiesTarget) target() {}
func (NamespaceTarget) target()  {}
func (PropertyTarget) target()   {}

func (SnapshotTarget) String() string    { return "snapshot" }
func (PropertiesTarget) String() string  { return "properties" }
func (t NamespaceTarget) String() string { return "properties of " + strconv.Quote(t.Namespace) }
func (t PropertyTarget) String() string  { return "property " + t.Definition.Key().String() }

// Snapshots targets snapshot rows.
func Snapshots() Target { return SnapshotTarget{} }

// Properties targets the whole property set.
func Properties() Target { return PropertiesTarget{} }

// PropertiesOf targets every property row under namespace.
func PropertiesOf(namespace string) Target { return NamespaceTarget{Namespace: namespace} }

// PropertyFilter is the union of the property targets of one operation.
type PropertyFilter struct {
	All        bool
	Namespaces []string
	Slots      []PropertyName
}

// Empty reports whether the filter selects no property row.
func (f PropertyFilter) Empty() bool {
	return !f.All && len(f.Namespaces) == 0 && len(f.Slots) == 0
}

// Matches reports whether p falls under the filter.
func (f PropertyFilter) Matches(p Property) bool {
	if f.All {
		return true
	}
	for _, ns := range f.Namespaces {
		if p.Namespace == ns {
			return true
		}
	}
	for _, s := range f.Slots {
		if p.Namespace == s.Namespace && p.Name == s.Name {
			return true
		}
	}
	return false
}

// SplitTargets separates snapshot rows from property targets.
func SplitTargets(targets []Target) (snapshots bool, filter PropertyFilter) {
	for _, t := range targets {
		switch n := t.(type) {
		case SnapshotTarget:
			snapshots = true
		case PropertiesTarget:
			filter.All = true
		case NamespaceTarget:
			filter.Namespaces = append(filter.Namespaces, n.Namespace)
		case PropertyTarget:
			filter.Slots = append(filter.Slots, n.Definition.Key())
		}
	}
	return snapshots, filter
}
