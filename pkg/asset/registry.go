package asset

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Registry records the property definitions known to a store. A slot keeps
// the type it was first defined with.
type Registry struct {
	mu   sync.RWMutex
	defs map[types.PropertyName]types.PropertyDefinition
}

// NewRegistry returns a registry holding defs.
func NewRegistry(defs ...types.PropertyDefinition) (*Registry, error) {
	r := &Registry{defs: make(map[types.PropertyName]types.PropertyDefinition)}
	for _, d := range defs {
		if _, err := r.Define(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Define registers d. Defining a registered slot again with the same type
// is a no-op; with another type it returns ErrTypeMismatch.
func (r *Registry) Define(d types.PropertyDefinition) (types.PropertyDefinition, error) {
	if err := d.Validate(); err != nil {
		return types.PropertyDefinition{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.defs[d.Key()]; ok {
		if prev.ValueType != d.ValueType {
			return types.PropertyDefinition{}, fmt.Errorf("%w: %s is defined as %s", types.ErrTypeMismatch, d.Key(), prev.ValueType)
		}
		return prev, nil
	}
	r.defs[d.Key()] = d
	return d, nil
}

// Lookup returns the definition of a slot.
func (r *Registry) Lookup(namespace, name string) (types.PropertyDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[types.PropertyName{Namespace: namespace, Name: name}]
	return d, ok
}

// Definitions returns every definition ordered by namespace and name.
func (r *Registry) Definitions() []types.PropertyDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.PropertyDefinition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b types.PropertyDefinition) int {
		if c := strings.Compare(a.Namespace, b.Namespace); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Check returns ErrTypeMismatch when p's slot is registered with another type.
func (r *Registry) Check(p types.Property) error {
	return r.checkDefinition(p.Definition())
}

// CheckPredicate applies the registered types to every property node of p.
// Slots that were never registered pass.
func (r *Registry) CheckPredicate(p types.Predicate) error {
	switch n := p.(type) {
	case types.PropertyEq:
		return r.checkDefinition(n.Definition)
	case types.PropertyExists:
		return r.checkDefinition(n.Definition)
	case types.PropertyNotExists:
		return r.checkDefinition(n.Definition)
	case types.AndPredicate:
		if err := r.CheckPredicate(n.Left); err != nil {
			return err
		}
		return r.CheckPredicate(n.Right)
	case types.OrPredicate:
		if err := r.CheckPredicate(n.Left); err != nil {
			return err
		}
		return r.CheckPredicate(n.Right)
	case types.NotPredicate:
		return r.CheckPredicate(n.Operand)
	}
	return nil
}

func (r *Registry) checkDefinition(d types.PropertyDefinition) error {
	reg, ok := r.Lookup(d.Namespace, d.Name)
	if !ok || reg.ValueType == d.ValueType {
		return nil
	}
	return fmt.Errorf("%w: %s is defined as %s, got %s", types.ErrTypeMismatch, d.Key(), reg.ValueType, d.ValueType)
}
