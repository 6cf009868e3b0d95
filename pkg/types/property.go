package types

import "fmt"

// PropertyName identifies one property slot: a name inside a namespace.
type PropertyName struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// String renders the slot as "namespace:name".
func (n PropertyName) String() string {
	return n.Namespace + ":" + n.Name
}

// PropertyDefinition is a typed, stateless accessor for one property slot.
// It builds predicates, selection targets and concrete Property values.
type PropertyDefinition struct {
	Namespace string    `json:"namespace"`
	Name      string    `json:"name"`
	ValueType ValueType `json:"type"`
}

// BooleanProperty defines a Boolean-typed property.
func BooleanProperty(namespace, name string) PropertyDefinition {
	return PropertyDefinition{Namespace: namespace, Name: name, ValueType: ValueTypeBoolean}
}

// LongProperty defines a Long-typed property.
func LongProperty(namespace, name string) PropertyDefinition {
	return PropertyDefinition{Namespace: namespace, Name: name, ValueType: ValueTypeLong}
}

// StringProperty defines a String-typed property.
func StringProperty(namespace, name string) PropertyDefinition {
	return PropertyDefinition{Namespace: namespace, Name: name, ValueType: ValueTypeString}
}

// Key returns the definition's slot identity.
func (d PropertyDefinition) Key() PropertyName {
	return PropertyName{Namespace: d.Namespace, Name: d.Name}
}

// Validate checks that the definition names a slot and a known type.
func (d PropertyDefinition) Validate() error {
	if !ValidID(d.Namespace) || !ValidID(d.Name) {
		return ErrInvalidName
	}
	if !ValidValueType(d.ValueType) {
		return fmt.Errorf("%w: %q", ErrInvalidValueType, d.ValueType)
	}
	return nil
}

// Of builds a Property of this definition for the given media package.
// Returns ErrTypeMismatch if value does not have the definition's type.
func (d PropertyDefinition) Of(mediaPackageID string, value any) (Property, error) {
	v, err := ValueOf(value)
	if err != nil {
		return Property{}, err
	}
	if v.Type() != d.ValueType {
		return Property{}, fmt.Errorf("%w: %s expects %s, got %s", ErrTypeMismatch, d.Key(), d.ValueType, v.Type())
	}
	return Property{
		MediaPackageID: mediaPackageID,
		Namespace:      d.Namespace,
		Name:           d.Name,
		Value:          v,
	}, nil
}

// Eq matches media packages whose property of this definition equals value.
// A value of the wrong type is reported as ErrTypeMismatch when the query runs.
func (d PropertyDefinition) Eq(value any) Predicate {
	v, err := ValueOf(value)
	return PropertyEq{Definition: d, Value: v, err: err}
}

// Exists matches media packages that have a property of this exact slot.
func (d PropertyDefinition) Exists() Predicate {
	return PropertyExists{Definition: d}
}

// NotExists matches media packages that lack a property of this exact slot.
func (d PropertyDefinition) NotExists() Predicate {
	return PropertyNotExists{Definition: d}
}

// Target names this single property slot as the object of a select or delete.
func (d PropertyDefinition) Target() Target {
	return PropertyTarget{Definition: d}
}

// Namespace groups related property definitions.
type Namespace string

// AllProperties names every property row under this namespace as a target.
func (n Namespace) AllProperties() Target {
	return NamespaceTarget{Namespace: string(n)}
}

// Boolean defines a Boolean-typed property inside the namespace.
func (n Namespace) Boolean(name string) PropertyDefinition { return BooleanProperty(string(n), name) }

// Long defines a Long-typed property inside the namespace.
func (n Namespace) Long(name string) PropertyDefinition { return LongProperty(string(n), name) }

// Str defines a String-typed property inside the namespace.
func (n Namespace) Str(name string) PropertyDefinition { return StringProperty(string(n), name) }

// Property is one namespaced value attached to a media package inside an
// organization. It is unique by (organization, media package, namespace, name);
// setting an existing key overwrites the value in place.
type Property struct {
	OrganizationID string `json:"organization_id"`
	MediaPackageID string `json:"media_package_id"`
	Namespace      string `json:"namespace"`
	Name           string `json:"name"`
	Value          Value  `json:"value"`
}

// Key returns the property's slot identity.
func (p Property) Key() PropertyName {
	return PropertyName{Namespace: p.Namespace, Name: p.Name}
}

// Definition returns the definition matching this property's slot and type.
func (p Property) Definition() PropertyDefinition {
	return PropertyDefinition{Namespace: p.Namespace, Name: p.Name, ValueType: p.Value.Type()}
}
