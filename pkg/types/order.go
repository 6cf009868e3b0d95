package types

import (
	"fmt"
	"strings"
)

// OrderField names a sortable attribute of a select result.
type OrderField string

// Sortable fields.
const (
	OrderByMediaPackageID OrderField = "mediaPackageId"
	OrderByOrganizationID OrderField = "organizationId"
	OrderByVersion        OrderField = "version"
	OrderByCreatedAt      OrderField = "createdAt"
	OrderBySeriesID       OrderField = "seriesId"
	OrderByProperty       OrderField = "property"
)

var validOrderFields = map[OrderField]bool{
	OrderByMediaPackageID: true,
	OrderByOrganizationID: true,
	OrderByVersion:        true,
	OrderByCreatedAt:      true,
	OrderBySeriesID:       true,
	OrderByProperty:       true,
}

// Order is one sort key. Property is only read for OrderByProperty.
type Order struct {
	Field    OrderField
	Desc     bool
	Property PropertyName
}

// Asc sorts ascending by field.
func Asc(f OrderField) Order { return Order{Field: f} }

// Desc sorts descending by field.
func Desc(f OrderField) Order { return Order{Field: f, Desc: true} }

// ByProperty sorts by the value of d. Records without the property sort first
// in ascending order.
func ByProperty(d PropertyDefinition, desc bool) Order {
	return Order{Field: OrderByProperty, Desc: desc, Property: d.Key()}
}

// Validate checks the field name and, for property orders, the slot.
func (o Order) Validate() error {
	if !validOrderFields[o.Field] {
		return fmt.Errorf("%w: %q", ErrInvalidOrder, o.Field)
	}
	if o.Field == OrderByProperty && (o.Property.Namespace == "" || o.Property.Name == "") {
		return fmt.Errorf("%w: property order without slot", ErrInvalidOrder)
	}
	return nil
}

// String renders the order in the form accepted by ParseOrder.
func (o Order) String() string {
	f := string(o.Field)
	if o.Field == OrderByProperty {
		f = o.Property.String()
	}
	if o.Desc {
		return f + ":desc"
	}
	return f + ":asc"
}

// ParseOrder reads "field[:asc|:desc]" or "namespace:name[:asc|:desc]".
func ParseOrder(s string) (Order, error) {
	parts := strings.Split(s, ":")
	desc := false
	if n := len(parts); n > 1 {
		switch strings.ToLower(parts[n-1]) {
		case "desc":
			desc = true
			parts = parts[:n-1]
		case "asc":
			parts = parts[:n-1]
		}
	}
	var o Order
	switch len(parts) {
	case 1:
		o = Order{Field: OrderField(parts[0]), Desc: desc}
	case 2:
		o = Order{Field: OrderByProperty, Desc: desc, Property: PropertyName{Namespace: parts[0], Name: parts[1]}}
	default:
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidOrder, s)
	}
	if err := o.Validate(); err != nil {
		return Order{}, err
	}
	return o, nil
}
