package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueType names the scalar type a property accepts.
type ValueType string

// Property value types.
const (
	ValueTypeBoolean ValueType = "boolean"
	ValueTypeLong    ValueType = "long"
	ValueTypeString  ValueType = "string"
)

// validValueTypes is the set of recognized property value types.
var validValueTypes = map[ValueType]bool{
	ValueTypeBoolean: true,
	ValueTypeLong:    true,
	ValueTypeString:  true,
}

// ValidValueType reports whether vt is a recognized value type.
func ValidValueType(vt ValueType) bool {
	return validValueTypes[vt]
}

// ParseValueType converts a string into a ValueType.
// Returns ErrInvalidValueType if the string is not recognized.
func ParseValueType(s string) (ValueType, error) {
	vt := ValueType(s)
	if !validValueTypes[vt] {
		return "", fmt.Errorf("%w: %q", ErrInvalidValueType, s)
	}
	return vt, nil
}

// Value is a typed scalar. The zero Value has no type and equals nothing.
type Value struct {
	typ ValueType
	b   bool
	l   int64
	s   string
}

// BooleanValue wraps a bool.
func BooleanValue(b bool) Value { return Value{typ: ValueTypeBoolean, b: b} }

// LongValue wraps an int64.
func LongValue(l int64) Value { return Value{typ: ValueTypeLong, l: l} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{typ: ValueTypeString, s: s} }

// ValueOf wraps a Go scalar. Integers of any width become Long values.
// A Value passes through unchanged. Any other type returns ErrTypeMismatch.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case Value:
		return v, nil
	case bool:
		return BooleanValue(v), nil
	case string:
		return StringValue(v), nil
	case int:
		return LongValue(int64(v)), nil
	case int8:
		return LongValue(int64(v)), nil
	case int16:
		return LongValue(int64(v)), nil
	case int32:
		return LongValue(int64(v)), nil
	case int64:
		return LongValue(v), nil
	case uint8:
		return LongValue(int64(v)), nil
	case uint16:
		return LongValue(int64(v)), nil
	case uint32:
		return LongValue(int64(v)), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported value %T", ErrTypeMismatch, x)
	}
}

// ParseValue decodes the textual form produced by Value.Encode.
func ParseValue(vt ValueType, s string) (Value, error) {
	switch vt {
	case ValueTypeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a boolean", ErrTypeMismatch, s)
		}
		return BooleanValue(b), nil
	case ValueTypeLong:
		l, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a long", ErrTypeMismatch, s)
		}
		return LongValue(l), nil
	case ValueTypeString:
		return StringValue(s), nil
	default:
		return Value{}, fmt.Errorf("%w: %q", ErrInvalidValueType, vt)
	}
}

// Type returns the value's type; empty for the zero Value.
func (v Value) Type() ValueType { return v.typ }

// IsZero reports whether v carries no value at all.
func (v Value) IsZero() bool { return v.typ == "" }

// Raw returns the wrapped Go value (bool, int64 or string), or nil.
func (v Value) Raw() any {
	switch v.typ {
	case ValueTypeBoolean:
		return v.b
	case ValueTypeLong:
		return v.l
	case ValueTypeString:
		return v.s
	default:
		return nil
	}
}

// Bool returns the boolean payload and whether v is a Boolean.
func (v Value) Bool() (bool, bool) { return v.b, v.typ == ValueTypeBoolean }

// Long returns the integer payload and whether v is a Long.
func (v Value) Long() (int64, bool) { return v.l, v.typ == ValueTypeLong }

// Str returns the string payload and whether v is a String.
func (v Value) Str() (string, bool) { return v.s, v.typ == ValueTypeString }

// Equal compares by type and raw value. Values of different types are
// never equal.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ || v.typ == "" {
		return false
	}
	switch v.typ {
	case ValueTypeBoolean:
		return v.b == o.b
	case ValueTypeLong:
		return v.l == o.l
	default:
		return v.s == o.s
	}
}

// Compare orders two values of the same type: false < true, numeric order
// for longs, byte order for strings. ok is false when the types differ.
func (v Value) Compare(o Value) (cmp int, ok bool) {
	if v.typ != o.typ || v.typ == "" {
		return 0, false
	}
	switch v.typ {
	case ValueTypeBoolean:
		switch {
		case v.b == o.b:
			return 0, true
		case !v.b:
			return -1, true
		default:
			return 1, true
		}
	case ValueTypeLong:
		switch {
		case v.l < o.l:
			return -1, true
		case v.l > o.l:
			return 1, true
		default:
			return 0, true
		}
	default:
		switch {
		case v.s < o.s:
			return -1, true
		case v.s > o.s:
			return 1, true
		default:
			return 0, true
		}
	}
}

// Encode renders the value as text for storage next to its type column.
func (v Value) Encode() string {
	switch v.typ {
	case ValueTypeBoolean:
		return strconv.FormatBool(v.b)
	case ValueTypeLong:
		return strconv.FormatInt(v.l, 10)
	default:
		return v.s
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.typ == "" {
		return "<none>"
	}
	if v.typ == ValueTypeString {
		return strconv.Quote(v.s)
	}
	return v.Encode()
}

// valueJSON is the wire form of a Value.
type valueJSON struct {
	Type  ValueType `json:"type"`
	Value any       `json:"value"`
}

// MarshalJSON encodes the value as {"type": ..., "value": ...}.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueJSON{Type: v.typ, Value: v.Raw()})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  ValueType       `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case ValueTypeBoolean:
		var b bool
		if err := json.Unmarshal(raw.Value, &b); err != nil {
			return fmt.Errorf("%w: %s", ErrTypeMismatch, err)
		}
		*v = BooleanValue(b)
	case ValueTypeLong:
		var l int64
		if err := json.Unmarshal(raw.Value, &l); err != nil {
			return fmt.Errorf("%w: %s", ErrTypeMismatch, err)
		}
		*v = LongValue(l)
	case ValueTypeString:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("%w: %s", ErrTypeMismatch, err)
		}
		*v = StringValue(s)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidValueType, raw.Type)
	}
	return nil
}
