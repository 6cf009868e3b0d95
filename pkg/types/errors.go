package types

import "errors"

// Query and model errors.
var (
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("entity not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrStoreClosed      = errors.New("store is closed")
)

// Input validation errors.
var (
	ErrInvalidID        = errors.New("invalid entity ID")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidValueType = errors.New("invalid value type")
	ErrInvalidVersion   = errors.New("invalid version")
	ErrInvalidPage      = errors.New("invalid page")
	ErrInvalidOrder     = errors.New("invalid order")
	ErrNoTarget         = errors.New("no target selected")
)
