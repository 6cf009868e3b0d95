// Package backends opens a storage backend by name. It is the public factory
// over the internal engines.
//
// Example:
//
//	b, err := backends.Open(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".assetstore-db",
//	})
//	if err != nil { ... }
//	store := asset.New(b)
//	defer store.Close()
package backends

import (
	"fmt"

	"github.com/mesh-intelligence/assetstore/internal/memdb"
	"github.com/mesh-intelligence/assetstore/internal/pebble"
	"github.com/mesh-intelligence/assetstore/internal/sqlite"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Open validates config and opens the backend it names.
func Open(config types.Config) (types.Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	switch config.Backend {
	case types.BackendSQLite:
		return sqlite.Open(config)
	case types.BackendPebble:
		return pebble.Open(config)
	case types.BackendMemDB:
		return memdb.Open()
	}
	return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, config.Backend)
}
