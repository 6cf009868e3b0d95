package asset

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Store is the entry point of the asset version store.
type Store struct {
	engine  *engine
	selects []SelectWrapper
	deletes []DeleteWrapper
	workers int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for query runs. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.engine.logger = l }
}

// WithRegistry replaces the store's property registry.
func WithRegistry(r *Registry) Option {
	return func(s *Store) { s.engine.registry = r }
}

// WithSelectDecorator installs w on every select. Decorators installed first
// sit closest to the engine.
func WithSelectDecorator(w SelectWrapper) Option {
	return func(s *Store) { s.selects = append(s.selects, w) }
}

// WithDeleteDecorator installs w on every delete.
func WithDeleteDecorator(w DeleteWrapper) Option {
	return func(s *Store) { s.deletes = append(s.deletes, w) }
}

// WithImportWorkers bounds the PutAll worker pool.
func WithImportWorkers(n int) Option {
	return func(s *Store) { s.workers = n }
}

// New creates a Store over backend.
func New(backend types.Backend, opts ...Option) *Store {
	registry, _ := NewRegistry()
	s := &Store{
		engine: &engine{
			backend:  backend,
			registry: registry,
			logger:   zerolog.Nop(),
		},
		workers: types.DefaultImportWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() types.Backend { return s.engine.backend }

// Registry returns the property registry.
func (s *Store) Registry() *Registry { return s.engine.registry }

// Close closes the backend.
func (s *Store) Close() error { return s.engine.backend.Close() }

// ForOrganization scopes the store to org with org as owner.
func (s *Store) ForOrganization(org string) *Scoped {
	return s.WithScope(types.OrganizationScope(org))
}

// WithScope returns a handle for an explicit scope, such as an
// administrative one.
func (s *Store) WithScope(scope types.Scope) *Scoped {
	return &Scoped{store: s, scope: scope}
}

// PutAll stores inputs concurrently on a bounded pool. Media packages proceed
// in parallel; the inputs of one media package are stored in slice order, so
// their versions follow it. The returned slice is aligned with inputs; a
// failed input leaves a nil entry and contributes to the joined error.
func (s *Store) PutAll(ctx context.Context, inputs []types.SnapshotInput) ([]*types.Snapshot, error) {
	out := make([]*types.Snapshot, len(inputs))
	if len(inputs) == 0 {
		return out, nil
	}

	var order []types.MediaPackageKey
	groups := make(map[types.MediaPackageKey][]int)
	for i, in := range inputs {
		key := types.MediaPackageKey{OrganizationID: in.OrganizationID, MediaPackageID: in.MediaPackageID}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	errs := make([]error, len(inputs))
	pool, err := ants.NewPool(s.workers, ants.WithPanicHandler(func(v any) {
		s.engine.logger.Error().Interface("panic", v).Msg("import worker panic")
	}))
	if err != nil {
		return nil, fmt.Errorf("creating import pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, key := range order {
		idx := groups[key]
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			for _, i := range idx {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				in := inputs[i]
				snap, err := s.engine.backend.PutSnapshot(ctx, in)
				if err != nil {
					errs[i] = fmt.Errorf("input %d (%s/%s): %w", i, in.OrganizationID, in.MediaPackageID, err)
					continue
				}
				out[i] = snap
			}
		})
		if err != nil {
			wg.Done()
			for _, i := range idx {
				errs[i] = fmt.Errorf("submitting input %d: %w", i, err)
			}
		}
	}
	wg.Wait()

	return out, errors.Join(errs...)
}
