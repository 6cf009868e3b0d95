package asset

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// SelectRunner runs a select on behalf of a decorator. It receives the
// decorated delegate and usually ends by calling its Run.
type SelectRunner func(ctx context.Context, delegate SelectQuery) (*Result, error)

// SelectDecorator wraps a SelectQuery. Every chain method delegates and
// wraps the delegate's result in a new SelectDecorator with the same runner,
// so decoration survives the whole chain.
type SelectDecorator struct {
	delegate SelectQuery
	run      SelectRunner
}

var _ SelectQuery = (*SelectDecorator)(nil)

// DecorateSelect wraps q so that Run goes through run.
func DecorateSelect(q SelectQuery, run SelectRunner) *SelectDecorator {
	return &SelectDecorator{delegate: q, run: run}
}

// Unwrap returns the decorated query.
func (d *SelectDecorator) Unwrap() SelectQuery { return d.delegate }

func (d *SelectDecorator) wrap(q SelectQuery) SelectQuery {
	return &SelectDecorator{delegate: q, run: d.run}
}

func (d *SelectDecorator) Where(p types.Predicate) SelectQuery {
	return d.wrap(d.delegate.Where(p))
}

func (d *SelectDecorator) OrderBy(orders ...types.Order) SelectQuery {
	return d.wrap(d.delegate.OrderBy(orders...))
}

func (d *SelectDecorator) Page(offset, limit int) SelectQuery {
	return d.wrap(d.delegate.Page(offset, limit))
}

func (d *SelectDecorator) Name(label string) SelectQuery {
	return d.wrap(d.delegate.Name(label))
}

func (d *SelectDecorator) Spec() SelectSpec { return d.delegate.Spec() }

func (d *SelectDecorator) Run(ctx context.Context) (*Result, error) {
	return d.run(ctx, d.delegate)
}

// DeleteRunner runs a delete on behalf of a decorator.
type DeleteRunner func(ctx context.Context, delegate DeleteQuery) (int, error)

// DeleteDecorator wraps a DeleteQuery the way SelectDecorator wraps a select.
type DeleteDecorator struct {
	delegate DeleteQuery
	run      DeleteRunner
}

var _ DeleteQuery = (*DeleteDecorator)(nil)

// DecorateDelete wraps q so that Run goes through run.
func DecorateDelete(q DeleteQuery, run DeleteRunner) *DeleteDecorator {
	return &DeleteDecorator{delegate: q, run: run}
}

// Unwrap returns the decorated query.
func (d *DeleteDecorator) Unwrap() DeleteQuery { return d.delegate }

func (d *DeleteDecorator) Where(p types.Predicate) DeleteQuery {
	return &DeleteDecorator{delegate: d.delegate.Where(p), run: d.run}
}

func (d *DeleteDecorator) Name(label string) DeleteQuery {
	return &DeleteDecorator{delegate: d.delegate.Name(label), run: d.run}
}

func (d *DeleteDecorator) Spec() DeleteSpec { return d.delegate.Spec() }

func (d *DeleteDecorator) Run(ctx context.Context) (int, error) {
	return d.run(ctx, d.delegate)
}

// SelectWrapper installs a decorator on every select of a Store.
type SelectWrapper func(SelectQuery) SelectQuery

// DeleteWrapper installs a decorator on every delete of a Store.
type DeleteWrapper func(DeleteQuery) DeleteQuery

// RestrictSelect injects p into every select just before it runs.
func RestrictSelect(p types.Predicate) SelectWrapper {
	return func(q SelectQuery) SelectQuery {
		return DecorateSelect(q, func(ctx context.Context, delegate SelectQuery) (*Result, error) {
			return delegate.Where(p).Run(ctx)
		})
	}
}

// RestrictDelete injects p into every delete just before it runs.
func RestrictDelete(p types.Predicate) DeleteWrapper {
	return func(q DeleteQuery) DeleteQuery {
		return DecorateDelete(q, func(ctx context.Context, delegate DeleteQuery) (int, error) {
			return delegate.Where(p).Run(ctx)
		})
	}
}

// LoggingSelect logs every select at info level with its outcome.
func LoggingSelect(logger zerolog.Logger) SelectWrapper {
	return func(q SelectQuery) SelectQuery {
		return DecorateSelect(q, func(ctx context.Context, delegate SelectQuery) (*Result, error) {
			start := time.Now()
			res, err := delegate.Run(ctx)
			spec := delegate.Spec()
			ev := logger.Info()
			if err != nil {
				ev = logger.Error().Err(err)
			} else {
				ev = ev.Int("records", res.Size()).Int("total", res.Total)
			}
			ev.Str("organization", spec.Scope.OrganizationID).
				Str("label", spec.Label).
				Dur("duration", time.Since(start)).
				Msg("select")
			return res, err
		})
	}
}

// LoggingDelete logs every delete at info level with its outcome.
func LoggingDelete(logger zerolog.Logger) DeleteWrapper {
	return func(q DeleteQuery) DeleteQuery {
		return DecorateDelete(q, func(ctx context.Context, delegate DeleteQuery) (int, error) {
			start := time.Now()
			n, err := delegate.Run(ctx)
			spec := delegate.Spec()
			ev := logger.Info()
			if err != nil {
				ev = logger.Error().Err(err)
			}
			ev.Str("organization", spec.Scope.OrganizationID).
				Str("owner", spec.Owner).
				Str("label", spec.Label).
				Int("deleted", n).
				Dur("duration", time.Since(start)).
				Msg("delete")
			return n, err
		})
	}
}
