package asset

import (
	"context"
	"slices"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// SelectQuery is a fluent, immutable select builder.
type SelectQuery interface {
	// Where ANDs p with the predicate built so far.
	Where(p types.Predicate) SelectQuery
	// OrderBy appends sort keys. Ties keep their previous order.
	OrderBy(orders ...types.Order) SelectQuery
	// Page keeps limit records starting at offset. A limit of zero or less
	// keeps every record after offset.
	Page(offset, limit int) SelectQuery
	// Name attaches a diagnostic label.
	Name(label string) SelectQuery
	// Spec returns the query as built so far.
	Spec() SelectSpec
	// Run executes the query.
	Run(ctx context.Context) (*Result, error)
}

// DeleteQuery is a fluent, immutable delete builder.
type DeleteQuery interface {
	// Where ANDs p with the predicate built so far.
	Where(p types.Predicate) DeleteQuery
	// Name attaches a diagnostic label.
	Name(label string) DeleteQuery
	// Spec returns the query as built so far.
	Spec() DeleteSpec
	// Run executes the delete atomically and returns the number of target
	// rows removed.
	Run(ctx context.Context) (int, error)
}

// SelectSpec is the data of a select query.
type SelectSpec struct {
	Scope     types.Scope
	Targets   []types.Target
	Predicate types.Predicate
	Orders    []types.Order
	Offset    int
	Limit     int
	Label     string
}

// DeleteSpec is the data of a delete query.
type DeleteSpec struct {
	Scope     types.Scope
	Owner     string
	Targets   []types.Target
	Predicate types.Predicate
	Label     string
}

// selectQuery is the base SelectQuery executed by the engine.
type selectQuery struct {
	engine *engine
	spec   SelectSpec
}

var _ SelectQuery = selectQuery{}

func (q selectQuery) Where(p types.Predicate) SelectQuery {
	q.spec.Predicate = conjoin(q.spec.Predicate, p)
	return q
}

func (q selectQuery) OrderBy(orders ...types.Order) SelectQuery {
	q.spec.Orders = append(slices.Clip(q.spec.Orders), orders...)
	return q
}

func (q selectQuery) Page(offset, limit int) SelectQuery {
	q.spec.Offset, q.spec.Limit = offset, limit
	return q
}

func (q selectQuery) Name(label string) SelectQuery {
	q.spec.Label = label
	return q
}

func (q selectQuery) Spec() SelectSpec { return q.spec }

func (q selectQuery) Run(ctx context.Context) (*Result, error) {
	return q.engine.selectRecords(ctx, q.spec)
}

// deleteQuery is the base DeleteQuery executed by the engine.
type deleteQuery struct {
	engine *engine
	spec   DeleteSpec
}

var _ DeleteQuery = deleteQuery{}

func (q deleteQuery) Where(p types.Predicate) DeleteQuery {
	q.spec.Predicate = conjoin(q.spec.Predicate, p)
	return q
}

func (q deleteQuery) Name(label string) DeleteQuery {
	q.spec.Label = label
	return q
}

func (q deleteQuery) Spec() DeleteSpec { return q.spec }

func (q deleteQuery) Run(ctx context.Context) (int, error) {
	return q.engine.deleteRows(ctx, q.spec)
}

// conjoin ANDs p onto acc; a nil acc yields p itself.
func conjoin(acc, p types.Predicate) types.Predicate {
	if acc == nil {
		return p
	}
	if p == nil {
		return acc
	}
	return types.And(acc, p)
}
