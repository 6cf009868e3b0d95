// Package metrics provides Prometheus metrics for the asset store.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mesh-intelligence/assetstore/pkg/asset"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Metrics holds the store's collectors.
type Metrics struct {
	QueriesTotal  *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	RowsDeleted   prometheus.Counter
	SnapshotsPut  prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetstore_queries_total",
				Help: "Total number of select and delete queries",
			},
			[]string{"kind", "status"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assetstore_query_duration_seconds",
				Help:    "Duration of select and delete queries in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"kind"},
		),
		RowsDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "assetstore_rows_deleted_total",
				Help: "Total number of rows removed by delete queries",
			},
		),
		SnapshotsPut: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "assetstore_snapshots_put_total",
				Help: "Total number of snapshots stored",
			},
		),
	}
}

func (m *Metrics) observe(kind string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.QueriesTotal.WithLabelValues(kind, status).Inc()
	m.QueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// Select returns a decorator that counts and times selects.
func (m *Metrics) Select() asset.SelectWrapper {
	return func(q asset.SelectQuery) asset.SelectQuery {
		return asset.DecorateSelect(q, func(ctx context.Context, delegate asset.SelectQuery) (*asset.Result, error) {
			start := time.Now()
			res, err := delegate.Run(ctx)
			m.observe("select", start, err)
			return res, err
		})
	}
}

// Delete returns a decorator that counts and times deletes and the rows
// they remove.
func (m *Metrics) Delete() asset.DeleteWrapper {
	return func(q asset.DeleteQuery) asset.DeleteQuery {
		return asset.DecorateDelete(q, func(ctx context.Context, delegate asset.DeleteQuery) (int, error) {
			start := time.Now()
			n, err := delegate.Run(ctx)
			m.observe("delete", start, err)
			if err == nil {
				m.RowsDeleted.Add(float64(n))
			}
			return n, err
		})
	}
}

// Options installs the select and delete decorators on a store.
func (m *Metrics) Options() []asset.Option {
	return []asset.Option{
		asset.WithSelectDecorator(m.Select()),
		asset.WithDeleteDecorator(m.Delete()),
	}
}

// Backend counts the snapshots stored through b.
func (m *Metrics) Backend(b types.Backend) types.Backend {
	return &countingBackend{Backend: b, puts: m.SnapshotsPut}
}

type countingBackend struct {
	types.Backend
	puts prometheus.Counter
}

func (b *countingBackend) PutSnapshot(ctx context.Context, in types.SnapshotInput) (*types.Snapshot, error) {
	s, err := b.Backend.PutSnapshot(ctx, in)
	if err == nil {
		b.puts.Inc()
	}
	return s, err
}
