// Package metrics exports ledger operations and SQL statement statistics to
// Prometheus.
//
//	obs := metrics.NewObserver(metrics.WithRegistry(reg))
//	ledger := sortable.New(store, nil, sortable.WithObserver(obs))
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/syssam/sortable"
	"github.com/syssam/sortable/dialect/sql"
)

// Outcome label values.
const (
	OutcomeOK           = "ok"
	OutcomeOutOfBounds  = "out_of_bounds"
	OutcomeInvalidState = "invalid_state"
	OutcomeNotFound     = "not_found"
	OutcomeInvariant    = "invariant"
	OutcomeStorage      = "storage"
	OutcomeCanceled     = "canceled"
	OutcomeError        = "error"
)

// Option configures the metrics.
type Option func(*config)

type config struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  prometheus.Registerer
}

// WithNamespace sets the metric namespace. Defaults to "sortable".
func WithNamespace(ns string) Option {
	return func(c *config) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

// WithSubsystem sets the metric subsystem, e.g. the table name.
func WithSubsystem(s string) Option {
	return func(c *config) { c.subsystem = s }
}

// WithBuckets sets the duration histogram buckets, in seconds.
func WithBuckets(b []float64) Option {
	return func(c *config) {
		if len(b) > 0 {
			c.buckets = b
		}
	}
}

// WithRegistry sets the registerer. Defaults to prometheus.DefaultRegisterer.
func WithRegistry(r prometheus.Registerer) Option {
	return func(c *config) {
		if r != nil {
			c.registry = r
		}
	}
}

func newConfig(opts []Option) config {
	c := config{
		namespace: "sortable",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Observer is a sortable.Observer counting ledger operations by outcome and
// recording their duration.
type Observer struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ sortable.Observer = (*Observer)(nil)

// NewObserver creates and registers the operation metrics.
func NewObserver(opts ...Option) *Observer {
	c := newConfig(opts)
	auto := promauto.With(c.registry)
	return &Observer{
		ops: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: c.subsystem,
			Name:      "operations_total",
			Help:      "Total number of ledger operations by outcome",
		}, []string{"op", "outcome"}),
		duration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.namespace,
			Subsystem: c.subsystem,
			Name:      "operation_duration_seconds",
			Help:      "Duration of ledger operations, transaction included",
			Buckets:   c.buckets,
		}, []string{"op"}),
	}
}

// Observe implements sortable.Observer.
func (o *Observer) Observe(_ context.Context, op string, d time.Duration, err error) {
	o.ops.WithLabelValues(op, Outcome(err)).Inc()
	o.duration.WithLabelValues(op).Observe(d.Seconds())
}

// Outcome classifies err into an outcome label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case sortable.IsOutOfBounds(err):
		return OutcomeOutOfBounds
	case sortable.IsInvalidState(err):
		return OutcomeInvalidState
	case sortable.IsNotFound(err):
		return OutcomeNotFound
	case errors.Is(err, sortable.ErrInvariant):
		return OutcomeInvariant
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	case sortable.IsStorageError(err):
		return OutcomeStorage
	}
	return OutcomeError
}

// RegisterQueryStats exposes the counters of a StatsDriver as Prometheus
// counters read at scrape time.
func RegisterQueryStats(stats *sql.QueryStats, opts ...Option) error {
	c := newConfig(opts)
	counter := func(name, help string, load func() int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: c.subsystem,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(load()) })
	}
	collectors := []prometheus.Collector{
		counter("sql_queries_total", "Total number of SQL queries", stats.TotalQueries.Load),
		counter("sql_execs_total", "Total number of SQL exec statements", stats.TotalExecs.Load),
		counter("sql_errors_total", "Total number of failed SQL statements", stats.Errors.Load),
		counter("sql_slow_queries_total", "Total number of slow SQL statements", stats.SlowQueries.Load),
		counter("sql_commits_total", "Total number of committed transactions", stats.Commits.Load),
		counter("sql_rollbacks_total", "Total number of rolled back transactions", stats.Rollbacks.Load),
	}
	for _, col := range collectors {
		if err := c.registry.Register(col); err != nil {
			return err
		}
	}
	return nil
}
