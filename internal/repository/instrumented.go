package repository

import (
	"context"
	"errors"
	"time"

	"atkform/internal/model"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics counts adapter operations by outcome and records their latency.
type StoreMetrics struct {
	Operations *prometheus.CounterVec
	Latency    *prometheus.HistogramVec
}

func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atk_store_operations_total",
			Help: "Request store operations by adapter, operation and result.",
		}, []string{"adapter", "op", "result"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atk_store_operation_seconds",
			Help:    "Request store operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"adapter", "op"}),
	}
	reg.MustRegister(m.Operations, m.Latency)
	return m
}

// InstrumentedAdapter wraps a RequestAdapter with StoreMetrics. Subscriptions pass through to
// the wrapped adapter's feed.
type InstrumentedAdapter struct {
	inner   RequestAdapter
	metrics *StoreMetrics
}

func NewInstrumentedAdapter(inner RequestAdapter, metrics *StoreMetrics) *InstrumentedAdapter {
	return &InstrumentedAdapter{inner: inner, metrics: metrics}
}

func (a *InstrumentedAdapter) Name() string { return a.inner.Name() }

func (a *InstrumentedAdapter) Subscribe(fn func([]model.Request)) func() {
	return a.inner.Subscribe(fn)
}

func (a *InstrumentedAdapter) Initialize(ctx context.Context) ([]model.Request, error) {
	defer a.observe("initialize", time.Now())
	records, err := a.inner.Initialize(ctx)
	a.count("initialize", err)
	return records, err
}

func (a *InstrumentedAdapter) List(ctx context.Context) ([]model.Request, error) {
	defer a.observe("list", time.Now())
	records, err := a.inner.List(ctx)
	a.count("list", err)
	return records, err
}

func (a *InstrumentedAdapter) Create(ctx context.Context, req *model.Request) (*model.Request, error) {
	defer a.observe("create", time.Now())
	rec, err := a.inner.Create(ctx, req)
	a.count("create", err)
	return rec, err
}

func (a *InstrumentedAdapter) Update(ctx context.Context, req *model.Request) (*model.Request, error) {
	defer a.observe("update", time.Now())
	rec, err := a.inner.Update(ctx, req)
	a.count("update", err)
	return rec, err
}

func (a *InstrumentedAdapter) Delete(ctx context.Context, req *model.Request) error {
	defer a.observe("delete", time.Now())
	err := a.inner.Delete(ctx, req)
	a.count("delete", err)
	return err
}

func (a *InstrumentedAdapter) observe(op string, start time.Time) {
	a.metrics.Latency.WithLabelValues(a.inner.Name(), op).Observe(time.Since(start).Seconds())
}

func (a *InstrumentedAdapter) count(op string, err error) {
	a.metrics.Operations.WithLabelValues(a.inner.Name(), op, ResultLabel(err)).Inc()
}

// ResultLabel names an operation outcome after the store error taxonomy.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuth):
		return "auth_error"
	case errors.Is(err, ErrSchema):
		return "schema_error"
	case errors.Is(err, ErrConnection):
		return "connection_error"
	default:
		return "error"
	}
}
