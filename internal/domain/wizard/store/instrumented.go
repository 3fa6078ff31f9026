// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
)

var (
	storeOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordwiz_store_ops_total",
			Help: "Total context store operations",
		},
		[]string{"backend", "op", "result"}, // result=success/unchanged/not_found/error
	)
	storeLat = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ordwiz_store_op_seconds",
			Help:    "Context store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

// instrumentedStore wraps any Store to capture metrics.
type instrumentedStore struct {
	inner   Store
	backend string
}

func NewInstrumentedStore(inner Store, backend string) Store {
	return &instrumentedStore{inner: inner, backend: backend}
}

func (i *instrumentedStore) observe(op string, start time.Time, err error) {
	res := "success"
	switch {
	case errors.Is(err, ErrUnchanged):
		res = "unchanged"
	case errors.Is(err, model.ErrSessionNotFound):
		res = "not_found"
	case err != nil:
		res = "error"
	}
	storeOps.WithLabelValues(i.backend, op, res).Inc()
	storeLat.WithLabelValues(i.backend, op).Observe(time.Since(start).Seconds())
}

func (i *instrumentedStore) Create(ctx context.Context, id string) (s *model.Session, err error) {
	start := time.Now()
	defer func() { i.observe("create", start, err) }()
	return i.inner.Create(ctx, id)
}

func (i *instrumentedStore) Get(ctx context.Context, id string) (s *model.Session, err error) {
	start := time.Now()
	defer func() { i.observe("get", start, err) }()
	return i.inner.Get(ctx, id)
}

func (i *instrumentedStore) GetOrCreate(ctx context.Context, id string) (s *model.Session, created bool, err error) {
	start := time.Now()
	defer func() { i.observe("get_or_create", start, err) }()
	return i.inner.GetOrCreate(ctx, id)
}

func (i *instrumentedStore) Update(ctx context.Context, id string, fn func(*model.Session) error) (s *model.Session, err error) {
	start := time.Now()
	defer func() { i.observe("update", start, err) }()
	return i.inner.Update(ctx, id, fn)
}

func (i *instrumentedStore) Remove(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { i.observe("remove", start, err) }()
	return i.inner.Remove(ctx, id)
}

func (i *instrumentedStore) Scan(ctx context.Context, fn func(*model.Session) error) (err error) {
	start := time.Now()
	defer func() { i.observe("scan", start, err) }()
	return i.inner.Scan(ctx, fn)
}

func (i *instrumentedStore) Close() error {
	return i.inner.Close()
}
