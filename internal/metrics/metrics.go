// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

// Package metrics provides Prometheus instrumentation for Draftforge:
// reference-store query latency, bundle load outcomes, recommendation
// latency and HTTP request accounting.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reference store metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "draftforge_store_query_duration_seconds",
			Help:    "Duration of reference-store (DuckDB) queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftforge_store_query_errors_total",
			Help: "Total number of reference-store query errors",
		},
		[]string{"query"},
	)

	// Bundle metrics
	BundleLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "draftforge_bundle_load_duration_seconds",
			Help:    "Duration of inference bundle loads in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	BundleLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftforge_bundle_loads_total",
			Help: "Total number of bundle load attempts by outcome",
		},
		[]string{"outcome"}, // "success", "error"
	)

	BundlePhases = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "draftforge_bundle_phases",
			Help: "Number of phase models in the loaded bundle",
		},
	)

	// Recommendation metrics
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "draftforge_recommend_duration_seconds",
			Help:    "End-to-end duration of recommendation calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecommendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftforge_recommend_errors_total",
			Help: "Total number of failed recommendation calls",
		},
		[]string{"kind"}, // "validation", "scoring", "store", "internal"
	)

	RecommendItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "draftforge_recommend_items_returned",
			Help:    "Number of items returned per recommendation call",
			Buckets: []float64{0, 4, 8, 12, 15, 20, 30},
		},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "draftforge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "draftforge_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// ObserveStoreQuery records the duration and outcome of a reference-store query.
func ObserveStoreQuery(query string, start time.Time, err error) {
	StoreQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(query).Inc()
	}
}

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, path string, status int, start time.Time) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).
		Observe(time.Since(start).Seconds())
}
