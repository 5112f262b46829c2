// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metrics exposes search instrumentation on the Prometheus
// registry served at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal   prometheus.Counter
	SearchDuration  prometheus.Histogram
	UnitsTotal      *prometheus.CounterVec
	ResultsAccepted prometheus.Counter
	ResultsRejected *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		SearchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "aggregarr_searches_total",
			Help: "Number of search rounds dispatched.",
		}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aggregarr_search_duration_seconds",
			Help:    "Wall time of a full search round.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		UnitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregarr_search_units_total",
			Help: "Dispatched search units by source and outcome.",
		}, []string{"source", "status"}),
		ResultsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "aggregarr_results_accepted_total",
			Help: "Listings accepted by the matcher.",
		}),
		ResultsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregarr_results_rejected_total",
			Help: "Listings rejected by the matcher, by reason.",
		}, []string{"reason"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
