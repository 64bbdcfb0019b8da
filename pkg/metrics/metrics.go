// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus collectors for the HTTP surface and
// the harvest pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "arxiv_scout"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by termination reason",
		},
		[]string{"mode", "reason"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"mode"},
	)

	PapersAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "papers_accepted_total",
			Help:      "Papers accepted past the dedup gate",
		},
		[]string{"mode"},
	)

	PapersSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "papers_skipped_total",
			Help:      "Papers dropped as already-seen duplicates",
		},
		[]string{"mode"},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Total number of search queries",
		},
		[]string{"status"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "query_duration_seconds",
			Help:      "Search query duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)
