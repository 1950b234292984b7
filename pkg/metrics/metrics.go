// Metrics for the header regeneration loop
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package metrics exposes counters for long-running header regeneration in
// the Prometheus format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ufwcfg"

// Result labels for regeneration outcomes.
const (
	ResultWritten   = "written"
	ResultUnchanged = "unchanged"
	ResultInvalid   = "invalid"
	ResultError     = "error"
)

// Metrics holds the collectors of one watcher. Each instance owns its
// registry so tests and several watchers do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	Regenerations  *prometheus.CounterVec
	ResolveSeconds prometheus.Histogram
	LastSuccess    prometheus.Gauge
	Warnings       prometheus.Gauge
	WatchedFiles   prometheus.Gauge
}

// New registers a fresh set of collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Regenerations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regenerations_total",
			Help:      "Header regenerations by result (written, unchanged, invalid, error).",
		}, []string{"result"}),
		ResolveSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Time to load, resolve and render a selection.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful regeneration.",
		}),
		Warnings: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "warnings",
			Help:      "Warnings reported for the current selection.",
		}),
		WatchedFiles: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watched_files",
			Help:      "Selection files being watched.",
		}),
	}
}

// Observe records one regeneration.
func (m *Metrics) Observe(result string, took time.Duration, warnings int) {
	if m == nil {
		return
	}
	m.Regenerations.WithLabelValues(result).Inc()
	m.ResolveSeconds.Observe(took.Seconds())
	switch result {
	case ResultWritten, ResultUnchanged:
		m.LastSuccess.Set(float64(time.Now().Unix()))
		m.Warnings.Set(float64(warnings))
	}
}
