// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes Prometheus collectors for routing activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Activation outcomes.
const (
	OutcomeRendered   = "rendered"
	OutcomeSuperseded = "superseded"
	OutcomeFailed     = "failed"
	OutcomeCustom     = "custom"
)

var (
	// Registry holds the approuter collectors.
	Registry = prometheus.NewRegistry()

	activations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "approuter",
			Subsystem: "router",
			Name:      "activations_total",
			Help:      "Activations by app and outcome.",
		},
		[]string{"app", "outcome"},
	)

	deactivations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "approuter",
			Subsystem: "router",
			Name:      "deactivations_total",
			Help:      "Deactivations by app and lifecycle operation.",
		},
		[]string{"app", "operation"},
	)

	notMatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "approuter",
			Subsystem: "router",
			Name:      "not_matched_total",
			Help:      "Navigations that matched no app.",
		},
	)

	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "approuter",
			Subsystem: "router",
			Name:      "load_duration_seconds",
			Help:      "Time spent in the app loader.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"app"},
	)

	activeApps = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "approuter",
			Subsystem: "router",
			Name:      "active_apps",
			Help:      "Apps currently held in the registry.",
		},
	)
)

func init() {
	Registry.MustRegister(activations, deactivations, notMatched, loadDuration, activeApps)
}

// Handler returns the /metrics handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordActivation counts one finished activation.
func RecordActivation(app, outcome string) {
	activations.WithLabelValues(app, outcome).Inc()
}

// RecordDeactivation counts one deactivation.
func RecordDeactivation(app, operation string) {
	if operation == "" {
		operation = "none"
	}
	deactivations.WithLabelValues(app, operation).Inc()
}

// RecordNotMatched counts a navigation without a matching app.
func RecordNotMatched() {
	notMatched.Inc()
}

// ObserveLoad records how long the loader took for app.
func ObserveLoad(app string, d time.Duration) {
	loadDuration.WithLabelValues(app).Observe(d.Seconds())
}

// SetActiveApps sets the registry size gauge.
func SetActiveApps(n int) {
	activeApps.Set(float64(n))
}
