// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package hook

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors for hook scheduling.
type Metrics struct {
	Decisions      *prometheus.CounterVec
	Activations    *prometheus.CounterVec
	Rechecks       prometheus.Counter
	Exhausted      prometheus.Counter
	PendingRetries prometheus.Gauge
}

// NewMetrics creates and registers hook metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "witherpass_hook_decisions_total",
				Help: "Total number of hook activation decisions by outcome and reason",
			},
			[]string{"outcome", "reason"},
		),
		Activations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "witherpass_hook_activations_total",
				Help: "Total number of hook activations by hook and status",
			},
			[]string{"hook", "status"},
		),
		Rechecks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "witherpass_hook_rechecks_total",
			Help: "Total number of periodic readiness rechecks",
		}),
		Exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "witherpass_hook_retry_exhausted_total",
			Help: "Total number of deferred hooks that ran out of attempts",
		}),
		PendingRetries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "witherpass_hook_pending_retries",
			Help: "Number of hooks with a running recheck timer",
		}),
	}

	reg.MustRegister(m.Decisions)
	reg.MustRegister(m.Activations)
	reg.MustRegister(m.Rechecks)
	reg.MustRegister(m.Exhausted)
	reg.MustRegister(m.PendingRetries)

	return m
}

// The helpers below tolerate a nil receiver so metrics stay optional.

func (m *Metrics) decision(d Decision) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(d.Outcome.String(), string(d.Reason)).Inc()
}

func (m *Metrics) activation(name, status string) {
	if m == nil {
		return
	}
	m.Activations.WithLabelValues(name, status).Inc()
}

func (m *Metrics) recheck() {
	if m == nil {
		return
	}
	m.Rechecks.Inc()
}

func (m *Metrics) exhausted() {
	if m == nil {
		return
	}
	m.Exhausted.Inc()
}

func (m *Metrics) pending(n int) {
	if m == nil {
		return
	}
	m.PendingRetries.Set(float64(n))
}
