// Package metrics collects run counters on a private Prometheus registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
)

const namespace = "slotbelief"

// Metrics holds the engine's counters.
type Metrics struct {
	registry *prometheus.Registry

	decisions     *prometheus.CounterVec
	beliefUpdates *prometheus.CounterVec
	recordsBuilt  prometheus.Counter
	fallbacks     prometheus.Counter
	slotErrors    *prometheus.CounterVec
	runFailures   *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fusion_decisions_total",
			Help:      "Fusion decisions by outcome.",
		}, []string{"decision"}),
		beliefUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "belief_updates_total",
			Help:      "Beta-Bernoulli updates applied to belief records.",
		}, []string{"outcome", "source"}),
		recordsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prior_records_built_total",
			Help:      "Belief records produced by the prior builder.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prior_uniform_fallbacks_total",
			Help:      "Priors replaced by the uniform distribution after numerical underflow.",
		}),
		slotErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_errors_total",
			Help:      "Per-slot failures isolated during batch evaluation.",
		}, []string{"kind"}),
		runFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Command runs that exited with an error, by failing step.",
		}, []string{"step"}),
	}
	m.registry.MustRegister(m.decisions, m.beliefUpdates, m.recordsBuilt, m.fallbacks, m.slotErrors, m.runFailures)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Decision(full bool) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcomeLabel(full)).Inc()
}

func (m *Metrics) BeliefUpdate(obs model.Observation) {
	if m == nil {
		return
	}
	src := string(obs.Source)
	if src == "" {
		src = "unknown"
	}
	m.beliefUpdates.WithLabelValues(outcomeLabel(obs.IsFull), src).Inc()
}

func (m *Metrics) RecordsBuilt(n int) {
	if m == nil {
		return
	}
	m.recordsBuilt.Add(float64(n))
}

func (m *Metrics) UniformFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

func (m *Metrics) SlotError(kind string) {
	if m == nil {
		return
	}
	m.slotErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) RunFailure(step string) {
	if m == nil {
		return
	}
	m.runFailures.WithLabelValues(step).Inc()
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func outcomeLabel(full bool) string {
	if full {
		return "full"
	}
	return "not_full"
}
