// Package metrics exposes Prometheus instruments for workflow processing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runs           *prometheus.CounterVec
	actions        *prometheus.CounterVec
	processLatency *prometheus.HistogramVec
	recursionAbort prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crmflow_workflow_runs_total",
				Help: "Workflow evaluations by trigger event and outcome",
			},
			[]string{"trigger_event", "status"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crmflow_action_executions_total",
				Help: "Action executions by type and outcome",
			},
			[]string{"action_type", "status"},
		),
		processLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crmflow_process_duration_seconds",
				Help:    "Time spent processing a trigger event, workflows included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"trigger_event"},
		),
		recursionAbort: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crmflow_recursion_aborts_total",
				Help: "Nested trigger events dropped by the recursion guard",
			},
		),
	}

	registry.MustRegister(
		m.runs,
		m.actions,
		m.processLatency,
		m.recursionAbort,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) WorkflowRun(triggerEvent, status string) {
	if m == nil {
		return
	}

	m.runs.WithLabelValues(triggerEvent, status).Inc()
}

func (m *Metrics) ActionExecuted(actionType, status string) {
	if m == nil {
		return
	}

	m.actions.WithLabelValues(actionType, status).Inc()
}

func (m *Metrics) ProcessDuration(triggerEvent string, duration time.Duration) {
	if m == nil {
		return
	}

	m.processLatency.WithLabelValues(triggerEvent).Observe(duration.Seconds())
}

func (m *Metrics) RecursionAborted() {
	if m == nil {
		return
	}

	m.recursionAbort.Inc()
}

// Registry is the gatherer holding every instrument.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
