package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// All recording helpers are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Workspace metrics
	FileWritesTotal      *prometheus.CounterVec
	AgentsCreatedTotal   prometheus.Counter
	RegenerationsTotal   prometheus.Counter
	RegenerationDuration prometheus.Histogram
	SnapshotsTotal       *prometheus.CounterVec
	SnapshotDuration     prometheus.Histogram
	WorkspacesDestroyed  prometheus.Counter

	// Process metrics
	ProcessOperationsTotal *prometheus.CounterVec
	ProcessSelfHealsTotal  prometheus.Counter
	BinaryProbesTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		FileWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clawspace_file_writes_total",
				Help: "Total number of workspace file writes by file kind",
			},
			[]string{"kind"},
		),
		AgentsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clawspace_agents_created_total",
				Help: "Total number of agent files created",
			},
		),
		RegenerationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clawspace_agents_md_regenerations_total",
				Help: "Total number of AGENTS.md regenerations",
			},
		),
		RegenerationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clawspace_agents_md_regeneration_duration_seconds",
				Help:    "Duration of AGENTS.md regenerations in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		SnapshotsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clawspace_snapshots_total",
				Help: "Total number of version snapshots by outcome",
			},
			[]string{"status"},
		),
		SnapshotDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clawspace_snapshot_duration_seconds",
				Help:    "Duration of version snapshot commits in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		WorkspacesDestroyed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clawspace_workspaces_destroyed_total",
				Help: "Total number of workspace directories removed",
			},
		),

		ProcessOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clawspace_process_operations_total",
				Help: "Total number of process operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		ProcessSelfHealsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clawspace_process_self_heals_total",
				Help: "Total number of stale running records reset to stopped",
			},
		),
		BinaryProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clawspace_binary_probes_total",
				Help: "Total number of agent binary health probes by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.FileWritesTotal)
	m.registry.MustRegister(m.AgentsCreatedTotal)
	m.registry.MustRegister(m.RegenerationsTotal)
	m.registry.MustRegister(m.RegenerationDuration)
	m.registry.MustRegister(m.SnapshotsTotal)
	m.registry.MustRegister(m.SnapshotDuration)
	m.registry.MustRegister(m.WorkspacesDestroyed)

	m.registry.MustRegister(m.ProcessOperationsTotal)
	m.registry.MustRegister(m.ProcessSelfHealsTotal)
	m.registry.MustRegister(m.BinaryProbesTotal)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordFileWrite counts a workspace file write
func (m *Metrics) RecordFileWrite(kind string) {
	if m == nil {
		return
	}
	m.FileWritesTotal.WithLabelValues(kind).Inc()
}

// RecordAgentCreated counts a newly created agent file
func (m *Metrics) RecordAgentCreated() {
	if m == nil {
		return
	}
	m.AgentsCreatedTotal.Inc()
}

// RecordRegeneration counts an AGENTS.md rebuild and its duration
func (m *Metrics) RecordRegeneration(d time.Duration) {
	if m == nil {
		return
	}
	m.RegenerationsTotal.Inc()
	m.RegenerationDuration.Observe(d.Seconds())
}

// RecordSnapshot counts a snapshot commit attempt
func (m *Metrics) RecordSnapshot(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.SnapshotsTotal.WithLabelValues(status).Inc()
	m.SnapshotDuration.Observe(d.Seconds())
}

// RecordDestroy counts a workspace teardown
func (m *Metrics) RecordDestroy() {
	if m == nil {
		return
	}
	m.WorkspacesDestroyed.Inc()
}

// RecordProcessOperation counts a start/stop/restart by outcome
func (m *Metrics) RecordProcessOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.ProcessOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordSelfHeal counts a stale running record being reset
func (m *Metrics) RecordSelfHeal() {
	if m == nil {
		return
	}
	m.ProcessSelfHealsTotal.Inc()
}

// RecordBinaryProbe counts a binary health probe
func (m *Metrics) RecordBinaryProbe(healthy bool) {
	if m == nil {
		return
	}
	outcome := "healthy"
	if !healthy {
		outcome = "unhealthy"
	}
	m.BinaryProbesTotal.WithLabelValues(outcome).Inc()
}
