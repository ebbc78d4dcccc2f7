package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

// GraphMetrics exposes the state of the served dependency graph and the
// analyses run against it. Each instance owns its registry.
type GraphMetrics struct {
	registry *prometheus.Registry

	modules      prometheus.Gauge
	dependencies prometheus.Gauge
	cycles       prometheus.Gauge
	maxDepth     prometheus.Gauge
	moduleHealth *prometheus.GaugeVec

	analysesTotal      *prometheus.CounterVec
	analysisErrorTotal *prometheus.CounterVec
	analysisDuration   *prometheus.HistogramVec
}

// NewGraphMetrics creates and registers all collectors.
func NewGraphMetrics() *GraphMetrics {
	m := &GraphMetrics{
		registry: prometheus.NewRegistry(),
		modules: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fascraft_graph_modules",
			Help: "Number of modules in the dependency graph.",
		}),
		dependencies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fascraft_graph_dependencies",
			Help: "Number of dependency edges in the dependency graph.",
		}),
		cycles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fascraft_graph_circular_dependencies",
			Help: "Number of circular dependency chains found in the last analysis.",
		}),
		maxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fascraft_graph_max_depth",
			Help: "Deepest dependency chain, -1 when the graph is cyclic.",
		}),
		moduleHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fascraft_module_health_score",
			Help: "Health score (0-100) of each module.",
		}, []string{"module"}),
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fascraft_analysis_total",
			Help: "Number of graph analyses by operation.",
		}, []string{"operation"}),
		analysisErrorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fascraft_analysis_error_total",
			Help: "Number of failed graph analyses by operation.",
		}, []string{"operation"}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fascraft_analysis_duration_seconds",
			Help:    "Time taken by graph analyses.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		m.modules,
		m.dependencies,
		m.cycles,
		m.maxDepth,
		m.moduleHealth,
		m.analysesTotal,
		m.analysisErrorTotal,
		m.analysisDuration,
	)
	return m
}

// ObserveStatistics sets the graph gauges from s.
func (m *GraphMetrics) ObserveStatistics(s depgraph.DependencyStatistics) {
	m.modules.Set(float64(s.TotalModules))
	m.dependencies.Set(float64(s.TotalDependencies))
	m.cycles.Set(float64(len(s.CircularDependencies)))
	m.maxDepth.Set(float64(s.MaxDepth))
}

// ObserveHealth replaces the per-module health scores. Modules missing
// from reports are dropped from the vector.
func (m *GraphMetrics) ObserveHealth(reports []depgraph.ModuleHealth) {
	m.moduleHealth.Reset()
	for _, h := range reports {
		m.moduleHealth.WithLabelValues(h.ModuleName).Set(float64(h.HealthScore))
	}
}

// ObserveAnalysis counts one analysis run and its duration.
func (m *GraphMetrics) ObserveAnalysis(operation string, d time.Duration, err error) {
	m.analysesTotal.WithLabelValues(operation).Inc()
	m.analysisDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		m.analysisErrorTotal.WithLabelValues(operation).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *GraphMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *GraphMetrics) Registry() *prometheus.Registry {
	return m.registry
}
