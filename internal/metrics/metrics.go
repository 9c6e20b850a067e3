// Package metrics exposes Prometheus collectors for the HTTP surface and
// the matching engines.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opensource-health/heron/internal/domain"
)

// Tool labels.
const (
	ToolSymptoms     = "symptoms"
	ToolInteractions = "interactions"
	ToolClinical     = "clinical"
	ToolConsult      = "consult"
)

// Metrics owns a registry and the Heron collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	Analyses         *prometheus.CounterVec
	Findings         *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	CacheRequests    *prometheus.CounterVec
	Assessments      *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heron_http_requests_total",
				Help: "Total HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "heron_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heron_analyses_total",
				Help: "Total engine runs by tool",
			},
			[]string{"tool"},
		),
		Findings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heron_findings_total",
				Help: "Total findings emitted by tool and severity",
			},
			[]string{"tool", "severity"},
		),
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "heron_analysis_duration_seconds",
				Help:    "Engine run duration in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"tool"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heron_cache_requests_total",
				Help: "Result cache lookups by outcome",
			},
			[]string{"result"},
		),
		Assessments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heron_assessments_total",
				Help: "Consultation assessments by status",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.Analyses,
		m.Findings,
		m.AnalysisDuration,
		m.CacheRequests,
		m.Assessments,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveCache records a result cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// ObserveSymptoms records a symptom matcher run.
func (m *Metrics) ObserveSymptoms(findings []domain.Finding, d time.Duration) {
	if m == nil {
		return
	}
	m.observeRun(ToolSymptoms, d)
	for _, f := range findings {
		m.Findings.WithLabelValues(ToolSymptoms, string(f.Severity)).Inc()
	}
}

// ObserveInteractions records an interaction checker run.
func (m *Metrics) ObserveInteractions(findings []domain.InteractionFinding, d time.Duration) {
	if m == nil {
		return
	}
	m.observeRun(ToolInteractions, d)
	for _, f := range findings {
		m.Findings.WithLabelValues(ToolInteractions, string(f.Severity)).Inc()
	}
}

// ObserveClinical records a decision-support evaluation.
func (m *Metrics) ObserveClinical(findings []domain.ClinicalFinding, d time.Duration) {
	if m == nil {
		return
	}
	m.observeRun(ToolClinical, d)
	for _, f := range findings {
		m.Findings.WithLabelValues(ToolClinical, string(f.Status)).Inc()
	}
}

// ObserveConsultation records a full consultation and its assessment.
func (m *Metrics) ObserveConsultation(c *domain.Consultation, d time.Duration) {
	if m == nil || c == nil {
		return
	}
	m.observeRun(ToolConsult, d)
	if c.Assessment != nil {
		m.Assessments.WithLabelValues(c.Assessment.Status).Inc()
	}
}

func (m *Metrics) observeRun(tool string, d time.Duration) {
	m.Analyses.WithLabelValues(tool).Inc()
	m.AnalysisDuration.WithLabelValues(tool).Observe(d.Seconds())
}
