package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"CanonCurator/internal/ports"
)

// Collector holds the Prometheus metrics of the curation engine.
type Collector struct {
	registry *prometheus.Registry

	// Enrichment metrics
	authorsProcessed *prometheus.CounterVec
	sourcesEnriched  prometheus.Counter
	authorDuration   prometheus.Histogram
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
	lastRunSuccess   prometheus.Gauge

	// HTTP metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ ports.PipelineObserver = (*Collector)(nil)

// NewCollector creates a collector backed by its own registry.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		authorsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "authors_total",
			Help:      "Authors handled by enrichment runs, by final status",
		}, []string{"status"}),
		sourcesEnriched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "sources_enriched_total",
			Help:      "Sources that received an inferred date",
		}),
		authorDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "author_duration_seconds",
			Help:      "Time spent enriching one author",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "runs_total",
			Help:      "Completed enrichment runs, by outcome",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "run_duration_seconds",
			Help:      "Wall time of an enrichment run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "last_run_success",
			Help:      "1 when the last enrichment run completed, 0 when it aborted",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.authorsProcessed,
		c.sourcesEnriched,
		c.authorDuration,
		c.runs,
		c.runDuration,
		c.lastRunSuccess,
		c.httpRequests,
		c.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// AuthorProcessed records one author outcome.
func (c *Collector) AuthorProcessed(status string, enrichedSources int, elapsed time.Duration) {
	c.authorsProcessed.WithLabelValues(status).Inc()
	if enrichedSources > 0 {
		c.sourcesEnriched.Add(float64(enrichedSources))
	}
	c.authorDuration.Observe(elapsed.Seconds())
}

// RunFinished records the run outcome.
func (c *Collector) RunFinished(elapsed time.Duration, failed bool) {
	outcome := "completed"
	success := 1.0
	if failed {
		outcome = "aborted"
		success = 0
	}
	c.runs.WithLabelValues(outcome).Inc()
	c.runDuration.Observe(elapsed.Seconds())
	c.lastRunSuccess.Set(success)
}

// RecordHTTPRequest records a served request.
func (c *Collector) RecordHTTPRequest(method, route, status string, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, status).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
