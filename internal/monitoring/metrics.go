// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsManager manages Prometheus metrics for klresults
type MetricsManager struct {
	registry *prometheus.Registry

	// Fetch metrics
	fetchAttempts *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	// Page metrics
	pagesProcessed     *prometheus.CounterVec
	placeholderRecords prometheus.Counter
	candidatesFound    prometheus.Gauge

	// Output metrics
	writesTotal   *prometheus.CounterVec
	writeDuration *prometheus.HistogramVec

	// Run metrics
	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
	lastRunTime  prometheus.Gauge
	runsInFlight prometheus.Gauge
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace       string            `yaml:"namespace"`
	Subsystem       string            `yaml:"subsystem"`
	Labels          map[string]string `yaml:"labels"`
	EnableGoMetrics bool              `yaml:"enable_go_metrics"`
}

// NewMetricsManager creates a new metrics manager with its own registry
func NewMetricsManager(config MetricsConfig) *MetricsManager {
	if config.Namespace == "" {
		config.Namespace = "klresults"
	}

	reg := prometheus.NewRegistry()
	if config.EnableGoMetrics {
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	factory := promauto.With(prometheus.WrapRegistererWith(config.Labels, reg))
	ns, sub := config.Namespace, config.Subsystem

	return &MetricsManager{
		registry: reg,

		fetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "fetch_attempts_total",
			Help: "Fetch attempts by strategy and outcome",
		}, []string{"strategy", "outcome"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "fetch_duration_seconds",
			Help:    "Fetch attempt duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"strategy"}),

		pagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "pages_total",
			Help: "Result pages processed by status",
		}, []string{"status"}),

		placeholderRecords: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "placeholder_records_total",
			Help: "Records written without any real winning ticket",
		}),

		candidatesFound: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "candidates_discovered",
			Help: "Result page URLs returned by the last discovery",
		}),

		writesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "writes_total",
			Help: "Record writes by sink and outcome",
		}, []string{"sink", "outcome"}),

		writeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "write_duration_seconds",
			Help:    "Record write duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"sink"}),

		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "runs_total",
			Help: "Scrape runs by status",
		}, []string{"status"}),

		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "run_duration_seconds",
			Help:    "Scrape run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),

		lastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),

		runsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "runs_in_flight",
			Help: "Scrape runs currently executing",
		}),
	}
}

// Registry returns the underlying registry
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// ObserveFetch records one fetch attempt
func (mm *MetricsManager) ObserveFetch(strategy, outcome string, elapsed time.Duration) {
	mm.fetchAttempts.WithLabelValues(strategy, outcome).Inc()
	mm.fetchDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// ObserveWrite records one file write or sink store
func (mm *MetricsManager) ObserveWrite(sink, outcome string, elapsed time.Duration) {
	mm.writesTotal.WithLabelValues(sink, outcome).Inc()
	mm.writeDuration.WithLabelValues(sink).Observe(elapsed.Seconds())
}

// RecordDiscovery records the number of candidate pages found
func (mm *MetricsManager) RecordDiscovery(n int) {
	mm.candidatesFound.Set(float64(n))
}

// RecordPage records a processed page. Written records without real winners
// also count as placeholder records.
func (mm *MetricsManager) RecordPage(status string, hasResults bool) {
	mm.pagesProcessed.WithLabelValues(status).Inc()
	if status == "written" && !hasResults {
		mm.placeholderRecords.Inc()
	}
}

// RunStarted marks a run as in flight
func (mm *MetricsManager) RunStarted() {
	mm.runsInFlight.Inc()
}

// RunFinished records a completed run
func (mm *MetricsManager) RunFinished(status string, elapsed time.Duration, finished time.Time) {
	mm.runsInFlight.Dec()
	mm.runsTotal.WithLabelValues(status).Inc()
	mm.runDuration.Observe(elapsed.Seconds())
	mm.lastRunTime.Set(float64(finished.Unix()))
}

// MetricsHandler returns the HTTP handler for metrics
func (mm *MetricsManager) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{Registry: mm.registry})
}

// WriteTextfile writes the current metrics in text exposition format for the
// node_exporter textfile collector.
func (mm *MetricsManager) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, mm.registry)
}
