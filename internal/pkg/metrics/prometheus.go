package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scan metrics
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iamgen",
			Subsystem: "scan",
			Name:      "total",
			Help:      "Total number of scans by provider and terminal status",
		},
		[]string{"provider", "status"},
	)

	scansInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "iamgen",
			Subsystem: "scan",
			Name:      "in_flight",
			Help:      "Number of scans currently running",
		},
	)

	categoryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iamgen",
			Subsystem: "scan",
			Name:      "category_duration_seconds",
			Help:      "Duration of a single category enumeration including enrichment",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider", "category"},
	)

	categoryRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iamgen",
			Subsystem: "scan",
			Name:      "records_total",
			Help:      "Number of records collected per category",
		},
		[]string{"provider", "category"},
	)

	enrichmentDegradations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iamgen",
			Subsystem: "scan",
			Name:      "enrichment_degradations_total",
			Help:      "Enrichment sub-calls that failed and were omitted",
		},
		[]string{"provider", "category"},
	)

	// Generation metrics
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iamgen",
			Subsystem: "generation",
			Name:      "total",
			Help:      "Total number of code generation requests by outcome",
		},
		[]string{"status"},
	)

	generatedFiles = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "iamgen",
			Subsystem: "generation",
			Name:      "files_total",
			Help:      "Number of files written by code generation",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// ScanStarted marks a scan as running
func ScanStarted() {
	scansInFlight.Inc()
}

// ScanFinished records a scan reaching a terminal status
func ScanFinished(provider, status string) {
	scansInFlight.Dec()
	scansTotal.WithLabelValues(provider, status).Inc()
}

// RecordCategory records the outcome of one category enumeration
func RecordCategory(provider, category string, records int, duration time.Duration) {
	categoryDuration.WithLabelValues(provider, category).Observe(duration.Seconds())
	categoryRecords.WithLabelValues(provider, category).Add(float64(records))
}

// RecordEnrichmentDegradation counts an enrichment sub-call that was dropped
func RecordEnrichmentDegradation(provider, category string) {
	enrichmentDegradations.WithLabelValues(provider, category).Inc()
}

// RecordGeneration records a generation request outcome and the files it produced
func RecordGeneration(status string, files int) {
	generationsTotal.WithLabelValues(status).Inc()
	generatedFiles.Add(float64(files))
}
