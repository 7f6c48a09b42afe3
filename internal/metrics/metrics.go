package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	documentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "authorscan",
			Name:      "documents_processed_total",
			Help:      "Total documents processed by result (success, failed, skipped)",
		},
		[]string{"result"},
	)

	pagesAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "authorscan",
			Name:      "pages_analyzed_total",
			Help:      "Total page images sent for extraction, by result",
		},
		[]string{"result"},
	)

	inferenceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "authorscan",
			Name:      "inference_duration_seconds",
			Help:      "Duration of model calls by endpoint",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"endpoint"},
	)

	authorsFound = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "authorscan",
			Name:      "authors_per_document",
			Help:      "Distribution of consolidated author counts per document",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 7, 10},
		},
	)

	extractionSource = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "authorscan",
			Name:      "extraction_source_total",
			Help:      "Documents by winning extraction stage (image, text_pattern, none)",
		},
		[]string{"source"},
	)

	endpointsUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "authorscan",
			Name:      "endpoints_available",
			Help:      "Model endpoints discovered at batch start",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(documentsProcessed, pagesAnalyzed, inferenceLatency, authorsFound, extractionSource, endpointsUp)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncDocument(result string) { documentsProcessed.WithLabelValues(result).Inc() }
func IncPage(result string)     { pagesAnalyzed.WithLabelValues(result).Inc() }

func ObserveInference(endpoint string, dur time.Duration) {
	inferenceLatency.WithLabelValues(endpoint).Observe(dur.Seconds())
}

func ObserveAuthors(n int)           { authorsFound.Observe(float64(n)) }
func IncExtractionSource(src string) { extractionSource.WithLabelValues(src).Inc() }
func SetEndpointsAvailable(n int)    { endpointsUp.Set(float64(n)) }
