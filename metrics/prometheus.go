package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_batches_total",
			Help: "Total number of processed staging batches.",
		},
		[]string{"result"},
	)
	batchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_batch_duration_seconds",
			Help:    "Histogram of batch processing durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"result"},
	)
	validationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_requests_total",
			Help: "Total number of product page fetches.",
		},
		[]string{"store", "status"},
	)
	validationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "validation_request_duration_seconds",
			Help:    "Histogram of product page fetch durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"store", "status"},
	)
	priceChangesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "price_changes_total",
			Help: "Total number of recorded price changes.",
		},
	)
)

func init() {
	prometheus.MustRegister(batchesTotal)
	prometheus.MustRegister(batchDuration)
	prometheus.MustRegister(validationRequestsTotal)
	prometheus.MustRegister(validationRequestDuration)
	prometheus.MustRegister(priceChangesTotal)
}

// RecordBatch records metrics for a processed staging batch.
func RecordBatch(failed bool, duration time.Duration) {
	result := "ok"
	if failed {
		result = "failed"
	}
	batchesTotal.WithLabelValues(result).Inc()
	batchDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordFetch records metrics for a product page fetch.
func RecordFetch(store string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	validationRequestsTotal.WithLabelValues(store, status).Inc()
	validationRequestDuration.WithLabelValues(store, status).Observe(duration.Seconds())
}

// RecordPriceChange increments the price change counter.
func RecordPriceChange() {
	priceChangesTotal.Inc()
}

// classifyStatus maps an HTTP status code to its class label.
func classifyStatus(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "2xx"
	} else if statusCode >= 300 && statusCode < 400 {
		return "3xx"
	} else if statusCode >= 400 && statusCode < 500 {
		return "4xx"
	} else if statusCode >= 500 && statusCode < 600 {
		return "5xx"
	}
	return "unknown"
}

// MetricsHandler returns the HTTP handler exporting Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
