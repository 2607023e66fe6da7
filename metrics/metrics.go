package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopfront_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopfront_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	HTTPErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopfront_http_errors_total",
			Help: "Total number of errors turned into responses by the error handler",
		},
		[]string{"code"},
	)

	// DatabaseReady is 1 once the database answered a ping, 0 otherwise.
	DatabaseReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopfront_database_ready",
			Help: "Whether the database connection has been verified",
		},
	)

	// SwatchSelections counts color selections; result is "matched" or "unmatched".
	SwatchSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopfront_swatch_selections_total",
			Help: "Total number of swatch selections",
		},
		[]string{"result"},
	)
)
