// Package metrics provides Prometheus metrics for the web front door.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by route pattern and status code.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hrms",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)

	// RequestDuration measures handler latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hrms",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// SignInsTotal counts sign-in attempts by method and outcome.
	SignInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hrms",
			Name:      "sign_ins_total",
			Help:      "Total number of sign-in attempts",
		},
		[]string{"method", "status"},
	)

	// ImagesTotal counts image pipeline results.
	ImagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hrms",
			Name:      "images_total",
			Help:      "Total number of image pipeline requests",
		},
		[]string{"result"},
	)
)

// RecordSignIn records one sign-in attempt.
func RecordSignIn(method, status string) {
	SignInsTotal.WithLabelValues(method, status).Inc()
}

// RecordImage records one image pipeline request.
func RecordImage(result string) {
	ImagesTotal.WithLabelValues(result).Inc()
}
