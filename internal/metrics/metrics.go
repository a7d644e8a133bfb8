// Package metrics declares the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sero_reports_submitted_total",
		Help: "Survey reports submitted",
	})

	StatusUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sero_report_status_updates_total",
		Help: "Report status changes by target status",
	}, []string{"statut"})

	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sero_login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	ExportFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sero_export_failures_total",
		Help: "Documents that could not be written to the export sink",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sero_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)
