package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartcrm_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartcrm_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RemindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartcrm_reminders_sent_total",
			Help: "Reminder emails by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartcrm_predictions_total",
			Help: "Lead conversion predictions by confidence",
		},
		[]string{"confidence"},
	)

	RowsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartcrm_import_rows_total",
			Help: "CSV rows processed by entity and result",
		},
		[]string{"entity", "result"},
	)
)
