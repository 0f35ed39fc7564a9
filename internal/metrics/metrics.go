// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doclib_http_requests_total",
			Help: "Total number of HTTP requests by route pattern, method and status",
		},
		[]string{"route", "method", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doclib_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Library operations
	UploadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doclib_uploads_total",
			Help: "Total number of successfully stored uploads",
		},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doclib_upload_bytes_total",
			Help: "Total bytes written to blob storage by uploads",
		},
	)

	DownloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doclib_downloads_total",
			Help: "Total number of served downloads",
		},
	)

	RegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doclib_registrations_total",
			Help: "Total number of registered users",
		},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doclib_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"}, // "success", "unknown_user", "bad_password", "error"
	)

	// Mail
	MailSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doclib_mail_sent_total",
			Help: "Total number of delivered mails",
		},
	)

	MailFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doclib_mail_failures_total",
			Help: "Mail delivery failures by reason",
		},
		[]string{"reason"}, // "send", "queue_full", "closed"
	)

	MailQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doclib_mail_queue_depth",
			Help: "Messages waiting in the mail dispatcher queue",
		},
	)

	MailBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doclib_mail_breaker_state",
			Help: "SMTP circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// ObserveRequest records one finished HTTP request.
func ObserveRequest(route, method string, status int, d time.Duration) {
	RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
