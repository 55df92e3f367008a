package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	errors            *prometheus.CounterVec
	emailsRendered    *prometheus.CounterVec
	notificationsSent *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signup_forms_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signup_forms_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signup_forms_http_errors_total",
				Help: "Total number of error responses by code",
			},
			[]string{"method", "route", "code"},
		),
		emailsRendered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signup_forms_emails_rendered_total",
				Help: "Total number of rendered email templates",
			},
			[]string{"kind"},
		),
		notificationsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signup_forms_notifications_total",
				Help: "Total number of notification emails by outcome",
			},
			[]string{"kind", "outcome"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signup_forms_cache_lookups_total",
				Help: "Total number of cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordRequest counts a finished request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, route, code).Inc()
}

// RecordRender counts a rendered email.
func (m *Metrics) RecordRender(kind string) {
	if m == nil {
		return
	}
	m.emailsRendered.WithLabelValues(kind).Inc()
}

// RecordNotification counts a notification delivery attempt.
func (m *Metrics) RecordNotification(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.notificationsSent.WithLabelValues(kind, outcome).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
