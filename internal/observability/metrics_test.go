package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRequest("/api/email-templates", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/api/email-templates", "GET", 200, 5*time.Millisecond)
	m.RecordError("/api/email-templates", "POST", "VALIDATION_ERROR")
	m.RecordRender("signup")
	m.RecordNotification("approval", nil)
	m.RecordNotification("approval", errors.New("smtp down"))
	m.RecordCacheLookup(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/email-templates", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("POST", "/api/email-templates", "VALIDATION_ERROR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emailsRendered.WithLabelValues("signup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsSent.WithLabelValues("approval", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsSent.WithLabelValues("approval", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordRender("signup")
		m.RecordNotification("signup", nil)
		m.RecordCacheLookup(false)
	})
}
