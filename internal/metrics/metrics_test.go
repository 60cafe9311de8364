package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AlertRaised("health_dip")
		m.HealthScoreRecorded("onboarding", 0.5)
		m.StageTransition("adoption", true)
		m.SentimentAnalyzed("negative")
		m.WebhookRecord("contacts", "created")
		m.SyncTriggered(false)
		m.JobFinished("health-recompute", time.Second, nil)
		m.EventPublishFailed("alert.raised")
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Middleware(next))
}

func TestEngineCounters(t *testing.T) {
	m := New()

	m.AlertRaised("health_dip")
	m.AlertRaised("health_dip")
	m.AlertRaised("sentiment_negative")
	m.StageTransition("adoption", false)
	m.WebhookRecord("tickets", "failed")
	m.JobFinished("integration-sync", 2*time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.alertsRaised.WithLabelValues("health_dip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alertsRaised.WithLabelValues("sentiment_negative")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageTransitions.WithLabelValues("adoption", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookRecords.WithLabelValues("tickets", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("integration-sync", "failed")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/accounts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/accounts/123", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/accounts/{id}", "418")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.AlertRaised("manual")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `success_api_engine_alerts_raised_total{type="manual"} 1`))
}
