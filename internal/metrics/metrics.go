// Package metrics exposes Prometheus metrics for the engine and the HTTP layer.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "success_api"

// Metrics owns a private registry and every collector the service reports
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	healthScoresRecorded *prometheus.CounterVec
	healthScoreValue     prometheus.Histogram
	alertsRaised         *prometheus.CounterVec
	stageTransitions     *prometheus.CounterVec
	sentimentAnalyses    *prometheus.CounterVec
	webhookRecords       *prometheus.CounterVec
	syncTriggers         *prometheus.CounterVec
	jobRuns              *prometheus.CounterVec
	jobDuration          *prometheus.HistogramVec
	eventPublishFailures *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		healthScoresRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "health_scores_recorded_total",
			Help: "Health score records written, by stage.",
		}, []string{"stage"}),
		healthScoreValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "engine", Name: "health_score",
			Help:    "Distribution of computed health scores.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		alertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "alerts_raised_total",
			Help: "Alerts raised, by alert type.",
		}, []string{"type"}),
		stageTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "stage_transitions_total",
			Help: "Lifecycle stage transitions, by target stage and whether anything changed.",
		}, []string{"to_stage", "changed"}),
		sentimentAnalyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "sentiment_analyses_total",
			Help: "Sentiment analyses stored, by label.",
		}, []string{"label"}),
		webhookRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "integrations", Name: "webhook_records_total",
			Help: "Inbound webhook records, by data type and outcome.",
		}, []string{"data_type", "outcome"}),
		syncTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "integrations", Name: "sync_triggers_total",
			Help: "Outbound sync triggers, by outcome.",
		}, []string{"outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "runs_total",
			Help: "Scheduled job runs, by job and outcome.",
		}, []string{"job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "duration_seconds",
			Help:    "Scheduled job duration.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"job"}),
		eventPublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "events", Name: "publish_failures_total",
			Help: "Domain events that could not be published, by event type.",
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.httpRequests, m.httpRequestDuration,
		m.healthScoresRecorded, m.healthScoreValue,
		m.alertsRaised, m.stageTransitions, m.sentimentAnalyses,
		m.webhookRecords, m.syncTriggers,
		m.jobRuns, m.jobDuration,
		m.eventPublishFailures,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) HealthScoreRecorded(stage string, score float64) {
	if m == nil {
		return
	}
	m.healthScoresRecorded.WithLabelValues(stage).Inc()
	m.healthScoreValue.Observe(score)
}

func (m *Metrics) AlertRaised(alertType string) {
	if m == nil {
		return
	}
	m.alertsRaised.WithLabelValues(alertType).Inc()
}

func (m *Metrics) StageTransition(toStage string, changed bool) {
	if m == nil {
		return
	}
	m.stageTransitions.WithLabelValues(toStage, strconv.FormatBool(changed)).Inc()
}

func (m *Metrics) SentimentAnalyzed(label string) {
	if m == nil {
		return
	}
	m.sentimentAnalyses.WithLabelValues(label).Inc()
}

// WebhookRecord counts one inbound record; outcome is created, updated or failed
func (m *Metrics) WebhookRecord(dataType, outcome string) {
	if m == nil {
		return
	}
	m.webhookRecords.WithLabelValues(dataType, outcome).Inc()
}

func (m *Metrics) SyncTriggered(success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failed"
	}
	m.syncTriggers.WithLabelValues(outcome).Inc()
}

// JobFinished records one scheduled run
func (m *Metrics) JobFinished(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *Metrics) EventPublishFailed(eventType string) {
	if m == nil {
		return
	}
	m.eventPublishFailures.WithLabelValues(eventType).Inc()
}
