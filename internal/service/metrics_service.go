package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session transition labels.
const (
	TransitionCreate = "create"
	TransitionRenew  = "renew"
	TransitionExpire = "expire"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	authFailures       *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	logins             *prometheus.CounterVec
	gameLogWrites      *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	authFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Requests rejected by the authentication pipeline",
	}, []string{"reason"})

	sessionTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_transitions_total",
		Help: "Session state transitions applied by the store",
	}, []string{"transition"})

	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logins_total",
		Help: "Login attempts by outcome",
	}, []string{"result"})

	gameLogWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "game_log_writes_total",
		Help: "Game log lines written by outcome",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, authFailures, sessionTransitions, logins, gameLogWrites, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		authFailures:       authFailures,
		sessionTransitions: sessionTransitions,
		logins:             logins,
		gameLogWrites:      gameLogWrites,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordAuthFailure counts a request rejected by the auth pipeline.
func (m *MetricsService) RecordAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}

// RecordSessionTransition counts a successful session state change.
func (m *MetricsService) RecordSessionTransition(transition string) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(transition).Inc()
}

// RecordLogin counts a login attempt.
func (m *MetricsService) RecordLogin(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.logins.WithLabelValues(result).Inc()
}

// RecordGameLogWrite counts a game log append attempt.
func (m *MetricsService) RecordGameLogWrite(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.gameLogWrites.WithLabelValues(result).Inc()
}
