package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matcreates/tribe-sub001/internal/usecase"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	campaignsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaigns_processed_total",
			Help: "Claimed campaigns by final status",
		},
		[]string{"status"},
	)

	recipientsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_recipients_delivered_total",
			Help: "Recipients the transport accepted",
		},
	)

	deliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_delivery_failures_total",
			Help: "Recipients the transport refused",
		},
	)

	campaignsReclaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaigns_reclaimed_total",
			Help: "Stale processing campaigns reset by the watchdog",
		},
		[]string{"status"},
	)

	repliesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replies_ingested_total",
			Help: "Inbound replies by correlation result",
		},
		[]string{"result"},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"path"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern keeps ids out of the path label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func RecordCampaignResult(status string, delivered, failed int) {
	campaignsProcessed.WithLabelValues(status).Inc()
	recipientsDelivered.Add(float64(delivered))
	deliveryFailures.Add(float64(failed))
}

// ObserveTick records every campaign a scheduler tick processed.
func ObserveTick(res *usecase.TickResult) {
	if res == nil {
		return
	}
	for _, r := range res.Results {
		delivered := 0
		if r.RecipientCount != nil {
			delivered = *r.RecipientCount
		}
		RecordCampaignResult(r.Status, delivered, r.Failed)
	}
}

func RecordReclaimed(status string) {
	campaignsReclaimed.WithLabelValues(status).Inc()
}

func RecordReply(result string) {
	repliesIngested.WithLabelValues(result).Inc()
}
