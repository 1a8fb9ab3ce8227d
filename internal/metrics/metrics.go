package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yoockh/voicedesk/internal/models"
)

const namespace = "voicedesk"

// Metrics records analysis and HTTP metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	analysisRequests   *prometheus.CounterVec
	analysisGeneration *prometheus.HistogramVec
	storeErrors        *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		analysisRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_requests_total",
			Help:      "Analysis lookups by conversation kind and result (hit, miss, error).",
		}, []string{"kind", "result"}),
		analysisGeneration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_generation_seconds",
			Help:      "Time spent waiting on the completion provider.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider"}),
		storeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_store_errors_total",
			Help:      "Analysis store failures that were absorbed.",
		}, []string{"op"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) AnalysisRequest(kind models.ConversationKind, result string) {
	m.analysisRequests.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) AnalysisGenerated(provider string, d time.Duration) {
	m.analysisGeneration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) StoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
