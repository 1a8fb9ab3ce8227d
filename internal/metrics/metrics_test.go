package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/services"
)

var _ services.MetricsRecorder = (*Metrics)(nil)

func TestAnalysisCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AnalysisRequest(models.KindVoiceCall, services.ResultHit)
	m.AnalysisRequest(models.KindVoiceCall, services.ResultHit)
	m.AnalysisRequest(models.KindChat, services.ResultMiss)
	m.StoreError("upsert")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analysisRequests.WithLabelValues("voice_call", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analysisRequests.WithLabelValues("chat", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeErrors.WithLabelValues("upsert")))
}

func TestObserveHTTP(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTP(http.MethodGet, "/api/analysis/:id", 200, 20*time.Millisecond)
	m.ObserveHTTP(http.MethodGet, "", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/analysis/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(nil)
	m.AnalysisGenerated("openai", 2*time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "voicedesk_analysis_generation_seconds_count{provider=\"openai\"} 1")
}
