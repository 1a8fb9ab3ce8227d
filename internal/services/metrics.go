package services

import (
	"time"

	"github.com/yoockh/voicedesk/internal/models"
)

// Lookup results reported to MetricsRecorder.AnalysisRequest.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

type MetricsRecorder interface {
	AnalysisRequest(kind models.ConversationKind, result string)
	AnalysisGenerated(provider string, d time.Duration)
	StoreError(op string)
}

type noopMetrics struct{}

func (noopMetrics) AnalysisRequest(models.ConversationKind, string) {}
func (noopMetrics) AnalysisGenerated(string, time.Duration)         {}
func (noopMetrics) StoreError(string)                               {}
