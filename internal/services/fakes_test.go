package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/providers/llm"
	"github.com/yoockh/voicedesk/internal/repositories"
	"github.com/yoockh/voicedesk/internal/transcript"
	"github.com/yoockh/voicedesk/internal/utils"
)

const validCompletion = `{
  "summary": "The caller reported an outage and the agent confirmed a fix time.",
  "outcome": "resolved",
  "sentiment": "neutral",
  "customerSatisfaction": 4,
  "topics": ["outage"],
  "keyInsights": ["outage affects zip 12345"],
  "actionItems": ["send follow-up sms"],
  "speakerAnalysis": {
    "agent": {"toneAssessment": "professional", "effectivenessScore": 4},
    "user": {"intentSummary": "restore internet", "emotionalTone": "frustrated"}
  },
  "resolutionType": "voiceAgent",
  "language": "English",
  "tags": ["outage", "internet"]
}`

type fakeStore struct {
	mu        sync.Mutex
	recs      map[string]*models.AnalysisRecord
	getErr    error
	upsertErr error
	upserts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: map[string]*models.AnalysisRecord{}}
}

func (f *fakeStore) Get(_ context.Context, id string) (*models.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.recs[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) Upsert(_ context.Context, rec *models.AnalysisRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *rec
	f.recs[rec.ID] = &cp
	return nil
}

func (f *fakeStore) List(_ context.Context, filter repositories.AnalysisFilter) ([]models.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AnalysisRecord
	for _, r := range f.recs {
		if filter.Outcome != "" && r.Outcome != filter.Outcome {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.getErr }

func (f *fakeStore) record(id string) *models.AnalysisRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs[id]
}

type fakeLLM struct {
	content string
	err     error
	calls   atomic.Int32

	mu   sync.Mutex
	last llm.CompletionRequest

	// when set, Complete signals started and waits for release
	started chan struct{}
	release chan struct{}
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.content, f.err
}

func (f *fakeLLM) Name() string { return "fake" }
func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) lastRequest() llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type recordingMetrics struct {
	mu       sync.Mutex
	requests map[string]int
	storeOps map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{requests: map[string]int{}, storeOps: map[string]int{}}
}

func (m *recordingMetrics) AnalysisRequest(_ models.ConversationKind, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[result]++
}

func (m *recordingMetrics) AnalysisGenerated(string, time.Duration) {}

func (m *recordingMetrics) StoreError(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeOps[op]++
}

// countingProvider returns a provider serving tr and a pointer to its call count.
func countingProvider(tr *transcript.Transcript, err error) (TranscriptProvider, *atomic.Int32) {
	var n atomic.Int32
	return func(context.Context) (*transcript.Transcript, error) {
		n.Add(1)
		return tr, err
	}, &n
}

func sampleTranscript() *transcript.Transcript {
	return &transcript.Transcript{
		Entries: []transcript.Entry{
			{Speaker: "Agent", Text: "Hello, this is Acme support."},
			{Speaker: "User", Text: "My internet is down."},
		},
		Metadata: transcript.Metadata{Type: "voice_call", AgentName: "Acme Bot", Status: "COMPLETED"},
	}
}
