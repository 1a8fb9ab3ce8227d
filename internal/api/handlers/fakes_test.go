package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/repositories"
	"github.com/yoockh/voicedesk/internal/services"
	"github.com/yoockh/voicedesk/internal/transcript"
	"github.com/yoockh/voicedesk/internal/workers"
)

func init() { gin.SetMode(gin.TestMode) }

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type analysisCall struct {
	id    string
	kind  models.ConversationKind
	count int
}

type fakeAnalysis struct {
	calls []analysisCall
	resp  *services.AnalysisResponse
	err   error
}

func (f *fakeAnalysis) GetOrCompute(ctx context.Context, id string, kind models.ConversationKind, n int, p services.TranscriptProvider) (*services.AnalysisResponse, error) {
	f.calls = append(f.calls, analysisCall{id, kind, n})
	return f.resp, f.err
}

type fakeTranscripts struct{}

func (fakeTranscripts) VoiceCall(ctx context.Context, id string) (*transcript.Transcript, error) {
	return &transcript.Transcript{}, nil
}

func (fakeTranscripts) Chat(ctx context.Context, id string) (*transcript.Transcript, error) {
	return &transcript.Transcript{}, nil
}

func (t fakeTranscripts) ProviderFor(kind models.ConversationKind, id string) services.TranscriptProvider {
	return func(ctx context.Context) (*transcript.Transcript, error) { return t.VoiceCall(ctx, id) }
}

type fakeArchive struct {
	filter repositories.AnalysisFilter
	rows   []models.AnalysisRecord
	export *services.ExportResult
	err    error
}

func (f *fakeArchive) List(ctx context.Context, filter repositories.AnalysisFilter) ([]models.AnalysisRecord, error) {
	f.filter = filter
	return f.rows, f.err
}

func (f *fakeArchive) Export(ctx context.Context, id string) (*services.ExportResult, error) {
	return f.export, f.err
}

type fakeQueue struct {
	jobs []workers.AnalysisJob
	err  error
}

func (f *fakeQueue) Enqueue(ctx context.Context, job workers.AnalysisJob) error {
	f.jobs = append(f.jobs, job)
	return f.err
}

type fakeHistory struct {
	user  string
	take  int
	items []services.HistoryItem
	err   error
}

func (f *fakeHistory) List(ctx context.Context, user string, take int) ([]services.HistoryItem, error) {
	f.user, f.take = user, take
	return f.items, f.err
}

type fakeChatKit struct {
	workflow string
	user     string
	thread   string
	raw      json.RawMessage
	err      error
}

func (f *fakeChatKit) CreateSession(ctx context.Context, workflowID string) (json.RawMessage, error) {
	f.workflow = workflowID
	return f.raw, f.err
}

func (f *fakeChatKit) ThreadsRaw(ctx context.Context, user string) (json.RawMessage, error) {
	f.user = user
	return f.raw, f.err
}

func (f *fakeChatKit) ThreadItemsRaw(ctx context.Context, threadID string) (json.RawMessage, error) {
	f.thread = threadID
	return f.raw, f.err
}

func (f *fakeChatKit) DemoUser() string { return "demo-user" }

type fakeVoice struct {
	id   string
	body map[string]any
	raw  json.RawMessage
	err  error
}

func (f *fakeVoice) ConversationRaw(ctx context.Context, id string) (json.RawMessage, error) {
	f.id = id
	return f.raw, f.err
}

func (f *fakeVoice) ListConversationsRaw(ctx context.Context, body map[string]any) (json.RawMessage, error) {
	f.body = body
	return f.raw, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }
