package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/providers/llm"
	"github.com/yoockh/voicedesk/internal/repositories"
	"github.com/yoockh/voicedesk/internal/transcript"
	"github.com/yoockh/voicedesk/internal/utils"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoTranscript     = errors.New("no transcript available")
	ErrGenerationFailed = errors.New("analysis generation failed")
)

const DefaultAnalysisTemperature float32 = 0.3

// sharedComputeTimeout bounds a coalesced computation, which no longer
// follows any single caller's context.
const sharedComputeTimeout = 2 * time.Minute

// TranscriptProvider fetches the current transcript of one conversation. It is
// only called on a cache miss.
type TranscriptProvider func(ctx context.Context) (*transcript.Transcript, error)

type AnalysisResponse struct {
	Data   *models.AnalysisResult `json:"data"`
	Cached bool                   `json:"cached"`
}

type AnalysisService interface {
	// GetOrCompute returns the stored analysis when it was generated for
	// exactly messageCount messages, otherwise generates and stores a new one.
	GetOrCompute(ctx context.Context, id string, kind models.ConversationKind, messageCount int, provider TranscriptProvider) (*AnalysisResponse, error)
}

type AnalysisConfig struct {
	// Store is optional. Without it every request is a miss.
	Store       repositories.AnalysisRepository
	LLM         llm.Provider
	Logger      *logrus.Logger
	Metrics     MetricsRecorder
	Temperature float32
	// Coalesce merges concurrent misses for the same id and message count.
	Coalesce bool
	Now      func() time.Time
}

type analysisService struct {
	store       repositories.AnalysisRepository
	llm         llm.Provider
	log         *logrus.Logger
	metrics     MetricsRecorder
	temperature float32
	coalesce    bool
	now         func() time.Time
	group       singleflight.Group
}

func NewAnalysisService(cfg AnalysisConfig) AnalysisService {
	s := &analysisService{
		store:       cfg.Store,
		llm:         cfg.LLM,
		log:         cfg.Logger,
		metrics:     cfg.Metrics,
		temperature: cfg.Temperature,
		coalesce:    cfg.Coalesce,
		now:         cfg.Now,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.temperature == 0 {
		s.temperature = DefaultAnalysisTemperature
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *analysisService) GetOrCompute(ctx context.Context, id string, kind models.ConversationKind, messageCount int, provider TranscriptProvider) (*AnalysisResponse, error) {
	const op = "AnalysisService.GetOrCompute"

	switch {
	case strings.TrimSpace(id) == "":
		return nil, utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	case !kind.Valid():
		return nil, utils.E(utils.CodeInvalidArgument, op, "type must be voice_call or chat", nil)
	case messageCount < 0:
		return nil, utils.E(utils.CodeInvalidArgument, op, "messageCount must be >= 0", nil)
	case provider == nil:
		return nil, utils.E(utils.CodeInvalidArgument, op, "transcript provider is required", nil)
	}

	log := s.log.WithFields(logrus.Fields{
		"analysis_id":   id,
		"kind":          kind,
		"message_count": messageCount,
	})

	if res := s.lookup(ctx, id, messageCount, log); res != nil {
		s.metrics.AnalysisRequest(kind, ResultHit)
		log.Debug("analysis cache hit")
		return &AnalysisResponse{Data: res, Cached: true}, nil
	}

	var (
		res *models.AnalysisResult
		err error
	)
	if s.coalesce {
		res, err = s.computeShared(ctx, id, kind, messageCount, provider, log)
	} else {
		res, err = s.compute(ctx, id, kind, messageCount, provider, log)
	}
	if err != nil {
		s.metrics.AnalysisRequest(kind, ResultError)
		return nil, err
	}

	s.metrics.AnalysisRequest(kind, ResultMiss)
	return &AnalysisResponse{Data: res, Cached: false}, nil
}

// computeShared merges concurrent misses for the same conversation, kind and
// count. The shared work runs detached from the callers' contexts; each caller
// stops waiting when its own context ends.
func (s *analysisService) computeShared(ctx context.Context, id string, kind models.ConversationKind, messageCount int, provider TranscriptProvider, log *logrus.Entry) (*models.AnalysisResult, error) {
	const op = "AnalysisService.GetOrCompute"

	key := id + "#" + string(kind) + "#" + strconv.Itoa(messageCount)
	ch := s.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedComputeTimeout)
		defer cancel()
		return s.compute(shared, id, kind, messageCount, provider, log)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*models.AnalysisResult), nil
	case <-ctx.Done():
		return nil, utils.E(utils.CodeTimeout, op, "request ended before analysis completed", ctx.Err())
	}
}

// lookup returns the stored result only when it is valid for messageCount.
// Store failures and unreadable blobs count as a miss.
func (s *analysisService) lookup(ctx context.Context, id string, messageCount int, log *logrus.Entry) *models.AnalysisResult {
	if s.store == nil {
		return nil
	}
	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.metrics.StoreError("get")
		log.WithError(err).Warn("analysis store lookup failed")
		return nil
	}
	if rec.MessageCount != messageCount {
		return nil
	}
	res, err := rec.Result()
	if err != nil {
		log.WithError(err).Warn("stored analysis is unreadable")
		return nil
	}
	return res
}

func (s *analysisService) compute(ctx context.Context, id string, kind models.ConversationKind, messageCount int, provider TranscriptProvider, log *logrus.Entry) (*models.AnalysisResult, error) {
	const op = "AnalysisService.GetOrCompute"

	tr, err := provider(ctx)
	if err != nil {
		var ae *utils.AppError
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, utils.E(utils.CodeUnavailable, op, "transcript source unavailable", err)
	}

	text := tr.Text()
	if strings.TrimSpace(text) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no transcript available", ErrNoTranscript)
	}
	if s.llm == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "no completion provider configured", nil)
	}

	md := tr.Metadata
	if md.Type == "" {
		md.Type = string(kind)
	}

	start := time.Now()
	content, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:      BuildAnalysisPrompt(text, md),
		Temperature: s.temperature,
		JSON:        true,
	})
	if err != nil && ctx.Err() != nil {
		return nil, utils.E(utils.CodeTimeout, op, "request ended before analysis completed", err)
	}
	if err != nil {
		log.WithError(err).Error("analysis completion failed")
		return nil, utils.E(utils.CodeInternal, op, "failed to generate analysis", fmt.Errorf("%w: %w", ErrGenerationFailed, err))
	}
	s.metrics.AnalysisGenerated(s.llm.Name(), time.Since(start))

	res, err := models.DecodeAnalysisResult([]byte(llm.StripCodeFences(content)))
	if err != nil {
		log.WithError(err).Error("analysis completion is not a valid result")
		return nil, utils.E(utils.CodeInternal, op, "failed to generate analysis", fmt.Errorf("%w: %w", ErrGenerationFailed, err))
	}

	s.save(ctx, id, kind, messageCount, res, log)
	return res, nil
}

func (s *analysisService) save(ctx context.Context, id string, kind models.ConversationKind, messageCount int, res *models.AnalysisResult, log *logrus.Entry) {
	if s.store == nil {
		return
	}
	rec, err := models.NewAnalysisRecord(id, kind, messageCount, res, s.now())
	if err == nil {
		err = s.store.Upsert(ctx, rec)
	}
	if err != nil {
		s.metrics.StoreError("upsert")
		log.WithError(err).Warn("analysis store write failed")
	}
}
