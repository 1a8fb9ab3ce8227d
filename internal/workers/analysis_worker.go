package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/services"
	"github.com/yoockh/voicedesk/internal/utils"
)

const (
	DefaultStream = "analysis:stream"
	DefaultGroup  = "analysis-workers"
)

// StatusChannel is the pub/sub channel carrying progress for one conversation.
func StatusChannel(id string) string { return "analysis:" + id + ":status" }

type AnalysisJob struct {
	ID           string                  `json:"id"`
	Kind         models.ConversationKind `json:"type"`
	MessageCount int                     `json:"messageCount"`
}

func (j AnalysisJob) values() map[string]any {
	return map[string]any{
		"id":            j.ID,
		"type":          string(j.Kind),
		"message_count": strconv.Itoa(j.MessageCount),
		"ts_unix":       strconv.FormatInt(time.Now().UTC().Unix(), 10),
	}
}

func parseJob(values map[string]any) (AnalysisJob, error) {
	getStr := func(k string) string {
		s, _ := values[k].(string)
		return s
	}
	job := AnalysisJob{ID: getStr("id"), Kind: models.ConversationKind(getStr("type"))}
	if job.ID == "" || !job.Kind.Valid() {
		return job, fmt.Errorf("invalid analysis job: id=%q type=%q", job.ID, job.Kind)
	}
	n, err := strconv.Atoi(getStr("message_count"))
	if err != nil || n < 0 {
		return job, fmt.Errorf("invalid analysis job message_count %q", getStr("message_count"))
	}
	job.MessageCount = n
	return job, nil
}

// StatusMessage is published as JSON on StatusChannel.
type StatusMessage struct {
	Type         string                 `json:"type"`
	ID           string                 `json:"id"`
	Status       string                 `json:"status"` // queued | processing | done | failed
	MessageCount int                    `json:"messageCount"`
	Message      string                 `json:"message,omitempty"`
	Code         utils.Code             `json:"code,omitempty"`
	Cached       bool                   `json:"cached,omitempty"`
	Data         *models.AnalysisResult `json:"data,omitempty"`
}

func publish(ctx context.Context, rdb *redis.Client, msg StatusMessage) error {
	msg.Type = "status"
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, StatusChannel(msg.ID), b).Err()
}

// AnalysisQueue enqueues prefetch jobs for the worker pool.
type AnalysisQueue struct {
	Redis  *redis.Client
	Stream string
}

func (q *AnalysisQueue) Enqueue(ctx context.Context, job AnalysisJob) error {
	stream := q.Stream
	if stream == "" {
		stream = DefaultStream
	}
	if err := q.Redis.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: job.values()}).Err(); err != nil {
		return err
	}
	_ = publish(ctx, q.Redis, StatusMessage{ID: job.ID, Status: "queued", MessageCount: job.MessageCount})
	return nil
}

// AnalysisWorkerPool consumes prefetch jobs from a redis stream consumer group
// and runs them through the analysis service.
type AnalysisWorkerPool struct {
	Redis       *redis.Client
	Analysis    services.AnalysisService
	Transcripts services.TranscriptService
	NumWorkers  int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *AnalysisWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Analysis == nil || p.Transcripts == nil {
		return errors.New("AnalysisWorkerPool missing dependency: Redis/Analysis/Transcripts must be set")
	}
	p.defaults()

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *AnalysisWorkerPool) defaults() {
	if p.Stream == "" {
		p.Stream = DefaultStream
	}
	if p.Group == "" {
		p.Group = DefaultGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.StandardLogger()
	}
}

func (p *AnalysisWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("analysis stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *AnalysisWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	job, err := parseJob(msg.Values)
	if err != nil {
		p.Logger.WithError(err).WithField("redis_id", msg.ID).Warn("dropping analysis job")
		return
	}
	p.process(ctx, job, func(m StatusMessage) {
		if err := publish(ctx, p.Redis, m); err != nil {
			p.Logger.WithError(err).WithField("analysis_id", m.ID).Warn("status publish failed")
		}
	})
}

// process runs one job and reports progress through emit.
func (p *AnalysisWorkerPool) process(ctx context.Context, job AnalysisJob, emit func(StatusMessage)) {
	log := p.Logger.WithFields(logrus.Fields{
		"analysis_id":   job.ID,
		"kind":          job.Kind,
		"message_count": job.MessageCount,
	})

	emit(StatusMessage{ID: job.ID, Status: "processing", MessageCount: job.MessageCount})

	resp, err := p.Analysis.GetOrCompute(ctx, job.ID, job.Kind, job.MessageCount, p.Transcripts.ProviderFor(job.Kind, job.ID))
	if err != nil {
		log.WithError(err).Warn("analysis prefetch failed")
		msg := StatusMessage{ID: job.ID, Status: "failed", MessageCount: job.MessageCount, Code: utils.CodeOf(err)}
		var ae *utils.AppError
		if errors.As(err, &ae) {
			msg.Message = ae.Message
		}
		emit(msg)
		return
	}

	log.WithField("cached", resp.Cached).Info("analysis prefetch done")
	emit(StatusMessage{
		ID:           job.ID,
		Status:       "done",
		MessageCount: job.MessageCount,
		Cached:       resp.Cached,
		Data:         resp.Data,
	})
}
