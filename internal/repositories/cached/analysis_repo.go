package cached

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/voicedesk/internal/cache"
	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/repositories"
	"github.com/yoockh/voicedesk/internal/utils"
)

const keyPrefix = "analysis:record:"

// AnalysisRepo puts a cache in front of an optional durable repository. With
// no inner repository the cache is the only store and records expire with ttl.
// Cache failures never fail a read; they fall through to the inner store.
type AnalysisRepo struct {
	inner repositories.AnalysisRepository
	cache cache.Cache
	ttl   time.Duration
	log   *logrus.Logger
}

func NewAnalysisRepo(inner repositories.AnalysisRepository, c cache.Cache, ttl time.Duration, log *logrus.Logger) *AnalysisRepo {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AnalysisRepo{inner: inner, cache: c, ttl: ttl, log: log}
}

func (r *AnalysisRepo) Get(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	var rec models.AnalysisRecord
	hit, err := r.cache.GetJSON(ctx, keyPrefix+id, &rec)
	if err != nil {
		r.log.WithError(err).WithField("analysis_id", id).Warn("analysis cache read failed")
	}
	if hit {
		return &rec, nil
	}
	if r.inner == nil {
		return nil, utils.ErrNotFound
	}

	got, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.cache.SetJSON(ctx, keyPrefix+id, got, r.ttl); err != nil {
		r.log.WithError(err).WithField("analysis_id", id).Warn("analysis cache fill failed")
	}
	return got, nil
}

// Upsert writes through to the inner store and evicts the cached copy; the
// next Get refills it from the inner store, which owns created_at and type.
// Without an inner store the record is cached as given.
func (r *AnalysisRepo) Upsert(ctx context.Context, rec *models.AnalysisRecord) error {
	if r.inner == nil {
		return r.cache.SetJSON(ctx, keyPrefix+rec.ID, rec, r.ttl)
	}
	err := r.inner.Upsert(ctx, rec)
	if derr := r.cache.Del(ctx, keyPrefix+rec.ID); derr != nil {
		r.log.WithError(derr).WithField("analysis_id", rec.ID).Warn("analysis cache evict failed")
	}
	return err
}

func (r *AnalysisRepo) List(ctx context.Context, f repositories.AnalysisFilter) ([]models.AnalysisRecord, error) {
	if r.inner == nil {
		return nil, utils.E(utils.CodeUnavailable, "AnalysisRepo.List", "listing requires a persistent store", nil)
	}
	return r.inner.List(ctx, f)
}

func (r *AnalysisRepo) Ping(ctx context.Context) error {
	cerr := r.cache.Ping(ctx)
	if r.inner == nil {
		return cerr
	}
	return errors.Join(cerr, r.inner.Ping(ctx))
}
