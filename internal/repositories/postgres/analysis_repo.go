package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/repositories"
	"github.com/yoockh/voicedesk/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type analysisRepo struct {
	db *gorm.DB
}

func NewAnalysisRepo(db *gorm.DB) repositories.AnalysisRepository {
	return &analysisRepo{db: db}
}

func (r *analysisRepo) Get(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	var row models.AnalysisRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert inserts or overwrites the slot for rec.ID. created_at and type keep
// their first-write values.
func (r *analysisRepo) Upsert(ctx context.Context, rec *models.AnalysisRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"analysis", "message_count", "outcome", "sentiment", "tags", "updated_at",
			}),
		}).
		Create(rec).Error
}

func (r *analysisRepo) List(ctx context.Context, f repositories.AnalysisFilter) ([]models.AnalysisRecord, error) {
	q := r.db.WithContext(ctx).Model(&models.AnalysisRecord{})
	if f.Kind != "" {
		q = q.Where("type = ?", string(f.Kind))
	}
	if f.Outcome != "" {
		q = q.Where("outcome = ?", f.Outcome)
	}
	if f.Sentiment != "" {
		q = q.Where("sentiment = ?", f.Sentiment)
	}
	if f.Tag != "" {
		q = q.Where("? = ANY(tags)", f.Tag)
	}

	var rows []models.AnalysisRecord
	err := q.Order("updated_at DESC").Limit(f.EffectiveLimit()).Find(&rows).Error
	return rows, err
}

func (r *analysisRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
