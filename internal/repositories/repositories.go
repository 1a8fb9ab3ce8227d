package repositories

import (
	"context"

	"github.com/yoockh/voicedesk/internal/models"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// AnalysisFilter narrows List. Empty fields match everything.
type AnalysisFilter struct {
	Kind      models.ConversationKind
	Outcome   string
	Sentiment string
	Tag       string
	Limit     int
}

// EffectiveLimit clamps Limit into 1..MaxListLimit.
func (f AnalysisFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

// AnalysisRepository persists one analysis record per conversation id.
// Get returns utils.ErrNotFound when there is no record.
type AnalysisRepository interface {
	Get(ctx context.Context, id string) (*models.AnalysisRecord, error)
	Upsert(ctx context.Context, rec *models.AnalysisRecord) error
	List(ctx context.Context, f AnalysisFilter) ([]models.AnalysisRecord, error)
	Ping(ctx context.Context) error
}
