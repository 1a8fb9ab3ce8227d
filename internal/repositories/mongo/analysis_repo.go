package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/repositories"
	"github.com/yoockh/voicedesk/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/datatypes"
)

const analysisCollection = "conversation_analysis"

// analysisDoc stores the analysis as an embedded document so it can be
// queried from the mongo shell.
type analysisDoc struct {
	ID           string                `bson:"_id"`
	Type         string                `bson:"type"`
	Analysis     models.AnalysisResult `bson:"analysis"`
	MessageCount int                   `bson:"message_count"`
	Outcome      string                `bson:"outcome"`
	Sentiment    string                `bson:"sentiment"`
	Tags         []string              `bson:"tags"`
	CreatedAt    time.Time             `bson:"created_at"`
	UpdatedAt    time.Time             `bson:"updated_at"`
}

func (d *analysisDoc) record() (*models.AnalysisRecord, error) {
	b, err := json.Marshal(d.Analysis)
	if err != nil {
		return nil, err
	}
	return &models.AnalysisRecord{
		ID:           d.ID,
		Kind:         models.ConversationKind(d.Type),
		Analysis:     datatypes.JSON(b),
		MessageCount: d.MessageCount,
		Outcome:      d.Outcome,
		Sentiment:    d.Sentiment,
		Tags:         d.Tags,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

type analysisRepo struct {
	client *mongo.Client
	col    *mongo.Collection
}

func NewAnalysisRepo(db *mongo.Database) repositories.AnalysisRepository {
	return &analysisRepo{client: db.Client(), col: db.Collection(analysisCollection)}
}

func (r *analysisRepo) Get(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	var d analysisDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.record()
}

func (r *analysisRepo) Upsert(ctx context.Context, rec *models.AnalysisRecord) error {
	res, err := rec.Result()
	if err != nil {
		return err
	}
	now := rec.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	_, err = r.col.UpdateOne(ctx,
		bson.M{"_id": rec.ID},
		bson.M{
			"$set": bson.M{
				"analysis":      res,
				"message_count": rec.MessageCount,
				"outcome":       rec.Outcome,
				"sentiment":     rec.Sentiment,
				"tags":          []string(rec.Tags),
				"updated_at":    now,
			},
			"$setOnInsert": bson.M{
				"type":       string(rec.Kind),
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *analysisRepo) List(ctx context.Context, f repositories.AnalysisFilter) ([]models.AnalysisRecord, error) {
	filter := bson.M{}
	if f.Kind != "" {
		filter["type"] = string(f.Kind)
	}
	if f.Outcome != "" {
		filter["outcome"] = f.Outcome
	}
	if f.Sentiment != "" {
		filter["sentiment"] = f.Sentiment
	}
	if f.Tag != "" {
		filter["tags"] = f.Tag
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(f.EffectiveLimit()))

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []analysisDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.AnalysisRecord, 0, len(docs))
	for i := range docs {
		rec, err := docs[i].record()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (r *analysisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}
