package config

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const AnalysisCollection = "conversation_analysis"

// EnsureAnalysisIndexes creates the listing indexes on the analysis collection.
// The primary key is _id, so no unique index is needed for the id.
func EnsureAnalysisIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := db.Collection(AnalysisCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("by_updated"),
		},
		{
			Keys:    bson.D{{Key: "outcome", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("by_outcome_updated"),
		},
		{
			Keys:    bson.D{{Key: "sentiment", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("by_sentiment_updated"),
		},
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index().SetName("by_tags"),
		},
	})
	return err
}
