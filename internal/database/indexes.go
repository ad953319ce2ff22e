package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection = "users"
	CardsCollection = "visiting_cards"

	// Index names are matched when classifying duplicate key errors.
	UniqueEmailIndex    = "uniq_email"
	UniqueUsernameIndex = "uniq_username"
)

// EnsureIndexes creates the unique identity indexes and the per-owner card listing index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(UniqueEmailIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(UniqueUsernameIndex).SetUnique(true),
		},
	}
	if _, err := db.Collection(UsersCollection).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return err
	}

	cardIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_owner_created"),
		},
	}
	_, err := db.Collection(CardsCollection).Indexes().CreateMany(ctx, cardIndexes)
	return err
}
