package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const UsersCollection = "users"

// EnsureUserIndexes creates the unique identity indexes. Index names
// (email_1, username_1) show up in duplicate-key errors and are used to tell
// which field collided.
func EnsureUserIndexes(ctx context.Context, database *mongo.Database) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_1"),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("username_1"),
		},
	}

	_, err := database.Collection(UsersCollection).Indexes().CreateMany(ctx, models)

	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	return nil
}
