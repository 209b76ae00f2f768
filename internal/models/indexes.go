package models

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the unique indexes the engine's invariants lean on:
// one review per (account, restaurant), one bucket per (title, address), one
// tag per normalized name. Duplicate inserts surface as ConflictError rather
// than silently merging.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	reviews, err := mdb.GetCollection(ReviewColName)
	if err != nil {
		return err
	}
	_, err = reviews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account", Value: 1}, {Key: "title_key", Value: 1}, {Key: "address_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "foodname", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "food", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create review indexes: %w", err)
	}

	food, err := mdb.GetCollection(FoodColName)
	if err != nil {
		return err
	}
	_, err = food.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "title_key", Value: 1}, {Key: "address_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "foodname", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "pts", Value: -1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create food indexes: %w", err)
	}

	tags, err := mdb.GetCollection(TagColName)
	if err != nil {
		return err
	}
	_, err = tags.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create tag indexes: %w", err)
	}

	saved, err := mdb.GetCollection(SavedColName)
	if err != nil {
		return err
	}
	_, err = saved.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create saved food indexes: %w", err)
	}
	return nil
}
