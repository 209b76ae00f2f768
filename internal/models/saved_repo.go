package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (mdb *MongodbRepo) AddSavedFood(ctx context.Context, userId uuid.UUID, foodId primitive.ObjectID) (bool, error) {
	col, err := mdb.GetCollection(SavedColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	key := foodId.Hex()
	now := time.Now()

	// Match only documents that don't already hold the item, so the caller
	// can tell a fresh save from a repeat.
	filter := bson.M{
		"user_id":      userId,
		"items." + key: bson.M{"$exists": false},
	}
	update := bson.M{
		"$set": bson.M{
			"updated_at":   now,
			"items." + key: SavedItem{FoodID: foodId, AddedAt: now},
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	}

	res, err := col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// Upsert raced with an existing user document that already has the
		// item; nothing to add.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to save food: %w", err)
	}
	return res.ModifiedCount > 0 || res.UpsertedCount > 0, nil
}

func (mdb *MongodbRepo) RemoveSavedFood(ctx context.Context, userId uuid.UUID, foodId primitive.ObjectID) (bool, error) {
	col, err := mdb.GetCollection(SavedColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	key := foodId.Hex()
	update := bson.M{
		"$unset": bson.M{"items." + key: ""},
		"$set":   bson.M{"updated_at": time.Now()},
	}

	res, err := col.UpdateOne(ctx, bson.M{"user_id": userId, "items." + key: bson.M{"$exists": true}}, update)
	if err != nil {
		return false, fmt.Errorf("failed to unsave food: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (mdb *MongodbRepo) IsFoodSaved(ctx context.Context, userId uuid.UUID, foodId primitive.ObjectID) (bool, error) {
	col, err := mdb.GetCollection(SavedColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	count, err := col.CountDocuments(ctx, bson.M{"user_id": userId, "items." + foodId.Hex(): bson.M{"$exists": true}})
	if err != nil {
		return false, fmt.Errorf("failed to check saved food: %w", err)
	}
	return count > 0, nil
}

func (mdb *MongodbRepo) GetSavedFoodByUserID(ctx context.Context, userId uuid.UUID) (*SavedFood, error) {
	col, err := mdb.GetCollection(SavedColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var saved SavedFood
	err = col.FindOne(ctx, bson.M{"user_id": userId}).Decode(&saved)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &SavedFood{UserID: userId, Items: map[string]SavedItem{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saved food: %w", err)
	}
	return &saved, nil
}
