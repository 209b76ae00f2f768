package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (mdb *MongodbRepo) InsertFood(ctx context.Context, food *Food) (*Food, error) {
	if err := food.BeforeCreate(); err != nil {
		return nil, fmt.Errorf("failed to prepare food for creation: %w", err)
	}
	col, err := mdb.GetCollection(FoodColName)
	if err != nil {
		return nil, fmt.Errorf("failed to create food: %w", err)
	}

	now := time.Now()
	food.CreatedAt = now
	food.UpdatedAt = now

	_, err = col.InsertOne(ctx, food)
	if mongo.IsDuplicateKeyError(err) {
		return nil, &ConflictError{Resource: "food", Detail: food.FoodTitle + " / " + food.Address}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert food into database: %w", err)
	}
	return food, nil
}

func (mdb *MongodbRepo) FindFoodByID(ctx context.Context, id primitive.ObjectID) (*Food, error) {
	col, err := mdb.GetCollection(FoodColName)
	if err != nil {
		return nil, err
	}

	var food Food
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&food)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find food: %w", err)
	}
	return &food, nil
}

func (mdb *MongodbRepo) FindFoodByKey(ctx context.Context, titleKey, addressKey string) (*Food, error) {
	col, err := mdb.GetCollection(FoodColName)
	if err != nil {
		return nil, err
	}

	var food Food
	err = col.FindOne(ctx, bson.M{"title_key": titleKey, "address_key": addressKey}).Decode(&food)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find food by key: %w", err)
	}
	return &food, nil
}

func (mdb *MongodbRepo) FindFoodByFoodname(ctx context.Context, foodname string) (*Food, error) {
	col, err := mdb.GetCollection(FoodColName)
	if err != nil {
		return nil, err
	}

	var food Food
	err = col.FindOne(ctx, bson.M{"foodname": foodname}).Decode(&food)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find food by foodname: %w", err)
	}
	return &food, nil
}

// UpdateFood writes the whole document guarded by its version: the filter
// matches the version the caller read, so a concurrent writer makes this a
// no-match and the caller gets a ConcurrencyError to retry on.
func (mdb *MongodbRepo) UpdateFood(ctx context.Context, food *Food) error {
	col, err := mdb.GetCollection(FoodColName)
	if err != nil {
		return err
	}

	readVersion := food.Version
	food.Version = readVersion + 1
	food.UpdatedAt = time.Now()

	res, err := col.ReplaceOne(ctx, bson.M{"_id": food.ID, "version": readVersion}, food)
	if err != nil {
		food.Version = readVersion
		return fmt.Errorf("failed to update food: %w", err)
	}
	if res.MatchedCount == 0 {
		food.Version = readVersion
		// Distinguish a lost race from a vanished bucket.
		count, countErr := col.CountDocuments(ctx, bson.M{"_id": food.ID})
		if countErr == nil && count == 0 {
			return ErrNotFound
		}
		return &ConcurrencyError{Resource: "food " + food.Foodname}
	}
	return nil
}

func (mdb *MongodbRepo) DeleteFood(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(FoodColName)
	if err != nil {
		return err
	}

	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete food: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (mdb *MongodbRepo) ListFood(ctx context.Context, filter FoodFilter) ([]*Food, int, error) {
	col, err := mdb.GetCollection(FoodColName)
	if err != nil {
		return nil, 0, err
	}

	query := bson.M{}
	pts := bson.M{}
	if filter.MinPts > 0 {
		pts["$gte"] = filter.MinPts
	}
	if filter.MaxPts > 0 {
		pts["$lte"] = filter.MaxPts
	}
	if len(pts) > 0 {
		query["pts"] = pts
	}
	price := bson.M{}
	if filter.MinPrice > 0 {
		price["$gte"] = filter.MinPrice
	}
	if filter.MaxPrice > 0 {
		price["$lte"] = filter.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}

	total, err := col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count food: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 12
	}
	opts := options.Find().
		SetSort(bson.M{"pts": -1}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(limit))

	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list food: %w", err)
	}
	defer cursor.Close(ctx)

	var food []*Food
	if err := cursor.All(ctx, &food); err != nil {
		return nil, 0, fmt.Errorf("failed to decode food: %w", err)
	}
	return food, int(total), nil
}

func (mdb *MongodbRepo) AdjustSavedCount(ctx context.Context, id primitive.ObjectID, delta int) (*Food, error) {
	col, err := mdb.GetCollection(FoodColName)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var food Food
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"saved_count": delta}}, opts).Decode(&food)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to adjust saved count: %w", err)
	}
	return &food, nil
}
