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

func (mdb *MongodbRepo) InsertReview(ctx context.Context, review *Review) (*Review, error) {
	if err := review.BeforeCreate(); err != nil {
		return nil, fmt.Errorf("failed to prepare review for creation: %w", err)
	}
	col, err := mdb.GetCollection(ReviewColName)
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now

	_, err = col.InsertOne(ctx, review)
	if mongo.IsDuplicateKeyError(err) {
		return nil, &ConflictError{Resource: "review", Detail: review.FoodTitle + " / " + review.Address}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert review into database: %w", err)
	}
	return review, nil
}

func (mdb *MongodbRepo) FindReviewByID(ctx context.Context, id primitive.ObjectID) (*Review, error) {
	col, err := mdb.GetCollection(ReviewColName)
	if err != nil {
		return nil, err
	}

	var review Review
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&review)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return &review, nil
}

func (mdb *MongodbRepo) FindReviewByFoodname(ctx context.Context, foodname string) (*Review, error) {
	col, err := mdb.GetCollection(ReviewColName)
	if err != nil {
		return nil, err
	}

	var review Review
	err = col.FindOne(ctx, bson.M{"foodname": foodname}).Decode(&review)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find review by foodname: %w", err)
	}
	return &review, nil
}

func (mdb *MongodbRepo) FindReviewByAccountAndPlace(ctx context.Context, account uuid.UUID, titleKey, addressKey string) (*Review, error) {
	col, err := mdb.GetCollection(ReviewColName)
	if err != nil {
		return nil, err
	}

	var review Review
	err = col.FindOne(ctx, bson.M{
		"account":     account,
		"title_key":   titleKey,
		"address_key": addressKey,
	}).Decode(&review)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find review by account and place: %w", err)
	}
	return &review, nil
}

func (mdb *MongodbRepo) UpdateReview(ctx context.Context, review *Review) error {
	col, err := mdb.GetCollection(ReviewColName)
	if err != nil {
		return err
	}

	review.UpdatedAt = time.Now()
	res, err := col.ReplaceOne(ctx, bson.M{"_id": review.ID}, review)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (mdb *MongodbRepo) DeleteReview(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(ReviewColName)
	if err != nil {
		return err
	}

	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (mdb *MongodbRepo) ListReviewsByAccount(ctx context.Context, account uuid.UUID) ([]*Review, error) {
	col, err := mdb.GetCollection(ReviewColName)
	if err != nil {
		return nil, err
	}

	cursor, err := col.Find(ctx, bson.M{"account": account}, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var reviews []*Review
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	return reviews, nil
}
