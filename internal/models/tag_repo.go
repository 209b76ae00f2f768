package models

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (mdb *MongodbRepo) FindTagByID(ctx context.Context, id primitive.ObjectID) (*Tag, error) {
	col, err := mdb.GetCollection(TagColName)
	if err != nil {
		return nil, err
	}

	var tag Tag
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&tag)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tag: %w", err)
	}
	return &tag, nil
}

func (mdb *MongodbRepo) FindTagByName(ctx context.Context, name string) (*Tag, error) {
	col, err := mdb.GetCollection(TagColName)
	if err != nil {
		return nil, err
	}

	var tag Tag
	err = col.FindOne(ctx, bson.M{"name": name}).Decode(&tag)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tag by name: %w", err)
	}
	return &tag, nil
}

func (mdb *MongodbRepo) InsertTag(ctx context.Context, tag *Tag) (*Tag, error) {
	if err := tag.BeforeCreate(); err != nil {
		return nil, fmt.Errorf("failed to prepare tag for creation: %w", err)
	}
	col, err := mdb.GetCollection(TagColName)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	_, err = col.InsertOne(ctx, tag)
	if mongo.IsDuplicateKeyError(err) {
		return nil, &ConflictError{Resource: "tag", Detail: tag.Name}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert tag into database: %w", err)
	}
	return tag, nil
}

func (mdb *MongodbRepo) IncrementTagCount(ctx context.Context, id primitive.ObjectID, delta int) (*Tag, error) {
	col, err := mdb.GetCollection(TagColName)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var tag Tag
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{"count": delta, "version": 1}}, opts).Decode(&tag)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to adjust tag count: %w", err)
	}
	return &tag, nil
}

// DeleteTagIfEmpty garbage-collects a drained tag. The filter re-checks the
// emptiness condition so a concurrent increment keeps the tag alive.
func (mdb *MongodbRepo) DeleteTagIfEmpty(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(TagColName)
	if err != nil {
		return err
	}

	_, err = col.DeleteOne(ctx, bson.M{
		"_id":   id,
		"count": bson.M{"$lte": 0},
		"main":  bson.M{"$ne": true},
	})
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) ListTags(ctx context.Context) ([]*Tag, error) {
	col, err := mdb.GetCollection(TagColName)
	if err != nil {
		return nil, err
	}

	cursor, err := col.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"count": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer cursor.Close(ctx)

	var tags []*Tag
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}
