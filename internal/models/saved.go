package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const SavedColName = "saved_food"

type SavedItem struct {
	FoodID  primitive.ObjectID `bson:"food_id" json:"food_id"`
	AddedAt time.Time          `bson:"added_at" json:"added_at"`
}

// SavedFood is one user's bookmark set, one document per user with the
// saved buckets keyed by food id hex.
type SavedFood struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID    uuid.UUID            `bson:"user_id" json:"user_id" validate:"required"`
	Items     map[string]SavedItem `bson:"items" json:"items"`
	CreatedAt time.Time            `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time            `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

func (s *SavedFood) BeforeCreate() error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	return nil
}

type SavedRepo interface {
	// AddSavedFood records the bookmark and reports whether it was newly
	// added (false when the user had already saved this bucket).
	AddSavedFood(ctx context.Context, userId uuid.UUID, foodId primitive.ObjectID) (bool, error)
	// RemoveSavedFood reports whether a bookmark was actually removed.
	RemoveSavedFood(ctx context.Context, userId uuid.UUID, foodId primitive.ObjectID) (bool, error)
	IsFoodSaved(ctx context.Context, userId uuid.UUID, foodId primitive.ObjectID) (bool, error)
	GetSavedFoodByUserID(ctx context.Context, userId uuid.UUID) (*SavedFood, error)
}
