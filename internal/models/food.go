package models

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const FoodColName = "food"

// Food is the denormalized aggregate for one physical restaurant, keyed by
// the normalized (title, address) pair. Its seven numeric fields hold the
// arithmetic mean over all attached reviews, maintained incrementally —
// never recomputed by scanning reviews.
type Food struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Foodname string             `bson:"foodname" json:"foodname"`

	FoodTitle  string `bson:"food_title" json:"foodTitle"`
	Address    string `bson:"address" json:"address"`
	TitleKey   string `bson:"title_key" json:"-"`
	AddressKey string `bson:"address_key" json:"-"`

	Price         float64 `bson:"price" json:"price"`
	Pts           float64 `bson:"pts" json:"pts"`
	PtsTaste      float64 `bson:"pts_taste" json:"ptsTaste"`
	PtsAppearance float64 `bson:"pts_appearance" json:"ptsAppearance"`
	PtsTexture    float64 `bson:"pts_texture" json:"ptsTexture"`
	PtsAroma      float64 `bson:"pts_aroma" json:"ptsAroma"`
	PtsBalance    float64 `bson:"pts_balance" json:"ptsBalance"`

	ReviewCount int                  `bson:"review_count" json:"reviewCount"`
	Reviews     []primitive.ObjectID `bson:"reviews" json:"reviews"`

	// TagCounts maps tag id (hex) to the number of attached reviews carrying
	// that tag. Local popularity only; the global Tag.Count lives in the
	// shared vocabulary.
	TagCounts map[string]int       `bson:"tag_counts" json:"tagCounts"`
	Tags      []primitive.ObjectID `bson:"tags" json:"tags"`

	Photos     []string `bson:"photos" json:"photos"`
	SavedCount int      `bson:"saved_count" json:"savedCount"`

	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"created_at,omitempty" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updatedAt"`
}

func (f *Food) BeforeCreate() error {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	return nil
}

// HasReview reports whether the review is currently attached to this bucket.
func (f *Food) HasReview(id primitive.ObjectID) bool {
	for _, r := range f.Reviews {
		if r == id {
			return true
		}
	}
	return false
}

// SetScores writes the seven numeric means back, price first, in the same
// order Review.Scores produces them.
func (f *Food) SetScores(s [7]float64) {
	f.Price = s[0]
	f.Pts = s[1]
	f.PtsTaste = s[2]
	f.PtsAppearance = s[3]
	f.PtsTexture = s[4]
	f.PtsAroma = s[5]
	f.PtsBalance = s[6]
}

func (f *Food) Scores() [7]float64 {
	return [7]float64{f.Price, f.Pts, f.PtsTaste, f.PtsAppearance, f.PtsTexture, f.PtsAroma, f.PtsBalance}
}

// CollapseSpace trims and collapses runs of whitespace to single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeKey derives the lookup key used to group reviews into buckets:
// whitespace-collapsed and lowercased, so "Cafe  X " and "cafe x" land on
// the same restaurant.
func NormalizeKey(s string) string {
	return strings.ToLower(CollapseSpace(s))
}

// BucketKey is the per-bucket serialization key for the lock manager. It is
// derived from the restaurant identity rather than the document id so that
// create-if-absent races on the same restaurant serialize too.
func BucketKey(titleKey, addressKey string) string {
	return "food:" + titleKey + "|" + addressKey
}

// FoodFilter narrows ListFood. Zero-valued bounds are ignored.
type FoodFilter struct {
	MinPts   float64
	MaxPts   float64
	MinPrice float64
	MaxPrice float64
	Offset   int
	Limit    int
}

type FoodRepo interface {
	// InsertFood persists a fresh bucket. A duplicate (titleKey, addressKey)
	// or foodname must fail with a ConflictError, never merge.
	InsertFood(ctx context.Context, food *Food) (*Food, error)
	FindFoodByID(ctx context.Context, id primitive.ObjectID) (*Food, error)
	FindFoodByKey(ctx context.Context, titleKey, addressKey string) (*Food, error)
	FindFoodByFoodname(ctx context.Context, foodname string) (*Food, error)
	// UpdateFood is an optimistic write: it matches on the food's current
	// Version, bumps it, and fails with a ConcurrencyError when another
	// writer got there first.
	UpdateFood(ctx context.Context, food *Food) error
	DeleteFood(ctx context.Context, id primitive.ObjectID) error
	ListFood(ctx context.Context, filter FoodFilter) ([]*Food, int, error)
	// AdjustSavedCount atomically bumps the save counter.
	AdjustSavedCount(ctx context.Context, id primitive.ObjectID, delta int) (*Food, error)
}
