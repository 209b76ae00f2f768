package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ReviewColName = "reviews"

// Review is one person's evaluation of one restaurant. The (Account,
// TitleKey, AddressKey) triple is unique: a user holds at most one active
// review per restaurant.
type Review struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Food     primitive.ObjectID `bson:"food" json:"food"`
	Foodname string             `bson:"foodname" json:"foodname"`

	FoodTitle  string `bson:"food_title" json:"foodTitle" validate:"required"`
	Address    string `bson:"address" json:"address" validate:"required"`
	TitleKey   string `bson:"title_key" json:"-"`
	AddressKey string `bson:"address_key" json:"-"`

	Account uuid.UUID `bson:"account" json:"account"`

	Price         float64 `bson:"price" json:"price" validate:"gte=0"`
	Pts           float64 `bson:"pts" json:"pts" validate:"gte=0,lte=10"`
	PtsTaste      float64 `bson:"pts_taste" json:"ptsTaste" validate:"gte=0,lte=10"`
	PtsAppearance float64 `bson:"pts_appearance" json:"ptsAppearance" validate:"gte=0,lte=10"`
	PtsTexture    float64 `bson:"pts_texture" json:"ptsTexture" validate:"gte=0,lte=10"`
	PtsAroma      float64 `bson:"pts_aroma" json:"ptsAroma" validate:"gte=0,lte=10"`
	PtsBalance    float64 `bson:"pts_balance" json:"ptsBalance" validate:"gte=0,lte=10"`

	Body   string               `bson:"review" json:"review" validate:"required"`
	Photos []string             `bson:"photos" json:"photos"`
	Tags   []primitive.ObjectID `bson:"tags" json:"tags"`

	// Maintained by the social surface, not by the aggregate engine.
	LikesCount   int                  `bson:"likes_count" json:"likesCount"`
	FlaggedCount int                  `bson:"flagged_count" json:"flaggedCount"`
	Comments     []primitive.ObjectID `bson:"comments,omitempty" json:"comments,omitempty"`

	CreatedAt time.Time `bson:"created_at,omitempty" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updatedAt"`
}

func (r *Review) BeforeCreate() error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	return nil
}

// Scores returns the seven numeric fields a review contributes to its
// bucket, price first.
func (r *Review) Scores() [7]float64 {
	return [7]float64{r.Price, r.Pts, r.PtsTaste, r.PtsAppearance, r.PtsTexture, r.PtsAroma, r.PtsBalance}
}

// ReviewSnapshot captures the numeric and tag contribution of a review before
// an edit, so the bucket manager can replace the old sample with the new one.
type ReviewSnapshot struct {
	Price         float64
	Pts           float64
	PtsTaste      float64
	PtsAppearance float64
	PtsTexture    float64
	PtsAroma      float64
	PtsBalance    float64
	Tags          []primitive.ObjectID
}

func (r *Review) Snapshot() *ReviewSnapshot {
	tags := make([]primitive.ObjectID, len(r.Tags))
	copy(tags, r.Tags)
	return &ReviewSnapshot{
		Price:         r.Price,
		Pts:           r.Pts,
		PtsTaste:      r.PtsTaste,
		PtsAppearance: r.PtsAppearance,
		PtsTexture:    r.PtsTexture,
		PtsAroma:      r.PtsAroma,
		PtsBalance:    r.PtsBalance,
		Tags:          tags,
	}
}

func (s *ReviewSnapshot) Scores() [7]float64 {
	return [7]float64{s.Price, s.Pts, s.PtsTaste, s.PtsAppearance, s.PtsTexture, s.PtsAroma, s.PtsBalance}
}

type ReviewRepo interface {
	InsertReview(ctx context.Context, review *Review) (*Review, error)
	FindReviewByID(ctx context.Context, id primitive.ObjectID) (*Review, error)
	FindReviewByFoodname(ctx context.Context, foodname string) (*Review, error)
	// FindReviewByAccountAndPlace backs the one-review-per-restaurant rule.
	FindReviewByAccountAndPlace(ctx context.Context, account uuid.UUID, titleKey, addressKey string) (*Review, error)
	UpdateReview(ctx context.Context, review *Review) error
	DeleteReview(ctx context.Context, id primitive.ObjectID) error
	ListReviewsByAccount(ctx context.Context, account uuid.UUID) ([]*Review, error)
}
