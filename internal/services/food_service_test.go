package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/matjip-app/api/internal/models"
)

func newFoodFixture(t *testing.T) (*FoodService, models.Store, *models.Review) {
	t.Helper()
	store := models.NewMemoryRepo()
	rs := newReviewService(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r, err := rs.CreateReview(context.Background(), uuid.New(), reviewInput("Cafe X", "1 Main St", 10, 7))
	if err != nil {
		t.Fatal(err)
	}
	return NewFoodService(store, logger), store, r
}

func TestSaveFoodCountsOncePerUser(t *testing.T) {
	fs, store, review := newFoodFixture(t)
	ctx := context.Background()
	user := uuid.New()

	food, err := store.FindFoodByID(ctx, review.Food)
	if err != nil {
		t.Fatal(err)
	}

	saved, err := fs.SaveFood(ctx, user, food.Foodname)
	if err != nil {
		t.Fatal(err)
	}
	if saved.SavedCount != 1 {
		t.Fatalf("savedCount = %d after first save, want 1", saved.SavedCount)
	}

	// Saving again is a no-op on the counter.
	saved, err = fs.SaveFood(ctx, user, food.Foodname)
	if err != nil {
		t.Fatal(err)
	}
	if saved.SavedCount != 1 {
		t.Errorf("savedCount = %d after repeat save, want 1", saved.SavedCount)
	}

	if ok, err := fs.IsFoodSaved(ctx, user, food.Foodname); err != nil || !ok {
		t.Errorf("IsFoodSaved = %v, %v, want true", ok, err)
	}

	set, err := fs.GetSavedFood(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := set.Items[food.ID.Hex()]; !ok {
		t.Errorf("bookmark set missing the bucket: %v", set.Items)
	}
}

func TestUnsaveFood(t *testing.T) {
	fs, store, review := newFoodFixture(t)
	ctx := context.Background()
	user := uuid.New()

	food, err := store.FindFoodByID(ctx, review.Food)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := fs.SaveFood(ctx, user, food.Foodname); err != nil {
		t.Fatal(err)
	}
	unsaved, err := fs.UnsaveFood(ctx, user, food.Foodname)
	if err != nil {
		t.Fatal(err)
	}
	if unsaved.SavedCount != 0 {
		t.Fatalf("savedCount = %d after unsave, want 0", unsaved.SavedCount)
	}

	// Unsaving something never saved leaves the counter alone.
	unsaved, err = fs.UnsaveFood(ctx, uuid.New(), food.Foodname)
	if err != nil {
		t.Fatal(err)
	}
	if unsaved.SavedCount != 0 {
		t.Errorf("savedCount = %d after stranger unsave, want 0", unsaved.SavedCount)
	}
}

func TestSaveFoodUnknownBucket(t *testing.T) {
	fs, _, _ := newFoodFixture(t)
	_, err := fs.SaveFood(context.Background(), uuid.New(), "no-such-foodname")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListFoodFilters(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fs := NewFoodService(store, logger)
	ctx := context.Background()

	seeds := []struct {
		title string
		price float64
		pts   float64
	}{
		{"Cafe A", 5, 3},
		{"Cafe B", 15, 6},
		{"Cafe C", 30, 9},
	}
	for _, s := range seeds {
		if _, err := rs.CreateReview(ctx, uuid.New(), reviewInput(s.title, "1 Main St", s.price, s.pts)); err != nil {
			t.Fatal(err)
		}
	}

	food, total, err := fs.ListFood(ctx, models.FoodFilter{MinPts: 5, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(food) != 2 {
		t.Fatalf("minPts=5: total=%d len=%d, want 2/2", total, len(food))
	}
	// Sorted best-first.
	if food[0].Pts < food[1].Pts {
		t.Errorf("results not sorted by pts desc: %v, %v", food[0].Pts, food[1].Pts)
	}

	_, total, err = fs.ListFood(ctx, models.FoodFilter{MinPrice: 10, MaxPrice: 20, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("price band 10..20: total=%d, want 1", total)
	}

	food, total, err = fs.ListFood(ctx, models.FoodFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(food) != 1 {
		t.Errorf("pagination: total=%d len=%d, want 3/1", total, len(food))
	}
}
