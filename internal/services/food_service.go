package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/matjip-app/api/internal/models"
)

// FoodService serves the read side of the Food aggregate plus the bookmark
// counters. All bucket mutation goes through the ReviewService.
type FoodService struct {
	store  models.Store
	logger *slog.Logger
}

func NewFoodService(store models.Store, logger *slog.Logger) *FoodService {
	return &FoodService{
		store:  store,
		logger: logger,
	}
}

// GetFoodBucket looks up the aggregate for a (title, address) pair.
func (fs *FoodService) GetFoodBucket(ctx context.Context, title, address string) (*models.Food, error) {
	return fs.store.FindFoodByKey(ctx, models.NormalizeKey(title), models.NormalizeKey(address))
}

func (fs *FoodService) GetFoodByFoodname(ctx context.Context, foodname string) (*models.Food, error) {
	return fs.store.FindFoodByFoodname(ctx, foodname)
}

func (fs *FoodService) ListFood(ctx context.Context, filter models.FoodFilter) ([]*models.Food, int, error) {
	return fs.store.ListFood(ctx, filter)
}

// SaveFood bookmarks the bucket for the user, bumping its saved counter only
// when the bookmark is new.
func (fs *FoodService) SaveFood(ctx context.Context, userId uuid.UUID, foodname string) (*models.Food, error) {
	food, err := fs.store.FindFoodByFoodname(ctx, foodname)
	if err != nil {
		return nil, err
	}

	added, err := fs.store.AddSavedFood(ctx, userId, food.ID)
	if err != nil {
		return nil, err
	}
	if !added {
		return food, nil
	}
	return fs.store.AdjustSavedCount(ctx, food.ID, 1)
}

func (fs *FoodService) UnsaveFood(ctx context.Context, userId uuid.UUID, foodname string) (*models.Food, error) {
	food, err := fs.store.FindFoodByFoodname(ctx, foodname)
	if err != nil {
		return nil, err
	}

	removed, err := fs.store.RemoveSavedFood(ctx, userId, food.ID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return food, nil
	}
	return fs.store.AdjustSavedCount(ctx, food.ID, -1)
}

// GetSavedFood returns the user's bookmark set.
func (fs *FoodService) GetSavedFood(ctx context.Context, userId uuid.UUID) (*models.SavedFood, error) {
	return fs.store.GetSavedFoodByUserID(ctx, userId)
}

func (fs *FoodService) IsFoodSaved(ctx context.Context, userId uuid.UUID, foodname string) (bool, error) {
	food, err := fs.store.FindFoodByFoodname(ctx, foodname)
	if err != nil {
		return false, err
	}
	return fs.store.IsFoodSaved(ctx, userId, food.ID)
}
