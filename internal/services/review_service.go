package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/matjip-app/api/internal/aggregate"
	"github.com/matjip-app/api/internal/helpers"
	"github.com/matjip-app/api/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	writeAttempts = 3
	retryBackoff  = 25 * time.Millisecond
)

// ReviewService coordinates the full lifecycle of a review: tag
// reconciliation, bucket attach/detach, and persistence, in that order, with
// per-bucket serialization so concurrent writers never fold stale counts
// into a mean.
type ReviewService struct {
	store  models.Store
	tags   *TagService
	locks  *aggregate.KeyLock
	logger *slog.Logger
	cld    *cloudinary.Cloudinary
}

func NewReviewService(store models.Store, tags *TagService, locks *aggregate.KeyLock, logger *slog.Logger, cld *cloudinary.Cloudinary) *ReviewService {
	return &ReviewService{
		store:  store,
		tags:   tags,
		locks:  locks,
		logger: logger,
		cld:    cld,
	}
}

// ReviewInput carries the caller-supplied fields of a create or update.
type ReviewInput struct {
	FoodTitle string  `json:"foodTitle" validate:"required"`
	Address   string  `json:"address" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`

	Pts           float64 `json:"pts" validate:"gte=0,lte=10"`
	PtsTaste      float64 `json:"ptsTaste" validate:"gte=0,lte=10"`
	PtsAppearance float64 `json:"ptsAppearance" validate:"gte=0,lte=10"`
	PtsTexture    float64 `json:"ptsTexture" validate:"gte=0,lte=10"`
	PtsAroma      float64 `json:"ptsAroma" validate:"gte=0,lte=10"`
	PtsBalance    float64 `json:"ptsBalance" validate:"gte=0,lte=10"`

	Review string   `json:"review" validate:"required"`
	Photos []string `json:"photos"`
	Tags   []string `json:"tags"`
}

func (in *ReviewInput) sanitize() {
	in.FoodTitle = models.CollapseSpace(in.FoodTitle)
	in.Address = models.CollapseSpace(in.Address)
	in.Review = strings.TrimSpace(in.Review)
	in.Photos = helpers.RemoveDuplicates(in.Photos)
	in.Tags = helpers.RemoveDuplicates(in.Tags)
}

func (in *ReviewInput) validate() error {
	err := models.Validate.Struct(in)
	if err == nil {
		return nil
	}

	verr := models.NewValidationError()
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), fmt.Sprintf("failed on %q", fe.Tag()))
		}
		return verr
	}
	verr.Add("input", err.Error())
	return verr
}

// CreateReview rejects a duplicate (account, restaurant) review, resolves
// or creates the target bucket, reconciles tags from the empty set, attaches
// the review as a fresh sample, and persists Food first, Review second.
func (rs *ReviewService) CreateReview(ctx context.Context, account uuid.UUID, input *ReviewInput) (*models.Review, error) {
	input.sanitize()
	if err := input.validate(); err != nil {
		return nil, err
	}
	titleKey := models.NormalizeKey(input.FoodTitle)
	addressKey := models.NormalizeKey(input.Address)

	unlock := rs.locks.Lock(models.BucketKey(titleKey, addressKey))
	defer unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, err := rs.store.FindReviewByAccountAndPlace(ctx, account, titleKey, addressKey)
	if err == nil {
		return nil, &models.ConflictError{Resource: "review", Detail: input.FoodTitle + " / " + input.Address}
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	photos, err := rs.resolvePhotos(ctx, input.Photos)
	if err != nil {
		return nil, err
	}

	finalTags, _, err := rs.tags.Reconcile(ctx, nil, input.Tags)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		Foodname:   helpers.GenerateSlug(input.FoodTitle, input.Address),
		FoodTitle:  input.FoodTitle,
		Address:    input.Address,
		TitleKey:   titleKey,
		AddressKey: addressKey,
		Account:    account,
		Photos:     photos,
		Tags:       finalTags,
		Body:       input.Review,
	}
	applyScores(review, input)
	if err := review.BeforeCreate(); err != nil {
		return nil, err
	}

	if err := rs.attachToBucket(ctx, review, titleKey, addressKey); err != nil {
		rs.releaseTags(ctx, finalTags)
		return nil, err
	}

	if _, err := rs.store.InsertReview(ctx, review); err != nil {
		// Compensation must not die with the caller's context.
		comp := context.WithoutCancel(ctx)
		if derr := rs.detachFromBucket(comp, review); derr != nil {
			rs.logger.Error("bucket rollback failed after review insert failure", "review_id", review.ID.Hex(), "error", derr)
		}
		rs.releaseTags(comp, finalTags)
		return nil, err
	}
	return review, nil
}

// UpdateReview applies an owner's edit. Same restaurant identity takes the
// replace-sample path against the same bucket; a changed identity detaches
// the review from its old bucket and attaches it to the target as a brand-
// new sample. Tag reconciliation is identical either way.
func (rs *ReviewService) UpdateReview(ctx context.Context, reviewID primitive.ObjectID, account uuid.UUID, input *ReviewInput) (*models.Review, error) {
	input.sanitize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	stored, err := rs.store.FindReviewByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if stored.Account != account {
		return nil, models.ErrForbidden
	}

	newTitleKey := models.NormalizeKey(input.FoodTitle)
	newAddressKey := models.NormalizeKey(input.Address)
	sameBucket := stored.TitleKey == newTitleKey && stored.AddressKey == newAddressKey

	var unlock func()
	if sameBucket {
		unlock = rs.locks.Lock(models.BucketKey(stored.TitleKey, stored.AddressKey))
	} else {
		unlock = rs.locks.LockAll(
			models.BucketKey(stored.TitleKey, stored.AddressKey),
			models.BucketKey(newTitleKey, newAddressKey),
		)
	}
	defer unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Re-read under the lock; the review may have moved before we held it.
	fresh, err := rs.store.FindReviewByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if fresh.TitleKey != stored.TitleKey || fresh.AddressKey != stored.AddressKey {
		// The review changed buckets while we were acquiring locks, so the
		// keys we hold no longer cover it.
		return nil, &models.ConcurrencyError{Resource: "review " + reviewID.Hex()}
	}
	stored = fresh

	if !sameBucket {
		existing, err := rs.store.FindReviewByAccountAndPlace(ctx, account, newTitleKey, newAddressKey)
		if err == nil && existing.ID != reviewID {
			return nil, &models.ConflictError{Resource: "review", Detail: input.FoodTitle + " / " + input.Address}
		}
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
	}

	photos, err := rs.resolvePhotos(ctx, input.Photos)
	if err != nil {
		return nil, err
	}

	finalTags, drained, err := rs.tags.Reconcile(ctx, stored.Tags, input.Tags)
	if err != nil {
		return nil, err
	}

	prev := stored.Snapshot()
	updated := *stored
	updated.FoodTitle = input.FoodTitle
	updated.Address = input.Address
	updated.TitleKey = newTitleKey
	updated.AddressKey = newAddressKey
	updated.Photos = photos
	updated.Tags = finalTags
	updated.Body = input.Review
	applyScores(&updated, input)

	if sameBucket {
		err = rs.replaceInBucket(ctx, &updated, prev)
	} else {
		err = rs.moveBetweenBuckets(ctx, stored, &updated)
	}
	if err != nil {
		rs.rollbackTags(ctx, finalTags, stored.Tags)
		return nil, err
	}

	if err := rs.store.UpdateReview(ctx, &updated); err != nil {
		rs.logger.Error("review save failed after bucket update", "review_id", reviewID.Hex(), "error", err)
		// The stored review still carries its old identity and values, so
		// undo the bucket transition and the tag movement to match it. A
		// retry then starts from the pre-edit state.
		rs.undoBucketTransition(ctx, sameBucket, stored, &updated)
		rs.rollbackTags(ctx, finalTags, stored.Tags)
		return nil, err
	}
	rs.tags.Sweep(context.WithoutCancel(ctx), drained)
	return &updated, nil
}

// DeleteReview releases the review's tags, detaches it from its bucket
// (deleting the bucket when it empties), and removes the review record.
func (rs *ReviewService) DeleteReview(ctx context.Context, reviewID primitive.ObjectID, account uuid.UUID) error {
	stored, err := rs.store.FindReviewByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if stored.Account != account {
		return models.ErrForbidden
	}

	unlock := rs.locks.Lock(models.BucketKey(stored.TitleKey, stored.AddressKey))
	defer unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	fresh, err := rs.store.FindReviewByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if fresh.TitleKey != stored.TitleKey || fresh.AddressKey != stored.AddressKey {
		return &models.ConcurrencyError{Resource: "review " + reviewID.Hex()}
	}
	stored = fresh

	_, drained, err := rs.tags.Reconcile(ctx, stored.Tags, nil)
	if err != nil {
		return err
	}

	if err := rs.detachFromBucket(ctx, stored); err != nil {
		rs.rollbackTags(ctx, nil, stored.Tags)
		return err
	}

	if err := rs.store.DeleteReview(ctx, stored.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		// The review record survived, so put its bucket contribution and tag
		// references back; otherwise a retry would release them twice.
		comp := context.WithoutCancel(ctx)
		if aerr := rs.attachToBucket(comp, stored, stored.TitleKey, stored.AddressKey); aerr != nil {
			rs.logger.Error("bucket rollback failed after review delete failure", "review_id", stored.ID.Hex(), "error", aerr)
		} else if uerr := rs.store.UpdateReview(comp, stored); uerr != nil {
			// The bucket may have been recreated under a new id; the stored
			// review must point at it again.
			rs.logger.Error("failed to persist restored bucket ref", "review_id", stored.ID.Hex(), "error", uerr)
		}
		rs.rollbackTags(comp, nil, stored.Tags)
		return err
	}
	rs.tags.Sweep(context.WithoutCancel(ctx), drained)
	return nil
}

func (rs *ReviewService) GetReviewByFoodname(ctx context.Context, foodname string) (*models.Review, error) {
	return rs.store.FindReviewByFoodname(ctx, foodname)
}

func (rs *ReviewService) ListReviewsByAccount(ctx context.Context, account uuid.UUID) ([]*models.Review, error) {
	return rs.store.ListReviewsByAccount(ctx, account)
}

// attachToBucket finds or lazily creates the target bucket and folds the
// review in as a new sample. Retried against fresh reads on lost CAS races.
func (rs *ReviewService) attachToBucket(ctx context.Context, review *models.Review, titleKey, addressKey string) error {
	return rs.withRetry(ctx, func() error {
		food, err := rs.store.FindFoodByKey(ctx, titleKey, addressKey)
		if errors.Is(err, models.ErrNotFound) {
			food = &models.Food{
				Foodname:   helpers.GenerateSlug(review.FoodTitle, review.Address),
				FoodTitle:  review.FoodTitle,
				Address:    review.Address,
				TitleKey:   titleKey,
				AddressKey: addressKey,
				TagCounts:  map[string]int{},
			}
			aggregate.Attach(food, review, nil)
			inserted, insErr := rs.store.InsertFood(ctx, food)
			if models.IsConflict(insErr) {
				// Another writer created the bucket between our read and
				// insert; re-read and fold into it instead.
				return &models.ConcurrencyError{Resource: "food " + food.Foodname}
			}
			if insErr != nil {
				return insErr
			}
			review.Food = inserted.ID
			return nil
		}
		if err != nil {
			return err
		}

		if food.HasReview(review.ID) {
			// A previous attempt already folded this review in and failed
			// after the bucket write landed; membership marks it as applied.
			review.Food = food.ID
			return nil
		}

		aggregate.Attach(food, review, nil)
		if err := rs.store.UpdateFood(ctx, food); err != nil {
			return err
		}
		review.Food = food.ID
		return nil
	})
}

// replaceInBucket swaps the old sample for the new values in place.
func (rs *ReviewService) replaceInBucket(ctx context.Context, updated *models.Review, prev *models.ReviewSnapshot) error {
	return rs.withRetry(ctx, func() error {
		food, err := rs.store.FindFoodByID(ctx, updated.Food)
		if err != nil {
			return err
		}
		aggregate.Attach(food, updated, prev)
		return rs.store.UpdateFood(ctx, food)
	})
}

// moveBetweenBuckets detaches the stored review from its old bucket and
// attaches the updated review to its target, treating it as a fresh sample
// there. Both bucket keys are already held by the caller.
func (rs *ReviewService) moveBetweenBuckets(ctx context.Context, stored, updated *models.Review) error {
	if err := rs.detachFromBucket(ctx, stored); err != nil {
		return err
	}
	if err := rs.attachToBucket(ctx, updated, updated.TitleKey, updated.AddressKey); err != nil {
		// Re-attach to the old bucket so the detach isn't left half-applied.
		if reErr := rs.attachToBucket(context.WithoutCancel(ctx), stored, stored.TitleKey, stored.AddressKey); reErr != nil {
			rs.logger.Error("failed to restore review to old bucket", "review_id", stored.ID.Hex(), "error", reErr)
		}
		return err
	}
	return nil
}

// undoBucketTransition re-applies the review's previous identity and values
// to the buckets after the review document write failed, so stored state and
// bucket membership agree again.
func (rs *ReviewService) undoBucketTransition(ctx context.Context, sameBucket bool, stored, updated *models.Review) {
	ctx = context.WithoutCancel(ctx)
	if sameBucket {
		if err := rs.replaceInBucket(ctx, stored, updated.Snapshot()); err != nil {
			rs.logger.Error("bucket rollback failed after review save failure", "review_id", stored.ID.Hex(), "error", err)
		}
		return
	}
	if err := rs.detachFromBucket(ctx, updated); err != nil {
		rs.logger.Error("bucket rollback failed after review save failure", "review_id", stored.ID.Hex(), "error", err)
		return
	}
	if err := rs.attachToBucket(ctx, stored, stored.TitleKey, stored.AddressKey); err != nil {
		rs.logger.Error("failed to restore review to old bucket", "review_id", stored.ID.Hex(), "error", err)
		return
	}
	// The old bucket may have been recreated under a new id; the stored
	// review must point at it again.
	if err := rs.store.UpdateReview(ctx, stored); err != nil {
		rs.logger.Error("failed to persist restored bucket ref", "review_id", stored.ID.Hex(), "error", err)
	}
}

// detachFromBucket removes the review's contribution, deleting the bucket
// outright when this was its last review.
func (rs *ReviewService) detachFromBucket(ctx context.Context, review *models.Review) error {
	return rs.withRetry(ctx, func() error {
		food, err := rs.store.FindFoodByID(ctx, review.Food)
		if errors.Is(err, models.ErrNotFound) {
			// Bucket raced away under a concurrent delete; nothing to detach.
			return nil
		}
		if err != nil {
			return err
		}
		if !food.HasReview(review.ID) {
			return nil
		}
		if empty := aggregate.Detach(food, review); empty {
			err := rs.store.DeleteFood(ctx, food.ID)
			if errors.Is(err, models.ErrNotFound) {
				return nil
			}
			return err
		}
		return rs.store.UpdateFood(ctx, food)
	})
}

// releaseTags undoes a fresh reconciliation after a failed create.
func (rs *ReviewService) releaseTags(ctx context.Context, ids []primitive.ObjectID) {
	ctx = context.WithoutCancel(ctx)
	_, drained, err := rs.tags.Reconcile(ctx, ids, nil)
	if err != nil {
		rs.logger.Error("tag release failed during compensation", "error", err)
		return
	}
	rs.tags.Sweep(ctx, drained)
}

// rollbackTags reverts the vocabulary to the review's previous tag set.
func (rs *ReviewService) rollbackTags(ctx context.Context, applied, previous []primitive.ObjectID) {
	if err := rs.tags.ReconcileIDs(context.WithoutCancel(ctx), applied, previous); err != nil {
		rs.logger.Error("tag rollback failed during compensation", "error", err)
	}
}

func (rs *ReviewService) resolvePhotos(ctx context.Context, photos []string) ([]string, error) {
	if rs.cld == nil || len(photos) == 0 {
		return photos, nil
	}
	urls, err := helpers.UploadImages(ctx, rs.cld, photos, helpers.ReviewFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to upload review photos: %w", err)
	}
	return urls, nil
}

// withRetry re-runs a store mutation on lost optimistic writes with bounded
// backoff, and once on a not-found race, before surfacing the error.
func (rs *ReviewService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if models.IsConcurrency(err) {
			select {
			case <-time.After(retryBackoff * time.Duration(attempt+1)):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if errors.Is(err, models.ErrNotFound) && attempt == 0 {
			continue
		}
		return err
	}
	return err
}

func applyScores(review *models.Review, input *ReviewInput) {
	review.Price = input.Price
	review.Pts = input.Pts
	review.PtsTaste = input.PtsTaste
	review.PtsAppearance = input.PtsAppearance
	review.PtsTexture = input.PtsTexture
	review.PtsAroma = input.PtsAroma
	review.PtsBalance = input.PtsBalance
}
