package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/matjip-app/api/internal/aggregate"
	"github.com/matjip-app/api/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newReviewService(store models.Store) *ReviewService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locks := aggregate.NewKeyLock()
	tags := NewTagService(store, locks, logger)
	return NewReviewService(store, tags, locks, logger, nil)
}

func reviewInput(title, address string, price, pts float64, tags ...string) *ReviewInput {
	return &ReviewInput{
		FoodTitle:     title,
		Address:       address,
		Price:         price,
		Pts:           pts,
		PtsTaste:      pts,
		PtsAppearance: pts,
		PtsTexture:    pts,
		PtsAroma:      pts,
		PtsBalance:    pts,
		Review:        "a review body",
		Tags:          tags,
	}
}

func bucketFor(t *testing.T, store models.Store, title, address string) *models.Food {
	t.Helper()
	food, err := store.FindFoodByKey(context.Background(), models.NormalizeKey(title), models.NormalizeKey(address))
	if err != nil {
		t.Fatalf("bucket for %q / %q: %v", title, address, err)
	}
	return food
}

func TestCreateReviewValidation(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)

	_, err := rs.CreateReview(context.Background(), uuid.New(), &ReviewInput{Pts: 11})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"FoodTitle", "Address", "Review", "Pts"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("missing field error for %s: %v", field, verr.Fields)
		}
	}
}

func TestCreateReviewRejectsDuplicate(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)
	ctx := context.Background()
	account := uuid.New()

	if _, err := rs.CreateReview(ctx, account, reviewInput("Cafe X", "1 Main St, City", 20, 10)); err != nil {
		t.Fatal(err)
	}
	// Same restaurant modulo whitespace and casing is still the same bucket.
	_, err := rs.CreateReview(ctx, account, reviewInput("cafe  x", "1 MAIN st, City", 5, 5))
	if !models.IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	// A different account may review the same restaurant.
	if _, err := rs.CreateReview(ctx, uuid.New(), reviewInput("Cafe X", "1 Main St, City", 5, 5)); err != nil {
		t.Fatal(err)
	}
}

// The create/create/delete/delete walk from the aggregate contract: means
// move incrementally and the bucket disappears with its last review.
func TestReviewLifecycleScenario(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	a, err := rs.CreateReview(ctx, alice, reviewInput("Cafe X", "1 Main St, City", 20, 10))
	if err != nil {
		t.Fatal(err)
	}

	food := bucketFor(t, store, "Cafe X", "1 Main St, City")
	if food.ReviewCount != 1 || food.Pts != 10 || food.Price != 20 {
		t.Fatalf("after A: count=%d pts=%v price=%v", food.ReviewCount, food.Pts, food.Price)
	}

	b, err := rs.CreateReview(ctx, bob, reviewInput("Cafe X", "1 Main St, City", 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	food = bucketFor(t, store, "Cafe X", "1 Main St, City")
	if food.ReviewCount != 2 || food.Pts != 5 || food.Price != 10 {
		t.Fatalf("after B: count=%d pts=%v price=%v", food.ReviewCount, food.Pts, food.Price)
	}

	if err := rs.DeleteReview(ctx, a.ID, alice); err != nil {
		t.Fatal(err)
	}
	food = bucketFor(t, store, "Cafe X", "1 Main St, City")
	if food.ReviewCount != 1 || math.Abs(food.Pts) > 1e-9 || math.Abs(food.Price) > 1e-9 {
		t.Fatalf("after deleting A: count=%d pts=%v price=%v", food.ReviewCount, food.Pts, food.Price)
	}

	if err := rs.DeleteReview(ctx, b.ID, bob); err != nil {
		t.Fatal(err)
	}
	_, err = store.FindFoodByKey(ctx, "cafe x", "1 main st, city")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("bucket must be deleted with its last review, got %v", err)
	}
}

func TestUpdateReviewForbiddenForNonOwner(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)
	ctx := context.Background()

	r, err := rs.CreateReview(ctx, uuid.New(), reviewInput("Cafe X", "1 Main St", 10, 5))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := rs.UpdateReview(ctx, r.ID, uuid.New(), reviewInput("Cafe X", "1 Main St", 10, 8)); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("update: expected ErrForbidden, got %v", err)
	}
	if err := rs.DeleteReview(ctx, r.ID, uuid.New()); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("delete: expected ErrForbidden, got %v", err)
	}
}

func TestUpdateReviewSameBucketReplacesSample(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)
	ctx := context.Background()
	account := uuid.New()

	r, err := rs.CreateReview(ctx, account, reviewInput("Cafe X", "1 Main St", 10, 4))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rs.CreateReview(ctx, uuid.New(), reviewInput("Cafe X", "1 Main St", 20, 8)); err != nil {
		t.Fatal(err)
	}

	updated, err := rs.UpdateReview(ctx, r.ID, account, reviewInput("Cafe X", "1 Main St", 30, 10))
	if err != nil {
		t.Fatal(err)
	}
	if updated.Price != 30 || updated.Pts != 10 {
		t.Fatalf("updated review fields: price=%v pts=%v", updated.Price, updated.Pts)
	}

	food := bucketFor(t, store, "Cafe X", "1 Main St")
	if food.ReviewCount != 2 {
		t.Fatalf("replace path changed membership: count=%d", food.ReviewCount)
	}
	if food.Price != 25 || food.Pts != 9 {
		t.Fatalf("after replace: price=%v pts=%v, want 25 / 9", food.Price, food.Pts)
	}
}

func TestUpdateReviewTagSwap(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)
	ctx := context.Background()
	account := uuid.New()

	r, err := rs.CreateReview(ctx, account, reviewInput("Cafe X", "1 Main St", 10, 5, "Spicy", "Vegan"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := rs.UpdateReview(ctx, r.ID, account, reviewInput("Cafe X", "1 Main St", 10, 5, "Spicy", "Cheap")); err != nil {
		t.Fatal(err)
	}

	if tag, err := store.FindTagByName(ctx, "Spicy"); err != nil || tag.Count != 1 {
		t.Errorf("Spicy: tag=%+v err=%v", tag, err)
	}
	if tag, err := store.FindTagByName(ctx, "Cheap"); err != nil || tag.Count != 1 {
		t.Errorf("Cheap: tag=%+v err=%v", tag, err)
	}
	if _, err := store.FindTagByName(ctx, "Vegan"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Vegan should be garbage-collected, got %v", err)
	}

	// Bucket-local counters follow the same diff.
	food := bucketFor(t, store, "Cafe X", "1 Main St")
	if len(food.TagCounts) != 2 {
		t.Errorf("bucket tag counts: %v", food.TagCounts)
	}
}

// Moving a review to another restaurant: the old bucket recomputes without
// it, the target gains it as a fresh sample.
func TestUpdateReviewMovesBuckets(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)
	ctx := context.Background()
	account := uuid.New()

	moving, err := rs.CreateReview(ctx, account, reviewInput("Cafe A", "1 First St", 10, 4))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rs.CreateReview(ctx, uuid.New(), reviewInput("Cafe A", "1 First St", 20, 8)); err != nil {
		t.Fatal(err)
	}
	if _, err := rs.CreateReview(ctx, uuid.New(), reviewInput("Cafe B", "2 Second St", 6, 6)); err != nil {
		t.Fatal(err)
	}

	if _, err := rs.UpdateReview(ctx, moving.ID, account, reviewInput("Cafe B", "2 Second St", 12, 10)); err != nil {
		t.Fatal(err)
	}

	oldFood := bucketFor(t, store, "Cafe A", "1 First St")
	if oldFood.ReviewCount != 1 || oldFood.Price != 20 || oldFood.Pts != 8 {
		t.Fatalf("old bucket: count=%d price=%v pts=%v", oldFood.ReviewCount, oldFood.Price, oldFood.Pts)
	}

	newFood := bucketFor(t, store, "Cafe B", "2 Second St")
	if newFood.ReviewCount != 2 || newFood.Price != 9 || newFood.Pts != 8 {
		t.Fatalf("new bucket: count=%d price=%v pts=%v", newFood.ReviewCount, newFood.Price, newFood.Pts)
	}
	if !newFood.HasReview(moving.ID) || oldFood.HasReview(moving.ID) {
		t.Fatal("review membership didn't move")
	}
}

func TestUpdateReviewMoveEmptiesOldBucket(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)
	ctx := context.Background()
	account := uuid.New()

	r, err := rs.CreateReview(ctx, account, reviewInput("Cafe A", "1 First St", 10, 4))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rs.UpdateReview(ctx, r.ID, account, reviewInput("Cafe B", "2 Second St", 10, 4)); err != nil {
		t.Fatal(err)
	}

	if _, err := store.FindFoodByKey(ctx, "cafe a", "1 first st"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("emptied old bucket must be deleted, got %v", err)
	}
	if food := bucketFor(t, store, "Cafe B", "2 Second St"); food.ReviewCount != 1 {
		t.Errorf("new bucket count=%d, want 1", food.ReviewCount)
	}
}

func TestDeleteReviewNotFound(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)

	err := rs.DeleteReview(context.Background(), primitive.NewObjectID(), uuid.New())
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// Global tag counts must equal actual review membership after a mixed
// workload.
func TestTagCountsMatchMembership(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)
	ctx := context.Background()

	accounts := make([]uuid.UUID, 6)
	reviews := make([]*models.Review, 6)
	tagSets := [][]string{
		{"Spicy"}, {"Spicy", "Vegan"}, {"Cheap"},
		{"Spicy", "Cheap"}, {"Vegan"}, {"Spicy", "Vegan", "Cheap"},
	}
	for i := range accounts {
		accounts[i] = uuid.New()
		r, err := rs.CreateReview(ctx, accounts[i],
			reviewInput(fmt.Sprintf("Cafe %d", i%3), "1 Main St", 10, 5, tagSets[i]...))
		if err != nil {
			t.Fatal(err)
		}
		reviews[i] = r
	}

	if _, err := rs.UpdateReview(ctx, reviews[1].ID, accounts[1], reviewInput("Cafe 1", "1 Main St", 10, 5, "Vegan", "Cheap")); err != nil {
		t.Fatal(err)
	}
	if err := rs.DeleteReview(ctx, reviews[5].ID, accounts[5]); err != nil {
		t.Fatal(err)
	}

	membership := map[string]int{}
	for _, acct := range accounts {
		rows, err := store.ListReviewsByAccount(ctx, acct)
		if err != nil {
			t.Fatal(err)
		}
		for _, r := range rows {
			for _, id := range r.Tags {
				tag, err := store.FindTagByID(ctx, id)
				if err != nil {
					t.Fatalf("review %s holds vanished tag %s", r.ID.Hex(), id.Hex())
				}
				membership[tag.Name]++
			}
		}
	}

	tags, err := store.ListTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, tag := range tags {
		if tag.Count != membership[tag.Name] {
			t.Errorf("tag %q count=%d, membership=%d", tag.Name, tag.Count, membership[tag.Name])
		}
	}
	for name, n := range membership {
		if n > 0 {
			if _, err := store.FindTagByName(ctx, name); err != nil {
				t.Errorf("referenced tag %q missing: %v", name, err)
			}
		}
	}
}

// Many concurrent creators against one restaurant: no contribution may be
// dropped by a stale read.
func TestConcurrentCreatesSameBucket(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)
	ctx := context.Background()

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(pts float64) {
			defer wg.Done()
			if _, err := rs.CreateReview(ctx, uuid.New(), reviewInput("Cafe X", "1 Main St", pts, pts/10)); err != nil {
				t.Error(err)
			}
		}(float64(i))
	}
	wg.Wait()

	food := bucketFor(t, store, "Cafe X", "1 Main St")
	if food.ReviewCount != writers {
		t.Fatalf("reviewCount=%d, want %d", food.ReviewCount, writers)
	}
	wantPrice := float64(writers-1) / 2 // mean of 0..writers-1
	if math.Abs(food.Price-wantPrice) > 1e-6 {
		t.Errorf("price mean=%v, want %v", food.Price, wantPrice)
	}
	if len(food.Reviews) != writers {
		t.Errorf("membership size=%d, want %d", len(food.Reviews), writers)
	}
}

var errStoreDown = errors.New("store unavailable")

// faultStore wraps a Store with injectable write failures and context
// checking, for driving the coordinator's compensation paths.
type faultStore struct {
	models.Store
	mu sync.Mutex

	failUpdateReview int
	failDeleteReview int
	failUpdateFood   int

	reviewInsertHook func(ctx context.Context) error
}

func (f *faultStore) take(counter *int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if *counter > 0 {
		*counter--
		return true
	}
	return false
}

func (f *faultStore) InsertReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	if f.reviewInsertHook != nil {
		if err := f.reviewInsertHook(ctx); err != nil {
			return nil, err
		}
	}
	return f.Store.InsertReview(ctx, review)
}

func (f *faultStore) UpdateReview(ctx context.Context, review *models.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.take(&f.failUpdateReview) {
		return errStoreDown
	}
	return f.Store.UpdateReview(ctx, review)
}

func (f *faultStore) DeleteReview(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.take(&f.failDeleteReview) {
		return errStoreDown
	}
	return f.Store.DeleteReview(ctx, id)
}

func (f *faultStore) UpdateFood(ctx context.Context, food *models.Food) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.take(&f.failUpdateFood) {
		return errStoreDown
	}
	return f.Store.UpdateFood(ctx, food)
}

func (f *faultStore) FindFoodByID(ctx context.Context, id primitive.ObjectID) (*models.Food, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Store.FindFoodByID(ctx, id)
}

func (f *faultStore) DeleteFood(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.Store.DeleteFood(ctx, id)
}

func (f *faultStore) FindTagByID(ctx context.Context, id primitive.ObjectID) (*models.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Store.FindTagByID(ctx, id)
}

func (f *faultStore) IncrementTagCount(ctx context.Context, id primitive.ObjectID, delta int) (*models.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Store.IncrementTagCount(ctx, id, delta)
}

func (f *faultStore) DeleteTagIfEmpty(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.Store.DeleteTagIfEmpty(ctx, id)
}

// A bucket move whose final review write fails must roll the move back, and
// a plain client retry of the same edit must then succeed.
func TestUpdateReviewMoveSurvivesWriteFailure(t *testing.T) {
	mem := models.NewMemoryRepo()
	fs := &faultStore{Store: mem, failUpdateReview: 1}
	rs := newReviewService(fs)
	ctx := context.Background()
	account := uuid.New()

	moving, err := rs.CreateReview(ctx, account, reviewInput("Cafe A", "1 First St", 10, 4))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rs.CreateReview(ctx, uuid.New(), reviewInput("Cafe A", "1 First St", 20, 8)); err != nil {
		t.Fatal(err)
	}
	if _, err := rs.CreateReview(ctx, uuid.New(), reviewInput("Cafe B", "2 Second St", 6, 6)); err != nil {
		t.Fatal(err)
	}

	if _, err := rs.UpdateReview(ctx, moving.ID, account, reviewInput("Cafe B", "2 Second St", 12, 10)); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected the injected write failure, got %v", err)
	}

	oldFood := bucketFor(t, mem, "Cafe A", "1 First St")
	if oldFood.ReviewCount != 2 || !oldFood.HasReview(moving.ID) || math.Abs(oldFood.Price-15) > 1e-9 {
		t.Fatalf("old bucket after failed move: count=%d member=%v price=%v",
			oldFood.ReviewCount, oldFood.HasReview(moving.ID), oldFood.Price)
	}
	newFood := bucketFor(t, mem, "Cafe B", "2 Second St")
	if newFood.ReviewCount != 1 || newFood.HasReview(moving.ID) {
		t.Fatalf("new bucket after failed move: count=%d member=%v",
			newFood.ReviewCount, newFood.HasReview(moving.ID))
	}

	if _, err := rs.UpdateReview(ctx, moving.ID, account, reviewInput("Cafe B", "2 Second St", 12, 10)); err != nil {
		t.Fatal(err)
	}
	oldFood = bucketFor(t, mem, "Cafe A", "1 First St")
	newFood = bucketFor(t, mem, "Cafe B", "2 Second St")
	if oldFood.ReviewCount != 1 || math.Abs(oldFood.Price-20) > 1e-9 {
		t.Errorf("old bucket after retry: count=%d price=%v", oldFood.ReviewCount, oldFood.Price)
	}
	if newFood.ReviewCount != 2 || !newFood.HasReview(moving.ID) || math.Abs(newFood.Price-9) > 1e-9 {
		t.Errorf("new bucket after retry: count=%d member=%v price=%v",
			newFood.ReviewCount, newFood.HasReview(moving.ID), newFood.Price)
	}
}

// Re-running the attach for a review the bucket already counts is an applied
// no-op, not a second sample.
func TestAttachToBucketIdempotentOnRetry(t *testing.T) {
	store := models.NewMemoryRepo()
	rs := newReviewService(store)
	ctx := context.Background()

	created, err := rs.CreateReview(ctx, uuid.New(), reviewInput("Cafe X", "1 Main St", 10, 5))
	if err != nil {
		t.Fatal(err)
	}
	stored, err := store.FindReviewByID(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := rs.attachToBucket(ctx, stored, stored.TitleKey, stored.AddressKey); err != nil {
		t.Fatal(err)
	}
	food := bucketFor(t, store, "Cafe X", "1 Main St")
	if food.ReviewCount != 1 || math.Abs(food.Price-10) > 1e-9 {
		t.Errorf("bucket after repeated attach: count=%d price=%v", food.ReviewCount, food.Price)
	}
	if stored.Food != food.ID {
		t.Error("repeated attach did not restore the bucket ref")
	}
}

// A failed review delete must put the bucket contribution and tag references
// back, so the retry releases each exactly once.
func TestDeleteReviewSurvivesWriteFailure(t *testing.T) {
	mem := models.NewMemoryRepo()
	fs := &faultStore{Store: mem, failDeleteReview: 1}
	rs := newReviewService(fs)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	target, err := rs.CreateReview(ctx, alice, reviewInput("Cafe X", "1 Main St", 10, 4, "Spicy"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rs.CreateReview(ctx, bob, reviewInput("Cafe Y", "2 Main St", 20, 8, "Spicy")); err != nil {
		t.Fatal(err)
	}

	if err := rs.DeleteReview(ctx, target.ID, alice); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected the injected write failure, got %v", err)
	}

	if tag := tagByName(t, mem, "Spicy"); tag.Count != 2 {
		t.Fatalf("Spicy count = %d after failed delete, want 2", tag.Count)
	}
	food := bucketFor(t, mem, "Cafe X", "1 Main St")
	if food.ReviewCount != 1 || !food.HasReview(target.ID) || math.Abs(food.Price-10) > 1e-9 {
		t.Fatalf("bucket after failed delete: count=%d member=%v price=%v",
			food.ReviewCount, food.HasReview(target.ID), food.Price)
	}

	if err := rs.DeleteReview(ctx, target.ID, alice); err != nil {
		t.Fatal(err)
	}
	if tag := tagByName(t, mem, "Spicy"); tag.Count != 1 {
		t.Errorf("Spicy count = %d after retried delete, want 1", tag.Count)
	}
	if _, err := mem.FindReviewByID(ctx, target.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("deleted review still present: %v", err)
	}
	if _, err := mem.FindFoodByKey(ctx, "cafe x", "1 main st"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("bucket should be gone with its last review: %v", err)
	}
}

// The caller hanging up mid-create must not strand a half-applied bucket or
// tag reference: compensation runs to completion on its own context.
func TestCreateReviewCanceledMidPersist(t *testing.T) {
	mem := models.NewMemoryRepo()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fs := &faultStore{Store: mem}
	fs.reviewInsertHook = func(c context.Context) error {
		cancel()
		return c.Err()
	}
	rs := newReviewService(fs)

	_, err := rs.CreateReview(ctx, uuid.New(), reviewInput("Cafe X", "1 Main St", 20, 10, "Spicy"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if _, err := mem.FindFoodByKey(context.Background(), "cafe x", "1 main st"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("orphaned bucket after canceled create: %v", err)
	}
	tags, err := mem.ListTags(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 0 {
		t.Errorf("orphaned tags after canceled create: %+v", tags[0])
	}
}

// When the bucket write fails after a tag swap, the rollback must find the
// drained tag still in the vocabulary and re-reference it.
func TestTagRollbackResurrectsDrainedTag(t *testing.T) {
	mem := models.NewMemoryRepo()
	fs := &faultStore{Store: mem, failUpdateFood: 1}
	rs := newReviewService(fs)
	ctx := context.Background()
	account := uuid.New()

	created, err := rs.CreateReview(ctx, account, reviewInput("Cafe X", "1 Main St", 10, 5, "Spicy"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := rs.UpdateReview(ctx, created.ID, account, reviewInput("Cafe X", "1 Main St", 10, 5, "Vegan")); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected the injected write failure, got %v", err)
	}

	if tag := tagByName(t, mem, "Spicy"); tag.Count != 1 {
		t.Errorf("Spicy count = %d after rollback, want 1", tag.Count)
	}
	if _, err := mem.FindTagByName(ctx, "Vegan"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("rolled-back Vegan survived: %v", err)
	}

	stored, err := mem.FindReviewByID(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range stored.Tags {
		if _, err := mem.FindTagByID(ctx, id); err != nil {
			t.Errorf("review holds dangling tag %s: %v", id.Hex(), err)
		}
	}
}
