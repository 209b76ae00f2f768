package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/matjip-app/api/internal/aggregate"
	"github.com/matjip-app/api/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTagService(store models.Store) *TagService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTagService(store, aggregate.NewKeyLock(), logger)
}

func tagByName(t *testing.T, store models.Store, name string) *models.Tag {
	t.Helper()
	tag, err := store.FindTagByName(context.Background(), name)
	if err != nil {
		t.Fatalf("tag %q: %v", name, err)
	}
	return tag
}

func TestReconcileCreatesNewTags(t *testing.T) {
	store := models.NewMemoryRepo()
	ts := newTagService(store)

	final, _, err := ts.Reconcile(context.Background(), nil, []string{"spicy", "  vegan!! "})
	if err != nil {
		t.Fatal(err)
	}
	if len(final) != 2 {
		t.Fatalf("got %d tag ids, want 2", len(final))
	}

	if tag := tagByName(t, store, "Spicy"); tag.Count != 1 {
		t.Errorf("Spicy count = %d, want 1", tag.Count)
	}
	if tag := tagByName(t, store, "Vegan"); tag.Count != 1 {
		t.Errorf("Vegan count = %d, want 1", tag.Count)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := models.NewMemoryRepo()
	ts := newTagService(store)
	ctx := context.Background()

	final, _, err := ts.Reconcile(ctx, nil, []string{"Spicy", "Vegan"})
	if err != nil {
		t.Fatal(err)
	}

	// Reconciling the same set against itself must not move any counts.
	again, _, err := ts.Reconcile(ctx, final, []string{"Spicy", "Vegan"})
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 2 {
		t.Fatalf("got %d tag ids, want 2", len(again))
	}
	for _, name := range []string{"Spicy", "Vegan"} {
		if tag := tagByName(t, store, name); tag.Count != 1 {
			t.Errorf("%s count = %d after no-op reconcile, want 1", name, tag.Count)
		}
	}
}

// The Spicy/Vegan -> Spicy/Cheap scenario: the retained tag must not move,
// the released one drains and is collected, the new one is created.
func TestReconcileSwapsTags(t *testing.T) {
	store := models.NewMemoryRepo()
	ts := newTagService(store)
	ctx := context.Background()

	old, _, err := ts.Reconcile(ctx, nil, []string{"Spicy", "Vegan"})
	if err != nil {
		t.Fatal(err)
	}
	spicyID := tagByName(t, store, "Spicy").ID

	final, drained, err := ts.Reconcile(ctx, old, []string{"Spicy", "Cheap"})
	if err != nil {
		t.Fatal(err)
	}
	ts.Sweep(ctx, drained)
	if len(final) != 2 {
		t.Fatalf("got %d tag ids, want 2", len(final))
	}

	spicy := tagByName(t, store, "Spicy")
	if spicy.Count != 1 || spicy.ID != spicyID {
		t.Errorf("retained tag moved: count=%d id changed=%v", spicy.Count, spicy.ID != spicyID)
	}
	if tag := tagByName(t, store, "Cheap"); tag.Count != 1 {
		t.Errorf("Cheap count = %d, want 1", tag.Count)
	}
	if _, err := store.FindTagByName(ctx, "Vegan"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("drained tag Vegan survived: %v", err)
	}
}

func TestReconcileSharedTagCounts(t *testing.T) {
	store := models.NewMemoryRepo()
	ts := newTagService(store)
	ctx := context.Background()

	first, _, err := ts.Reconcile(ctx, nil, []string{"Spicy"})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := ts.Reconcile(ctx, nil, []string{"Spicy"}); err != nil {
		t.Fatal(err)
	}
	if tag := tagByName(t, store, "Spicy"); tag.Count != 2 {
		t.Fatalf("Spicy count = %d with two referencing reviews, want 2", tag.Count)
	}

	if _, _, err := ts.Reconcile(ctx, first, nil); err != nil {
		t.Fatal(err)
	}
	if tag := tagByName(t, store, "Spicy"); tag.Count != 1 {
		t.Errorf("Spicy count = %d after one release, want 1", tag.Count)
	}
}

func TestMainTagSurvivesDraining(t *testing.T) {
	store := models.NewMemoryRepo()
	ts := newTagService(store)
	ctx := context.Background()

	if _, err := store.InsertTag(ctx, &models.Tag{Name: "Korean", Main: true, Count: 0}); err != nil {
		t.Fatal(err)
	}

	held, _, err := ts.Reconcile(ctx, nil, []string{"Korean"})
	if err != nil {
		t.Fatal(err)
	}
	if tag := tagByName(t, store, "Korean"); tag.Count != 1 {
		t.Fatalf("Korean count = %d, want 1", tag.Count)
	}

	_, drained, err := ts.Reconcile(ctx, held, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(drained) != 0 {
		t.Errorf("main tag reported as drained: %v", drained)
	}
	tag := tagByName(t, store, "Korean")
	if tag.Count != 0 {
		t.Errorf("Korean count = %d after release, want 0", tag.Count)
	}
}

func TestReconcileVanishedOldTag(t *testing.T) {
	store := models.NewMemoryRepo()
	ts := newTagService(store)
	ctx := context.Background()

	// An old id whose tag a concurrent delete already removed is skipped.
	ghost := primitive.NewObjectID()
	final, _, err := ts.Reconcile(ctx, []primitive.ObjectID{ghost}, []string{"Spicy"})
	if err != nil {
		t.Fatal(err)
	}
	if len(final) != 1 {
		t.Fatalf("got %d tag ids, want 1", len(final))
	}
}

// Concurrent create-if-absent calls for the same name must end up with one
// tag whose count equals the number of referencing reviews.
func TestConcurrentReconcileSameName(t *testing.T) {
	store := models.NewMemoryRepo()
	ts := newTagService(store)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := ts.Reconcile(ctx, nil, []string{"Spicy"}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	tags, err := store.ListTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 {
		t.Fatalf("concurrent reconciles minted %d tags, want 1", len(tags))
	}
	if tags[0].Count != writers {
		t.Errorf("count = %d, want %d", tags[0].Count, writers)
	}
}

// A drained tag stays in the vocabulary until the caller sweeps it, so a
// failed review write can still re-reference it instead of finding a hole.
func TestDrainedTagAwaitsSweep(t *testing.T) {
	store := models.NewMemoryRepo()
	ts := newTagService(store)
	ctx := context.Background()

	held, _, err := ts.Reconcile(ctx, nil, []string{"Spicy"})
	if err != nil {
		t.Fatal(err)
	}
	_, drained, err := ts.Reconcile(ctx, held, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(drained) != 1 {
		t.Fatalf("drained = %v, want one id", drained)
	}

	if tag := tagByName(t, store, "Spicy"); tag.Count != 0 {
		t.Errorf("Spicy count = %d before sweep, want 0", tag.Count)
	}

	ts.Sweep(ctx, drained)
	if _, err := store.FindTagByName(ctx, "Spicy"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("swept tag survived: %v", err)
	}
}
