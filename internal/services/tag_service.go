package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/matjip-app/api/internal/aggregate"
	"github.com/matjip-app/api/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TagService is the ledger over the shared, reference-counted tag
// vocabulary. Reconcile is its whole contract: diff a review's previous tag
// set against the requested one and apply the minimal count mutations.
type TagService struct {
	tagRepo models.TagRepo
	locks   *aggregate.KeyLock
	logger  *slog.Logger
}

func NewTagService(tagRepo models.TagRepo, locks *aggregate.KeyLock, logger *slog.Logger) *TagService {
	return &TagService{
		tagRepo: tagRepo,
		locks:   locks,
		logger:  logger,
	}
}

func (ts *TagService) ListTags(ctx context.Context) ([]*models.Tag, error) {
	return ts.tagRepo.ListTags(ctx)
}

// appliedOp records one count mutation already written, so a later failure
// in the same reconciliation can be compensated.
type appliedOp struct {
	tagID   primitive.ObjectID
	delta   int
	created bool
}

// Reconcile takes the review's previous tag ids and the requested tag names
// and returns the final tag ids to store on the review, plus the ids it
// drained to zero. Counts move by set difference only:
//
//   - requested but not previously held: increment, creating the tag at
//     count 1 when the normalized name is new to the vocabulary
//   - previously held but no longer requested: decrement; a non-main tag
//     that drains to zero is reported as drained
//   - held and still requested: untouched
//
// Drained tags are not deleted here: the caller sweeps them once the review
// write that released them has landed, so a failure between the two can
// still resurrect them by re-incrementing.
//
// Reconciliations against the same tag name serialize on the per-name lock,
// so concurrent create-if-absent calls cannot mint duplicate tags. A failed
// write aborts the whole reconciliation; mutations already applied are
// rolled back before the error returns.
func (ts *TagService) Reconcile(ctx context.Context, oldIDs []primitive.ObjectID, requestedNames []string) ([]primitive.ObjectID, []primitive.ObjectID, error) {
	names := make([]string, 0, len(requestedNames))
	seen := make(map[string]bool, len(requestedNames))
	for _, raw := range requestedNames {
		name := models.NormalizeTagName(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	// Resolve the previous tags up front: their names are needed both for
	// retained-tag matching and for the lock set. A tag that vanished under
	// a concurrent delete is simply no longer ours to release.
	oldTags := make([]*models.Tag, 0, len(oldIDs))
	oldByName := make(map[string]*models.Tag, len(oldIDs))
	for _, id := range oldIDs {
		tag, err := ts.tagRepo.FindTagByID(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve tag %s: %w", id.Hex(), err)
		}
		oldTags = append(oldTags, tag)
		oldByName[tag.Name] = tag
	}

	lockKeys := make([]string, 0, len(names)+len(oldTags))
	for _, name := range names {
		lockKeys = append(lockKeys, "tag:"+name)
	}
	for _, tag := range oldTags {
		lockKeys = append(lockKeys, "tag:"+tag.Name)
	}
	unlock := ts.locks.LockAll(lockKeys...)
	defer unlock()

	var applied []appliedOp
	final := make([]primitive.ObjectID, 0, len(names))
	retained := make(map[string]bool, len(names))

	for _, name := range names {
		if old, ok := oldByName[name]; ok {
			// Held and still requested: no count movement.
			final = append(final, old.ID)
			retained[name] = true
			continue
		}

		tag, err := ts.tagRepo.FindTagByName(ctx, name)
		switch {
		case err == nil:
			if _, incErr := ts.tagRepo.IncrementTagCount(ctx, tag.ID, 1); incErr != nil {
				ts.rollback(ctx, applied)
				return nil, nil, fmt.Errorf("failed to reference tag %q: %w", name, incErr)
			}
			applied = append(applied, appliedOp{tagID: tag.ID, delta: 1})
			final = append(final, tag.ID)

		case errors.Is(err, models.ErrNotFound):
			created, insErr := ts.tagRepo.InsertTag(ctx, &models.Tag{Name: name, Count: 1})
			if insErr != nil {
				ts.rollback(ctx, applied)
				return nil, nil, fmt.Errorf("failed to create tag %q: %w", name, insErr)
			}
			applied = append(applied, appliedOp{tagID: created.ID, delta: 1, created: true})
			final = append(final, created.ID)

		default:
			ts.rollback(ctx, applied)
			return nil, nil, fmt.Errorf("failed to look up tag %q: %w", name, err)
		}
	}

	// Release tags dropped from the review. Decrements run after all
	// increments so a failure here leaves only additive work to undo.
	drained := make([]primitive.ObjectID, 0, len(oldTags))
	for _, old := range oldTags {
		if retained[old.Name] {
			continue
		}
		updated, err := ts.tagRepo.IncrementTagCount(ctx, old.ID, -1)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			ts.rollback(ctx, applied)
			return nil, nil, fmt.Errorf("failed to release tag %q: %w", old.Name, err)
		}
		applied = append(applied, appliedOp{tagID: old.ID, delta: -1})
		if updated.IsEmpty() {
			drained = append(drained, updated.ID)
		}
	}

	return final, drained, nil
}

// Sweep garbage-collects tags a reconciliation drained, once the review
// write that released them has landed. The conditional delete re-checks
// emptiness so a concurrent re-reference wins.
func (ts *TagService) Sweep(ctx context.Context, drained []primitive.ObjectID) {
	for _, id := range drained {
		if err := ts.tagRepo.DeleteTagIfEmpty(ctx, id); err != nil {
			ts.logger.Warn("failed to garbage-collect tag", "tag_id", id.Hex(), "error", err)
		}
	}
}

// ReconcileIDs moves the vocabulary's counts from one id set to another.
// Unlike Reconcile it never creates tags: it exists for compensation paths,
// where both sides are ids that were already resolved. Missing tags are
// skipped, drained tags are garbage-collected.
func (ts *TagService) ReconcileIDs(ctx context.Context, oldIDs, newIDs []primitive.ObjectID) error {
	oldSet := make(map[primitive.ObjectID]bool, len(oldIDs))
	for _, id := range oldIDs {
		oldSet[id] = true
	}
	newSet := make(map[primitive.ObjectID]bool, len(newIDs))
	for _, id := range newIDs {
		newSet[id] = true
	}

	// Resolve ids to names first: tag names are immutable and the per-name
	// lock is the serialization unit shared with Reconcile.
	touched := make([]primitive.ObjectID, 0, len(oldSet)+len(newSet))
	for id := range oldSet {
		if !newSet[id] {
			touched = append(touched, id)
		}
	}
	for id := range newSet {
		if !oldSet[id] {
			touched = append(touched, id)
		}
	}

	lockKeys := make([]string, 0, len(touched))
	for _, id := range touched {
		tag, err := ts.tagRepo.FindTagByID(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to resolve tag %s: %w", id.Hex(), err)
		}
		lockKeys = append(lockKeys, "tag:"+tag.Name)
	}
	unlock := ts.locks.LockAll(lockKeys...)
	defer unlock()

	var firstErr error
	for id := range newSet {
		if oldSet[id] {
			continue
		}
		if _, err := ts.tagRepo.IncrementTagCount(ctx, id, 1); err != nil && !errors.Is(err, models.ErrNotFound) && firstErr == nil {
			firstErr = fmt.Errorf("failed to re-reference tag %s: %w", id.Hex(), err)
		}
	}
	for id := range oldSet {
		if newSet[id] {
			continue
		}
		updated, err := ts.tagRepo.IncrementTagCount(ctx, id, -1)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to release tag %s: %w", id.Hex(), err)
			}
			continue
		}
		if updated.IsEmpty() {
			if err := ts.tagRepo.DeleteTagIfEmpty(ctx, id); err != nil {
				ts.logger.Warn("failed to garbage-collect tag", "tag_id", id.Hex(), "error", err)
			}
		}
	}
	return firstErr
}

// rollback undoes count mutations from a reconciliation that failed partway,
// so the vocabulary never drifts from the review's stored tag set.
func (ts *TagService) rollback(ctx context.Context, applied []appliedOp) {
	for i := len(applied) - 1; i >= 0; i-- {
		op := applied[i]
		if _, err := ts.tagRepo.IncrementTagCount(ctx, op.tagID, -op.delta); err != nil {
			ts.logger.Error("tag rollback failed", "tag_id", op.tagID.Hex(), "error", err)
			continue
		}
		if op.created {
			if err := ts.tagRepo.DeleteTagIfEmpty(ctx, op.tagID); err != nil {
				ts.logger.Error("tag rollback cleanup failed", "tag_id", op.tagID.Hex(), "error", err)
			}
		}
	}
}
