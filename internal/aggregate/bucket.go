package aggregate

import (
	"fmt"

	"github.com/matjip-app/api/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Attach folds a review's contribution into the bucket. With prev == nil and
// the review not yet a member, the review is a brand-new sample: every
// numeric field goes through AddSample against the current reviewCount and
// membership grows by one. With prev != nil and the review already a member,
// it is an in-place edit: the old snapshot's values are replaced sample-for-
// sample and membership is untouched. Any other combination is a contract
// violation.
//
// The bucket's local tag counters are reconciled by the same set-diff rule
// the global ledger uses, scoped to this bucket.
func Attach(food *models.Food, review *models.Review, prev *models.ReviewSnapshot) {
	switch {
	case prev == nil && !food.HasReview(review.ID):
		means := food.Scores()
		values := review.Scores()
		for i := range means {
			means[i] = AddSample(means[i], food.ReviewCount, values[i])
		}
		food.SetScores(means)
		food.Reviews = append(food.Reviews, review.ID)
		food.ReviewCount++
		reconcileLocalTags(food, nil, review.Tags)
		mergePhoto(food, review)

	case prev != nil && food.HasReview(review.ID):
		means := food.Scores()
		oldValues := prev.Scores()
		newValues := review.Scores()
		for i := range means {
			means[i] = ReplaceSample(means[i], food.ReviewCount, oldValues[i], newValues[i])
		}
		food.SetScores(means)
		reconcileLocalTags(food, prev.Tags, review.Tags)

	default:
		panic(fmt.Sprintf("aggregate: Attach contract violation (prev=%v, member=%v)", prev != nil, food.HasReview(review.ID)))
	}
}

// Detach removes a review's contribution and reports whether the bucket is
// now empty. An empty bucket carries no arithmetic: the caller deletes it.
// Requires the review to be a member.
func Detach(food *models.Food, review *models.Review) (empty bool) {
	if !food.HasReview(review.ID) || food.ReviewCount < 1 {
		panic(fmt.Sprintf("aggregate: Detach of non-member review %s from %s", review.ID.Hex(), food.Foodname))
	}
	if food.ReviewCount == 1 {
		return true
	}

	means := food.Scores()
	values := review.Scores()
	for i := range means {
		means[i] = RemoveSample(means[i], food.ReviewCount, values[i])
	}
	food.SetScores(means)
	reconcileLocalTags(food, review.Tags, nil)

	for i, id := range food.Reviews {
		if id == review.ID {
			food.Reviews = append(food.Reviews[:i], food.Reviews[i+1:]...)
			break
		}
	}
	food.ReviewCount--
	return false
}

// reconcileLocalTags diffs the old and new tag sets against the bucket's
// counters. Tags in both sets are untouched; newly carried tags increment,
// released tags decrement and drop out at zero.
func reconcileLocalTags(food *models.Food, oldTags, newTags []primitive.ObjectID) {
	if food.TagCounts == nil {
		food.TagCounts = make(map[string]int)
	}

	oldSet := make(map[string]bool, len(oldTags))
	for _, id := range oldTags {
		oldSet[id.Hex()] = true
	}
	newSet := make(map[string]bool, len(newTags))
	for _, id := range newTags {
		newSet[id.Hex()] = true
	}

	for _, id := range newTags {
		key := id.Hex()
		if oldSet[key] {
			continue
		}
		food.TagCounts[key]++
	}
	for _, id := range oldTags {
		key := id.Hex()
		if newSet[key] {
			continue
		}
		food.TagCounts[key]--
		if food.TagCounts[key] <= 0 {
			delete(food.TagCounts, key)
		}
	}

	// Rebuild the tag list from the surviving counters.
	food.Tags = food.Tags[:0]
	for key := range food.TagCounts {
		id, err := primitive.ObjectIDFromHex(key)
		if err != nil {
			continue
		}
		food.Tags = append(food.Tags, id)
	}
}

// mergePhoto surfaces the first photo of a newly attached review on the
// bucket, so food listings have something to show.
func mergePhoto(food *models.Food, review *models.Review) {
	if len(review.Photos) == 0 {
		return
	}
	for _, p := range food.Photos {
		if p == review.Photos[0] {
			return
		}
	}
	food.Photos = append(food.Photos, review.Photos[0])
}
