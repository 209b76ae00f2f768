package models

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo is an in-memory Store used by tests in place of MongoDB. It
// enforces the same uniqueness and versioning semantics as the Mongo
// implementation and hands out copies, so callers can't mutate store state
// without going through a write.
type MemoryRepo struct {
	mu      sync.Mutex
	reviews map[primitive.ObjectID]*Review
	food    map[primitive.ObjectID]*Food
	tags    map[primitive.ObjectID]*Tag
	saved   map[uuid.UUID]*SavedFood
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		reviews: make(map[primitive.ObjectID]*Review),
		food:    make(map[primitive.ObjectID]*Food),
		tags:    make(map[primitive.ObjectID]*Tag),
		saved:   make(map[uuid.UUID]*SavedFood),
	}
}

func copyReview(r *Review) *Review {
	c := *r
	c.Photos = append([]string(nil), r.Photos...)
	c.Tags = append([]primitive.ObjectID(nil), r.Tags...)
	c.Comments = append([]primitive.ObjectID(nil), r.Comments...)
	return &c
}

func copyFood(f *Food) *Food {
	c := *f
	c.Reviews = append([]primitive.ObjectID(nil), f.Reviews...)
	c.Tags = append([]primitive.ObjectID(nil), f.Tags...)
	c.Photos = append([]string(nil), f.Photos...)
	c.TagCounts = make(map[string]int, len(f.TagCounts))
	for k, v := range f.TagCounts {
		c.TagCounts[k] = v
	}
	return &c
}

func copyTag(t *Tag) *Tag {
	c := *t
	return &c
}

func (m *MemoryRepo) InsertReview(ctx context.Context, review *Review) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := review.BeforeCreate(); err != nil {
		return nil, err
	}
	for _, r := range m.reviews {
		if r.Account == review.Account && r.TitleKey == review.TitleKey && r.AddressKey == review.AddressKey {
			return nil, &ConflictError{Resource: "review", Detail: review.FoodTitle + " / " + review.Address}
		}
		if r.Foodname == review.Foodname {
			return nil, &ConflictError{Resource: "review", Detail: review.Foodname}
		}
	}
	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now
	m.reviews[review.ID] = copyReview(review)
	return copyReview(review), nil
}

func (m *MemoryRepo) FindReviewByID(ctx context.Context, id primitive.ObjectID) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyReview(r), nil
}

func (m *MemoryRepo) FindReviewByFoodname(ctx context.Context, foodname string) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.Foodname == foodname {
			return copyReview(r), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) FindReviewByAccountAndPlace(ctx context.Context, account uuid.UUID, titleKey, addressKey string) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.Account == account && r.TitleKey == titleKey && r.AddressKey == addressKey {
			return copyReview(r), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) UpdateReview(ctx context.Context, review *Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[review.ID]; !ok {
		return ErrNotFound
	}
	review.UpdatedAt = time.Now()
	m.reviews[review.ID] = copyReview(review)
	return nil
}

func (m *MemoryRepo) DeleteReview(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return ErrNotFound
	}
	delete(m.reviews, id)
	return nil
}

func (m *MemoryRepo) ListReviewsByAccount(ctx context.Context, account uuid.UUID) ([]*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Review
	for _, r := range m.reviews {
		if r.Account == account {
			out = append(out, copyReview(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepo) InsertFood(ctx context.Context, food *Food) (*Food, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := food.BeforeCreate(); err != nil {
		return nil, err
	}
	for _, f := range m.food {
		if f.TitleKey == food.TitleKey && f.AddressKey == food.AddressKey {
			return nil, &ConflictError{Resource: "food", Detail: food.FoodTitle + " / " + food.Address}
		}
		if f.Foodname == food.Foodname {
			return nil, &ConflictError{Resource: "food", Detail: food.Foodname}
		}
	}
	now := time.Now()
	food.CreatedAt = now
	food.UpdatedAt = now
	m.food[food.ID] = copyFood(food)
	return copyFood(food), nil
}

func (m *MemoryRepo) FindFoodByID(ctx context.Context, id primitive.ObjectID) (*Food, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.food[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyFood(f), nil
}

func (m *MemoryRepo) FindFoodByKey(ctx context.Context, titleKey, addressKey string) (*Food, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.food {
		if f.TitleKey == titleKey && f.AddressKey == addressKey {
			return copyFood(f), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) FindFoodByFoodname(ctx context.Context, foodname string) (*Food, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.food {
		if f.Foodname == foodname {
			return copyFood(f), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) UpdateFood(ctx context.Context, food *Food) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.food[food.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != food.Version {
		return &ConcurrencyError{Resource: "food " + food.Foodname}
	}
	food.Version++
	food.UpdatedAt = time.Now()
	m.food[food.ID] = copyFood(food)
	return nil
}

func (m *MemoryRepo) DeleteFood(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.food[id]; !ok {
		return ErrNotFound
	}
	delete(m.food, id)
	return nil
}

func (m *MemoryRepo) ListFood(ctx context.Context, filter FoodFilter) ([]*Food, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*Food
	for _, f := range m.food {
		if filter.MinPts > 0 && f.Pts < filter.MinPts {
			continue
		}
		if filter.MaxPts > 0 && f.Pts > filter.MaxPts {
			continue
		}
		if filter.MinPrice > 0 && f.Price < filter.MinPrice {
			continue
		}
		if filter.MaxPrice > 0 && f.Price > filter.MaxPrice {
			continue
		}
		matched = append(matched, copyFood(f))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Pts > matched[j].Pts })

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 12
	}
	if filter.Offset >= len(matched) {
		return []*Food{}, total, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *MemoryRepo) AdjustSavedCount(ctx context.Context, id primitive.ObjectID, delta int) (*Food, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.food[id]
	if !ok {
		return nil, ErrNotFound
	}
	f.SavedCount += delta
	return copyFood(f), nil
}

func (m *MemoryRepo) FindTagByID(ctx context.Context, id primitive.ObjectID) (*Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTag(t), nil
}

func (m *MemoryRepo) FindTagByName(ctx context.Context, name string) (*Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.Name == name {
			return copyTag(t), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) InsertTag(ctx context.Context, tag *Tag) (*Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := tag.BeforeCreate(); err != nil {
		return nil, err
	}
	for _, t := range m.tags {
		if t.Name == tag.Name {
			return nil, &ConflictError{Resource: "tag", Detail: tag.Name}
		}
	}
	m.tags[tag.ID] = copyTag(tag)
	return copyTag(tag), nil
}

func (m *MemoryRepo) IncrementTagCount(ctx context.Context, id primitive.ObjectID, delta int) (*Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Count += delta
	t.Version++
	return copyTag(t), nil
}

func (m *MemoryRepo) DeleteTagIfEmpty(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[id]
	if !ok {
		return nil
	}
	if t.IsEmpty() {
		delete(m.tags, id)
	}
	return nil
}

func (m *MemoryRepo) ListTags(ctx context.Context) ([]*Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Tag, 0, len(m.tags))
	for _, t := range m.tags {
		out = append(out, copyTag(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

func (m *MemoryRepo) AddSavedFood(ctx context.Context, userId uuid.UUID, foodId primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saved[userId]
	if !ok {
		s = &SavedFood{ID: primitive.NewObjectID(), UserID: userId, Items: map[string]SavedItem{}, CreatedAt: time.Now()}
		m.saved[userId] = s
	}
	key := foodId.Hex()
	if _, exists := s.Items[key]; exists {
		return false, nil
	}
	s.Items[key] = SavedItem{FoodID: foodId, AddedAt: time.Now()}
	s.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryRepo) RemoveSavedFood(ctx context.Context, userId uuid.UUID, foodId primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saved[userId]
	if !ok {
		return false, nil
	}
	key := foodId.Hex()
	if _, exists := s.Items[key]; !exists {
		return false, nil
	}
	delete(s.Items, key)
	s.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryRepo) IsFoodSaved(ctx context.Context, userId uuid.UUID, foodId primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saved[userId]
	if !ok {
		return false, nil
	}
	_, exists := s.Items[foodId.Hex()]
	return exists, nil
}

func (m *MemoryRepo) GetSavedFoodByUserID(ctx context.Context, userId uuid.UUID) (*SavedFood, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saved[userId]
	if !ok {
		return &SavedFood{UserID: userId, Items: map[string]SavedItem{}}, nil
	}
	c := *s
	c.Items = make(map[string]SavedItem, len(s.Items))
	for k, v := range s.Items {
		c.Items[k] = v
	}
	return &c, nil
}
