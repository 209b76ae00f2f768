package models

import (
	"context"
	"strings"
	"unicode"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TagColName = "tags"

	// TagNameMaxLen bounds normalized tag names so free-text input can't
	// grow the vocabulary with essays.
	TagNameMaxLen = 30
)

// Tag is one entry in the shared, reference-counted vocabulary. Count tracks
// how many reviews system-wide currently carry the tag; a non-main tag whose
// count reaches zero is deleted.
type Tag struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name    string             `bson:"name" json:"name" validate:"required"`
	Main    bool               `bson:"main,omitempty" json:"main,omitempty"`
	Count   int                `bson:"count" json:"count"`
	Version int64              `bson:"version" json:"-"`
}

// IsEmpty reports whether the tag is eligible for garbage collection.
func (t *Tag) IsEmpty() bool {
	return !t.Main && t.Count <= 0
}

func (t *Tag) BeforeCreate() error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	return nil
}

// NormalizeTagName canonicalizes free-text tag input so lookups by name are
// meaningful: strip everything outside [A-Za-z0-9& ], collapse whitespace,
// title-case each word, truncate to TagNameMaxLen runes.
func NormalizeTagName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '&', r == ' ':
			b.WriteRune(r)
		}
	}

	words := strings.Fields(strings.ToLower(b.String()))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	normalized := strings.Join(words, " ")
	runes := []rune(normalized)
	if len(runes) > TagNameMaxLen {
		normalized = strings.TrimSpace(string(runes[:TagNameMaxLen]))
	}
	return normalized
}

type TagRepo interface {
	FindTagByID(ctx context.Context, id primitive.ObjectID) (*Tag, error)
	FindTagByName(ctx context.Context, name string) (*Tag, error)
	InsertTag(ctx context.Context, tag *Tag) (*Tag, error)
	// IncrementTagCount atomically adds delta to the tag's count and returns
	// the resulting document. ErrNotFound when the tag vanished.
	IncrementTagCount(ctx context.Context, id primitive.ObjectID, delta int) (*Tag, error)
	// DeleteTagIfEmpty removes the tag only while count <= 0 and not main.
	DeleteTagIfEmpty(ctx context.Context, id primitive.ObjectID) error
	ListTags(ctx context.Context) ([]*Tag, error)
}
