package models

import "testing"

func TestNormalizeTagName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"spicy", "Spicy"},
		{"  spicy  food ", "Spicy Food"},
		{"VEGAN", "Vegan"},
		{"mac & cheese", "Mac & Cheese"},
		{"nacho!!! supreme?", "Nacho Supreme"},
		{"소주", ""},
		{"this is a very long tag name that keeps going", "This Is A Very Long Tag Name T"},
	}
	for _, tt := range tests {
		if got := NormalizeTagName(tt.in); got != tt.want {
			t.Errorf("NormalizeTagName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTagIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		tag  Tag
		want bool
	}{
		{"drained", Tag{Count: 0}, true},
		{"negative", Tag{Count: -1}, true},
		{"referenced", Tag{Count: 1}, false},
		{"drained but main", Tag{Count: 0, Main: true}, false},
	}
	for _, tt := range tests {
		if got := tt.tag.IsEmpty(); got != tt.want {
			t.Errorf("%s: IsEmpty() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	if NormalizeKey("  Cafe   X ") != "cafe x" {
		t.Errorf("NormalizeKey collapsed form wrong: %q", NormalizeKey("  Cafe   X "))
	}
	if NormalizeKey("Cafe X") != NormalizeKey("cafe  x") {
		t.Error("equivalent titles must share a key")
	}
}
