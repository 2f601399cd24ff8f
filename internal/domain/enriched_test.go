package domain

import (
	"strings"
	"testing"
)

func TestDefaultSmartTags(t *testing.T) {
	tags := DefaultSmartTags()
	if len(tags.Genres) != 1 || tags.Genres[0] != "unknown" {
		t.Errorf("Genres = %v, want [unknown]", tags.Genres)
	}
	if len(tags.Themes) != 0 || len(tags.Mood) != 0 || len(tags.TargetAudience) != 0 || len(tags.Style) != 0 {
		t.Error("non-genre categories must be empty")
	}
}

func TestBuildSearchText(t *testing.T) {
	tags := SmartTags{
		Genres: []string{"Action"},
		Mood:   []string{"Dark"},
	}
	text := BuildSearchText("Akira.1988.mkv", tags)

	if text != strings.ToLower(text) {
		t.Error("search text is not lowercase")
	}
	for _, part := range []string{"akira.1988.mkv", "action", "dark"} {
		if !strings.Contains(text, part) {
			t.Errorf("search text %q missing %q", text, part)
		}
	}
}
