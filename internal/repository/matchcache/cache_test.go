package matchcache

import (
	"testing"
	"time"

	"github.com/bitaca/mediadex/internal/domain"
)

func match(name string) domain.MatchResult {
	return domain.MatchResult{
		Asset:           domain.MediaAsset{AssetID: name, Name: name},
		MatchScore:      0.9,
		MatchedFilename: name,
	}
}

func TestCache_PutGet(t *testing.T) {
	c := New(10, 0)
	c.Put(603, 1, match("matrix.mkv"))

	got, ok := c.Get(603, 1)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.MatchedFilename != "matrix.mkv" {
		t.Errorf("MatchedFilename = %q", got.MatchedFilename)
	}
}

func TestCache_KeysArePartitioned(t *testing.T) {
	c := New(10, 0)
	c.Put(603, 1, match("movies.mkv"))

	if _, ok := c.Get(603, 0); ok {
		t.Error("drive 0 must not see drive 1's entry")
	}
}

func TestCache_EvictsLeastRecent(t *testing.T) {
	c := New(2, 0)
	c.Put(1, 0, match("a"))
	c.Put(2, 0, match("b"))
	c.Put(3, 0, match("c"))

	if _, ok := c.Get(1, 0); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get(3, 0); !ok {
		t.Error("newest entry missing")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(10, 10*time.Millisecond)
	c.Put(1, 0, match("a"))

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get(1, 0); ok {
		t.Error("entry should have expired")
	}
}

func TestCache_Stats(t *testing.T) {
	c := New(10, 0)
	c.Put(1, 0, match("a"))
	c.Put(2, 1, match("b"))

	stats := c.Stats()
	if stats.Size != 2 {
		t.Errorf("Size = %d, want 2", stats.Size)
	}
	if len(stats.Keys) != 2 {
		t.Errorf("Keys = %v, want 2 entries", stats.Keys)
	}
}

func TestCache_Clear(t *testing.T) {
	c := New(10, 0)
	c.Put(1, 0, match("a"))
	c.Clear()
	if stats := c.Stats(); stats.Size != 0 {
		t.Errorf("Size after Clear = %d, want 0", stats.Size)
	}
}
