package history

import (
	"fmt"
	"testing"
)

func TestRecord_NewestFirst(t *testing.T) {
	r := New(10)
	r.Record("matrix", 3)
	r.Record("inception", 5)

	got := r.Recent(0)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Query != "inception" || got[1].Query != "matrix" {
		t.Errorf("order = [%s %s]", got[0].Query, got[1].Query)
	}
}

func TestRecord_DedupMovesToFront(t *testing.T) {
	r := New(10)
	r.Record("matrix", 3)
	r.Record("inception", 5)
	r.Record("Matrix", 4)

	got := r.Recent(0)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 after dedup", len(got))
	}
	if got[0].Query != "matrix" {
		t.Errorf("front = %q, want matrix", got[0].Query)
	}
	if got[0].Hits != 2 {
		t.Errorf("Hits = %d, want 2", got[0].Hits)
	}
	if got[0].ResultCount != 4 {
		t.Errorf("ResultCount = %d, want latest value 4", got[0].ResultCount)
	}
}

func TestRecord_Capacity(t *testing.T) {
	r := New(3)
	for i := 0; i < 5; i++ {
		r.Record(fmt.Sprintf("q%d", i), 1)
	}

	got := r.Recent(0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Query != "q4" || got[2].Query != "q2" {
		t.Errorf("unexpected window: %q .. %q", got[0].Query, got[2].Query)
	}
}

func TestRecord_IgnoresBlank(t *testing.T) {
	r := New(10)
	r.Record("   ", 0)
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestRecent_Limit(t *testing.T) {
	r := New(10)
	r.Record("a", 1)
	r.Record("b", 1)
	r.Record("c", 1)

	if got := r.Recent(2); len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestPopular_OrdersByHits(t *testing.T) {
	r := New(10)
	r.Record("rare", 1)
	r.Record("common", 1)
	r.Record("common", 1)
	r.Record("common", 1)
	r.Record("middling", 1)
	r.Record("middling", 1)

	got := r.Popular(2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Query != "common" || got[1].Query != "middling" {
		t.Errorf("order = [%s %s]", got[0].Query, got[1].Query)
	}
}

func TestClear(t *testing.T) {
	r := New(10)
	r.Record("a", 1)
	r.Clear()
	if r.Len() != 0 {
		t.Errorf("Len = %d after Clear", r.Len())
	}
}
