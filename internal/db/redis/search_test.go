package redis

import (
	"strings"
	"testing"

	"github.com/bitaca/mediadex/internal/db"
)

func TestBuildFilter_Empty(t *testing.T) {
	if got := buildFilter(nil); got != "" {
		t.Errorf("buildFilter(nil) = %q, want empty", got)
	}
}

func TestBuildFilter_SingleValue(t *testing.T) {
	got := buildFilter([]db.TagFilter{{Field: "driveId", AnyOf: []string{"1"}}})
	if got != "@driveId:{1}" {
		t.Errorf("buildFilter = %q", got)
	}
}

func TestBuildFilter_MultiValueAndMultiField(t *testing.T) {
	got := buildFilter([]db.TagFilter{
		{Field: "driveId", AnyOf: []string{"0"}},
		{Field: "genres", AnyOf: []string{"action", "drama"}},
	})
	if got != "@driveId:{0} @genres:{action|drama}" {
		t.Errorf("buildFilter = %q", got)
	}
}

func TestBuildFilter_EscapesTagValues(t *testing.T) {
	got := buildFilter([]db.TagFilter{{Field: "genres", AnyOf: []string{"sci-fi"}}})
	if !strings.Contains(got, `sci\-fi`) {
		t.Errorf("buildFilter = %q, want escaped hyphen", got)
	}
}

func TestVectorToBytes_Length(t *testing.T) {
	got := vectorToBytes([]float32{1, 2, 3})
	if len(got) != 12 {
		t.Errorf("len = %d, want 12", len(got))
	}
}

func TestBuildCreateArgs(t *testing.T) {
	def, err := db.NewIndex("mediadex:content:idx").
		OnJSON().
		Prefix("mediadex:content:").
		TagAs("$.drive_id", "driveId", ",").
		TagAs("$.smart_tags.genres", "genres", ",").
		TextAs("$.search_text", "searchText").
		VectorHNSW("$.embedding", "embedding", 1024, 32, 400).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	args, err := buildCreateArgs(def)
	if err != nil {
		t.Fatalf("buildCreateArgs: %v", err)
	}

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"ON JSON",
		"PREFIX 1 mediadex:content:",
		"$.drive_id AS driveId TAG",
		"$.search_text AS searchText TEXT",
		"VECTOR HNSW",
		"DIM 1024",
		"DISTANCE_METRIC COSINE",
		"M 32",
		"EF_CONSTRUCTION 400",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestBuildCreateArgs_RejectsZeroDim(t *testing.T) {
	def := &db.IndexDefinition{
		Name:   "bad",
		Fields: []db.IndexField{{Name: "$.embedding", Type: db.IndexFieldVector}},
	}
	if _, err := buildCreateArgs(def); err == nil {
		t.Error("expected error for zero vector DIM")
	}
}
