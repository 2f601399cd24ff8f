package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/bitaca/mediadex/internal/domain"
)

type mockEmbedder struct {
	mu    sync.Mutex
	fn    func(text string) (domain.EmbeddingResult, error)
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 5}, nil
}

type mockTagger struct {
	fn func(title string) (domain.SmartTags, error)
}

func (m *mockTagger) Tag(_ context.Context, title, _ string) (domain.SmartTags, error) {
	if m.fn != nil {
		return m.fn(title)
	}
	return domain.SmartTags{Genres: []string{"action"}, Themes: []string{"heist"}}, nil
}

type mockIndexer struct {
	mu      sync.Mutex
	batches [][]domain.EnrichedContent
	err     error
}

func (m *mockIndexer) UpsertBatch(_ context.Context, contents []domain.EnrichedContent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, contents)
	return nil
}

func newTestService(t *testing.T, emb *mockEmbedder, tag *mockTagger, idx Indexer) *Service {
	t.Helper()
	s, err := New(emb, tag, idx, Options{BatchSize: 5, PoolSize: 5, Model: "test-model"}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Release)
	return s
}

func asset(id string) domain.MediaAsset {
	return domain.MediaAsset{AssetID: id, Name: id + ".mkv", DriveID: 1, IsVideo: true}
}

func TestEnrich_AssemblesRecord(t *testing.T) {
	s := newTestService(t, &mockEmbedder{}, &mockTagger{}, nil)

	entry := &domain.CatalogEntry{Title: "Heat", Overview: "Cops and robbers."}
	content, err := s.Enrich(context.Background(), asset("a1"), entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if content.AssetID != "a1" || content.Title != "Heat" || content.Synopsis != "Cops and robbers." {
		t.Errorf("content = %+v", content)
	}
	if len(content.Embedding) != 2 || content.EmbeddingDims != 2 {
		t.Errorf("embedding = %v dims %d", content.Embedding, content.EmbeddingDims)
	}
	if content.Genre != "action" || content.Theme != "heist" {
		t.Errorf("genre/theme = %q/%q", content.Genre, content.Theme)
	}
	if content.EmbeddingModel != "test-model" {
		t.Errorf("EmbeddingModel = %q", content.EmbeddingModel)
	}
	if !strings.Contains(content.SearchText, "a1.mkv") || !strings.Contains(content.SearchText, "action") {
		t.Errorf("SearchText = %q", content.SearchText)
	}
	if content.EnrichedAt.IsZero() {
		t.Error("EnrichedAt not set")
	}
}

func TestEnrich_EmbeddingFailureIsFatal(t *testing.T) {
	emb := &mockEmbedder{fn: func(string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, fmt.Errorf("down: %w", domain.ErrEmbedding)
	}}
	s := newTestService(t, emb, &mockTagger{}, nil)

	_, err := s.Enrich(context.Background(), asset("a1"), nil)
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("err = %v, want ErrEmbedding", err)
	}
}

func TestEnrich_TaggingFailsOpen(t *testing.T) {
	tag := &mockTagger{fn: func(string) (domain.SmartTags, error) {
		return domain.SmartTags{}, fmt.Errorf("degraded: %w", domain.ErrTaggingDegraded)
	}}
	s := newTestService(t, &mockEmbedder{}, tag, nil)

	content, err := s.Enrich(context.Background(), asset("a1"), nil)
	if err != nil {
		t.Fatalf("tagging failure must not be fatal: %v", err)
	}
	if len(content.SmartTags.Genres) != 1 || content.SmartTags.Genres[0] != "unknown" {
		t.Errorf("Genres = %v, want [unknown]", content.SmartTags.Genres)
	}
	if content.SmartTags.Themes == nil || len(content.SmartTags.Themes) != 0 {
		t.Errorf("Themes = %v, want empty non-nil", content.SmartTags.Themes)
	}
}

func TestEnrichBatch_PartialFailureShape(t *testing.T) {
	// 7 assets, batch size 5: two chunks. Assets a2 and a5 fail embedding.
	emb := &mockEmbedder{fn: func(text string) (domain.EmbeddingResult, error) {
		if strings.Contains(text, "a2.mkv") || strings.Contains(text, "a5.mkv") {
			return domain.EmbeddingResult{}, fmt.Errorf("down: %w", domain.ErrEmbedding)
		}
		return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
	}}
	idx := &mockIndexer{}
	s := newTestService(t, emb, &mockTagger{}, idx)

	items := make([]Item, 7)
	for i := range items {
		items[i] = Item{Asset: asset(fmt.Sprintf("a%d", i))}
	}

	enriched, err := s.EnrichBatch(context.Background(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(enriched) != 5 {
		t.Fatalf("enriched = %d, want 5 of 7", len(enriched))
	}
	got := make(map[string]bool)
	for _, c := range enriched {
		got[c.AssetID] = true
	}
	if got["a2"] || got["a5"] {
		t.Errorf("failed assets leaked into results: %v", got)
	}
	if len(idx.batches) != 1 || len(idx.batches[0]) != 5 {
		t.Errorf("persisted batches = %+v, want one batch of 5", len(idx.batches))
	}
}

func TestEnrichBatch_EmptyInput(t *testing.T) {
	idx := &mockIndexer{}
	s := newTestService(t, &mockEmbedder{}, &mockTagger{}, idx)

	enriched, err := s.EnrichBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(enriched) != 0 {
		t.Errorf("enriched = %d, want 0", len(enriched))
	}
	if len(idx.batches) != 0 {
		t.Error("nothing should be persisted for empty input")
	}
}

func TestEnrichBatch_CancellationReturnsAccumulated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	emb := &mockEmbedder{fn: func(string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{Embedding: []float32{0.1}}, nil
	}}
	s, err := New(emb, &mockTagger{}, nil, Options{BatchSize: 2, PoolSize: 2}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Release)

	items := make([]Item, 6)
	for i := range items {
		items[i] = Item{Asset: asset(fmt.Sprintf("a%d", i))}
	}

	// Cancel once the first chunk is underway.
	cancel()
	enriched, err := s.EnrichBatch(ctx, items)
	if err == nil {
		t.Fatal("expected context error")
	}
	if len(enriched) > 2 {
		t.Errorf("enriched = %d, want at most the first chunk", len(enriched))
	}
}

func TestEnrichBatch_PersistErrorSurfaces(t *testing.T) {
	idx := &mockIndexer{err: errors.New("store down")}
	s := newTestService(t, &mockEmbedder{}, &mockTagger{}, idx)

	enriched, err := s.EnrichBatch(context.Background(), []Item{{Asset: asset("a1")}})
	if err == nil {
		t.Fatal("expected persist error")
	}
	if len(enriched) != 1 {
		t.Errorf("enriched results should still be returned, got %d", len(enriched))
	}
}
