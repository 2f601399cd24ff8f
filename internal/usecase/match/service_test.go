package match

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bitaca/mediadex/internal/domain"
	"github.com/bitaca/mediadex/internal/metrics"
	"github.com/bitaca/mediadex/internal/repository/matchcache"
)

func TestMain(m *testing.M) {
	metrics.RegisterCollectors()
	os.Exit(m.Run())
}

type mockAssets struct {
	searchFn func(ctx context.Context, query string, driveID int) ([]domain.MediaAsset, error)
	queries  []string
}

func (m *mockAssets) Search(ctx context.Context, query string, driveID int) ([]domain.MediaAsset, error) {
	m.queries = append(m.queries, query)
	if m.searchFn != nil {
		return m.searchFn(ctx, query, driveID)
	}
	return nil, nil
}

type mockMetadata struct {
	searchFn   func(ctx context.Context, query string, mt domain.MediaType) ([]domain.CatalogEntry, error)
	discoverFn func(ctx context.Context, mt domain.MediaType, genre string, page int) ([]domain.CatalogEntry, error)
}

func (m *mockMetadata) Search(ctx context.Context, query string, mt domain.MediaType) ([]domain.CatalogEntry, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, mt)
	}
	return nil, nil
}

func (m *mockMetadata) DiscoverByGenre(ctx context.Context, mt domain.MediaType, genre string, page int) ([]domain.CatalogEntry, error) {
	if m.discoverFn != nil {
		return m.discoverFn(ctx, mt, genre, page)
	}
	return nil, nil
}

func newTestService(assets *mockAssets, metadata *mockMetadata) *Service {
	return New(assets, metadata, matchcache.New(100, 0), nil, zap.NewNop())
}

func entry(id int, title string) domain.CatalogEntry {
	e := domain.CatalogEntry{
		ExternalID: id,
		MediaType:  domain.MediaTypeMovie,
		Title:      title,
	}
	e.SearchVariations = domain.SearchVariations(title, "")
	return e
}

func asset(name string) domain.MediaAsset {
	return domain.MediaAsset{AssetID: "id-" + name, Name: name, IsVideo: true}
}

func TestReconcile_AcceptsCloseFilename(t *testing.T) {
	assets := &mockAssets{searchFn: func(_ context.Context, _ string, _ int) ([]domain.MediaAsset, error) {
		return []domain.MediaAsset{asset("random_noise_file.mkv"), asset("the matrix")}, nil
	}}
	s := newTestService(assets, &mockMetadata{})

	e := entry(603, "The Matrix")
	m, err := s.Reconcile(context.Background(), &e, DriveMovies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.MatchedFilename != "the matrix" {
		t.Errorf("MatchedFilename = %q", m.MatchedFilename)
	}
	if m.MatchScore <= 0.5 {
		t.Errorf("MatchScore = %f, want > 0.5", m.MatchScore)
	}
	if m.Entry.ExternalID != 603 {
		t.Errorf("Entry.ExternalID = %d", m.Entry.ExternalID)
	}
}

func TestReconcile_NoMatchBelowThreshold(t *testing.T) {
	assets := &mockAssets{searchFn: func(_ context.Context, _ string, _ int) ([]domain.MediaAsset, error) {
		return []domain.MediaAsset{asset("zzzzzzzzzzzzzzzzzz.mkv")}, nil
	}}
	s := newTestService(assets, &mockMetadata{})

	e := entry(1, "The Matrix")
	_, err := s.Reconcile(context.Background(), &e, DriveMovies)
	if !errors.Is(err, domain.ErrNoMatch) {
		t.Fatalf("err = %v, want ErrNoMatch", err)
	}
}

func TestReconcile_CacheIdempotence(t *testing.T) {
	calls := 0
	assets := &mockAssets{searchFn: func(_ context.Context, _ string, _ int) ([]domain.MediaAsset, error) {
		calls++
		return []domain.MediaAsset{asset("the matrix")}, nil
	}}
	s := newTestService(assets, &mockMetadata{})

	e := entry(603, "The Matrix")
	first, err := s.Reconcile(context.Background(), &e, DriveMovies)
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	searchesAfterFirst := calls

	second, err := s.Reconcile(context.Background(), &e, DriveMovies)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if calls != searchesAfterFirst {
		t.Errorf("cached reconcile hit the collaborator again (%d -> %d)", searchesAfterFirst, calls)
	}
	if second.MatchedFilename != first.MatchedFilename || second.MatchScore != first.MatchScore {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}
}

func TestReconcile_NoMatchIsNotCached(t *testing.T) {
	calls := 0
	assets := &mockAssets{searchFn: func(_ context.Context, _ string, _ int) ([]domain.MediaAsset, error) {
		calls++
		if calls <= len(domain.SearchVariations("Dune", "")) {
			return nil, nil
		}
		return []domain.MediaAsset{asset("dune")}, nil
	}}
	s := newTestService(assets, &mockMetadata{})

	e := entry(7, "Dune")
	if _, err := s.Reconcile(context.Background(), &e, DriveMovies); !errors.Is(err, domain.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch first, got %v", err)
	}

	// Asset appeared since the failed attempt; a retry must find it.
	if _, err := s.Reconcile(context.Background(), &e, DriveMovies); err != nil {
		t.Fatalf("retry after no-match: %v", err)
	}
}

func TestReconcile_EarlyExitOnStrongMatch(t *testing.T) {
	// First variation ("The Amazing Spider-Man") returns an exact filename;
	// no further variation should be searched.
	assets := &mockAssets{searchFn: func(_ context.Context, query string, _ int) ([]domain.MediaAsset, error) {
		if query == "The Amazing Spider-Man" {
			return []domain.MediaAsset{asset("the amazing spider-man")}, nil
		}
		return []domain.MediaAsset{asset("unrelated")}, nil
	}}
	s := newTestService(assets, &mockMetadata{})

	e := entry(10, "The Amazing Spider-Man")
	if len(e.SearchVariations) < 3 {
		t.Fatalf("test needs several variations, got %v", e.SearchVariations)
	}

	m, err := s.Reconcile(context.Background(), &e, DriveMovies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.MatchScore <= 0.8 {
		t.Fatalf("MatchScore = %f, want > 0.8", m.MatchScore)
	}
	if len(assets.queries) != 1 {
		t.Errorf("searched %d variations %v, want early exit after 1", len(assets.queries), assets.queries)
	}
}

func TestReconcile_VariationErrorsAreAbsorbed(t *testing.T) {
	calls := 0
	assets := &mockAssets{searchFn: func(_ context.Context, _ string, _ int) ([]domain.MediaAsset, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("upstream hiccup")
		}
		return []domain.MediaAsset{asset("the matrix")}, nil
	}}
	s := newTestService(assets, &mockMetadata{})

	e := entry(603, "The Matrix")
	if _, err := s.Reconcile(context.Background(), &e, DriveMovies); err != nil {
		t.Fatalf("one failing variation must not fail the entry: %v", err)
	}
}

func TestReconcileAll_SkipsUnmatched(t *testing.T) {
	assets := &mockAssets{searchFn: func(_ context.Context, query string, _ int) ([]domain.MediaAsset, error) {
		if query == "Dune" {
			return []domain.MediaAsset{asset("dune")}, nil
		}
		return nil, nil
	}}
	s := newTestService(assets, &mockMetadata{})

	entries := []domain.CatalogEntry{entry(1, "Dune"), entry(2, "Nothing Here")}
	matches, err := s.ReconcileAll(context.Background(), entries, DriveMovies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].Entry.ExternalID != 1 {
		t.Errorf("matches = %+v", matches)
	}
}

func TestReconcileAll_CancellationReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reconciled := 0
	assets := &mockAssets{searchFn: func(_ context.Context, _ string, _ int) ([]domain.MediaAsset, error) {
		return []domain.MediaAsset{asset("dune")}, nil
	}}
	svc := New(assets, &mockMetadata{}, matchcache.New(100, 0), rate.NewLimiter(rate.Inf, 1), zap.NewNop())

	entries := []domain.CatalogEntry{entry(1, "dune"), entry(2, "dune"), entry(3, "dune")}
	// Cancel after the first entry by wrapping Reconcile via the asset mock.
	assets.searchFn = func(_ context.Context, _ string, _ int) ([]domain.MediaAsset, error) {
		reconciled++
		if reconciled == 1 {
			cancel()
		}
		return []domain.MediaAsset{asset("dune")}, nil
	}

	matches, err := svc.ReconcileAll(ctx, entries, DriveMovies)
	if err == nil {
		t.Fatal("expected context error")
	}
	if len(matches) > 1 {
		t.Errorf("matches = %d, want at most the pre-cancel result", len(matches))
	}
}

func TestSearchWithEnrichment_MetadataFirst(t *testing.T) {
	metadata := &mockMetadata{searchFn: func(_ context.Context, _ string, _ domain.MediaType) ([]domain.CatalogEntry, error) {
		return []domain.CatalogEntry{entry(603, "The Matrix")}, nil
	}}
	assets := &mockAssets{searchFn: func(_ context.Context, _ string, _ int) ([]domain.MediaAsset, error) {
		return []domain.MediaAsset{asset("the matrix")}, nil
	}}
	s := newTestService(assets, metadata)

	res, err := s.SearchWithEnrichment(context.Background(), "matrix", DriveMovies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) != 1 || len(res.Direct) != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestSearchWithEnrichment_DirectFallback(t *testing.T) {
	metadata := &mockMetadata{} // catalog knows nothing
	assets := &mockAssets{searchFn: func(_ context.Context, _ string, _ int) ([]domain.MediaAsset, error) {
		return []domain.MediaAsset{asset("obscure_release.mkv")}, nil
	}}
	s := newTestService(assets, metadata)

	res, err := s.SearchWithEnrichment(context.Background(), "obscure", DriveMovies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Direct) != 1 || len(res.Matches) != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestPersonalizedMatches_RoutesDrives(t *testing.T) {
	drives := make(map[int]int)
	assets := &mockAssets{searchFn: func(_ context.Context, query string, driveID int) ([]domain.MediaAsset, error) {
		drives[driveID]++
		return []domain.MediaAsset{{AssetID: "a", Name: query, IsVideo: true}}, nil
	}}
	metadata := &mockMetadata{discoverFn: func(_ context.Context, mt domain.MediaType, genre string, _ int) ([]domain.CatalogEntry, error) {
		if genre == "animation" {
			e := entry(100, "Naruto Shippuden")
			e.MediaType = mt
			e.OriginCountry = []string{"JP"}
			return []domain.CatalogEntry{e}, nil
		}
		e := entry(200, "Interstellar Voyage")
		e.MediaType = mt
		return []domain.CatalogEntry{e}, nil
	}}
	s := newTestService(assets, metadata)

	res, err := s.PersonalizedMatches(context.Background(), []string{"sci-fi"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total == 0 {
		t.Fatal("expected some matches")
	}
	// sci-fi implies anime discovery; anime goes to drive 0, the rest to drive 1.
	if drives[DriveAnime] == 0 || drives[DriveMovies] == 0 {
		t.Errorf("drive usage = %v, want both partitions searched", drives)
	}
	if len(res.Anime) == 0 {
		t.Error("expected anime matches for a sci-fi preference")
	}
}

func TestLikelyAnime(t *testing.T) {
	jp := domain.CatalogEntry{Title: "Something", OriginCountry: []string{"JP"}}
	if !likelyAnime(&jp) {
		t.Error("JP origin should qualify")
	}
	kw := domain.CatalogEntry{Title: "Super Ninja Story"}
	if !likelyAnime(&kw) {
		t.Error("keyword in title should qualify")
	}
	plain := domain.CatalogEntry{Title: "Ordinary Drama", Overview: "A quiet film."}
	if likelyAnime(&plain) {
		t.Error("plain drama should not qualify")
	}
}
