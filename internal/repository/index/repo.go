// Package index adapts the persisted vector store to the retrieval layer:
// enriched content goes in as JSON documents with an embedded vector, and
// comes back out through KNN, prefix, and corpus-scan queries.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/bitaca/mediadex/internal/db"
	"github.com/bitaca/mediadex/internal/domain"
)

const (
	keyPrefix = "mediadex:content:"
	indexName = "mediadex:content:idx"

	// scanPageSize bounds one SearchList page when walking the corpus.
	scanPageSize = 200
)

// store is the consumer interface for index operations (ISP).
type store interface {
	db.JSONStore
	db.IndexManager
	db.Searcher
}

// Filters narrows a vector query before ranking.
type Filters struct {
	DriveID *int
	Genres  []string
}

// Hit is one retrieval result with its similarity score.
type Hit struct {
	Content domain.EnrichedContent
	Score   float64
}

// Stats summarizes the indexed corpus.
type Stats struct {
	Total   int         `json:"total"`
	ByDrive map[int]int `json:"by_drive"`
}

// Repo is the vector index adapter.
type Repo struct {
	store  store
	dims   int
	logger *zap.Logger
}

// New creates the adapter. dims is the embedding dimension every stored
// vector must share.
func New(s store, dims int, logger *zap.Logger) *Repo {
	return &Repo{store: s, dims: dims, logger: logger}
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := db.NewIndex(indexName).
		OnJSON().
		Prefix(keyPrefix).
		TagAs("$.drive_id", "driveId", ",").
		TagAs("$.smart_tags.genres[*]", "genres", ",").
		TextAs("$.search_text", "searchText").
		VectorHNSW("$.embedding", "embedding", r.dims, 32, 400).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Upsert stores one enriched record, rejecting vectors of the wrong dimension.
func (r *Repo) Upsert(ctx context.Context, content *domain.EnrichedContent) error {
	if len(content.Embedding) != r.dims {
		return fmt.Errorf("upsert %s: got %d dims, index wants %d: %w",
			content.AssetID, len(content.Embedding), r.dims, domain.ErrDimensionMismatch)
	}

	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}

	if err := r.store.JSONSet(ctx, keyPrefix+content.AssetID, "$", data); err != nil {
		return fmt.Errorf("store content: %w", err)
	}
	return nil
}

// UpsertBatch stores many records in one pipeline. The whole batch is
// dimension-checked before anything is written.
func (r *Repo) UpsertBatch(ctx context.Context, contents []domain.EnrichedContent) error {
	items := make([]db.JSONSetItem, 0, len(contents))
	for i := range contents {
		c := &contents[i]
		if len(c.Embedding) != r.dims {
			return fmt.Errorf("upsert batch %s: got %d dims, index wants %d: %w",
				c.AssetID, len(c.Embedding), r.dims, domain.ErrDimensionMismatch)
		}
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal content %s: %w", c.AssetID, err)
		}
		items = append(items, db.JSONSetItem{Key: keyPrefix + c.AssetID, Path: "$", Data: data})
	}

	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store batch: %w", err)
	}
	return nil
}

// Get reads one stored record by asset ID.
func (r *Repo) Get(ctx context.Context, assetID string) (domain.EnrichedContent, error) {
	data, err := r.store.JSONGet(ctx, keyPrefix+assetID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.EnrichedContent{}, fmt.Errorf("content %s: %w", assetID, domain.ErrNotFound)
		}
		return domain.EnrichedContent{}, fmt.Errorf("get content: %w", err)
	}
	return decodeContent(data)
}

// Query runs a filtered KNN search against the persisted index.
func (r *Repo) Query(ctx context.Context, vector []float32, k int, filters Filters) ([]Hit, error) {
	if len(vector) != r.dims {
		return nil, fmt.Errorf("query: got %d dims, index wants %d: %w",
			len(vector), r.dims, domain.ErrDimensionMismatch)
	}

	q := &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vector,
		K:            k,
		Filters:      tagFilters(filters),
		ReturnFields: []string{"$", "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", domainErr(err))
	}
	return r.toHits(sr), nil
}

// RangePrefix runs the lexical fallback: a prefix query on the searchText
// field. Hits carry no vector score.
func (r *Repo) RangePrefix(ctx context.Context, prefix string, limit int, filters Filters) ([]Hit, error) {
	q := &db.PrefixQuery{
		IndexName:    indexName,
		Field:        "searchText",
		Prefix:       prefix,
		Filters:      tagFilters(filters),
		Limit:        limit,
		ReturnFields: []string{"$"},
	}

	sr, err := r.store.SearchPrefix(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search prefix: %w", domainErr(err))
	}
	return r.toHits(sr), nil
}

// Related returns the k nearest neighbors of a stored record, excluding the
// record itself.
func (r *Repo) Related(ctx context.Context, assetID string, k int) ([]Hit, error) {
	content, err := r.Get(ctx, assetID)
	if err != nil {
		return nil, err
	}

	hits, err := r.Query(ctx, content.Embedding, k+1, Filters{})
	if err != nil {
		return nil, err
	}

	related := make([]Hit, 0, k)
	for _, h := range hits {
		if h.Content.AssetID == assetID {
			continue
		}
		related = append(related, h)
		if len(related) == k {
			break
		}
	}
	return related, nil
}

// All walks the corpus up to limit records. Used by the keyword fallback and
// by query-vector approximation when no embedder is configured.
func (r *Repo) All(ctx context.Context, limit int) ([]domain.EnrichedContent, error) {
	var contents []domain.EnrichedContent
	for offset := 0; offset < limit; offset += scanPageSize {
		page := min(scanPageSize, limit-offset)
		sr, err := r.store.SearchList(ctx, indexName, "*", offset, page, []string{"$"})
		if err != nil {
			return nil, fmt.Errorf("list contents: %w", domainErr(err))
		}
		for _, e := range sr.Entries {
			content, err := decodeContent([]byte(e.Fields["$"]))
			if err != nil {
				r.logger.Warn("Skipping undecodable content", zap.String("key", e.Key), zap.Error(err))
				continue
			}
			contents = append(contents, content)
		}
		if len(sr.Entries) < page {
			break
		}
	}
	return contents, nil
}

// Stats counts indexed records, total and per drive partition.
func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	total, err := r.store.SearchCount(ctx, indexName, "*")
	if err != nil {
		return Stats{}, fmt.Errorf("count contents: %w", domainErr(err))
	}

	stats := Stats{Total: total, ByDrive: make(map[int]int)}
	for _, drive := range []int{0, 1} {
		n, err := r.store.SearchCount(ctx, indexName, "@driveId:{"+strconv.Itoa(drive)+"}")
		if err != nil {
			return Stats{}, fmt.Errorf("count drive %d: %w", drive, domainErr(err))
		}
		stats.ByDrive[drive] = n
	}
	return stats, nil
}

func (r *Repo) toHits(sr *db.SearchResult) []Hit {
	hits := make([]Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		content, err := decodeContent([]byte(e.Fields["$"]))
		if err != nil {
			r.logger.Warn("Skipping undecodable search hit", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		hits = append(hits, Hit{Content: content, Score: e.Score})
	}
	return hits
}

func tagFilters(f Filters) []db.TagFilter {
	var filters []db.TagFilter
	if f.DriveID != nil {
		filters = append(filters, db.TagFilter{Field: "driveId", AnyOf: []string{strconv.Itoa(*f.DriveID)}})
	}
	if len(f.Genres) > 0 {
		filters = append(filters, db.TagFilter{Field: "genres", AnyOf: f.Genres})
	}
	return filters
}

func decodeContent(data []byte) (domain.EnrichedContent, error) {
	// JSON.GET with path $ wraps the document in a one-element array.
	var docs []domain.EnrichedContent
	if err := json.Unmarshal(data, &docs); err == nil && len(docs) > 0 {
		return docs[0], nil
	}

	var doc domain.EnrichedContent
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.EnrichedContent{}, fmt.Errorf("decode content: %w", err)
	}
	return doc, nil
}

func domainErr(err error) error {
	var dbErr *db.Error
	if errors.As(err, &dbErr) {
		return fmt.Errorf("%v: %w", err, domain.ErrCollaboratorUnavailable)
	}
	return err
}
