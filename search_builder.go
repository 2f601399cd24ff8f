package mediadex

import (
	"context"

	searchuc "github.com/bitaca/mediadex/internal/usecase/search"
)

// QueryBuilder is a fluent builder for retrieval queries.
type QueryBuilder struct {
	client *Client

	text   string
	drive  *int
	genres []string
	limit  int
}

// Query starts a fluent retrieval query.
func (c *Client) Query(text string) *QueryBuilder {
	return &QueryBuilder{client: c, text: text}
}

// Drive restricts results to one asset catalog partition.
func (b *QueryBuilder) Drive(drive int) *QueryBuilder {
	b.drive = &drive
	return b
}

// Genres restricts results to content tagged with any of the given genres.
func (b *QueryBuilder) Genres(genres ...string) *QueryBuilder {
	b.genres = append(b.genres, genres...)
	return b
}

// Limit sets the maximum number of results.
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	b.limit = n
	return b
}

// Do executes the query.
func (b *QueryBuilder) Do(ctx context.Context) ([]Hit, error) {
	results, err := b.client.search.Search(ctx, searchuc.Query{
		Text:    b.text,
		Limit:   b.limit,
		DriveID: b.drive,
		Genres:  b.genres,
	})
	if err != nil {
		return nil, err
	}
	return hitsFromResults(results), nil
}
