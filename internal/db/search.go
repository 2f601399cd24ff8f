package db

// TagFilter restricts a search to documents whose tag field matches any of
// the given values. Filters combine with AND; values within one filter with OR.
type TagFilter struct {
	Field string
	AnyOf []string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      []TagFilter
	Vector       []float32
	K            int
	ReturnFields []string
}

// PrefixQuery is the input for a lexical prefix search on a TEXT field.
type PrefixQuery struct {
	IndexName    string
	Field        string
	Prefix       string
	Filters      []TagFilter
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
