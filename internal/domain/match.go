package domain

// MatchResult pairs a catalog entry with the asset the reconciler accepted
// for it. One result is retained per (entry, drive) pair.
type MatchResult struct {
	Asset           MediaAsset   `json:"asset"`
	Entry           CatalogEntry `json:"entry"`
	MatchScore      float64      `json:"match_score"`
	MatchedFilename string       `json:"matched_filename"`
}
