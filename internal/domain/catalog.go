package domain

import (
	"regexp"
	"strings"
)

// MediaType distinguishes catalog entry kinds.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// CatalogEntry is a metadata record from the rich third-party catalog.
// Immutable once parsed from the metadata collaborator.
type CatalogEntry struct {
	ExternalID    int       `json:"external_id"`
	MediaType     MediaType `json:"media_type"`
	Title         string    `json:"title"`
	OriginalTitle string    `json:"original_title"`
	Overview      string    `json:"overview"`
	ReleaseDate   string    `json:"release_date"`
	PosterURL     string    `json:"poster_url,omitempty"`
	BackdropURL   string    `json:"backdrop_url,omitempty"`
	Popularity    float64   `json:"popularity"`
	Rating        float64   `json:"rating"`
	GenreIDs      []int     `json:"genre_ids,omitempty"`
	OriginCountry []string  `json:"origin_country,omitempty"`

	// SearchVariations is derived from the titles at parse time.
	SearchVariations []string `json:"search_variations,omitempty"`
}

var nonWordRegex = regexp.MustCompile(`[^\w\s]`)

// SearchVariations produces alternate search strings for a title: the title
// itself, a distinct original title, a punctuation-stripped copy, individual
// tokens longer than three characters, and the leading two- and three-token
// joins. The result is deterministic, deduplicated in insertion order, and
// contains no blanks.
func SearchVariations(title, originalTitle string) []string {
	var variations []string
	seen := make(map[string]bool)

	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		variations = append(variations, v)
	}

	add(title)
	if originalTitle != title {
		add(originalTitle)
	}

	clean := strings.TrimSpace(nonWordRegex.ReplaceAllString(title, ""))
	add(clean)

	var words []string
	for _, w := range strings.Fields(clean) {
		if len(w) > 3 {
			words = append(words, w)
		}
	}
	for _, w := range words {
		add(w)
	}

	if len(words) >= 2 {
		add(strings.Join(words[:2], " "))
	}
	if len(words) >= 3 {
		add(strings.Join(words[:3], " "))
	}

	return variations
}
