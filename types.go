package mediadex

import (
	"github.com/bitaca/mediadex/internal/domain"
	searchuc "github.com/bitaca/mediadex/internal/usecase/search"
)

// Drive partitions of the asset catalog.
const (
	DriveAnime  = 0
	DriveMovies = 1
)

// Entry is a rich metadata catalog entry.
type Entry struct {
	ExternalID    int
	MediaType     string // "movie" or "tv"
	Title         string
	OriginalTitle string
	Overview      string
	ReleaseDate   string
	PosterURL     string
	Popularity    float64
	Rating        float64
	OriginCountry []string
}

// Asset is a raw media asset from the asset catalog.
type Asset struct {
	AssetID   string
	Name      string
	URL       string
	Path      string
	SizeBytes int64
	MimeType  string
	DriveID   int
	IsVideo   bool
}

// Match pairs a catalog entry with the asset backing it.
type Match struct {
	Asset           Asset
	Entry           Entry
	Score           float64
	MatchedFilename string
}

// Hit is one retrieval result.
type Hit struct {
	AssetID  string
	Name     string
	Title    string
	Genre    string
	Synopsis string
	DriveID  int
	Score    float64
	Mode     string // "semantic" or "keyword"
}

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	Value string
	Type  string
}

// Stats summarizes the engine state.
type Stats struct {
	Indexed     int
	ByDrive     map[int]int
	CacheSize   int
	HistorySize int
}

func entryToInternal(e Entry) domain.CatalogEntry {
	return domain.CatalogEntry{
		ExternalID:    e.ExternalID,
		MediaType:     domain.MediaType(e.MediaType),
		Title:         e.Title,
		OriginalTitle: e.OriginalTitle,
		Overview:      e.Overview,
		ReleaseDate:   e.ReleaseDate,
		PosterURL:     e.PosterURL,
		Popularity:    e.Popularity,
		Rating:        e.Rating,
		OriginCountry: e.OriginCountry,
		// Variations drive reconciliation; derive them up front.
		SearchVariations: domain.SearchVariations(e.Title, e.OriginalTitle),
	}
}

func entryFromInternal(e domain.CatalogEntry) Entry {
	return Entry{
		ExternalID:    e.ExternalID,
		MediaType:     string(e.MediaType),
		Title:         e.Title,
		OriginalTitle: e.OriginalTitle,
		Overview:      e.Overview,
		ReleaseDate:   e.ReleaseDate,
		PosterURL:     e.PosterURL,
		Popularity:    e.Popularity,
		Rating:        e.Rating,
		OriginCountry: e.OriginCountry,
	}
}

func assetToInternal(a Asset) domain.MediaAsset {
	return domain.MediaAsset{
		AssetID:   a.AssetID,
		Name:      a.Name,
		URL:       a.URL,
		Path:      a.Path,
		SizeBytes: a.SizeBytes,
		MimeType:  a.MimeType,
		DriveID:   a.DriveID,
		IsVideo:   a.IsVideo,
	}
}

func assetFromInternal(a domain.MediaAsset) Asset {
	return Asset{
		AssetID:   a.AssetID,
		Name:      a.Name,
		URL:       a.URL,
		Path:      a.Path,
		SizeBytes: a.SizeBytes,
		MimeType:  a.MimeType,
		DriveID:   a.DriveID,
		IsVideo:   a.IsVideo,
	}
}

func matchFromInternal(m domain.MatchResult) Match {
	return Match{
		Asset:           assetFromInternal(m.Asset),
		Entry:           entryFromInternal(m.Entry),
		Score:           m.MatchScore,
		MatchedFilename: m.MatchedFilename,
	}
}

func hitFromResult(r searchuc.Result) Hit {
	return Hit{
		AssetID:  r.Content.AssetID,
		Name:     r.Content.Name,
		Title:    r.Content.DisplayTitle(),
		Genre:    r.Content.Genre,
		Synopsis: r.Content.Synopsis,
		DriveID:  r.Content.DriveID,
		Score:    r.Score,
		Mode:     r.Mode,
	}
}
