// Package scoring implements the string-similarity scoring used to reconcile
// catalog entries with raw asset filenames.
package scoring

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bitaca/mediadex/internal/domain"
)

const (
	yearBonus       = 0.1
	wordBonusWeight = 0.2
)

// stopWords are excluded from significant-word overlap scoring.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true,
	"from": true, "this": true, "that": true,
}

var (
	yearRegex    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	nonAlnumOnly = regexp.MustCompile(`[^\w]`)
)

// Similarity returns normalized edit-distance similarity in [0,1]:
// 1 - editDistance(long, short) / len(long). Two empty strings compare as
// identical. Case folding is the caller's responsibility.
func Similarity(a, b string) float64 {
	longer, shorter := a, b
	if len(b) > len(a) {
		longer, shorter = b, a
	}
	if len(longer) == 0 {
		return 1.0
	}
	distance := levenshtein(longer, shorter)
	return float64(len(longer)-distance) / float64(len(longer))
}

// levenshtein computes edit distance with unit-cost insert/delete/substitute.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(rb); i++ {
		curr[0] = i
		for j := 1; j <= len(ra); j++ {
			if rb[i-1] == ra[j-1] {
				curr[j] = prev[j-1]
			} else {
				curr[j] = min(prev[j-1], curr[j-1], prev[j]) + 1
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}

// Score blends title similarity with year and word-overlap bonuses,
// clamped to [0,1].
func Score(entry domain.CatalogEntry, asset domain.MediaAsset) float64 {
	entryTitle := strings.ToLower(entry.Title)
	if entryTitle == "" {
		entryTitle = strings.ToLower(entry.OriginalTitle)
	}
	assetName := strings.ToLower(asset.Name)

	score := Similarity(entryTitle, assetName)

	entryYear, okEntry := ExtractYear(entry.ReleaseDate)
	assetYear, okAsset := ExtractYear(asset.Name)
	if okEntry && okAsset && abs(entryYear-assetYear) <= 1 {
		score += yearBonus
	}

	entryWords := SignificantWords(entryTitle)
	assetWords := SignificantWords(assetName)
	shared := 0
	assetSet := make(map[string]bool, len(assetWords))
	for _, w := range assetWords {
		assetSet[w] = true
	}
	for _, w := range entryWords {
		if assetSet[w] {
			shared++
		}
	}
	score += wordBonusWeight * float64(shared) / float64(max(len(entryWords), 1))

	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

// ExtractYear finds the first 4-digit 19xx/20xx year in s.
func ExtractYear(s string) (int, bool) {
	m := yearRegex.FindString(s)
	if m == "" {
		return 0, false
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return year, true
}

// SignificantWords returns the alphanumeric-only tokens of s longer than
// three characters that are not stop words.
func SignificantWords(s string) []string {
	var words []string
	for _, w := range strings.Fields(s) {
		w = nonAlnumOnly.ReplaceAllString(w, "")
		if len(w) > 3 && !stopWords[w] {
			words = append(words, w)
		}
	}
	return words
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
