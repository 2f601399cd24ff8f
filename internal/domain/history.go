package domain

import "time"

// SearchHistoryEntry records one completed search. Entries live in a bounded
// most-recent-unique list; re-searching a query moves it to the front and
// bumps Hits.
type SearchHistoryEntry struct {
	Query       string    `json:"query"`
	ResultCount int       `json:"result_count"`
	Hits        int       `json:"hits"`
	Timestamp   time.Time `json:"timestamp"`
}
