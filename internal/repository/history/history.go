// Package history keeps a bounded, in-memory record of recent searches.
// The newest unique query sits at the front; repeating a query moves it
// back to the front and bumps its hit counter.
package history

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bitaca/mediadex/internal/domain"
)

const defaultCapacity = 50

type Repo struct {
	mu      sync.Mutex
	entries []domain.SearchHistoryEntry
	cap     int
}

func New(capacity int) *Repo {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Repo{cap: capacity}
}

// Record notes a completed search. Queries are deduplicated
// case-insensitively; a repeat moves the entry to the front.
func (r *Repo) Record(query string, resultCount int) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	norm := strings.ToLower(query)
	for i, e := range r.entries {
		if strings.ToLower(e.Query) != norm {
			continue
		}
		e.Hits++
		e.ResultCount = resultCount
		e.Timestamp = time.Now()
		copy(r.entries[1:i+1], r.entries[:i])
		r.entries[0] = e
		return
	}

	e := domain.SearchHistoryEntry{
		Query:       query,
		ResultCount: resultCount,
		Hits:        1,
		Timestamp:   time.Now(),
	}
	r.entries = append(r.entries, domain.SearchHistoryEntry{})
	copy(r.entries[1:], r.entries)
	r.entries[0] = e

	if len(r.entries) > r.cap {
		r.entries = r.entries[:r.cap]
	}
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (r *Repo) Recent(limit int) []domain.SearchHistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.SearchHistoryEntry, n)
	copy(out, r.entries[:n])
	return out
}

// Popular returns up to limit entries ordered by hit count, then recency.
func (r *Repo) Popular(limit int) []domain.SearchHistoryEntry {
	r.mu.Lock()
	out := make([]domain.SearchHistoryEntry, len(r.entries))
	copy(out, r.entries)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Hits != out[j].Hits {
			return out[i].Hits > out[j].Hits
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (r *Repo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Repo) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
