// Package scores keeps the score-list query state (filter criteria plus a
// zero-based pagination cursor) and fetches pages from the backend. Each
// fetch wholly replaces the previous page; responses are never merged.
package scores

import (
	"context"
	"errors"
	"sync"

	"scoredeck/models"
	"scoredeck/services/scoreboard"
)

// genericLoadError is shown when a failure carries no backend message.
const genericLoadError = "failed to load scores"

// Criteria are the list filters. An empty field means "match any" and is
// omitted from the transmitted query.
type Criteria struct {
	PlayStyle string
	Level     string
	ChartType string
	ClearType string
}

// Snapshot is the fetcher's externally visible state.
type Snapshot struct {
	Items         []models.Score
	TotalElements int64
	TotalPages    int
	Page          int
	Loading       bool
	Err           string
}

// Store holds the query state and the last committed result. Overlapping
// fetches are resolved by a monotonically increasing sequence stamp: a
// response commits only if it belongs to the latest issued fetch, so a
// stale response can never overwrite a fresher one.
type Store struct {
	client   *scoreboard.Client
	pageSize int

	mu       sync.Mutex
	criteria Criteria
	page     int
	seq      uint64
	snap     Snapshot
}

func NewStore(client *scoreboard.Client, pageSize int) *Store {
	return &Store{client: client, pageSize: pageSize}
}

// SetCriteria replaces the filters. A filter change always invalidates the
// current page position, so the cursor resets to page 0.
func (s *Store) SetCriteria(c Criteria) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = c
	s.page = 0
}

// SetPage moves the pagination cursor without touching the filters.
func (s *Store) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 0 {
		page = 0
	}
	s.page = page
}

// Criteria returns the current filters.
func (s *Store) Criteria() Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// Page returns the current cursor position.
func (s *Store) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Snapshot returns the last committed fetch state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Refresh issues one list request for the current criteria and cursor and
// returns the resulting snapshot. Loading always clears when the latest
// request settles, success or failure; superseded requests are discarded.
func (s *Store) Refresh(ctx context.Context) Snapshot {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.snap.Loading = true
	s.snap.Err = ""
	q := scoreboard.ScoreQuery{
		PlayStyle: s.criteria.PlayStyle,
		Level:     s.criteria.Level,
		ChartType: s.criteria.ChartType,
		ClearType: s.criteria.ClearType,
		Page:      s.page,
		Size:      s.pageSize,
	}
	s.mu.Unlock()

	page, err := s.client.ListScores(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		// A newer fetch was issued while this one was in flight.
		return s.snap
	}
	s.snap.Loading = false
	if err != nil {
		s.snap.Err = errorMessage(err)
		return s.snap
	}
	s.snap = Snapshot{
		Items:         page.Content,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		Page:          page.Number,
	}
	return s.snap
}

// errorMessage extracts the backend's structured message, falling back to
// a generic one.
func errorMessage(err error) string {
	var apiErr *scoreboard.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return genericLoadError
}
