// Package search queries web search backends and aggregates their result
// pages into articles.
package search

import (
	"context"
	"errors"
	"fmt"

	"oski/internal/models"
)

// MaxResults caps the number of results one query may return.
const MaxResults = 100

// pageSize is the most results the Custom Search API returns per request.
const pageSize = 10

// ErrUnexpectedStatusCode indicates a non-200 response from a backend.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// Request describes one search.
type Request struct {
	Text         string
	ExactTerms   string
	OrTerms      string
	DateRestrict string
	Count        int
}

// Searcher runs a search and returns at most Request.Count articles.
type Searcher interface {
	Query(ctx context.Context, req Request) ([]models.Article, error)
}

// APIError reports a failed search request.
type APIError struct {
	Err    error
	Query  string
	Start  int
	Status int
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("search %q at start=%d failed with status %d: %v", e.Query, e.Start, e.Status, e.Err)
	}

	return fmt.Sprintf("search %q at start=%d failed: %v", e.Query, e.Start, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func clampCount(n int) int {
	return max(0, min(n, MaxResults))
}
