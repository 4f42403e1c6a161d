package reelstore

import (
	"fmt"
	"time"
)

// Listing defaults and bounds.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Sort fields accepted by ListVideos and SearchVideos.
const (
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
	SortByTitle     = "title"
	SortByFileSize  = "file_size"
	SortByDuration  = "duration"
)

// Sort orders.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// VideoQuery describes one listing or search request: a set of optional
// predicates combined with AND, plus pagination and sort.
//
// ViewerID is the caller's opaque identity and drives the mandatory
// visibility scope: callers see public videos plus their own. An empty
// ViewerID means anonymous (public only). The scope is applied before any
// other predicate and cannot be bypassed by them.
type VideoQuery struct {
	ViewerID string

	OwnerID       string
	Status        VideoStatus
	Visibility    Visibility
	Tag           string
	Search        string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time

	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Normalize fills defaults for zero-value pagination and sort fields.
func (q *VideoQuery) Normalize() {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = DefaultPageLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = SortDesc
	}
}

// Validate rejects invalid enum and pagination values before any query
// executes. An empty SortBy is allowed: it means created_at, or relevance
// rank when Search is set.
func (q *VideoQuery) Validate() error {
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidQuery, q.Page)
	}
	if q.Limit < 1 || q.Limit > MaxPageLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidQuery, MaxPageLimit, q.Limit)
	}
	switch q.SortBy {
	case "", SortByCreatedAt, SortByUpdatedAt, SortByTitle, SortByFileSize, SortByDuration:
	default:
		return fmt.Errorf("%w: unknown sort field %q", ErrInvalidQuery, q.SortBy)
	}
	switch q.SortOrder {
	case SortAsc, SortDesc:
	default:
		return fmt.Errorf("%w: sort order must be %q or %q", ErrInvalidQuery, SortAsc, SortDesc)
	}
	if q.Status != "" && !q.Status.Valid() {
		return fmt.Errorf("%w: %v %q", ErrInvalidQuery, ErrInvalidStatus, q.Status)
	}
	if q.Visibility != "" && !q.Visibility.Valid() {
		return fmt.Errorf("%w: %v %q", ErrInvalidQuery, ErrInvalidVisibility, q.Visibility)
	}
	return nil
}

// Offset returns the row offset implied by page-based pagination.
func (q *VideoQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// RankedBySearch reports whether result order is determined by text
// relevance: a search term is present and no explicit sort overrides it.
func (q *VideoQuery) RankedBySearch() bool {
	return q.Search != "" && q.SortBy == ""
}
