package request

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/criteria"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/cursor"
)

// Bounds are the pagination limits a request is validated against.
type Bounds struct {
	DefaultPageSize int
	MinPageSize     int
	MaxPageSize     int
	// OffsetCeiling is the deepest page reachable by offset; deeper pages
	// need a cursor.
	OffsetCeiling int
}

// DefaultBounds returns the production pagination limits.
func DefaultBounds() Bounds {
	return Bounds{DefaultPageSize: 25, MinPageSize: 10, MaxPageSize: 50, OffsetCeiling: 20}
}

// Request is a validated sequential search.
type Request struct {
	company      criteria.Company
	people       criteria.People
	page         int
	pageSize     int
	sessionToken string
	cursor       []any
}

// New validates and normalizes a sequential search.
// Defaults: page=1, pageSize=bounds.DefaultPageSize. A cursor, when present,
// is decoded here and lifts the offset ceiling.
func New(
	company criteria.Company,
	people criteria.People,
	page, pageSize int,
	sessionToken, rawCursor string,
	bounds Bounds,
) (Request, error) {
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return Request{}, fmt.Errorf("%w: page must be >= 1", domain.ErrInvalidRequest)
	}
	if pageSize == 0 {
		pageSize = bounds.DefaultPageSize
	}
	if pageSize < bounds.MinPageSize || pageSize > bounds.MaxPageSize {
		return Request{}, fmt.Errorf(
			"%w: page_size must be between %d and %d",
			domain.ErrInvalidRequest, bounds.MinPageSize, bounds.MaxPageSize,
		)
	}

	if pageSize > 0 && page > math.MaxInt/pageSize {
		return Request{}, fmt.Errorf("%w: page %d is out of range", domain.ErrInvalidRequest, page)
	}

	var keys []any
	if rawCursor = strings.TrimSpace(rawCursor); rawCursor != "" {
		decoded, err := cursor.Decode(rawCursor)
		if err != nil {
			return Request{}, err //nolint:wrapcheck // already carries ErrInvalidCursor
		}
		keys = decoded
	}
	if keys == nil && bounds.OffsetCeiling > 0 && page > bounds.OffsetCeiling {
		return Request{}, fmt.Errorf(
			"%w: pages beyond %d require a cursor from the previous page",
			domain.ErrInvalidRequest, bounds.OffsetCeiling,
		)
	}

	return Request{
		company:      company,
		people:       people,
		page:         page,
		pageSize:     pageSize,
		sessionToken: strings.TrimSpace(sessionToken),
		cursor:       keys,
	}, nil
}

// Company returns the stage-1 criteria.
func (r *Request) Company() criteria.Company { return r.company }

// People returns the stage-2 criteria.
func (r *Request) People() criteria.People { return r.people }

// Page returns the 1-based page index.
func (r *Request) Page() int { return r.page }

// PageSize returns the number of profiles per page.
func (r *Request) PageSize() int { return r.pageSize }

// SessionToken returns the client-supplied token, empty on a fresh search.
func (r *Request) SessionToken() string { return r.sessionToken }

// Cursor returns the decoded search_after keys, nil for offset pagination.
func (r *Request) Cursor() []any { return r.cursor }

// HasCursor reports whether cursor pagination is requested.
func (r *Request) HasCursor() bool { return len(r.cursor) > 0 }
