// Package dsl is the structured search request understood by the search
// backend: clause groups, sort, projection, size cap and pagination.
package dsl

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sort orders.
const (
	Asc  = "asc"
	Desc = "desc"
)

// ScoreField is the pseudo-field for relevance.
const ScoreField = "_score"

// SortField is one sort key.
type SortField struct {
	Field       string
	Order       string
	MissingLast bool
}

// Source renders {field: {"order": ..., "missing": "_last"}}.
func (s SortField) Source() map[string]any {
	opts := map[string]any{"order": s.Order}
	if s.MissingLast {
		opts["missing"] = "_last"
	}
	return map[string]any{s.Field: opts}
}

// Query is a complete search request body.
type Query struct {
	Bool           Bool
	Size           int
	Sort           []SortField
	Source         []string
	TrackTotalHits int
	Timeout        time.Duration

	from        int
	searchAfter []any
}

// WithOffset returns a copy paginated by offset. It clears any search_after.
func (q Query) WithOffset(from int) Query {
	q.from = from
	q.searchAfter = nil
	return q
}

// WithSearchAfter returns a copy paginated by sort keys. It clears the offset.
func (q Query) WithSearchAfter(keys []any) Query {
	q.from = 0
	q.searchAfter = keys
	return q
}

// From returns the offset.
func (q Query) From() int { return q.from }

// SearchAfter returns the cursor sort keys, if any.
func (q Query) SearchAfter() []any { return q.searchAfter }

// Body renders the request body.
func (q Query) Body() map[string]any {
	body := map[string]any{
		"query": q.Bool.Source(),
		"size":  q.Size,
	}
	if len(q.Sort) > 0 {
		sorts := make([]map[string]any, len(q.Sort))
		for i, s := range q.Sort {
			sorts[i] = s.Source()
		}
		body["sort"] = sorts
	}
	if len(q.Source) > 0 {
		body["_source"] = map[string]any{"includes": q.Source}
	}
	if q.TrackTotalHits > 0 {
		body["track_total_hits"] = q.TrackTotalHits
	}
	if q.Timeout > 0 {
		body["timeout"] = formatTimeout(q.Timeout)
	}
	if len(q.searchAfter) > 0 {
		body["search_after"] = q.searchAfter
	} else if q.from > 0 {
		body["from"] = q.from
	}
	return body
}

// MarshalJSON renders the request body.
func (q Query) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(q.Body())
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	return data, nil
}

func formatTimeout(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}
