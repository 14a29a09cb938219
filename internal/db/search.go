package db

import "math"

// NumericRange restricts a NUMERIC field to [Min, Max]. Infinite bounds are open.
type NumericRange struct {
	Field string
	Min   float64
	Max   float64
}

// AtLeast returns a range matching values >= lo.
func AtLeast(field string, lo float64) NumericRange {
	return NumericRange{Field: field, Min: lo, Max: math.Inf(1)}
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to "vector"
	Ranges       []NumericRange
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a vector search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a vector search.
// Score is a similarity in [0, 1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
