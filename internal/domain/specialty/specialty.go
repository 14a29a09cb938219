// Package specialty holds company specialty terms and their similarity matches.
package specialty

import "sort"

// Match is a specialty term near a query in embedding space.
type Match struct {
	term       string
	count      int
	rank       int
	similarity float64
}

// NewMatch creates a Match. Similarity is clamped to [0, 1].
func NewMatch(term string, count, rank int, similarity float64) Match {
	similarity = max(0, min(1, similarity))
	return Match{term: term, count: count, rank: rank, similarity: similarity}
}

// Term returns the specialty text.
func (m *Match) Term() string { return m.term }

// Count returns the number of companies listing the specialty.
func (m *Match) Count() int { return m.count }

// Rank returns the popularity rank of the specialty.
func (m *Match) Rank() int { return m.rank }

// Similarity returns the 0..1 similarity to the query.
func (m *Match) Similarity() float64 { return m.similarity }

// SortByCount orders matches by company count, then similarity, both
// descending. The sort is stable.
func SortByCount(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].count != matches[j].count {
			return matches[i].count > matches[j].count
		}
		return matches[i].similarity > matches[j].similarity
	})
}

// Terms returns the term of each match in order.
func Terms(matches []Match) []string {
	out := make([]string, len(matches))
	for i := range matches {
		out[i] = matches[i].term
	}
	return out
}

// Entry is one specialty record for loading into the vector store.
type Entry struct {
	Term  string `json:"specialty"`
	Count int    `json:"count"`
	Rank  int    `json:"rank"`
}
