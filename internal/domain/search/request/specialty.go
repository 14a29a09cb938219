package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/seqsearch/internal/domain"
)

// Specialty search limits.
const (
	MaxQueryLength        = 512
	DefaultSpecialtyLimit = 3
	MaxSpecialtyLimit     = 50
)

// Specialty is a validated "find similar specialties" query.
type Specialty struct {
	query       string
	limit       int
	minCount    *int
	sortByCount bool
}

// NewSpecialty validates and normalizes a specialty query.
func NewSpecialty(query string, limit int, minCount *int, sortByCount bool) (Specialty, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Specialty{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Specialty{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if limit <= 0 {
		limit = DefaultSpecialtyLimit
	}
	if limit > MaxSpecialtyLimit {
		limit = MaxSpecialtyLimit
	}
	if minCount != nil && *minCount < 0 {
		return Specialty{}, fmt.Errorf("%w: min_count must be >= 0", domain.ErrInvalidRequest)
	}
	return Specialty{query: query, limit: limit, minCount: minCount, sortByCount: sortByCount}, nil
}

// Query returns the text to embed.
func (s *Specialty) Query() string { return s.query }

// Limit returns the number of neighbours to return.
func (s *Specialty) Limit() int { return s.limit }

// MinCount returns the company-count floor, nil when unset.
func (s *Specialty) MinCount() *int { return s.minCount }

// SortByCount reports whether results are reordered by company count.
func (s *Specialty) SortByCount() bool { return s.sortByCount }
