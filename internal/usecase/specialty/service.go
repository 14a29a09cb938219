// Package specialty finds company specialties semantically close to a query.
package specialty

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/request"
	"github.com/kailas-cloud/seqsearch/internal/domain/specialty"
)

// Expansion limits of the expand endpoint.
const (
	DefaultExpansionCount = 5
	MaxExpansionCount     = 20
)

// Result is a similarity search outcome.
type Result struct {
	Query   string
	Matches []specialty.Match
}

// Stats describes the specialty index.
type Stats struct {
	Total int
	Index string
	// Status is "ready" when the index answers, "empty" when it holds no terms.
	Status string
}

// Service embeds queries and searches the specialty index.
// A Service built with a nil repository reports ErrVectorSearchDisabled.
type Service struct {
	repo     Repository
	embedder domain.Embedder
}

// New creates a specialty service.
func New(repo Repository, embedder domain.Embedder) *Service {
	return &Service{repo: repo, embedder: embedder}
}

// Enabled reports whether a vector store is wired.
func (s *Service) Enabled() bool { return s != nil && s.repo != nil && s.embedder != nil }

// Search returns the specialties nearest to req's query.
func (s *Service) Search(ctx context.Context, req *request.Specialty) (Result, error) {
	if !s.Enabled() {
		return Result{}, domain.ErrVectorSearchDisabled
	}

	vec, err := s.embed(ctx, req.Query())
	if err != nil {
		return Result{}, err
	}

	matches, err := s.repo.Similar(ctx, vec, req.Limit(), req.MinCount())
	if err != nil {
		return Result{}, fmt.Errorf("specialty search: %w", err)
	}
	if req.SortByCount() {
		specialty.SortByCount(matches)
	}
	return Result{Query: req.Query(), Matches: matches}, nil
}

// Expand returns up to n terms nearest to term, excluding term itself.
// n is clamped to [1, MaxExpansionCount].
func (s *Service) Expand(ctx context.Context, term string, n int) ([]string, error) {
	if !s.Enabled() {
		return nil, domain.ErrVectorSearchDisabled
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	n = max(1, min(n, MaxExpansionCount))

	vec, err := s.embed(ctx, term)
	if err != nil {
		return nil, err
	}

	// One extra neighbour covers the query term matching itself.
	matches, err := s.repo.Similar(ctx, vec, n+1, nil)
	if err != nil {
		return nil, fmt.Errorf("specialty expand: %w", err)
	}

	out := make([]string, 0, n)
	for _, t := range specialty.Terms(matches) {
		if strings.EqualFold(t, term) {
			continue
		}
		out = append(out, t)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// Stats counts indexed terms.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if !s.Enabled() {
		return Stats{}, domain.ErrVectorSearchDisabled
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("specialty stats: %w", err)
	}
	status := "ready"
	if n == 0 {
		status = "empty"
	}
	return Stats{Total: n, Index: s.repo.Index(), Status: status}, nil
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	res, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingProviderError) {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		return nil, fmt.Errorf("embed query: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return res.Embedding, nil
}
