// Package company executes stage-1 queries against the companies index.
package company

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/seqsearch/internal/db"
	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/dsl"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/result"
)

// searcher is the consumer interface for document search (ISP).
type searcher interface {
	Search(ctx context.Context, index string, body json.RawMessage) (*db.HitsResult, error)
}

// Repo implements usecase/sequential.CompanyRepository.
type Repo struct {
	store searcher
	index string
}

// New creates a company repository bound to one index.
func New(s searcher, index string) *Repo {
	return &Repo{store: s, index: index}
}

type companyDoc struct {
	Name string `json:"name"`
}

// Names runs q and returns the distinct, sorted company names of the hits.
func (r *Repo) Names(ctx context.Context, q dsl.Query) (result.CompanySet, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return result.CompanySet{}, fmt.Errorf("render company query: %w", err)
	}

	res, err := r.store.Search(ctx, r.index, body)
	if err != nil {
		return result.CompanySet{}, fmt.Errorf("company search: %w: %w", domain.ErrBackendUnavailable, err)
	}

	seen := make(map[string]struct{}, len(res.Hits))
	names := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		var doc companyDoc
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			continue
		}
		name := strings.TrimSpace(doc.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	slices.Sort(names)

	return result.CompanySet{
		Names: names,
		Total: result.Total{Value: res.Total, Relation: res.TotalRelation},
	}, nil
}
