package translate

import (
	"fmt"

	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/dsl"
)

// Lookup limits.
const (
	MaxBatchIDs      = 100
	DefaultNameLimit = 10
	MaxNameLimit     = 50
)

// ProfileByID fetches one profile by public identifier.
func (t *Translator) ProfileByID(publicID string, fields []string) (dsl.Query, error) {
	if publicID == "" {
		return dsl.Query{}, fmt.Errorf("%w: public id is required", domain.ErrInvalidRequest)
	}
	return dsl.Query{
		Bool:    dsl.Bool{Filter: []dsl.Clause{dsl.Term{Field: PublicIDKeywordField, Value: publicID}}},
		Size:    1,
		Source:  fields,
		Timeout: t.limits.ProfileTimeout,
	}, nil
}

// ProfilesByIDs fetches up to MaxBatchIDs profiles in one call.
func (t *Translator) ProfilesByIDs(publicIDs []string, fields []string) (dsl.Query, error) {
	if len(publicIDs) == 0 {
		return dsl.Query{}, fmt.Errorf("%w: at least one public id is required", domain.ErrInvalidRequest)
	}
	if len(publicIDs) > MaxBatchIDs {
		return dsl.Query{}, fmt.Errorf("%w: at most %d public ids per batch", domain.ErrInvalidRequest, MaxBatchIDs)
	}
	return dsl.Query{
		Bool:    dsl.Bool{Filter: []dsl.Clause{dsl.Terms{Field: PublicIDKeywordField, Values: publicIDs}}},
		Size:    len(publicIDs),
		Source:  fields,
		Timeout: t.limits.ProfileTimeout,
	}, nil
}

// ProfilesByName matches every token of fullName. limit is clamped to
// [1, MaxNameLimit].
func (t *Translator) ProfilesByName(fullName string, limit int) (dsl.Query, error) {
	if fullName == "" {
		return dsl.Query{}, fmt.Errorf("%w: name is required", domain.ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = DefaultNameLimit
	}
	if limit > MaxNameLimit {
		limit = MaxNameLimit
	}
	return dsl.Query{
		Bool:    dsl.Bool{Must: []dsl.Clause{dsl.Match{Field: FullNameField, Query: fullName, Operator: "and"}}},
		Size:    limit,
		Timeout: t.limits.ProfileTimeout,
	}, nil
}
