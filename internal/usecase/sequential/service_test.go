package sequential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/seqsearch/internal/db"
	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/criteria"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/cursor"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/result"
	companyrepo "github.com/kailas-cloud/seqsearch/internal/repository/company"
)

const companyFilterField = "current_company_extracted.keyword"

func TestSearch_FirstPageIssuesToken(t *testing.T) {
	f := newFixture(t)
	company, people := scenarioCriteria()

	page, err := f.svc.Search(context.Background(), mustRequest(t, company, people, 1, 10, "", ""))
	require.NoError(t, err)

	assert.LessOrEqual(t, len(page.Profiles), 10)
	assert.Equal(t, mode.Sequential, page.Metadata.Mode)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
	assert.NotEmpty(t, page.Pagination.SessionToken)
	assert.Equal(t, 3, page.Metadata.CompaniesMatched)
	assert.Equal(t, 3, page.Metadata.CompaniesUsed)
	assert.Equal(t, 42, page.Metadata.ProfilesMatched)
	assert.Empty(t, page.Pagination.NextCursor)
	assert.Empty(t, page.Metadata.Suggestion)

	assert.Equal(t, 1, f.companies.calls)
	assert.Equal(t, 1, f.profiles.calls)
	assert.Contains(t, f.profiles.lastBody(), companyFilterField)
	assert.Contains(t, f.profiles.lastBody(), "Globex")

	payload, err := f.codec.Verify(page.Pagination.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Globex", "Initech"}, payload.CompanyNames)
	assert.Equal(t, 1, f.observer.tokens[TokenIssued])
	assert.Equal(t, 1, f.observer.searches["sequential/ok"])
}

func TestSearch_SecondPageReusesToken(t *testing.T) {
	f := newFixture(t)
	company, people := scenarioCriteria()
	ctx := context.Background()

	first, err := f.svc.Search(ctx, mustRequest(t, company, people, 1, 10, "", ""))
	require.NoError(t, err)
	token := first.Pagination.SessionToken

	second, err := f.svc.Search(ctx, mustRequest(t, company, people, 2, 10, token, ""))
	require.NoError(t, err)

	assert.Equal(t, 1, f.companies.calls, "stage 1 must run once per logical search")
	assert.Equal(t, 2, f.profiles.calls)
	assert.Equal(t, mode.SequentialCached, second.Metadata.Mode)
	assert.Equal(t, 2, second.Pagination.CurrentPage)
	assert.Equal(t, token, second.Pagination.SessionToken)
	assert.Contains(t, f.profiles.lastBody(), "Initech")
	assert.Contains(t, f.profiles.lastBody(), `"from":10`)
	require.NotEmpty(t, second.Profiles)
	assert.Equal(t, "p00010", second.Profiles[0].ID())
	assert.Equal(t, 1, f.observer.tokens[TokenReused])
}

func TestSearch_TokenFromDifferentCriteria(t *testing.T) {
	f := newFixture(t)
	company, people := scenarioCriteria()
	ctx := context.Background()

	first, err := f.svc.Search(ctx, mustRequest(t, company, people, 1, 10, "", ""))
	require.NoError(t, err)

	other := company
	other.Industry = criteria.NewStringList("Healthcare")

	page, err := f.svc.Search(ctx, mustRequest(t, other, people, 2, 10, first.Pagination.SessionToken, ""))
	require.ErrorIs(t, err, domain.ErrCriteriaMismatch)
	assert.Empty(t, page.Profiles)
	assert.Equal(t, 1, f.profiles.calls, "no stage 2 on mismatch")
	assert.Equal(t, 1, f.companies.calls)
	assert.Equal(t, 1, f.observer.tokens[TokenMismatch])
}

func TestSearch_PeopleCriteriaChangeIsMismatch(t *testing.T) {
	f := newFixture(t)
	company, people := scenarioCriteria()
	ctx := context.Background()

	first, err := f.svc.Search(ctx, mustRequest(t, company, people, 1, 10, "", ""))
	require.NoError(t, err)

	people.Seniority = criteria.NewStringList("junior")
	_, err = f.svc.Search(ctx, mustRequest(t, company, people, 2, 10, first.Pagination.SessionToken, ""))
	require.ErrorIs(t, err, domain.ErrCriteriaMismatch)
}

func TestSearch_ExpiredToken(t *testing.T) {
	f := newFixture(t)
	company, people := scenarioCriteria()
	ctx := context.Background()

	first, err := f.svc.Search(ctx, mustRequest(t, company, people, 1, 10, "", ""))
	require.NoError(t, err)

	*f.clock = f.clock.Add(2 * time.Hour)

	_, err = f.svc.Search(ctx, mustRequest(t, company, people, 2, 10, first.Pagination.SessionToken, ""))
	require.ErrorIs(t, err, domain.ErrExpiredToken)
	assert.Contains(t, err.Error(), "page 1")
	assert.Equal(t, 1, f.observer.tokens[TokenExpired])
}

func TestSearch_ForgedToken(t *testing.T) {
	f := newFixture(t)
	company, people := scenarioCriteria()

	_, err := f.svc.Search(context.Background(), mustRequest(t, company, people, 2, 10, "eyJ2IjoxfQ.deadbeef", ""))
	require.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.Equal(t, 0, f.companies.calls)
	assert.Equal(t, 0, f.profiles.calls)
	assert.Equal(t, 1, f.observer.tokens[TokenInvalid])
	assert.Equal(t, 1, f.observer.searches["sequential_cached/error"])
}

func TestSearch_DirectModeNeverIssuesToken(t *testing.T) {
	f := newFixture(t)
	_, people := scenarioCriteria()

	page, err := f.svc.Search(context.Background(), mustRequest(t, criteria.Company{}, people, 1, 10, "", ""))
	require.NoError(t, err)

	assert.Equal(t, mode.Direct, page.Metadata.Mode)
	assert.Empty(t, page.Pagination.SessionToken)
	assert.Equal(t, 0, f.companies.calls)
	assert.NotContains(t, f.profiles.lastBody(), companyFilterField)
	assert.Equal(t, 0, f.observer.tokens[TokenIssued])
}

func TestSearch_ExpansionOnlyIsDirect(t *testing.T) {
	f := newFixture(t)
	_, people := scenarioCriteria()

	page, err := f.svc.Search(context.Background(),
		mustRequest(t, criteria.Company{SpecialtyExpansion: 3}, people, 1, 10, "", ""))
	require.NoError(t, err)
	assert.Equal(t, mode.Direct, page.Metadata.Mode)
}

func TestSearch_NoCompaniesShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.companies.set = result.CompanySet{}
	company, people := scenarioCriteria()

	page, err := f.svc.Search(context.Background(), mustRequest(t, company, people, 1, 10, "", ""))
	require.NoError(t, err)

	assert.Empty(t, page.Profiles)
	assert.NotNil(t, page.Profiles)
	assert.Equal(t, 0, page.Metadata.ProfilesMatched)
	assert.Equal(t, 0, page.Pagination.TotalResults)
	assert.Equal(t, 0, page.Pagination.TotalPages)
	assert.False(t, page.Pagination.HasNext)
	assert.Empty(t, page.Pagination.SessionToken)
	assert.Equal(t, EmptyCompaniesSuggestion, page.Metadata.Suggestion)
	assert.Equal(t, mode.Sequential, page.Metadata.Mode)
	assert.Equal(t, 0, f.profiles.calls, "stage 2 must not run without companies")
}

func TestSearch_BackendFailures(t *testing.T) {
	company, people := scenarioCriteria()

	t.Run("stage 1", func(t *testing.T) {
		f := newFixture(t)
		f.companies.err = domain.ErrBackendUnavailable

		_, err := f.svc.Search(context.Background(), mustRequest(t, company, people, 1, 10, "", ""))
		require.ErrorIs(t, err, domain.ErrBackendUnavailable)
		assert.Equal(t, 0, f.profiles.calls)
		assert.Equal(t, 1, f.observer.stages["company/error"])
	})

	t.Run("stage 2", func(t *testing.T) {
		f := newFixture(t)
		f.profiles.err = domain.ErrBackendUnavailable

		page, err := f.svc.Search(context.Background(), mustRequest(t, company, people, 1, 10, "", ""))
		require.ErrorIs(t, err, domain.ErrBackendUnavailable)
		assert.Empty(t, page.Profiles)
		assert.Equal(t, 1, f.profiles.calls, "no retry at this layer")
		assert.Equal(t, 1, f.observer.stages["people/error"])
	})
}

// partialSearcher answers like the OpenSearch store does for a timed-out body.
type partialSearcher struct{ calls int }

func (p *partialSearcher) Search(_ context.Context, index string, _ json.RawMessage) (*db.HitsResult, error) {
	p.calls++
	return nil, &db.Error{Op: db.OpDocSearch, Err: fmt.Errorf("%s: %w", index, db.ErrPartialResults)}
}

func TestSearch_TimedOutCompanyStageIssuesNoToken(t *testing.T) {
	f := newFixture(t)
	store := &partialSearcher{}
	f.svc.companies = companyrepo.New(store, "companies")
	company, people := scenarioCriteria()

	page, err := f.svc.Search(context.Background(), mustRequest(t, company, people, 1, 10, "", ""))
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	require.ErrorIs(t, err, db.ErrPartialResults)

	assert.Equal(t, 1, store.calls)
	assert.Empty(t, page.Pagination.SessionToken)
	assert.Empty(t, page.Profiles)
	assert.Equal(t, 0, f.profiles.calls)
	assert.Zero(t, f.observer.tokens[TokenIssued])
	assert.Equal(t, 1, f.observer.stages["company/error"])
}

func TestSearch_UnknownSizeBucket(t *testing.T) {
	f := newFixture(t)
	_, people := scenarioCriteria()

	company := criteria.Company{Size: criteria.NewStringList("huge")}
	_, err := f.svc.Search(context.Background(), mustRequest(t, company, people, 1, 10, "", ""))
	require.ErrorIs(t, err, domain.ErrInvalidCriteria)
	assert.Equal(t, 0, f.companies.calls)
}

func TestSearch_PaginationInvariant(t *testing.T) {
	company, people := scenarioCriteria()
	for _, total := range []int{0, 1, 9, 10, 11, 42, 100} {
		for _, pg := range []int{1, 2, 5} {
			f := newFixture(t)
			f.profiles.total = result.Total{Value: total}

			page, err := f.svc.Search(context.Background(), mustRequest(t, company, people, pg, 10, "", ""))
			require.NoError(t, err)

			assert.Equal(t, (total+9)/10, page.Pagination.TotalPages, "total=%d", total)
			assert.Equal(t, pg*10 < total, page.Pagination.HasNext, "total=%d page=%d", total, pg)
			assert.Equal(t, pg > 1, page.Pagination.HasPrevious)
		}
	}
}

func TestSearch_CursorAtOffsetCeiling(t *testing.T) {
	f := newFixture(t)
	f.profiles.total = result.Total{Value: 10000, Relation: result.RelationGte}
	company, people := scenarioCriteria()
	ctx := context.Background()

	below, err := f.svc.Search(ctx, mustRequest(t, company, people, 19, 10, "", ""))
	require.NoError(t, err)
	assert.Empty(t, below.Pagination.NextCursor)

	at, err := f.svc.Search(ctx, mustRequest(t, company, people, 20, 10, below.Pagination.SessionToken, ""))
	require.NoError(t, err)
	require.NotEmpty(t, at.Pagination.NextCursor)
	assert.Equal(t, result.RelationGte, at.Pagination.TotalRelation)

	keys, err := cursor.Decode(at.Pagination.NextCursor)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "p00199", keys[1])

	next, err := f.svc.Search(ctx, mustRequest(t, company, people, 21, 10, below.Pagination.SessionToken, at.Pagination.NextCursor))
	require.NoError(t, err)
	assert.Contains(t, f.profiles.lastBody(), `"search_after"`)
	assert.NotContains(t, f.profiles.lastBody(), `"from"`)
	assert.NotEmpty(t, next.Pagination.NextCursor)
	assert.Equal(t, 1, f.companies.calls)
}

func TestSearch_NoCursorOnLastPage(t *testing.T) {
	f := newFixture(t)
	f.profiles.total = result.Total{Value: 200}
	company, people := scenarioCriteria()

	page, err := f.svc.Search(context.Background(), mustRequest(t, company, people, 20, 10, "", ""))
	require.NoError(t, err)
	assert.False(t, page.Pagination.HasNext)
	assert.Empty(t, page.Pagination.NextCursor)
}

func TestSearch_LargeResultSuggestion(t *testing.T) {
	f := newFixture(t)
	f.companies.set.Total = result.Total{Value: 4200, Relation: result.RelationEq}
	company, people := scenarioCriteria()

	page, err := f.svc.Search(context.Background(), mustRequest(t, company, people, 1, 10, "", ""))
	require.NoError(t, err)
	assert.Equal(t, 4200, page.Metadata.CompaniesMatched)
	assert.Contains(t, page.Metadata.Suggestion, "4200")
	assert.NotEmpty(t, page.Profiles, "suggestion is advisory")
}

func TestSearch_LargeResultSuggestionOnCachedPages(t *testing.T) {
	f := newFixture(t)
	f.svc.opts.LargeResultThreshold = 2
	company, people := scenarioCriteria()
	ctx := context.Background()

	first, err := f.svc.Search(ctx, mustRequest(t, company, people, 1, 10, "", ""))
	require.NoError(t, err)
	require.NotEmpty(t, first.Metadata.Suggestion)

	second, err := f.svc.Search(ctx, mustRequest(t, company, people, 2, 10, first.Pagination.SessionToken, ""))
	require.NoError(t, err)
	assert.Equal(t, mode.SequentialCached, second.Metadata.Mode)
	assert.Equal(t, first.Metadata.Suggestion, second.Metadata.Suggestion)
	assert.Equal(t, 1, f.companies.calls)
}

func TestSearch_SpecialtyExpansion(t *testing.T) {
	f := newFixture(t)
	exp := &mockExpander{neighbours: map[string][]string{
		"saas":  {"cloud software", "saas", "b2b software"},
		"fintech": {"payments"},
	}}
	f.svc.WithExpander(exp)

	company := criteria.Company{
		Specialties:        criteria.NewStringList("saas", "fintech"),
		SpecialtyExpansion: 2,
	}
	_, people := scenarioCriteria()
	ctx := context.Background()

	page, err := f.svc.Search(ctx, mustRequest(t, company, people, 1, 10, "", ""))
	require.NoError(t, err)

	assert.Equal(t, 2, exp.calls)
	assert.Equal(t, []string{"cloud software", "payments"}, page.Metadata.ExpandedSpecialties)

	raw, err := f.companies.last.MarshalJSON()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "cloud software"))
	assert.False(t, strings.Contains(string(raw), "b2b software"), "expansion is capped per term")

	_, err = f.svc.Search(ctx, mustRequest(t, company, people, 2, 10, page.Pagination.SessionToken, ""))
	require.NoError(t, err, "token fingerprints use the submitted criteria")
	assert.Equal(t, 2, exp.calls, "token path skips expansion")
	assert.Equal(t, 1, f.observer.stages["specialty/ok"])
}

func TestSearch_SpecialtyExpansionFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.WithExpander(&mockExpander{err: domain.ErrEmbeddingProviderError})

	company := criteria.Company{Specialties: criteria.NewStringList("saas"), SpecialtyExpansion: 1}
	_, people := scenarioCriteria()

	_, err := f.svc.Search(context.Background(), mustRequest(t, company, people, 1, 10, "", ""))
	require.ErrorIs(t, err, domain.ErrEmbeddingProviderError)
	assert.Equal(t, 0, f.companies.calls)
}

func TestSearch_StageTimeoutApplied(t *testing.T) {
	f := newFixture(t)
	company, people := scenarioCriteria()

	var deadline time.Time
	var ok bool
	f.svc.companies = companiesFunc(func(ctx context.Context) (result.CompanySet, error) {
		deadline, ok = ctx.Deadline()
		return result.CompanySet{}, nil
	})

	_, err := f.svc.Search(context.Background(), mustRequest(t, company, people, 1, 10, "", ""))
	require.NoError(t, err)
	require.True(t, ok, "stage 1 must run under a deadline")
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
}

func TestSearch_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	company, people := scenarioCriteria()

	f.svc.companies = companiesFunc(func(ctx context.Context) (result.CompanySet, error) {
		return result.CompanySet{}, errors.Join(domain.ErrBackendUnavailable, ctx.Err())
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Search(ctx, mustRequest(t, company, people, 1, 10, "", ""))
	require.ErrorIs(t, err, context.Canceled)
}
