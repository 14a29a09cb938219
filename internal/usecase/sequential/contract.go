package sequential

import (
	"context"
	"time"

	"github.com/kailas-cloud/seqsearch/internal/domain/criteria"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/dsl"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/result"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/translate"
	"github.com/kailas-cloud/seqsearch/internal/domain/session"
)

// CompanyRepository executes stage-1 queries.
type CompanyRepository interface {
	Names(ctx context.Context, q dsl.Query) (result.CompanySet, error)
}

// ProfileRepository executes stage-2 queries.
type ProfileRepository interface {
	Page(ctx context.Context, q dsl.Query) (result.ProfilePage, error)
}

// Translator builds backend queries from criteria.
type Translator interface {
	Company(c criteria.Company) (dsl.Query, error)
	People(p criteria.People, companies []string, page translate.Page) (dsl.Query, error)
}

// TokenCodec issues and verifies session tokens.
type TokenCodec interface {
	Issue(companyNames []string, company criteria.Company, people criteria.People, searchID string) (string, error)
	Verify(token string) (session.Payload, error)
	Matches(p session.Payload, company criteria.Company, people criteria.People) bool
}

// SpecialtyExpander returns up to n terms semantically close to term.
type SpecialtyExpander interface {
	Expand(ctx context.Context, term string, n int) ([]string, error)
}

// Observer records search telemetry.
type Observer interface {
	ObserveStage(stage, status string, d time.Duration)
	ObserveSearch(mode, status string)
	ObserveToken(outcome string)
}
