package profile

import (
	"context"
	"time"

	"github.com/kailas-cloud/seqsearch/internal/domain/search/dsl"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/result"
)

// Repository executes profile lookups.
type Repository interface {
	ByID(ctx context.Context, q dsl.Query) (result.Profile, error)
	ByIDs(ctx context.Context, q dsl.Query, ids []string) (result.Lookup, error)
	ByName(ctx context.Context, q dsl.Query) ([]result.Profile, error)
}

// Translator builds lookup queries.
type Translator interface {
	ProfileByID(publicID string, fields []string) (dsl.Query, error)
	ProfilesByIDs(publicIDs []string, fields []string) (dsl.Query, error)
	ProfilesByName(fullName string, limit int) (dsl.Query, error)
}

// Observer records lookup latency.
type Observer interface {
	ObserveStage(stage, status string, d time.Duration)
}
