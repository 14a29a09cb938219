package specialty

import (
	"context"

	"github.com/kailas-cloud/seqsearch/internal/domain/specialty"
)

// Repository runs nearest-neighbour queries over the specialty index.
type Repository interface {
	Similar(ctx context.Context, vector []float32, k int, minCount *int) ([]specialty.Match, error)
	Count(ctx context.Context) (int, error)
	Index() string
}
