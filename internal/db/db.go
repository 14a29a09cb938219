package db

import (
	"context"
	"encoding/json"
	"time"
)

// VectorStore is the specialty vector store facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade -- consumers use narrow sub-interfaces (ISP)
type VectorStore interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	VectorSearcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based operations.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// VectorSearcher provides search operations over FT indexes.
type VectorSearcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index string) (int, error)
}

// DocumentSearcher executes rendered query bodies against the managed search backend.
type DocumentSearcher interface {
	Search(ctx context.Context, index string, body json.RawMessage) (*HitsResult, error)
}

// HitsResult is the decoded response of a document search.
type HitsResult struct {
	Total         int
	TotalRelation string
	Hits          []Hit
}

// Hit is a single document returned by the search backend.
type Hit struct {
	Index  string
	ID     string
	Score  float64
	Source json.RawMessage
	Sort   []any
}
