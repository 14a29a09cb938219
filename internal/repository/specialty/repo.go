// Package specialty stores specialty terms with their embeddings and runs
// nearest-neighbour searches over them.
package specialty

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/seqsearch/internal/db"
	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/specialty"
)

// Hash fields of a specialty record.
const (
	fieldTerm   = "term"
	fieldCount  = "count"
	fieldRank   = "rank"
	fieldVector = "vector"
)

// store is the consumer interface for the vector store (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string) (int, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
}

// Repo implements the specialty repository contract.
type Repo struct {
	store     store
	index     string
	keyPrefix string
}

// New creates a specialty repository. Records live under keyPrefix+"specialty:".
func New(s store, index, keyPrefix string) *Repo {
	return &Repo{store: s, index: index, keyPrefix: keyPrefix + "specialty:"}
}

// Index returns the index name.
func (r *Repo) Index() string { return r.index }

// Similar returns up to k terms nearest to vector, optionally restricted to
// terms listed by at least minCount companies.
func (r *Repo) Similar(ctx context.Context, vector []float32, k int, minCount *int) ([]specialty.Match, error) {
	q := &db.KNNQuery{
		IndexName:    r.index,
		VectorField:  fieldVector,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldTerm, fieldCount, fieldRank},
	}
	if minCount != nil {
		q.Ranges = []db.NumericRange{db.AtLeast(fieldCount, float64(*minCount))}
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("specialty knn: %w: %w", domain.ErrBackendUnavailable, err)
	}

	matches := make([]specialty.Match, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		term := e.Fields[fieldTerm]
		if term == "" {
			term = strings.TrimPrefix(e.Key, r.keyPrefix)
		}
		count, _ := strconv.Atoi(e.Fields[fieldCount])
		rank, _ := strconv.Atoi(e.Fields[fieldRank])
		matches = append(matches, specialty.NewMatch(term, count, rank, e.Score))
	}
	return matches, nil
}

// Count returns the number of indexed terms.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.index)
	if err != nil {
		return 0, fmt.Errorf("specialty count: %w: %w", domain.ErrBackendUnavailable, err)
	}
	return n, nil
}

// EnsureIndex creates the specialty index for dim-sized vectors when absent.
// It reports whether the index was created.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) (bool, error) {
	exists, err := r.store.IndexExists(ctx, r.index)
	if err != nil {
		return false, fmt.Errorf("check specialty index: %w", err)
	}
	if exists {
		return false, nil
	}

	def, err := db.NewIndex(r.index).
		Prefix(r.keyPrefix).
		Tag(fieldTerm).
		SortableNumeric(fieldCount).
		Numeric(fieldRank).
		VectorHNSW(fieldVector, dim, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		return false, fmt.Errorf("build specialty index: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create specialty index: %w", err)
	}
	return true, nil
}

// Reset drops the specialty index together with every stored term.
// A missing index is not an error.
func (r *Repo) Reset(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.index, true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop specialty index: %w", err)
	}
	return nil
}

// Upsert writes entries with their vectors. vectors[i] belongs to entries[i].
func (r *Repo) Upsert(ctx context.Context, entries []specialty.Entry, vectors [][]float32) error {
	if len(entries) != len(vectors) {
		return fmt.Errorf("upsert: %d entries but %d vectors", len(entries), len(vectors))
	}
	items := make([]db.HashSetItem, 0, len(entries))
	for i, e := range entries {
		items = append(items, db.HashSetItem{
			Key: r.Key(e.Term),
			Fields: map[string]string{
				fieldTerm:   e.Term,
				fieldCount:  strconv.Itoa(e.Count),
				fieldRank:   strconv.Itoa(e.Rank),
				fieldVector: vectorToBytes(vectors[i]),
			},
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert specialties: %w", err)
	}
	return nil
}

// Key returns the hash key of a term.
func (r *Repo) Key(term string) string {
	return r.keyPrefix + strings.ToLower(strings.TrimSpace(term))
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
