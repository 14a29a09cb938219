// Package profile executes people queries and profile lookups.
package profile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/seqsearch/internal/db"
	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/dsl"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/result"
)

// searcher is the consumer interface for document search (ISP).
type searcher interface {
	Search(ctx context.Context, index string, body json.RawMessage) (*db.HitsResult, error)
}

// Repo implements the profile repository contracts of the sequential and
// profile usecases.
type Repo struct {
	store searcher
	index string
}

// New creates a profile repository. index may be a pattern spanning shards.
func New(s searcher, index string) *Repo {
	return &Repo{store: s, index: index}
}

// Page runs a stage-2 query.
func (r *Repo) Page(ctx context.Context, q dsl.Query) (result.ProfilePage, error) {
	res, err := r.search(ctx, "people search", q)
	if err != nil {
		return result.ProfilePage{}, err
	}
	return result.ProfilePage{
		Profiles: toProfiles(res.Hits),
		Total:    result.Total{Value: res.Total, Relation: res.TotalRelation},
	}, nil
}

// ByID returns the first hit of a single-profile lookup or domain.ErrNotFound.
func (r *Repo) ByID(ctx context.Context, q dsl.Query) (result.Profile, error) {
	res, err := r.search(ctx, "profile lookup", q)
	if err != nil {
		return result.Profile{}, err
	}
	if len(res.Hits) == 0 {
		return result.Profile{}, domain.ErrNotFound
	}
	return toProfile(res.Hits[0]), nil
}

// ByIDs runs a batch lookup and reports which of ids were not found.
// Hits are matched to ids through the publicId field of their source.
func (r *Repo) ByIDs(ctx context.Context, q dsl.Query, ids []string) (result.Lookup, error) {
	res, err := r.search(ctx, "profile batch lookup", q)
	if err != nil {
		return result.Lookup{}, err
	}

	found := make(map[string]struct{}, len(res.Hits))
	for _, h := range res.Hits {
		found[publicID(h)] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}

	return result.Lookup{
		Profiles:  toProfiles(res.Hits),
		Requested: len(ids),
		NotFound:  missing,
	}, nil
}

// ByName runs an exact-name lookup.
func (r *Repo) ByName(ctx context.Context, q dsl.Query) ([]result.Profile, error) {
	res, err := r.search(ctx, "profile name lookup", q)
	if err != nil {
		return nil, err
	}
	return toProfiles(res.Hits), nil
}

func (r *Repo) search(ctx context.Context, op string, q dsl.Query) (*db.HitsResult, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("render %s query: %w", op, err)
	}
	res, err := r.store.Search(ctx, r.index, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrBackendUnavailable, err)
	}
	return res, nil
}

func toProfiles(hits []db.Hit) []result.Profile {
	out := make([]result.Profile, 0, len(hits))
	for _, h := range hits {
		out = append(out, toProfile(h))
	}
	return out
}

func toProfile(h db.Hit) result.Profile {
	return result.NewProfile(h.ID, h.Score, h.Source, h.Sort).WithIndex(h.Index)
}

func publicID(h db.Hit) string {
	var doc struct {
		PublicID string `json:"publicId"`
	}
	if err := json.Unmarshal(h.Source, &doc); err != nil || doc.PublicID == "" {
		return h.ID
	}
	return doc.PublicID
}
