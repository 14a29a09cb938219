package company

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/seqsearch/internal/db"
	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/dsl"
)

type mockSearcher struct {
	searchFn func(ctx context.Context, index string, body json.RawMessage) (*db.HitsResult, error)
	index    string
	body     json.RawMessage
}

func (m *mockSearcher) Search(ctx context.Context, index string, body json.RawMessage) (*db.HitsResult, error) {
	m.index = index
	m.body = body
	return m.searchFn(ctx, index, body)
}

func hit(src string) db.Hit {
	return db.Hit{Source: json.RawMessage(src)}
}

func TestNames_DedupesAndSorts(t *testing.T) {
	ms := &mockSearcher{searchFn: func(context.Context, string, json.RawMessage) (*db.HitsResult, error) {
		return &db.HitsResult{
			Total:         4,
			TotalRelation: "eq",
			Hits: []db.Hit{
				hit(`{"name":"Zeta Labs"}`),
				hit(`{"name":"Acme"}`),
				hit(`{"name":" Acme "}`),
				hit(`{"name":""}`),
				hit(`{}`),
			},
		}, nil
	}}

	set, err := New(ms, "companies").Names(context.Background(), dsl.Query{Size: 1000})
	require.NoError(t, err)

	assert.Equal(t, []string{"Acme", "Zeta Labs"}, set.Names)
	assert.Equal(t, 4, set.Total.Value)
	assert.True(t, set.Total.IsExact())
	assert.Equal(t, "companies", ms.index)

	var body map[string]any
	require.NoError(t, json.Unmarshal(ms.body, &body))
	assert.InDelta(t, 1000, body["size"], 0)
}

func TestNames_EmptyHits(t *testing.T) {
	ms := &mockSearcher{searchFn: func(context.Context, string, json.RawMessage) (*db.HitsResult, error) {
		return &db.HitsResult{}, nil
	}}

	set, err := New(ms, "companies").Names(context.Background(), dsl.Query{})
	require.NoError(t, err)
	assert.True(t, set.IsEmpty())
}

func TestNames_BackendFailure(t *testing.T) {
	cause := &db.Error{Op: db.OpDocSearch, Err: errors.New("connection refused")}
	ms := &mockSearcher{searchFn: func(context.Context, string, json.RawMessage) (*db.HitsResult, error) {
		return nil, cause
	}}

	_, err := New(ms, "companies").Names(context.Background(), dsl.Query{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)

	var dbErr *db.Error
	assert.ErrorAs(t, err, &dbErr)
}
