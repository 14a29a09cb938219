package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/seqsearch/internal/db"
)

const (
	vectorScoreField   = "__vector_score"
	defaultVectorField = "vector"
)

// SearchKNN runs a KNN query through FT.SEARCH, nearest first. Cosine
// distances come back as similarities clamped to [0, 1].
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	args, err := knnArgs(q)
	if err != nil {
		return nil, err
	}
	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, searchErr(err)
	}
	return parseKNNResult(raw)
}

// SearchCount returns the number of documents in index (LIMIT 0 0).
func (s *Store) SearchCount(ctx context.Context, index string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, "*", "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, searchErr(err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

func knnArgs(q *db.KNNQuery) ([]string, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("vector is required")
	case q.K <= 0:
		return nil, errors.New("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = defaultVectorField
	}
	knn := fmt.Sprintf("[KNN %d @%s $BLOB]", q.K, field)
	query := "*=>" + knn
	if filter := buildFilter(q.Ranges); filter != "" {
		query = "(" + filter + ")=>" + knn
	}

	args := []string{q.IndexName, query}
	if len(q.ReturnFields) > 0 {
		ret := append(slices.Clone(q.ReturnFields), vectorScoreField)
		args = append(args, "RETURN", strconv.Itoa(len(ret)))
		args = append(args, ret...)
	}
	return append(args,
		"SORTBY", vectorScoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	), nil
}

// searchErr maps a missing index to db.ErrIndexNotFound.
func searchErr(err error) error {
	if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
		return db.ErrIndexNotFound
	}
	return &db.Error{Op: db.OpSearch, Err: err}
}

// parseKNNResult decodes the RESP2 reply [total, key1, fields1, key2, fields2, ...].
func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	res := &db.SearchResult{Total: int(total)}
	for i := 1; i+1 < len(raw); i += 2 {
		if e, ok := parseEntry(raw[i], raw[i+1]); ok {
			res.Entries = append(res.Entries, e)
		}
	}
	return res, nil
}

func parseEntry(keyMsg, fieldsMsg rueidis.RedisMessage) (db.SearchEntry, bool) {
	key, err := keyMsg.ToString()
	if err != nil {
		return db.SearchEntry{}, false
	}
	pairs, err := fieldsMsg.ToArray()
	if err != nil {
		return db.SearchEntry{}, false
	}

	fields := make(map[string]string, len(pairs)/2)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, nerr := pairs[j].ToString()
		value, verr := pairs[j+1].ToString()
		if nerr == nil && verr == nil {
			fields[name] = value
		}
	}

	e := db.SearchEntry{Key: key, Fields: fields}
	if raw, ok := fields[vectorScoreField]; ok {
		if d, err := strconv.ParseFloat(raw, 64); err == nil {
			e.Score = min(1, max(0, 1-d))
		}
		delete(fields, vectorScoreField)
	}
	return e, true
}

// buildFilter renders numeric ranges as an FT.SEARCH pre-filter. Ranges are ANDed.
func buildFilter(ranges []db.NumericRange) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, buildNumericFilter(r))
	}
	return strings.Join(parts, " ")
}

func buildNumericFilter(r db.NumericRange) string {
	return fmt.Sprintf("@%s:[%s %s]", r.Field, bound(r.Min), bound(r.Max))
}

func bound(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
