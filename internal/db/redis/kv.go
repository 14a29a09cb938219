package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/seqsearch/internal/db"
)

// Get returns the value stored at key, or db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	switch {
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	case err != nil:
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// GetMulti fetches keys with a single MGET. Missing keys yield nil entries,
// so the result always lines up with keys.
func (s *Store) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	raw, err := s.do(ctx, s.b().Mget().Key(keys...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}

	out := make([][]byte, len(keys))
	for i := range raw {
		if i >= len(out) || raw[i].IsNil() {
			continue
		}
		if b, err := raw[i].AsBytes(); err == nil {
			out[i] = b
		}
	}
	return out, nil
}

// SetWithTTL stores value at key; it expires after ttl.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.do(ctx, s.b().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}
