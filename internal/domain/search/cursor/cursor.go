// Package cursor encodes the sort-key tuple of a page's last hit so the
// next page can resume with search_after.
package cursor

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/seqsearch/internal/domain"
)

// Encode returns base64url(json(keys)). Empty keys yield an empty cursor.
func Encode(keys []any) (string, error) {
	if len(keys) == 0 {
		return "", nil
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode reverses Encode. Numbers are kept as json.Number so large
// integer sort keys survive the round trip unchanged.
func Decode(s string) ([]any, error) {
	raw, err := decodeBase64(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var keys []any
	if err := dec.Decode(&keys); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: empty sort keys", domain.ErrInvalidCursor)
	}
	return keys, nil
}

// decodeBase64 accepts padded and unpadded base64url.
func decodeBase64(s string) ([]byte, error) {
	if raw, err := base64.URLEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw, nil
}
