package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	requestsigner "github.com/opensearch-project/opensearch-go/v4/signer/awsv2"

	"github.com/kailas-cloud/seqsearch/internal/db"
)

// Compile-time check: Store implements db.DocumentSearcher and db.Pinger.
var (
	_ db.DocumentSearcher = (*Store)(nil)
	_ db.Pinger           = (*Store)(nil)
)

// Auth modes.
const (
	AuthAWS   = "aws"
	AuthBasic = "basic"
	AuthNone  = "none"
)

// Config holds connection parameters for the managed search backend.
type Config struct {
	Addresses  []string
	Auth       string
	Region     string // empty falls back to the AWS default chain
	Service    string // "aoss" for serverless collections, "es" for managed domains
	Username   string
	Password   string
	MaxRetries int
	Transport  http.RoundTripper
}

// Store executes search requests against OpenSearch.
type Store struct {
	client *opensearchapi.Client
}

// NewStore builds a client for the configured auth mode. Credentials for
// AuthAWS are resolved once through the AWS default chain.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("addresses is required")
	}

	osCfg := opensearch.Config{
		Addresses:  cfg.Addresses,
		MaxRetries: cfg.MaxRetries,
		Transport:  cfg.Transport,
	}

	switch cfg.Auth {
	case AuthAWS:
		var opts []func(*config.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, config.WithRegion(cfg.Region))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		service := cfg.Service
		if service == "" {
			service = "aoss"
		}
		signer, err := requestsigner.NewSignerWithService(awsCfg, service)
		if err != nil {
			return nil, fmt.Errorf("create request signer: %w", err)
		}
		osCfg.Signer = signer
	case AuthBasic:
		osCfg.Username = cfg.Username
		osCfg.Password = cfg.Password
	case AuthNone, "":
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth)
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{Client: osCfg})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Store{client: client}, nil
}

// Ping checks that the cluster answers.
func (s *Store) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, nil)
	if err != nil {
		return &db.Error{Op: db.OpDocPing, Err: err}
	}
	if resp != nil && resp.IsError() {
		return &db.Error{Op: db.OpDocPing, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

// Search runs a rendered query body against an index.
func (s *Store) Search(ctx context.Context, index string, body json.RawMessage) (*db.HitsResult, error) {
	resp, err := s.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{index},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpDocSearch, Err: fmt.Errorf("%s: %w", index, err)}
	}
	// A body timeout or failed shard still answers 200 with whatever hits arrived.
	if resp.Timeout || resp.Shards.Failed > 0 {
		return nil, &db.Error{Op: db.OpDocSearch, Err: fmt.Errorf(
			"%s: %w (timed_out=%t, failed_shards=%d/%d)",
			index, db.ErrPartialResults, resp.Timeout, resp.Shards.Failed, resp.Shards.Total,
		)}
	}

	out := &db.HitsResult{
		Total:         resp.Hits.Total.Value,
		TotalRelation: resp.Hits.Total.Relation,
		Hits:          make([]db.Hit, 0, len(resp.Hits.Hits)),
	}
	for _, h := range resp.Hits.Hits {
		out.Hits = append(out.Hits, db.Hit{
			Index:  h.Index,
			ID:     h.ID,
			Score:  float64(h.Score),
			Source: h.Source,
			Sort:   h.Sort,
		})
	}
	return out, nil
}
