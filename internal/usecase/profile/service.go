// Package profile serves direct profile lookups by public id and by name.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/result"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/translate"
)

// StageLookup is the observer label of every lookup.
const StageLookup = "lookup"

// NameResult is the outcome of a by-name search.
type NameResult struct {
	Query    string
	Profiles []result.Profile
}

// Service handles profile lookups.
type Service struct {
	repo     Repository
	tr       Translator
	timeout  time.Duration
	observer Observer
}

// New creates a profile lookup service. timeout <= 0 disables the per-call budget.
func New(repo Repository, tr Translator, timeout time.Duration) *Service {
	return &Service{repo: repo, tr: tr, timeout: timeout}
}

// WithObserver attaches telemetry.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// Get returns one profile. Empty fields returns the full document.
func (s *Service) Get(ctx context.Context, publicID string, fields []string) (result.Profile, error) {
	publicID = strings.TrimSpace(publicID)
	q, err := s.tr.ProfileByID(publicID, cleanFields(fields))
	if err != nil {
		return result.Profile{}, fmt.Errorf("profile lookup: %w", err)
	}

	var p result.Profile
	err = s.run(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.ByID(ctx, q)
		return err
	})
	if err != nil {
		return result.Profile{}, fmt.Errorf("profile %q: %w", publicID, err)
	}
	return p, nil
}

// Batch fetches up to translate.MaxBatchIDs profiles. Duplicate ids are
// collapsed; Requested reports the deduplicated count.
func (s *Service) Batch(ctx context.Context, publicIDs []string, fields []string) (result.Lookup, error) {
	ids := uniqueIDs(publicIDs)
	if len(ids) == 0 {
		return result.Lookup{}, fmt.Errorf("%w: public_ids must not be empty", domain.ErrInvalidRequest)
	}
	if len(ids) > translate.MaxBatchIDs {
		return result.Lookup{}, fmt.Errorf("%w: at most %d public_ids per batch", domain.ErrInvalidRequest, translate.MaxBatchIDs)
	}

	q, err := s.tr.ProfilesByIDs(ids, cleanFields(fields))
	if err != nil {
		return result.Lookup{}, fmt.Errorf("batch lookup: %w", err)
	}

	var lookup result.Lookup
	err = s.run(ctx, func(ctx context.Context) error {
		var err error
		lookup, err = s.repo.ByIDs(ctx, q, ids)
		return err
	})
	if err != nil {
		return result.Lookup{}, fmt.Errorf("batch lookup: %w", err)
	}
	return lookup, nil
}

// ByName finds profiles whose full name contains every token of name.
func (s *Service) ByName(ctx context.Context, name string, limit int) (NameResult, error) {
	name = strings.TrimSpace(name)
	q, err := s.tr.ProfilesByName(name, limit)
	if err != nil {
		return NameResult{}, fmt.Errorf("name lookup: %w", err)
	}

	var profiles []result.Profile
	err = s.run(ctx, func(ctx context.Context) error {
		var err error
		profiles, err = s.repo.ByName(ctx, q)
		return err
	})
	if err != nil {
		return NameResult{}, fmt.Errorf("name lookup: %w", err)
	}
	if profiles == nil {
		profiles = []result.Profile{}
	}
	return NameResult{Query: name, Profiles: profiles}, nil
}

func (s *Service) run(ctx context.Context, fn func(context.Context) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	if s.observer != nil {
		status := "ok"
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			status = "error"
		}
		s.observer.ObserveStage(StageLookup, status, time.Since(start))
	}
	return err
}


func cleanFields(fields []string) []string {
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var _ Translator = (*translate.Translator)(nil)
