package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled marks an optional component that is not configured.
	CheckDisabled CheckResult = "disabled"
)

// Component names reported by Check.
const (
	ComponentSearch    = "opensearch"
	ComponentVector    = "vector_store"
	ComponentEmbedding = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Failed returns the names of failing components in sorted order.
func (r Report) Failed() []string {
	var out []string
	for name, res := range r.Checks {
		if res == CheckError {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Service probes the search backend and the optional specialty stack.
type Service struct {
	search    Pinger
	vector    Pinger
	embedding EmbeddingChecker
	timeout   time.Duration
}

// New creates a Service. vector and embedding are nil when vector search
// is disabled; those components then report CheckDisabled.
func New(search Pinger, vector Pinger, embedding EmbeddingChecker) *Service {
	return &Service{search: search, vector: vector, embedding: embedding, timeout: 5 * time.Second}
}

// WithTimeout bounds every individual probe. Non-positive values are ignored.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check probes all configured components in parallel, each under its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	probes := map[string]func(context.Context) error{ComponentSearch: s.search.Ping}
	if s.vector != nil {
		probes[ComponentVector] = s.vector.Ping
	}
	if s.embedding != nil {
		probes[ComponentEmbedding] = s.embedding.HealthCheck
	}

	checks := map[string]CheckResult{
		ComponentVector:    CheckDisabled,
		ComponentEmbedding: CheckDisabled,
	}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := s.run(ctx, probe)
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	report := Report{Status: Healthy, Checks: checks}
	if len(report.Failed()) > 0 {
		report.Status = Degraded
	}
	return report
}

func (s *Service) run(ctx context.Context, probe func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := probe(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
