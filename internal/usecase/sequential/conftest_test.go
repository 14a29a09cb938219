package sequential

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/seqsearch/internal/domain/criteria"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/dsl"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/request"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/result"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/translate"
	"github.com/kailas-cloud/seqsearch/internal/domain/session"
)

const testSecret = "orchestrator-test-secret"

// mockCompanies counts stage-1 calls.
type mockCompanies struct {
	set   result.CompanySet
	err   error
	calls int
	last  dsl.Query
}

func (m *mockCompanies) Names(_ context.Context, q dsl.Query) (result.CompanySet, error) {
	m.calls++
	m.last = q
	return m.set, m.err
}

// mockProfiles returns pageSize synthetic hits out of total.
type mockProfiles struct {
	total  result.Total
	err    error
	calls  int
	bodies []string
}

func (m *mockProfiles) Page(_ context.Context, q dsl.Query) (result.ProfilePage, error) {
	m.calls++
	raw, _ := json.Marshal(q)
	m.bodies = append(m.bodies, string(raw))
	if m.err != nil {
		return result.ProfilePage{}, m.err
	}

	start := q.From()
	n := max(0, min(q.Size, m.total.Value-start))
	profiles := make([]result.Profile, 0, n)
	for i := range n {
		id := fmt.Sprintf("p%05d", start+i)
		score := float64(100 - start - i)
		profiles = append(profiles, result.NewProfile(id, score, json.RawMessage(`{"publicId":"`+id+`"}`), []any{score, id}))
	}
	return result.ProfilePage{Profiles: profiles, Total: m.total}, nil
}

func (m *mockProfiles) lastBody() string {
	if len(m.bodies) == 0 {
		return ""
	}
	return m.bodies[len(m.bodies)-1]
}

type mockExpander struct {
	neighbours map[string][]string
	err        error
	calls      int
}

func (m *mockExpander) Expand(_ context.Context, term string, n int) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := m.neighbours[term]
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

type recordingObserver struct {
	stages   map[string]int
	searches map[string]int
	tokens   map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{stages: map[string]int{}, searches: map[string]int{}, tokens: map[string]int{}}
}

func (r *recordingObserver) ObserveStage(stage, status string, _ time.Duration) {
	r.stages[stage+"/"+status]++
}

func (r *recordingObserver) ObserveSearch(mode, status string) { r.searches[mode+"/"+status]++ }

func (r *recordingObserver) ObserveToken(outcome string) { r.tokens[outcome]++ }

type fixture struct {
	svc       *Service
	companies *mockCompanies
	profiles  *mockProfiles
	codec     *session.Codec
	clock     *time.Time
	observer  *recordingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := time.Unix(1_700_000_000, 0)
	f := &fixture{
		companies: &mockCompanies{set: result.CompanySet{
			Names: []string{"Acme", "Globex", "Initech"},
			Total: result.Total{Value: 3, Relation: result.RelationEq},
		}},
		profiles: &mockProfiles{total: result.Total{Value: 42, Relation: result.RelationEq}},
		clock:    &clock,
		observer: newRecordingObserver(),
	}

	codec, err := session.NewCodec(testSecret, time.Hour)
	require.NoError(t, err)
	f.codec = codec.WithClock(func() time.Time { return *f.clock })

	f.svc = New(f.companies, f.profiles, translate.New(translate.DefaultLimits()), f.codec, Options{
		OffsetCeiling:        20,
		LargeResultThreshold: 1000,
		CompanyTimeout:       time.Second,
		ProfileTimeout:       time.Second,
	}).WithObserver(f.observer)
	return f
}

func intPtr(v int) *int { return &v }

func scenarioCriteria() (criteria.Company, criteria.People) {
	return criteria.Company{
			Industry:     criteria.NewStringList("Technology"),
			Size:         criteria.NewStringList(criteria.Size11To50),
			FoundedAfter: intPtr(2010),
		}, criteria.People{
			JobTitle:  criteria.NewStringList("Engineer"),
			Seniority: criteria.NewStringList("senior"),
		}
}

func mustRequest(
	t *testing.T, company criteria.Company, people criteria.People,
	page, size int, token, cur string,
) *request.Request {
	t.Helper()
	req, err := request.New(company, people, page, size, token, cur, request.DefaultBounds())
	require.NoError(t, err)
	return &req
}

type companiesFunc func(ctx context.Context) (result.CompanySet, error)

func (f companiesFunc) Names(ctx context.Context, _ dsl.Query) (result.CompanySet, error) { return f(ctx) }
