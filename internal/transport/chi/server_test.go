package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/dsl"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/request"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/result"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/translate"
	"github.com/kailas-cloud/seqsearch/internal/domain/session"
	"github.com/kailas-cloud/seqsearch/internal/domain/specialty"
	healthuc "github.com/kailas-cloud/seqsearch/internal/usecase/health"
	profileuc "github.com/kailas-cloud/seqsearch/internal/usecase/profile"
	sequentialuc "github.com/kailas-cloud/seqsearch/internal/usecase/sequential"
	specialtyuc "github.com/kailas-cloud/seqsearch/internal/usecase/specialty"
)

// --- Mocks ---

type fakeCompanies struct {
	set   result.CompanySet
	err   error
	calls int
}

func (f *fakeCompanies) Names(context.Context, dsl.Query) (result.CompanySet, error) {
	f.calls++
	return f.set, f.err
}

type fakeProfiles struct {
	total    int
	err      error
	byID     map[string]result.Profile
	byIDsErr error
}

func (f *fakeProfiles) Page(_ context.Context, q dsl.Query) (result.ProfilePage, error) {
	if f.err != nil {
		return result.ProfilePage{}, f.err
	}
	start := q.From()
	n := max(0, min(q.Size, f.total-start))
	out := make([]result.Profile, 0, n)
	for i := range n {
		id := fmt.Sprintf("p%03d", start+i)
		out = append(out, result.NewProfile(id, 2.5, json.RawMessage(`{"publicId":"`+id+`","fullName":"Person `+id+`"}`), []any{2.5, id}).
			WithIndex("people-000001"))
	}
	return result.ProfilePage{Profiles: out, Total: result.Total{Value: f.total, Relation: result.RelationEq}}, nil
}

func (f *fakeProfiles) ByID(_ context.Context, q dsl.Query) (result.Profile, error) {
	for id, p := range f.byID {
		raw, _ := json.Marshal(q)
		if bytes.Contains(raw, []byte(`"`+id+`"`)) {
			return p, nil
		}
	}
	return result.Profile{}, domain.ErrNotFound
}

func (f *fakeProfiles) ByIDs(_ context.Context, _ dsl.Query, ids []string) (result.Lookup, error) {
	if f.byIDsErr != nil {
		return result.Lookup{}, f.byIDsErr
	}
	l := result.Lookup{Requested: len(ids)}
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			l.Profiles = append(l.Profiles, p)
		} else {
			l.NotFound = append(l.NotFound, id)
		}
	}
	return l, nil
}

func (f *fakeProfiles) ByName(context.Context, dsl.Query) ([]result.Profile, error) {
	var out []result.Profile
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, nil
}

type fakeSpecialties struct {
	matches []specialty.Match
}

func (f *fakeSpecialties) Similar(_ context.Context, _ []float32, k int, _ *int) ([]specialty.Match, error) {
	out := append([]specialty.Match(nil), f.matches...)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeSpecialties) Count(context.Context) (int, error) { return len(f.matches), nil }

func (f *fakeSpecialties) Index() string { return "seqsearch:specialty:idx" }

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, f.err
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

// --- Fixture ---

type testAPI struct {
	router    http.Handler
	companies *fakeCompanies
	profiles  *fakeProfiles
	search    *fakePinger
}

func newTestAPI(t *testing.T, withVector bool) *testAPI {
	t.Helper()

	companies := &fakeCompanies{set: result.CompanySet{
		Names: []string{"Acme", "Globex"},
		Total: result.Total{Value: 2, Relation: result.RelationEq},
	}}
	jane := result.NewProfile("jane-doe", 0, json.RawMessage(`{"publicId":"jane-doe","fullName":"Jane Doe"}`), nil).
		WithIndex("people-000001")
	profiles := &fakeProfiles{total: 35, byID: map[string]result.Profile{"jane-doe": jane}}

	codec, err := session.NewCodec("server-test-secret-0123", time.Hour)
	require.NoError(t, err)

	tr := translate.New(translate.DefaultLimits())
	seq := sequentialuc.New(companies, profiles, tr, codec, sequentialuc.Options{})
	prof := profileuc.New(profiles, tr, time.Second)

	specSvc := specialtyuc.New(nil, nil)
	if withVector {
		specSvc = specialtyuc.New(&fakeSpecialties{matches: []specialty.Match{
			specialty.NewMatch("saas", 900, 1, 0.99),
			specialty.NewMatch("cloud software", 100, 20, 0.93),
			specialty.NewMatch("software as a service", 400, 5, 0.91),
		}}, &fakeEmbedder{})
	}

	search := &fakePinger{}
	health := healthuc.New(search, nil, nil)

	srv := NewServer(seq, prof, specSvc, health, request.DefaultBounds(), zap.NewNop())
	r := chi.NewRouter()
	srv.Mount(r)

	return &testAPI{router: r, companies: companies, profiles: profiles, search: search}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	var out map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	}
	return rr, out
}

func scenarioBody(page int, token string) map[string]any {
	body := map[string]any{
		"company_criteria": map[string]any{
			"industry":      []string{"Technology"},
			"size":          []string{"11_50"},
			"founded_after": 2010,
		},
		"people_criteria": map[string]any{
			"job_title": "Engineer",
			"seniority": []string{"senior"},
		},
		"page":      page,
		"page_size": 10,
	}
	if token != "" {
		body["session_token"] = token
	}
	return body
}

// --- Sequential search ---

func TestSequentialSearch_FirstAndSecondPage(t *testing.T) {
	api := newTestAPI(t, false)

	rr, out := api.do(t, http.MethodPost, "/v1/search/sequential", scenarioBody(1, ""))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, "success", out["status"])
	results := out["results"].([]any)
	assert.Len(t, results, 10)
	first := results[0].(map[string]any)
	assert.Equal(t, "p000", first["_id"])
	assert.Equal(t, "people-000001", first["_index"])
	assert.Equal(t, "Person p000", first["fullName"])

	pagination := out["pagination"].(map[string]any)
	meta := out["metadata"].(map[string]any)
	assert.EqualValues(t, 1, pagination["current_page"])
	assert.EqualValues(t, 4, pagination["total_pages"])
	assert.Equal(t, true, pagination["has_next"])
	assert.Equal(t, "eq", pagination["total_relation"])
	assert.Equal(t, "sequential", meta["search_mode"])
	assert.EqualValues(t, 2, meta["companies_matched"])
	token, _ := pagination["session_token"].(string)
	require.NotEmpty(t, token)

	rr, out = api.do(t, http.MethodPost, "/v1/search/sequential", scenarioBody(2, token))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "sequential_cached", out["metadata"].(map[string]any)["search_mode"])
	assert.Equal(t, 1, api.companies.calls)
}

func TestSequentialSearch_ErrorKinds(t *testing.T) {
	api := newTestAPI(t, false)

	_, out := api.do(t, http.MethodPost, "/v1/search/sequential", scenarioBody(1, ""))
	token := out["pagination"].(map[string]any)["session_token"].(string)

	changed := scenarioBody(2, token)
	changed["company_criteria"].(map[string]any)["industry"] = "Healthcare"

	tests := []struct {
		name   string
		body   any
		status int
		kind   string
	}{
		{"mismatch", changed, http.StatusConflict, KindCriteriaMismatch},
		{"forged token", scenarioBody(2, "e30.abcd"), http.StatusBadRequest, KindInvalidToken},
		{"bad cursor", map[string]any{"cursor": "!!!", "page": 21}, http.StatusBadRequest, KindInvalidCursor},
		{"deep page without cursor", map[string]any{"page": 21}, http.StatusBadRequest, KindValidationFailed},
		{"page size too small", map[string]any{"page_size": 5}, http.StatusBadRequest, KindValidationFailed},
		{"negative page", map[string]any{"page": -1}, http.StatusBadRequest, KindValidationFailed},
		{"unknown size bucket", map[string]any{"company_criteria": map[string]any{"size": "huge"}}, http.StatusBadRequest, KindValidationFailed},
		{"malformed json", "{", http.StatusBadRequest, KindBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr, out := api.do(t, http.MethodPost, "/v1/search/sequential", tc.body)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
			assert.Equal(t, "error", out["status"])
			assert.Equal(t, tc.kind, out["error"])
			assert.NotEmpty(t, out["message"])
		})
	}
}

func TestSequentialSearch_BackendUnavailableHidesDetail(t *testing.T) {
	api := newTestAPI(t, false)
	api.companies.err = fmt.Errorf("company search: %w: %w", domain.ErrBackendUnavailable, errors.New("dial tcp 10.0.0.7:443"))

	rr, out := api.do(t, http.MethodPost, "/v1/search/sequential", scenarioBody(1, ""))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, KindBackendUnavailable, out["error"])
	assert.NotContains(t, out["message"], "10.0.0.7")
}

func TestSequentialSearch_EmptyCompanySet(t *testing.T) {
	api := newTestAPI(t, false)
	api.companies.set = result.CompanySet{}

	rr, out := api.do(t, http.MethodPost, "/v1/search/sequential", scenarioBody(1, ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, out["results"])
	assert.NotNil(t, out["results"])
	meta := out["metadata"].(map[string]any)
	assert.EqualValues(t, 0, meta["profiles_matched"])
	assert.Equal(t, sequentialuc.EmptyCompaniesSuggestion, meta["suggestion"])
	_, hasToken := out["pagination"].(map[string]any)["session_token"]
	assert.False(t, hasToken)
}

func TestSequentialSearch_DirectMode(t *testing.T) {
	api := newTestAPI(t, false)

	rr, out := api.do(t, http.MethodPost, "/v1/search/sequential", map[string]any{
		"people_criteria": map[string]any{"skills": []string{"Go"}},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "direct", out["metadata"].(map[string]any)["search_mode"])
	assert.EqualValues(t, 25, out["pagination"].(map[string]any)["page_size"])
	assert.Equal(t, 0, api.companies.calls)
}

// --- Profiles ---

func TestGetProfile(t *testing.T) {
	api := newTestAPI(t, false)

	rr, out := api.do(t, http.MethodGet, "/v1/profiles/jane-doe?include_fields=fullName", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Jane Doe", out["fullName"])
	assert.Equal(t, "people-000001", out["_index"])

	rr, out = api.do(t, http.MethodGet, "/v1/profiles/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, KindNotFound, out["error"])
}

func TestBatchProfiles(t *testing.T) {
	api := newTestAPI(t, false)

	rr, out := api.do(t, http.MethodPost, "/v1/profiles/batch", map[string]any{
		"public_ids": []string{"jane-doe", "ghost"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.EqualValues(t, 1, out["total_found"])
	assert.EqualValues(t, 2, out["total_requested"])
	assert.Equal(t, []any{"ghost"}, out["not_found"])

	rr, out = api.do(t, http.MethodPost, "/v1/profiles/batch", map[string]any{"public_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, KindValidationFailed, out["error"])
	assert.Contains(t, out["message"], "public_ids")

	api.profiles.byIDsErr = fmt.Errorf("profile batch lookup: %w", domain.ErrBackendUnavailable)
	rr, out = api.do(t, http.MethodPost, "/v1/profiles/batch", map[string]any{"public_ids": []string{"jane-doe"}})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, KindBackendUnavailable, out["error"])
}

func TestProfilesByName(t *testing.T) {
	api := newTestAPI(t, false)

	rr, out := api.do(t, http.MethodGet, "/v1/profiles/search/by-name/Jane%20Doe?limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Jane Doe", out["query"])
	assert.EqualValues(t, 1, out["total_found"])

	rr, _ = api.do(t, http.MethodGet, "/v1/profiles/search/by-name/Jane?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- Specialties ---

func TestSpecialties_Disabled(t *testing.T) {
	api := newTestAPI(t, false)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/v1/specialties/search"},
		{http.MethodPost, "/v1/specialties/expand"},
		{http.MethodGet, "/v1/specialties/stats"},
	} {
		rr, out := api.do(t, tc.method, tc.path, map[string]any{"query": "saas"})
		assert.Equal(t, http.StatusNotImplemented, rr.Code, tc.path)
		assert.Equal(t, KindNotImplemented, out["error"])
	}
}

func TestSpecialties_Search(t *testing.T) {
	api := newTestAPI(t, true)

	rr, out := api.do(t, http.MethodPost, "/v1/specialties/search", map[string]any{"query": "saas", "n_results": 3})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	results := out["results"].([]any)
	require.Len(t, results, 3)
	assert.Equal(t, "saas", results[0].(map[string]any)["specialty"])
	assert.Equal(t, "software as a service", results[1].(map[string]any)["specialty"])
	assert.Equal(t, true, out["metadata"].(map[string]any)["sort_by_count"])

	rr, out = api.do(t, http.MethodPost, "/v1/specialties/search", map[string]any{"query": "saas", "n_results": 99})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, out["message"], "n_results")
}

func TestSpecialties_ExpandAndStats(t *testing.T) {
	api := newTestAPI(t, true)

	rr, out := api.do(t, http.MethodPost, "/v1/specialties/expand", map[string]any{"query": "SaaS", "expansion_count": 2})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "SaaS", out["original_query"])
	assert.Equal(t, []any{"cloud software", "software as a service"}, out["expanded_terms"])
	assert.EqualValues(t, 2, out["count"])

	rr, out = api.do(t, http.MethodGet, "/v1/specialties/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 3, out["total_specialties"])
	assert.Equal(t, "ready", out["status"])
}

// --- Root, health ---

func TestRootAndHealth(t *testing.T) {
	api := newTestAPI(t, false)

	rr, out := api.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "seqsearch", out["name"])

	rr, out = api.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "disabled", out["checks"].(map[string]any)["vector_store"])

	api.search.err = errors.New("down")
	rr, out = api.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "degraded", out["status"])
}

func TestErrorHandlers_UnknownErrorIsInternal(t *testing.T) {
	s := NewServer(nil, nil, nil, nil, request.DefaultBounds(), zap.NewNop())
	rr := httptest.NewRecorder()
	s.handleDomainError(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody), errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var out errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, KindInternal, out.Error)
	assert.Equal(t, "internal error", out.Message)
}
