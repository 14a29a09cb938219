// Package chi exposes the search services over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/seqsearch/internal/domain/search/request"
	"github.com/kailas-cloud/seqsearch/internal/version"
	healthuc "github.com/kailas-cloud/seqsearch/internal/usecase/health"
	profileuc "github.com/kailas-cloud/seqsearch/internal/usecase/profile"
	sequentialuc "github.com/kailas-cloud/seqsearch/internal/usecase/sequential"
	specialtyuc "github.com/kailas-cloud/seqsearch/internal/usecase/specialty"
)

const maxBodyBytes = 1 << 20

// Server holds the HTTP handlers.
type Server struct {
	sequential    *sequentialuc.Service
	profiles      *profileuc.Service
	specialties   *specialtyuc.Service
	health        *healthuc.Service
	bounds        request.Bounds
	validate      *validator.Validate
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	sequential *sequentialuc.Service,
	profiles *profileuc.Service,
	specialties *specialtyuc.Service,
	health *healthuc.Service,
	bounds request.Bounds,
	logger *zap.Logger,
) *Server {
	return &Server{
		sequential:    sequential,
		profiles:      profiles,
		specialties:   specialties,
		health:        health,
		bounds:        bounds,
		validate:      newValidator(),
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Mount registers every route on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/search/sequential", s.SequentialSearch)

		r.Post("/profiles/batch", s.BatchProfiles)
		r.Get("/profiles/search/by-name/{fullName}", s.ProfilesByName)
		r.Get("/profiles/{publicId}", s.GetProfile)

		r.Post("/specialties/search", s.SearchSpecialties)
		r.Post("/specialties/expand", s.ExpandSpecialty)
		r.Get("/specialties/stats", s.SpecialtyStats)
	})
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "seqsearch",
		"version": version.Version,
		"commit":  version.Commit,
		"endpoints": map[string]string{
			"health":             "GET /health",
			"metrics":            "GET /metrics",
			"sequential_search":  "POST /v1/search/sequential",
			"profile":            "GET /v1/profiles/{publicId}",
			"profiles_batch":     "POST /v1/profiles/batch",
			"profiles_by_name":   "GET /v1/profiles/search/by-name/{fullName}",
			"specialties_search": "POST /v1/specialties/search",
			"specialties_expand": "POST /v1/specialties/expand",
			"specialties_stats":  "GET /v1/specialties/stats",
		},
	})
}

// HealthCheck handles GET /health. A failing search backend answers 503;
// optional dependencies only degrade the status.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Checks[healthuc.ComponentSearch] == healthuc.CheckError {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

// SequentialSearch handles POST /v1/search/sequential.
func (s *Server) SequentialSearch(w http.ResponseWriter, r *http.Request) {
	var body sequentialSearchRequest
	if !s.decode(w, r, &body) {
		return
	}

	req, err := request.New(
		body.CompanyCriteria, body.PeopleCriteria,
		body.Page, body.PageSize,
		body.SessionToken, body.Cursor,
		s.bounds,
	)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := s.sequential.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageToResponse(page))
}

// GetProfile handles GET /v1/profiles/{publicId}.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "publicId")
	fields := splitFields(r.URL.Query().Get("include_fields"))

	p, err := s.profiles.Get(r.Context(), publicID, fields)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeRaw(w, http.StatusOK, profileDocument(&p, false))
}

// BatchProfiles handles POST /v1/profiles/batch.
func (s *Server) BatchProfiles(w http.ResponseWriter, r *http.Request) {
	var body batchProfilesRequest
	if !s.decode(w, r, &body) {
		return
	}

	lookup, err := s.profiles.Batch(r.Context(), body.PublicIDs, body.IncludeFields)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, lookupToResponse(lookup))
}

// ProfilesByName handles GET /v1/profiles/search/by-name/{fullName}.
func (s *Server) ProfilesByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "fullName")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, KindValidationFailed, "limit must be a positive integer")
			return
		}
		limit = n
	}

	res, err := s.profiles.ByName(r.Context(), name, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nameResultToResponse(res))
}

// SearchSpecialties handles POST /v1/specialties/search.
func (s *Server) SearchSpecialties(w http.ResponseWriter, r *http.Request) {
	var body specialtySearchRequest
	if !s.decode(w, r, &body) {
		return
	}

	sortByCount := true
	if body.SortByCount != nil {
		sortByCount = *body.SortByCount
	}

	req, err := request.NewSpecialty(body.Query, body.NResults, body.MinCount, sortByCount)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	res, err := s.specialties.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, specialtyResultToResponse(res, sortByCount, body.MinCount))
}

// ExpandSpecialty handles POST /v1/specialties/expand.
func (s *Server) ExpandSpecialty(w http.ResponseWriter, r *http.Request) {
	var body specialtyExpandRequest
	if !s.decode(w, r, &body) {
		return
	}

	n := body.ExpansionCount
	if n == 0 {
		n = specialtyuc.DefaultExpansionCount
	}

	terms, err := s.specialties.Expand(r.Context(), body.Query, n)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, specialtyExpandResponse{
		OriginalQuery: strings.TrimSpace(body.Query),
		ExpandedTerms: terms,
		Count:         len(terms),
	})
}

// SpecialtyStats handles GET /v1/specialties/stats.
func (s *Server) SpecialtyStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.specialties.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, specialtyStatsResponse{
		TotalSpecialties: st.Total,
		Index:            st.Index,
		Status:           st.Status,
	})
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, KindBadRequest, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, KindBadRequest, "invalid request body: "+err.Error())
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			s.handleDomainError(w, r, err)
			return false
		}
		writeError(w, http.StatusBadRequest, KindValidationFailed, formatValidationErrors(err))
		return false
	}
	return true
}

func splitFields(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

