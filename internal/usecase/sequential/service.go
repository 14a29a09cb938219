// Package sequential runs the two-stage company then people search.
package sequential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/criteria"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/cursor"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/dsl"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/request"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/result"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/translate"
	"github.com/kailas-cloud/seqsearch/internal/logger"
)

// Stage labels.
const (
	StageCompany   = "company"
	StagePeople    = "people"
	StageSpecialty = "specialty"
)

// Token outcomes.
const (
	TokenIssued   = "issued"
	TokenReused   = "reused"
	TokenInvalid  = "invalid"
	TokenExpired  = "expired"
	TokenMismatch = "mismatch"
)

// EmptyCompaniesSuggestion is returned when stage 1 matches nothing.
const EmptyCompaniesSuggestion = "No companies matched your criteria. Try broadening company filters."

// Options tune pagination and stage budgets.
type Options struct {
	OffsetCeiling        int
	LargeResultThreshold int
	CompanyTimeout       time.Duration
	ProfileTimeout       time.Duration
}

// Service orchestrates sequential searches.
type Service struct {
	companies CompanyRepository
	profiles  ProfileRepository
	translate Translator
	tokens    TokenCodec
	expander  SpecialtyExpander
	observer  Observer
	opts      Options
	now       func() time.Time
}

// New creates a sequential search service.
func New(
	companies CompanyRepository,
	profiles ProfileRepository,
	tr Translator,
	tokens TokenCodec,
	opts Options,
) *Service {
	if opts.OffsetCeiling <= 0 {
		opts.OffsetCeiling = 20
	}
	if opts.LargeResultThreshold <= 0 {
		opts.LargeResultThreshold = 1000
	}
	return &Service{
		companies: companies,
		profiles:  profiles,
		translate: tr,
		tokens:    tokens,
		opts:      opts,
		now:       time.Now,
	}
}

// WithExpander enables specialty expansion before stage 1.
func (s *Service) WithExpander(e SpecialtyExpander) *Service {
	s.expander = e
	return s
}

// WithObserver attaches telemetry.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// companyScope is the company set stage 2 runs against.
type companyScope struct {
	mode     mode.Mode
	names    []string
	matched  int
	expanded []string
}

// Search runs one page of a sequential search.
func (s *Service) Search(ctx context.Context, req *request.Request) (result.Page, error) {
	start := s.now()
	ctx = logger.WithFields(ctx, zap.Int("page", req.Page()))

	page, scope, err := s.search(ctx, req, start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.observeSearch(scope.mode, status)

	log := logger.FromContext(ctx)
	if err != nil {
		log.Warn("sequential_search failed",
			zap.String("mode", string(scope.mode)),
			zap.Error(err),
		)
		return result.Page{}, err
	}

	log.Info("sequential_search",
		zap.String("mode", string(scope.mode)),
		zap.Int("companies_matched", scope.matched),
		zap.Int("companies_used", len(scope.names)),
		zap.Int("profiles_matched", page.Metadata.ProfilesMatched),
		zap.Int("page_size", req.PageSize()),
		zap.Duration("duration", page.Metadata.QueryTime),
	)
	return page, nil
}

func (s *Service) search(ctx context.Context, req *request.Request, start time.Time) (result.Page, companyScope, error) {
	scope, err := s.resolveCompanies(ctx, req)
	if err != nil {
		return result.Page{}, scope, err
	}

	if scope.mode == mode.Sequential && len(scope.names) == 0 {
		return s.emptyPage(req, scope, start), scope, nil
	}

	var companies []string
	if scope.mode.UsesCompanies() {
		companies = scope.names
	}

	q, err := s.translate.People(req.People(), companies, translate.Page{
		Number: req.Page(),
		Size:   req.PageSize(),
		After:  req.Cursor(),
	})
	if err != nil {
		return result.Page{}, scope, fmt.Errorf("translate people criteria: %w", err)
	}

	profiles, err := s.runProfiles(ctx, q)
	if err != nil {
		return result.Page{}, scope, err
	}

	pagination := result.NewPagination(req.Page(), req.PageSize(), profiles.Total)

	if scope.mode == mode.Sequential {
		token, err := s.tokens.Issue(scope.names, req.Company(), req.People(), "")
		if err != nil {
			return result.Page{}, scope, fmt.Errorf("issue session token: %w", err)
		}
		pagination.SessionToken = token
		s.observeToken(TokenIssued)
	} else if scope.mode == mode.SequentialCached {
		pagination.SessionToken = req.SessionToken()
	}

	if pagination.HasNext && (req.HasCursor() || req.Page() >= s.opts.OffsetCeiling) {
		if last, ok := profiles.Last(); ok {
			next, err := cursor.Encode(last.SortKeys())
			if err != nil {
				return result.Page{}, scope, fmt.Errorf("encode cursor: %w", err)
			}
			pagination.NextCursor = next
		}
	}

	meta := result.Metadata{
		CompaniesMatched:    scope.matched,
		CompaniesUsed:       len(scope.names),
		ProfilesMatched:     profiles.Total.Value,
		QueryTime:           s.now().Sub(start),
		Mode:                scope.mode,
		ExpandedSpecialties: scope.expanded,
	}
	if scope.mode.UsesCompanies() && scope.matched > s.opts.LargeResultThreshold {
		meta.Suggestion = fmt.Sprintf(
			"Found %d companies. Consider adding more company filters (industry, size, location) to narrow results.",
			scope.matched,
		)
	}

	return result.Page{Profiles: profiles.Profiles, Pagination: pagination, Metadata: meta}, scope, nil
}

// resolveCompanies picks the mode and produces the company set: from the
// session token when one is supplied, from stage 1 when company criteria are
// present, or none in direct mode.
func (s *Service) resolveCompanies(ctx context.Context, req *request.Request) (companyScope, error) {
	if req.SessionToken() != "" {
		return s.adoptToken(req)
	}

	if req.Company().IsEmpty() {
		return companyScope{mode: mode.Direct}, nil
	}

	scope := companyScope{mode: mode.Sequential}

	company := req.Company()
	if company.SpecialtyExpansion > 0 && s.expander != nil && !company.Specialties.IsEmpty() {
		expanded, added, err := s.expandSpecialties(ctx, company)
		if err != nil {
			return scope, err
		}
		company = expanded
		scope.expanded = added
	}

	q, err := s.translate.Company(company)
	if err != nil {
		return scope, fmt.Errorf("translate company criteria: %w", err)
	}

	set, err := s.runCompanies(ctx, q)
	if err != nil {
		return scope, err
	}
	scope.names = set.Names
	scope.matched = set.Total.Value
	return scope, nil
}

func (s *Service) adoptToken(req *request.Request) (companyScope, error) {
	scope := companyScope{mode: mode.SequentialCached}

	payload, err := s.tokens.Verify(req.SessionToken())
	if err != nil {
		if errors.Is(err, domain.ErrExpiredToken) {
			s.observeToken(TokenExpired)
		} else {
			s.observeToken(TokenInvalid)
		}
		return scope, fmt.Errorf("%w; restart the search from page 1 without a session_token", err)
	}
	if !s.tokens.Matches(payload, req.Company(), req.People()) {
		s.observeToken(TokenMismatch)
		return scope, fmt.Errorf(
			"%w: criteria differ from the session token; restart the search from page 1",
			domain.ErrCriteriaMismatch,
		)
	}

	s.observeToken(TokenReused)
	scope.names = payload.CompanyNames
	scope.matched = len(payload.CompanyNames)
	return scope, nil
}

// expandSpecialties returns a copy of c whose specialties include up to
// c.SpecialtyExpansion neighbours per submitted term, and the terms added.
func (s *Service) expandSpecialties(ctx context.Context, c criteria.Company) (criteria.Company, []string, error) {
	start := s.now()
	terms := c.Specialties.Values()
	all := append([]string{}, terms...)

	for _, term := range terms {
		near, err := s.expander.Expand(ctx, term, c.SpecialtyExpansion)
		if err != nil {
			s.observeStage(StageSpecialty, "error", s.now().Sub(start))
			return c, nil, fmt.Errorf("expand specialty %q: %w", term, err)
		}
		all = append(all, near...)
	}

	expanded := criteria.NewStringList(all...)
	submitted := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		submitted[t] = struct{}{}
	}
	var added []string
	for _, v := range expanded.Values() {
		if _, ok := submitted[v]; !ok {
			added = append(added, v)
		}
	}
	s.observeStage(StageSpecialty, "ok", s.now().Sub(start))

	c.Specialties = expanded
	return c, added, nil
}

func (s *Service) runCompanies(ctx context.Context, q dsl.Query) (result.CompanySet, error) {
	ctx, cancel := withBudget(ctx, s.opts.CompanyTimeout)
	defer cancel()

	start := s.now()
	set, err := s.companies.Names(ctx, q)
	elapsed := s.now().Sub(start)
	s.observeStage(StageCompany, statusOf(err), elapsed)
	logger.Stage(logger.FromContext(ctx), StageCompany).Debug("stage finished",
		zap.Duration("took", elapsed), zap.Int("companies", len(set.Names)), zap.Error(err))
	if err != nil {
		return result.CompanySet{}, fmt.Errorf("stage 1: %w", err)
	}
	return set, nil
}

func (s *Service) runProfiles(ctx context.Context, q dsl.Query) (result.ProfilePage, error) {
	ctx, cancel := withBudget(ctx, s.opts.ProfileTimeout)
	defer cancel()

	start := s.now()
	page, err := s.profiles.Page(ctx, q)
	elapsed := s.now().Sub(start)
	s.observeStage(StagePeople, statusOf(err), elapsed)
	logger.Stage(logger.FromContext(ctx), StagePeople).Debug("stage finished",
		zap.Duration("took", elapsed), zap.Int("profiles", len(page.Profiles)), zap.Error(err))
	if err != nil {
		return result.ProfilePage{}, fmt.Errorf("stage 2: %w", err)
	}
	return page, nil
}

func (s *Service) emptyPage(req *request.Request, scope companyScope, start time.Time) result.Page {
	return result.Page{
		Profiles:   []result.Profile{},
		Pagination: result.NewPagination(req.Page(), req.PageSize(), result.Total{}),
		Metadata: result.Metadata{
			CompaniesMatched:    scope.matched,
			QueryTime:           s.now().Sub(start),
			Mode:                scope.mode,
			Suggestion:          EmptyCompaniesSuggestion,
			ExpandedSpecialties: scope.expanded,
		},
	}
}

func withBudget(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (s *Service) observeStage(stage, status string, d time.Duration) {
	if s.observer != nil {
		s.observer.ObserveStage(stage, status, d)
	}
}

func (s *Service) observeSearch(m mode.Mode, status string) {
	if s.observer != nil && m != "" {
		s.observer.ObserveSearch(string(m), status)
	}
}

func (s *Service) observeToken(outcome string) {
	if s.observer != nil {
		s.observer.ObserveToken(outcome)
	}
}
