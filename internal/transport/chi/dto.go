package chi

import (
	"encoding/json"

	"github.com/kailas-cloud/seqsearch/internal/domain/criteria"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/result"
	"github.com/kailas-cloud/seqsearch/internal/domain/specialty"
	profileuc "github.com/kailas-cloud/seqsearch/internal/usecase/profile"
	specialtyuc "github.com/kailas-cloud/seqsearch/internal/usecase/specialty"
)

// --- Requests ---

type sequentialSearchRequest struct {
	CompanyCriteria criteria.Company `json:"company_criteria"`
	PeopleCriteria  criteria.People  `json:"people_criteria"`
	Page            int              `json:"page" validate:"min=0"`
	PageSize        int              `json:"page_size" validate:"min=0"`
	SessionToken    string           `json:"session_token" validate:"max=65536"`
	Cursor          string           `json:"cursor" validate:"max=4096"`
}

type batchProfilesRequest struct {
	PublicIDs     []string `json:"public_ids" validate:"required,min=1,max=100,dive,required,max=256"`
	IncludeFields []string `json:"include_fields" validate:"max=100"`
}

type specialtySearchRequest struct {
	Query       string `json:"query" validate:"required,max=512"`
	NResults    int    `json:"n_results" validate:"omitempty,min=1,max=50"`
	MinCount    *int   `json:"min_count" validate:"omitempty,min=0"`
	SortByCount *bool  `json:"sort_by_count"`
}

type specialtyExpandRequest struct {
	Query          string `json:"query" validate:"required,max=512"`
	ExpansionCount int    `json:"expansion_count" validate:"omitempty,min=1,max=20"`
}

// --- Responses ---

type sequentialSearchResponse struct {
	Status     string             `json:"status"`
	Results    []json.RawMessage  `json:"results"`
	Pagination paginationResponse `json:"pagination"`
	Metadata   metadataResponse   `json:"metadata"`
}

type paginationResponse struct {
	CurrentPage   int    `json:"current_page"`
	PageSize      int    `json:"page_size"`
	TotalResults  int    `json:"total_results"`
	TotalRelation string `json:"total_relation"`
	TotalPages    int    `json:"total_pages"`
	HasNext       bool   `json:"has_next"`
	HasPrevious   bool   `json:"has_previous"`
	SessionToken  string `json:"session_token,omitempty"`
	NextCursor    string `json:"next_cursor,omitempty"`
}

type metadataResponse struct {
	CompaniesMatched    int      `json:"companies_matched"`
	CompaniesUsed       int      `json:"companies_used"`
	ProfilesMatched     int      `json:"profiles_matched"`
	QueryTimeMS         int64    `json:"query_time_ms"`
	SearchMode          string   `json:"search_mode"`
	Suggestion          string   `json:"suggestion,omitempty"`
	ExpandedSpecialties []string `json:"expanded_specialties,omitempty"`
}

type batchProfilesResponse struct {
	Profiles       []json.RawMessage `json:"profiles"`
	TotalFound     int               `json:"total_found"`
	TotalRequested int               `json:"total_requested"`
	NotFound       []string          `json:"not_found"`
}

type nameSearchResponse struct {
	Query      string            `json:"query"`
	Results    []json.RawMessage `json:"results"`
	TotalFound int               `json:"total_found"`
}

type specialtyItem struct {
	Specialty       string  `json:"specialty"`
	Count           int     `json:"count"`
	Rank            int     `json:"rank"`
	SimilarityScore float64 `json:"similarity_score"`
}

type specialtySearchResponse struct {
	Query        string          `json:"query"`
	Results      []specialtyItem `json:"results"`
	TotalResults int             `json:"total_results"`
	Metadata     map[string]any  `json:"metadata"`
}

type specialtyExpandResponse struct {
	OriginalQuery string   `json:"original_query"`
	ExpandedTerms []string `json:"expanded_terms"`
	Count         int      `json:"count"`
}

type specialtyStatsResponse struct {
	TotalSpecialties int    `json:"total_specialties"`
	Index            string `json:"index"`
	Status           string `json:"status"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

// --- Mapping ---

func pageToResponse(p result.Page) sequentialSearchResponse {
	pg := p.Pagination
	md := p.Metadata
	return sequentialSearchResponse{
		Status:  "success",
		Results: profilesToJSON(p.Profiles, true),
		Pagination: paginationResponse{
			CurrentPage:   pg.CurrentPage,
			PageSize:      pg.PageSize,
			TotalResults:  pg.TotalResults,
			TotalRelation: pg.TotalRelation,
			TotalPages:    pg.TotalPages,
			HasNext:       pg.HasNext,
			HasPrevious:   pg.HasPrevious,
			SessionToken:  pg.SessionToken,
			NextCursor:    pg.NextCursor,
		},
		Metadata: metadataResponse{
			CompaniesMatched:    md.CompaniesMatched,
			CompaniesUsed:       md.CompaniesUsed,
			ProfilesMatched:     md.ProfilesMatched,
			QueryTimeMS:         md.QueryTime.Milliseconds(),
			SearchMode:          string(md.Mode),
			Suggestion:          md.Suggestion,
			ExpandedSpecialties: md.ExpandedSpecialties,
		},
	}
}

func lookupToResponse(l result.Lookup) batchProfilesResponse {
	notFound := l.NotFound
	if notFound == nil {
		notFound = []string{}
	}
	return batchProfilesResponse{
		Profiles:       profilesToJSON(l.Profiles, false),
		TotalFound:     len(l.Profiles),
		TotalRequested: l.Requested,
		NotFound:       notFound,
	}
}

func nameResultToResponse(n profileuc.NameResult) nameSearchResponse {
	return nameSearchResponse{
		Query:      n.Query,
		Results:    profilesToJSON(n.Profiles, true),
		TotalFound: len(n.Profiles),
	}
}

func specialtyResultToResponse(res specialtyuc.Result, sortByCount bool, minCount *int) specialtySearchResponse {
	items := make([]specialtyItem, len(res.Matches))
	for i := range res.Matches {
		items[i] = specialtyToItem(&res.Matches[i])
	}
	meta := map[string]any{"sort_by_count": sortByCount}
	if minCount != nil {
		meta["min_count"] = *minCount
	}
	return specialtySearchResponse{
		Query:        res.Query,
		Results:      items,
		TotalResults: len(items),
		Metadata:     meta,
	}
}

func specialtyToItem(m *specialty.Match) specialtyItem {
	return specialtyItem{
		Specialty:       m.Term(),
		Count:           m.Count(),
		Rank:            m.Rank(),
		SimilarityScore: m.Similarity(),
	}
}

func profilesToJSON(profiles []result.Profile, withScore bool) []json.RawMessage {
	out := make([]json.RawMessage, len(profiles))
	for i := range profiles {
		out[i] = profileDocument(&profiles[i], withScore)
	}
	return out
}

// profileDocument returns the stored source with _id, _index and,
// for ranked results, _score added.
func profileDocument(p *result.Profile, withScore bool) json.RawMessage {
	doc := map[string]json.RawMessage{}
	if len(p.Source()) > 0 {
		if err := json.Unmarshal(p.Source(), &doc); err != nil {
			doc = map[string]json.RawMessage{}
		}
	}
	doc["_id"] = mustMarshal(p.ID())
	if p.Index() != "" {
		doc["_index"] = mustMarshal(p.Index())
	}
	if withScore {
		doc["_score"] = mustMarshal(p.Score())
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

func mustMarshal(v any) json.RawMessage {
	raw, _ := json.Marshal(v)
	return raw
}
