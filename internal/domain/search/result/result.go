package result

import (
	"encoding/json"
	"time"

	"github.com/kailas-cloud/seqsearch/internal/domain/search/mode"
)

// Total relations reported by the backend.
const (
	RelationEq  = "eq"
	RelationGte = "gte"
)

// Profile is a single people hit.
type Profile struct {
	index    string
	id       string
	score    float64
	source   json.RawMessage
	sortKeys []any
}

// NewProfile creates a profile hit.
func NewProfile(id string, score float64, source json.RawMessage, sortKeys []any) Profile {
	return Profile{id: id, score: score, source: source, sortKeys: sortKeys}
}

// WithIndex returns a copy of p tagged with the index it was read from.
func (p Profile) WithIndex(index string) Profile {
	p.index = index
	return p
}

// Index returns the source index, empty when unknown.
func (p *Profile) Index() string { return p.index }

// ID returns the backend document id.
func (p *Profile) ID() string { return p.id }

// Score returns the relevance score.
func (p *Profile) Score() float64 { return p.score }

// Source returns the projected profile document.
func (p *Profile) Source() json.RawMessage { return p.source }

// SortKeys returns the hit's sort values, used to build cursors.
func (p *Profile) SortKeys() []any { return p.sortKeys }

// Total is a hit count that may be capped by the backend.
type Total struct {
	Value    int
	Relation string
}

// IsExact reports whether Value is the true count.
func (t Total) IsExact() bool { return t.Relation != RelationGte }

// ProfilePage is one window of stage-2 hits.
type ProfilePage struct {
	Profiles []Profile
	Total    Total
}

// Last returns the final hit of the page.
func (p ProfilePage) Last() (Profile, bool) {
	if len(p.Profiles) == 0 {
		return Profile{}, false
	}
	return p.Profiles[len(p.Profiles)-1], true
}

// CompanySet is the stage-1 outcome: distinct company names, sorted, and the
// backend's count of matching companies.
type CompanySet struct {
	Names []string
	Total Total
}

// IsEmpty reports whether stage 1 matched nothing usable.
func (c CompanySet) IsEmpty() bool { return len(c.Names) == 0 }

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	CurrentPage   int
	PageSize      int
	TotalResults  int
	TotalRelation string
	TotalPages    int
	HasNext       bool
	HasPrevious   bool
	SessionToken  string
	NextCursor    string
}

// NewPagination derives page counts: TotalPages = ceil(total/size) and
// HasNext = page*size < total.
func NewPagination(page, size int, total Total) Pagination {
	relation := total.Relation
	if relation == "" {
		relation = RelationEq
	}
	// page < totalPages equals page*size < total without the product overflowing.
	totalPages := 0
	if size > 0 {
		totalPages = (total.Value + size - 1) / size
	}
	return Pagination{
		CurrentPage:   page,
		PageSize:      size,
		TotalResults:  total.Value,
		TotalRelation: relation,
		TotalPages:    totalPages,
		HasNext:       page < totalPages,
		HasPrevious:   page > 1,
	}
}

// Metadata describes how a page was produced.
type Metadata struct {
	CompaniesMatched    int
	CompaniesUsed       int
	ProfilesMatched     int
	QueryTime           time.Duration
	Mode                mode.Mode
	Suggestion          string
	ExpandedSpecialties []string
}

// Page is a sequential search response.
type Page struct {
	Profiles   []Profile
	Pagination Pagination
	Metadata   Metadata
}

// Lookup is the result of a batch profile fetch.
type Lookup struct {
	Profiles  []Profile
	Requested int
	NotFound  []string
}
