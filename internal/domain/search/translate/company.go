package translate

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/criteria"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/dsl"
)

// Company index fields.
const (
	CompanyNameField = "name"

	fieldIndustry     = "industry.keyword"
	fieldSize         = "size"
	fieldFounded      = "founded"
	fieldCountry      = "locationCountry.keyword"
	fieldHQCity       = "headquarter.address.city.keyword"
	fieldRevenue      = "revenue"
	fieldDomain       = "domain.keyword"
	fieldFundingRound = "funding.lastRoundType.keyword"
	fieldFundingCount = "funding.numRounds"
	fieldEmployeesLi  = "employeesOnLi"
	fieldFollowers    = "followers"
)

var (
	companyNameText  = textField{fields: []string{"name"}, keyword: "name.keyword"}
	specialtyText    = textField{fields: []string{"specialties"}, keyword: "specialties.keyword"}
	leadInvestorText = textField{fields: []string{"funding.leadInvestors.name"}, keyword: "funding.leadInvestors.name.keyword"}
	locationFields   = []string{"overview", "name", "tagline"}
)

// sizeBuckets maps a size bucket to its inclusive headcount bounds.
// A zero upper bound is open.
var sizeBuckets = map[string][2]float64{
	criteria.Size1To10:     {1, 10},
	criteria.Size11To50:    {11, 50},
	criteria.Size51To200:   {51, 200},
	criteria.Size201To500:  {201, 500},
	criteria.Size501To1000: {501, 1000},
	criteria.Size1000Plus:  {1000, 0},
}

// Company builds the stage-1 query returning company names.
func (t *Translator) Company(c criteria.Company) (dsl.Query, error) {
	var b dsl.Bool

	if !c.Industry.IsEmpty() {
		b.Filter = append(b.Filter, terms(fieldIndustry, c.Industry))
	}
	if !c.Size.IsEmpty() {
		clause, err := sizeClause(c.Size)
		if err != nil {
			return dsl.Query{}, err
		}
		b.Filter = append(b.Filter, clause)
	}
	founded, ok, err := yearRange(fieldFounded, c.FoundedAfter, c.FoundedBefore)
	if err != nil {
		return dsl.Query{}, fmt.Errorf("%w: founded: %v", domain.ErrInvalidCriteria, err)
	}
	if ok {
		b.Filter = append(b.Filter, founded)
	}
	if !c.LocationCountry.IsEmpty() {
		b.Filter = append(b.Filter, terms(fieldCountry, c.LocationCountry))
	}
	if loc := strings.TrimSpace(c.LocationContains); loc != "" {
		b.Must = append(b.Must, dsl.MultiMatch{
			Query: loc, Fields: locationFields, Type: dsl.BestFields,
		})
	}
	if !c.HQCity.IsEmpty() {
		b.Filter = append(b.Filter, terms(fieldHQCity, c.HQCity))
	}
	if c.RevenueMin != nil {
		floor := float64(*c.RevenueMin)
		r, err := dsl.Between(fieldRevenue, &floor, nil)
		if err != nil {
			return dsl.Query{}, fmt.Errorf("%w: revenue: %v", domain.ErrInvalidCriteria, err)
		}
		b.Filter = append(b.Filter, r)
	}
	if !c.CompanyName.IsEmpty() {
		b.Must = append(b.Must, anyTiered(c.CompanyName, companyNameText))
	}
	if !c.Specialties.IsEmpty() {
		b.Must = append(b.Must, anyTiered(c.Specialties, specialtyText))
	}
	if !c.Domain.IsEmpty() {
		b.Filter = append(b.Filter, terms(fieldDomain, c.Domain))
	}
	if !c.FundingRound.IsEmpty() {
		b.Filter = append(b.Filter, terms(fieldFundingRound, c.FundingRound))
	}
	if !c.LeadInvestor.IsEmpty() {
		b.Must = append(b.Must, anyTiered(c.LeadInvestor, leadInvestorText))
	}
	if c.MinFundingRounds != nil {
		floor := float64(*c.MinFundingRounds)
		r, err := dsl.Between(fieldFundingCount, &floor, nil)
		if err != nil {
			return dsl.Query{}, fmt.Errorf("%w: funding rounds: %v", domain.ErrInvalidCriteria, err)
		}
		b.Filter = append(b.Filter, r)
	}

	return dsl.Query{
		Bool:           b,
		Size:           t.limits.CompanyLimit,
		Sort:           companySort(c.HasNameMatch()),
		Source:         []string{CompanyNameField},
		TrackTotalHits: t.limits.CompanyTotalCap,
		Timeout:        t.limits.CompanyTimeout,
	}, nil
}

func sizeClause(sizes criteria.StringList) (dsl.Clause, error) {
	ranges := make([]dsl.Clause, 0, len(sizes))
	for _, s := range sizes {
		bounds, ok := sizeBuckets[s]
		if !ok {
			return nil, fmt.Errorf("%w: unknown size bucket %q", domain.ErrInvalidCriteria, s)
		}
		lo := bounds[0]
		var hi *float64
		if bounds[1] > 0 {
			hi = &bounds[1]
		}
		r, err := dsl.Between(fieldSize, &lo, hi)
		if err != nil {
			return nil, fmt.Errorf("%w: size: %v", domain.ErrInvalidCriteria, err)
		}
		ranges = append(ranges, r)
	}
	return dsl.AnyOf(ranges...), nil
}

// companySort ranks by relevance when a name is searched, so exact name hits
// surface first; otherwise by company size and engagement.
func companySort(byRelevance bool) []dsl.SortField {
	quality := []dsl.SortField{
		{Field: fieldSize, Order: dsl.Desc, MissingLast: true},
		{Field: fieldEmployeesLi, Order: dsl.Desc, MissingLast: true},
		{Field: fieldFollowers, Order: dsl.Desc, MissingLast: true},
	}
	if !byRelevance {
		return quality
	}
	return append([]dsl.SortField{{Field: dsl.ScoreField, Order: dsl.Desc}}, quality...)
}
