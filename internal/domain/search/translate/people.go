package translate

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/criteria"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/dsl"
)

// Profile index fields.
const (
	PublicIDField        = "publicId"
	PublicIDKeywordField = "publicId.keyword"
	FullNameField        = "fullName"
	CurrentCompanyField  = "current_company_extracted.keyword"

	fieldLocationName   = "locationName"
	fieldJobLocation    = "currentCompanies.positions.location"
	fieldSeniority      = "seniority_level"
	fieldExperience     = "total_experience_range"
	fieldRoleTenure     = "years_in_current_role_range"
	fieldEmploymentType = "currentCompanies.positions.employmentType.keyword"
	fieldJobStartYear   = "currentCompanies.positions.startDateYear"
	fieldGraduation     = "educations.endedYear"
	fieldSummary        = "summary"
	fieldJobDescription = "currentCompanies.positions.description"
)

// ProfileSummaryFields is the stage-2 projection.
var ProfileSummaryFields = []string{
	"publicId", "fullName", "headline",
	"current_company_extracted", "locationName", "locationCountry",
	"seniority_level", "total_experience_years", "skills",
}

var (
	jobTitleText       = textField{fields: []string{"headline^2", "currentCompanies.positions.title"}}
	currentTitleText   = textField{fields: []string{"current_title_extracted"}, keyword: "current_title_extracted.keyword"}
	personNameText     = textField{fields: []string{"fullName^2", "firstName", "lastName"}, keyword: "fullName.keyword"}
	skillText          = textField{fields: []string{"skills"}, keyword: "skills.keyword"}
	schoolText         = textField{fields: []string{"educations.school.name"}}
	degreeText         = textField{fields: []string{"educations.degree"}}
	studyFieldText     = textField{fields: []string{"educations.fieldOfStudy"}}
	previousCompText   = textField{fields: []string{"previousCompanies.company.name"}}
	certificationsText = textField{fields: []string{"certifications.name"}}
)

// Page selects the stage-2 window. A non-empty After takes precedence over
// Number.
type Page struct {
	Number int
	Size   int
	After  []any
}

// People builds the stage-2 profile query. A non-empty companies list
// restricts profiles to people currently at one of those companies; an empty
// list leaves the company dimension unconstrained.
func (t *Translator) People(p criteria.People, companies []string, page Page) (dsl.Query, error) {
	if page.Size <= 0 {
		return dsl.Query{}, fmt.Errorf("%w: page size must be positive", domain.ErrInvalidRequest)
	}

	b, err := peopleBool(p)
	if err != nil {
		return dsl.Query{}, err
	}
	if len(companies) > 0 {
		b.Filter = append([]dsl.Clause{dsl.Terms{Field: CurrentCompanyField, Values: companies}}, b.Filter...)
	}

	q := dsl.Query{
		Bool: b,
		Size: page.Size,
		Sort: []dsl.SortField{
			{Field: dsl.ScoreField, Order: dsl.Desc},
			{Field: PublicIDKeywordField, Order: dsl.Asc},
		},
		Source:         ProfileSummaryFields,
		TrackTotalHits: t.limits.ProfileTotalCap,
		Timeout:        t.limits.ProfileTimeout,
	}

	if len(page.After) > 0 {
		return q.WithSearchAfter(page.After), nil
	}
	number := page.Number
	if number < 1 {
		number = 1
	}
	return q.WithOffset((number - 1) * page.Size), nil
}

//nolint:gocyclo // flat list of independent dimensions
func peopleBool(p criteria.People) (dsl.Bool, error) {
	var b dsl.Bool

	if !p.JobTitle.IsEmpty() {
		b.Must = append(b.Must, anyTiered(p.JobTitle, jobTitleText))
	}
	if !p.CurrentTitleExtracted.IsEmpty() {
		b.Must = append(b.Must, anyTiered(p.CurrentTitleExtracted, currentTitleText))
	}
	if desc := strings.TrimSpace(p.JobDescriptionContains); desc != "" {
		b.Must = append(b.Must, dsl.Match{Field: fieldJobDescription, Query: desc})
	}
	if !p.Name.IsEmpty() {
		b.Must = append(b.Must, anyTiered(p.Name, personNameText))
	}
	if !p.Location.IsEmpty() {
		b.Must = append(b.Must, anyMatch(p.Location, fieldLocationName))
	}
	if !p.LocationCountry.IsEmpty() {
		b.Filter = append(b.Filter, terms(fieldCountry, p.LocationCountry))
	}
	if !p.JobLocation.IsEmpty() {
		b.Must = append(b.Must, anyMatch(p.JobLocation, fieldJobLocation))
	}
	if !p.Seniority.IsEmpty() {
		b.Filter = append(b.Filter, terms(fieldSeniority, p.Seniority))
	}
	if !p.YearsOfExperience.IsEmpty() {
		b.Filter = append(b.Filter, terms(fieldExperience, p.YearsOfExperience))
	}
	if !p.YearsInCurrentRole.IsEmpty() {
		b.Filter = append(b.Filter, terms(fieldRoleTenure, p.YearsInCurrentRole))
	}
	if !p.EmploymentType.IsEmpty() {
		b.Filter = append(b.Filter, terms(fieldEmploymentType, p.EmploymentType))
	}
	started, ok, err := yearRange(fieldJobStartYear, p.StartedCurrentJobAfter, nil)
	if err != nil {
		return dsl.Bool{}, fmt.Errorf("%w: started_current_job_after: %v", domain.ErrInvalidCriteria, err)
	}
	if ok {
		b.Filter = append(b.Filter, started)
	}
	if !p.Skills.IsEmpty() {
		b.Must = append(b.Must, anyTiered(p.Skills, skillText))
	}
	if !p.Industry.IsEmpty() {
		b.Filter = append(b.Filter, terms(fieldIndustry, p.Industry))
	}
	if !p.EducationSchool.IsEmpty() {
		b.Must = append(b.Must, anyTiered(p.EducationSchool, schoolText))
	}
	if !p.EducationDegree.IsEmpty() {
		b.Must = append(b.Must, anyTiered(p.EducationDegree, degreeText))
	}
	if !p.EducationField.IsEmpty() {
		b.Must = append(b.Must, anyTiered(p.EducationField, studyFieldText))
	}
	graduated, ok, err := yearRange(fieldGraduation, p.GraduatedAfter, p.GraduatedBefore)
	if err != nil {
		return dsl.Bool{}, fmt.Errorf("%w: graduation: %v", domain.ErrInvalidCriteria, err)
	}
	if ok {
		b.Filter = append(b.Filter, graduated)
	}
	if !p.PreviousCompany.IsEmpty() {
		b.Must = append(b.Must, anyTiered(p.PreviousCompany, previousCompText))
	}
	if summary := strings.TrimSpace(p.SummaryContains); summary != "" {
		b.Must = append(b.Must, dsl.Match{Field: fieldSummary, Query: summary})
	}
	if !p.Certifications.IsEmpty() {
		b.Must = append(b.Must, anyTiered(p.Certifications, certificationsText))
	}

	return b, nil
}
