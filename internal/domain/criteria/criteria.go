package criteria

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Company size buckets, matched against the headcount field.
const (
	Size1To10     = "1_10"
	Size11To50    = "11_50"
	Size51To200   = "51_200"
	Size201To500  = "201_500"
	Size501To1000 = "501_1000"
	Size1000Plus  = "1000+"
)

// Company narrows the organization dataset in stage 1.
// Every field is optional; an absent field places no constraint.
type Company struct {
	Industry         StringList `json:"industry,omitempty"`
	Size             StringList `json:"size,omitempty" validate:"omitempty,dive,oneof=1_10 11_50 51_200 201_500 501_1000 1000+"`
	FoundedAfter     *int       `json:"founded_after,omitempty" validate:"omitempty,min=1800,max=2100"`
	FoundedBefore    *int       `json:"founded_before,omitempty" validate:"omitempty,min=1800,max=2100"`
	LocationCountry  StringList `json:"location_country,omitempty"`
	LocationContains string     `json:"location_contains,omitempty" validate:"max=256"`
	HQCity           StringList `json:"hq_city,omitempty"`
	RevenueMin       *int64     `json:"revenue_min,omitempty" validate:"omitempty,min=0"`
	CompanyName      StringList `json:"company_name,omitempty"`
	Specialties      StringList `json:"specialties,omitempty"`
	Domain           StringList `json:"domain,omitempty"`
	FundingRound     StringList `json:"funding_round,omitempty"`
	LeadInvestor     StringList `json:"lead_investor,omitempty"`
	MinFundingRounds *int       `json:"min_funding_rounds,omitempty" validate:"omitempty,min=0"`

	// SpecialtyExpansion adds up to N semantically similar terms per
	// specialty before stage 1. It does not filter on its own.
	SpecialtyExpansion int `json:"specialty_expansion,omitempty" validate:"min=0,max=10"`
}

// IsEmpty reports whether no filtering dimension is set.
func (c Company) IsEmpty() bool {
	return c.Industry.IsEmpty() &&
		c.Size.IsEmpty() &&
		c.FoundedAfter == nil &&
		c.FoundedBefore == nil &&
		c.LocationCountry.IsEmpty() &&
		strings.TrimSpace(c.LocationContains) == "" &&
		c.HQCity.IsEmpty() &&
		c.RevenueMin == nil &&
		c.CompanyName.IsEmpty() &&
		c.Specialties.IsEmpty() &&
		c.Domain.IsEmpty() &&
		c.FundingRound.IsEmpty() &&
		c.LeadInvestor.IsEmpty() &&
		c.MinFundingRounds == nil
}

// HasNameMatch reports whether a name dimension drives ranking.
func (c Company) HasNameMatch() bool {
	return !c.CompanyName.IsEmpty()
}

// Fingerprint is a stable hash of the criteria, independent of list order,
// duplicate values and scalar-vs-list input form.
func (c Company) Fingerprint() string { return fingerprint(c) }

// People narrows the profile dataset in stage 2.
type People struct {
	JobTitle               StringList `json:"job_title,omitempty"`
	CurrentTitleExtracted  StringList `json:"current_title_extracted,omitempty"`
	JobDescriptionContains string     `json:"job_description_contains,omitempty" validate:"max=512"`
	Name                   StringList `json:"name,omitempty"`
	Location               StringList `json:"location,omitempty"`
	LocationCountry        StringList `json:"location_country,omitempty"`
	JobLocation            StringList `json:"job_location,omitempty"`
	Seniority              StringList `json:"seniority,omitempty"`
	YearsOfExperience      StringList `json:"years_of_experience,omitempty"`
	YearsInCurrentRole     StringList `json:"years_in_current_role,omitempty"`
	EmploymentType         StringList `json:"employment_type,omitempty"`
	StartedCurrentJobAfter *int       `json:"started_current_job_after,omitempty" validate:"omitempty,min=1900,max=2100"`
	Skills                 StringList `json:"skills,omitempty"`
	Industry               StringList `json:"industry,omitempty"`
	EducationSchool        StringList `json:"education_school,omitempty"`
	EducationDegree        StringList `json:"education_degree,omitempty"`
	EducationField         StringList `json:"education_field,omitempty"`
	GraduatedAfter         *int       `json:"graduated_after,omitempty" validate:"omitempty,min=1900,max=2100"`
	GraduatedBefore        *int       `json:"graduated_before,omitempty" validate:"omitempty,min=1900,max=2100"`
	PreviousCompany        StringList `json:"previous_company,omitempty"`
	SummaryContains        string     `json:"summary_contains,omitempty" validate:"max=512"`
	Certifications         StringList `json:"certifications,omitempty"`
}

// HasNameMatch reports whether a person-name dimension is set.
func (p People) HasNameMatch() bool {
	return !p.Name.IsEmpty()
}

// Fingerprint is a stable hash of the criteria.
func (p People) Fingerprint() string { return fingerprint(p) }

// fingerprint hashes canonical JSON: sorted object keys, absent fields
// omitted, list values sorted.
func fingerprint(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		// Both criteria types contain only strings and numbers.
		panic("criteria: marshal for fingerprint: " + err.Error())
	}

	var fields map[string]any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		panic("criteria: decode for fingerprint: " + err.Error())
	}

	for k, val := range fields {
		list, ok := val.([]any)
		if !ok {
			continue
		}
		sorted := make([]string, 0, len(list))
		for _, item := range list {
			s, _ := item.(string)
			sorted = append(sorted, s)
		}
		sort.Strings(sorted)
		fields[k] = sorted
	}

	// encoding/json writes map keys in sorted order.
	canonical, _ := json.Marshal(fields)
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
