package dsl

import "fmt"

// Clause is one query object in the backend DSL.
type Clause interface {
	Source() map[string]any
}

// Term is an exact match against a keyword field.
type Term struct {
	Field string
	Value any
	Boost float64
}

// Source renders {"term": {field: ...}}.
func (t Term) Source() map[string]any {
	if t.Boost == 0 {
		return map[string]any{"term": map[string]any{t.Field: t.Value}}
	}
	return map[string]any{"term": map[string]any{
		t.Field: map[string]any{"value": t.Value, "boost": t.Boost},
	}}
}

// Terms is set membership on a keyword field.
type Terms struct {
	Field  string
	Values []string
}

// Source renders {"terms": {field: [...]}}.
func (t Terms) Source() map[string]any {
	return map[string]any{"terms": map[string]any{t.Field: t.Values}}
}

// Match is a full-text match against one field.
type Match struct {
	Field     string
	Query     string
	Fuzziness string
	Operator  string
}

// Source renders {"match": {field: ...}}. The short form is used when no
// option is set.
func (m Match) Source() map[string]any {
	if m.Fuzziness == "" && m.Operator == "" {
		return map[string]any{"match": map[string]any{m.Field: m.Query}}
	}
	opts := map[string]any{"query": m.Query}
	if m.Fuzziness != "" {
		opts["fuzziness"] = m.Fuzziness
	}
	if m.Operator != "" {
		opts["operator"] = m.Operator
	}
	return map[string]any{"match": map[string]any{m.Field: opts}}
}

// Multi-match types.
const (
	BestFields = "best_fields"
	Phrase     = "phrase"
)

// Fuzziness values.
const FuzzyAuto = "AUTO"

// MultiMatch is a full-text match across several fields. Fields may carry
// a ^boost suffix.
type MultiMatch struct {
	Query     string
	Fields    []string
	Type      string
	Fuzziness string
	Boost     float64
}

// Source renders {"multi_match": {...}}.
func (m MultiMatch) Source() map[string]any {
	body := map[string]any{
		"query":  m.Query,
		"fields": m.Fields,
	}
	if m.Type != "" {
		body["type"] = m.Type
	}
	if m.Fuzziness != "" {
		body["fuzziness"] = m.Fuzziness
	}
	if m.Boost != 0 {
		body["boost"] = m.Boost
	}
	return map[string]any{"multi_match": body}
}

// Range is a numeric range with gt/gte/lt/lte boundaries on one field.
type Range struct {
	field string
	gt    *float64
	gte   *float64
	lt    *float64
	lte   *float64
}

// NewRange validates and creates a Range.
// At least one boundary is required; gt/gte and lt/lte are mutually exclusive.
func NewRange(field string, gt, gte, lt, lte *float64) (Range, error) {
	if field == "" {
		return Range{}, fmt.Errorf("range field is required")
	}
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required for %q", field)
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte for %q", field)
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte for %q", field)
	}
	return Range{field: field, gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// Between is an inclusive range; a nil bound is open.
func Between(field string, gte, lte *float64) (Range, error) {
	return NewRange(field, nil, gte, nil, lte)
}

// Field returns the ranged field.
func (r Range) Field() string { return r.field }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

// Source renders {"range": {field: {...}}}.
func (r Range) Source() map[string]any {
	bounds := make(map[string]any, 2)
	if r.gt != nil {
		bounds["gt"] = *r.gt
	}
	if r.gte != nil {
		bounds["gte"] = *r.gte
	}
	if r.lt != nil {
		bounds["lt"] = *r.lt
	}
	if r.lte != nil {
		bounds["lte"] = *r.lte
	}
	return map[string]any{"range": map[string]any{r.field: bounds}}
}

// Bool groups clauses. Must and Should are scored; Filter and MustNot are not.
type Bool struct {
	Must               []Clause
	Filter             []Clause
	Should             []Clause
	MustNot            []Clause
	MinimumShouldMatch int
}

// AnyOf builds a disjunction that requires at least one clause to match.
func AnyOf(clauses ...Clause) Bool {
	return Bool{Should: clauses, MinimumShouldMatch: 1}
}

// IsEmpty reports whether the bool has no clauses.
func (b Bool) IsEmpty() bool {
	return len(b.Must) == 0 && len(b.Filter) == 0 && len(b.Should) == 0 && len(b.MustNot) == 0
}

// Source renders {"bool": {...}} with empty groups omitted.
func (b Bool) Source() map[string]any {
	body := make(map[string]any, 5)
	if len(b.Must) > 0 {
		body["must"] = sources(b.Must)
	}
	if len(b.Filter) > 0 {
		body["filter"] = sources(b.Filter)
	}
	if len(b.Should) > 0 {
		body["should"] = sources(b.Should)
		if b.MinimumShouldMatch > 0 {
			body["minimum_should_match"] = b.MinimumShouldMatch
		}
	}
	if len(b.MustNot) > 0 {
		body["must_not"] = sources(b.MustNot)
	}
	return map[string]any{"bool": body}
}

func sources(clauses []Clause) []map[string]any {
	out := make([]map[string]any, len(clauses))
	for i, c := range clauses {
		out[i] = c.Source()
	}
	return out
}
