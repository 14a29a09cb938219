package translate

import (
	"github.com/kailas-cloud/seqsearch/internal/domain/criteria"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/dsl"
)

// Tier boosts for per-value text matching.
const (
	boostExact  = 10
	boostPhrase = 5
	boostFuzzy  = 1
)

// textField describes where a fuzzy-text dimension is searched.
type textField struct {
	fields  []string // analyzed fields, may carry ^boost
	keyword string   // exact-match keyword field, empty when none exists
}

// tiered matches one value three ways: exact keyword (highest), phrase,
// then fuzzy. Any tier is enough; stronger tiers score higher.
func tiered(value string, tf textField) dsl.Clause {
	tiers := make([]dsl.Clause, 0, 3)
	if tf.keyword != "" {
		tiers = append(tiers, dsl.Term{Field: tf.keyword, Value: value, Boost: boostExact})
	}
	tiers = append(tiers,
		dsl.MultiMatch{Query: value, Fields: tf.fields, Type: dsl.Phrase, Boost: boostPhrase},
		dsl.MultiMatch{
			Query: value, Fields: tf.fields, Type: dsl.BestFields,
			Fuzziness: dsl.FuzzyAuto, Boost: boostFuzzy,
		},
	)
	return dsl.AnyOf(tiers...)
}

// anyTiered ORs the tiered clauses of every value in a dimension.
func anyTiered(values criteria.StringList, tf textField) dsl.Clause {
	clauses := make([]dsl.Clause, len(values))
	for i, v := range values {
		clauses[i] = tiered(v, tf)
	}
	return dsl.AnyOf(clauses...)
}

// anyMatch ORs plain match clauses on a single field.
func anyMatch(values criteria.StringList, field string) dsl.Clause {
	clauses := make([]dsl.Clause, len(values))
	for i, v := range values {
		clauses[i] = dsl.Match{Field: field, Query: v}
	}
	return dsl.AnyOf(clauses...)
}

func terms(field string, values criteria.StringList) dsl.Clause {
	return dsl.Terms{Field: field, Values: values.Values()}
}

// yearRange builds an inclusive range; nil bounds are open. It returns
// false when both bounds are nil.
func yearRange(field string, from, to *int) (dsl.Range, bool, error) {
	if from == nil && to == nil {
		return dsl.Range{}, false, nil
	}
	r, err := dsl.Between(field, intBound(from), intBound(to))
	if err != nil {
		return dsl.Range{}, false, err //nolint:wrapcheck // caller wraps
	}
	return r, true, nil
}

func intBound(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
