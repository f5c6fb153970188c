package query

import (
	sq "github.com/Masterminds/squirrel"
)

// NullSentinel is the literal filter value clients send to request rows
// where the attribute is unset.
const NullSentinel = "None"

// filterColumns whitelists the attributes that may be filtered and maps them
// to their column expressions. Filter keys outside this map are ignored.
var filterColumns = map[string]string{
	"gender":   "u.gender",
	"type":     "u.type",
	"location": "u.location",
}

// filterOrder fixes the order predicates are emitted in so the generated SQL
// is identical for identical requests.
var filterOrder = []string{"gender", "type", "location"}

const searchVector = "to_tsvector('english', u.username || ' ' || u.name)"

// Filters is the loosely-specified part of a leaderboard request: optional
// free-text search plus multi-value attribute filters keyed by field name.
type Filters struct {
	Search string
	Fields map[string][]string
}

// Predicates translates the filters into a conjunction of boolean predicates
// over user attributes.
//
// A non-empty search contributes a full-text match over username and name.
// Each whitelisted filter key with values contributes a set-membership test;
// the NullSentinel value among them additionally (or, if alone, exclusively)
// requests rows where the attribute is NULL. Unknown keys are dropped
// silently. Only enriched users are ever eligible, so that predicate is
// always appended.
func Predicates(f Filters) []sq.Sqlizer {
	preds := []sq.Sqlizer{}

	if f.Search != "" {
		preds = append(preds, sq.Expr(searchVector+" @@ plainto_tsquery('english', ?)", f.Search))
	}

	for _, key := range filterOrder {
		values := f.Fields[key]
		if len(values) == 0 {
			continue
		}
		col := filterColumns[key]

		wantNull := false
		kept := make([]string, 0, len(values))
		for _, v := range values {
			if v == NullSentinel {
				wantNull = true
				continue
			}
			kept = append(kept, v)
		}

		switch {
		case wantNull && len(kept) > 0:
			preds = append(preds, sq.Or{sq.Eq{col: kept}, sq.Eq{col: nil}})
		case wantNull:
			preds = append(preds, sq.Eq{col: nil})
		default:
			preds = append(preds, sq.Eq{col: kept})
		}
	}

	preds = append(preds, sq.Expr("u.is_enriched IS TRUE"))
	return preds
}

// SearchRank returns the relevance ordering clause used when a search string
// is present, plus its bound argument. It always takes precedence over any
// requested sort field.
func SearchRank(search string) (string, []interface{}) {
	return "ts_rank_cd(" + searchVector + ", plainto_tsquery('english', ?)) DESC",
		[]interface{}{search}
}
