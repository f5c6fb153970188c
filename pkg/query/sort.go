package query

// SortKey is one requested ordering field with its direction.
type SortKey struct {
	Field string
	Order string
}

// sortableColumns whitelists the fields a request may sort by and maps them
// to their column or output-alias expressions. Stored attributes resolve to
// users columns; the three derived metrics resolve to aggregate aliases and
// force the aggregate strategy.
var sortableColumns = map[string]string{
	"username":           "u.username",
	"name":               "u.name",
	"followers":          "u.followers",
	"following":          "u.following",
	"public_repos":       "u.public_repos",
	"total_sponsors":     "total_sponsors",
	"total_sponsoring":   "total_sponsoring",
	"estimated_earnings": "estimated_earnings",
}

var derivedSortFields = map[string]bool{
	"total_sponsors":     true,
	"total_sponsoring":   true,
	"estimated_earnings": true,
}

// DefaultSort applies when a request names no known sort field. Sorting by
// total sponsors is a deliberate, documented default even though it forces
// the aggregate strategy; an unsorted leaderboard (tiebreak order only) is
// not meaningful to callers.
var DefaultSort = []SortKey{{Field: "total_sponsors", Order: "descend"}}

// Normalize drops unknown sort fields silently and substitutes DefaultSort
// when nothing usable remains.
func Normalize(sorts []SortKey) []SortKey {
	kept := make([]SortKey, 0, len(sorts))
	for _, s := range sorts {
		if _, ok := sortableColumns[s.Field]; ok {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return append([]SortKey{}, DefaultSort...)
	}
	return kept
}

// NeedsAggregates reports whether any of the (normalized) sort fields is a
// derived metric, which rules out the stored-attribute strategy.
func NeedsAggregates(sorts []SortKey) bool {
	for _, s := range sorts {
		if derivedSortFields[s.Field] {
			return true
		}
	}
	return false
}

// orderClauses renders the requested sort keys and appends the mandatory
// id tiebreak, guaranteeing stable, non-overlapping pagination.
func orderClauses(sorts []SortKey) []string {
	parts := make([]string, 0, len(sorts)+1)
	for _, s := range sorts {
		col, ok := sortableColumns[s.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if s.Order == "descend" || s.Order == "desc" {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, "u.id ASC")
	return parts
}
