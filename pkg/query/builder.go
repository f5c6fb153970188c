package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sponsorboard/sponsorboard-engine/pkg/apperrors"
)

// MaxExportRows caps how many rows a single export call may return.
const MaxExportRows = 2000

// Window bounds one page of results.
type Window struct {
	Limit  uint64
	Offset uint64
}

// PageWindow maps 1-based page numbers to a window. Callers validate that
// page and perPage are at least 1.
func PageWindow(page, perPage int) Window {
	return Window{
		Limit:  uint64(perPage),
		Offset: uint64((page - 1) * perPage),
	}
}

// ExportWindow maps a 1-based start row and a row count to a window. The
// count is clamped to MaxExportRows and the start row is floored at 1; a
// count below 1 has no sane default and is rejected.
func ExportWindow(start, count int) (Window, error) {
	if count < 1 {
		return Window{}, fmt.Errorf("export count must be at least 1: %w", apperrors.ErrInvalidInput)
	}
	if count > MaxExportRows {
		count = MaxExportRows
	}
	if start < 1 {
		start = 1
	}
	return Window{
		Limit:  uint64(count),
		Offset: uint64(start - 1),
	}, nil
}

// baseColumns are the stored attributes every leaderboard row carries,
// in the order both strategies scan them.
var baseColumns = []string{
	"u.id", "u.name", "u.username", "u.type", "u.avatar_url", "u.profile_url",
	"u.gender", "u.location", "u.public_repos", "u.public_gists",
	"u.followers", "u.following", "u.hireable", "u.min_sponsor_cost",
}

const (
	// Sponsor counts as SELECT-list subqueries. Postgres evaluates these
	// only for rows that survive ORDER BY and LIMIT, so the stored-attribute
	// strategy never aggregates over users it will not surface.
	fastSponsorsColumn = "(SELECT COALESCE(COUNT(DISTINCT s1.sponsor_id), 0)" +
		" FROM sponsorship s1 WHERE s1.sponsored_id = u.id)" +
		" + COALESCE(u.private_sponsor_count, 0) AS total_sponsors"
	fastSponsoringColumn = "(SELECT COALESCE(COUNT(DISTINCT s2.sponsored_id), 0)" +
		" FROM sponsorship s2 WHERE s2.sponsor_id = u.id) AS total_sponsoring"

	// The matching total is computed in the same pass as the page.
	windowCountColumn = "COUNT(*) OVER() AS total_count"

	// Eligibility expressed as existence checks so it can be evaluated
	// per-candidate before pagination, without aggregating the whole table.
	// Equivalent to the aggregate strategy's total_sponsors/total_sponsoring
	// test: the private sponsor count folds into total_sponsors there.
	fastEligibility = "(EXISTS (SELECT 1 FROM sponsorship s WHERE s.sponsored_id = u.id)" +
		" OR EXISTS (SELECT 1 FROM sponsorship s WHERE s.sponsor_id = u.id)" +
		" OR COALESCE(u.private_sponsor_count, 0) > 0)"

	derivedEligibility = "(sc.total_sponsors > 0 OR sc.total_sponsoring > 0)"

	// Estimated minimum monthly earnings: the user's own minimum cost when
	// positive, else the median, capped at the median either way, times the
	// sponsor count. LEAST ignores NULLs in Postgres, so the median is
	// coalesced to 0 to keep parity with the standalone resolver when no
	// user has a positive minimum cost.
	earningsColumn = "LEAST(" +
		"CASE WHEN u.min_sponsor_cost > 0 THEN u.min_sponsor_cost ELSE COALESCE(mc.value, 0) END, " +
		"COALESCE(mc.value, 0)" +
		") * sc.total_sponsors AS estimated_earnings"

	sponsorCountsCTE = `sponsorship_counts AS (
SELECT u.id AS user_id,
       COALESCE(COUNT(DISTINCT s1.sponsor_id), 0) + COALESCE(u.private_sponsor_count, 0) AS total_sponsors,
       COALESCE((SELECT COUNT(DISTINCT s2.sponsored_id) FROM sponsorship s2 WHERE s2.sponsor_id = u.id), 0) AS total_sponsoring
FROM filtered u
LEFT JOIN sponsorship s1 ON s1.sponsored_id = u.id
GROUP BY u.id, u.private_sponsor_count
)`

	medianCostCTE = `median_cost AS (
SELECT PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY min_sponsor_cost) AS value
FROM users
WHERE min_sponsor_cost > 0
)`
)

// MedianQuery returns the standalone median fetch used when the
// stored-attribute strategy left earnings to the assembler.
func MedianQuery() string {
	return "SELECT COALESCE(PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY min_sponsor_cost), 0)" +
		" FROM users WHERE min_sponsor_cost > 0"
}

// FastQuery builds the stored-attribute strategy: predicates and ordering
// apply directly to users, the window is taken first, and sponsor counts are
// computed only for the surviving rows. Estimated earnings are not computed
// here; the assembler fills them in with the shared median.
//
// All sort fields must be stored attributes (the caller selects this
// strategy with NeedsAggregates).
func FastQuery(f Filters, sorts []SortKey, w Window) sq.SelectBuilder {
	cols := make([]string, 0, len(baseColumns)+3)
	cols = append(cols, baseColumns...)
	cols = append(cols, fastSponsorsColumn, fastSponsoringColumn, windowCountColumn)

	b := sq.Select(cols...).From("users u")
	for _, p := range Predicates(f) {
		b = b.Where(p)
	}
	b = b.Where(fastEligibility)

	if f.Search != "" {
		rank, args := SearchRank(f.Search)
		b = b.OrderByClause(rank, args...)
	}

	return b.OrderBy(orderClauses(sorts)...).
		Limit(w.Limit).
		Offset(w.Offset).
		PlaceholderFormat(sq.Dollar)
}

// DerivedQuery builds the aggregate strategy: predicates restrict the base
// set first (filter pushdown into the filtered CTE), sponsor counts are
// aggregated over only that restricted set, and ordering plus windowing
// apply to the aggregated result with earnings computed inline.
func DerivedQuery(f Filters, sorts []SortKey, w Window) (sq.SelectBuilder, error) {
	inner := sq.Select("u.*").From("users u")
	for _, p := range Predicates(f) {
		inner = inner.Where(p)
	}
	innerSQL, innerArgs, err := inner.ToSql()
	if err != nil {
		return sq.SelectBuilder{}, fmt.Errorf("build filtered CTE: %w", err)
	}

	with := sq.Expr(
		"WITH filtered AS ("+innerSQL+"),\n"+sponsorCountsCTE+",\n"+medianCostCTE,
		innerArgs...,
	)

	cols := make([]string, 0, len(baseColumns)+4)
	cols = append(cols, baseColumns...)
	cols = append(cols, "sc.total_sponsors", "sc.total_sponsoring", earningsColumn, windowCountColumn)

	b := sq.Select(cols...).
		PrefixExpr(with).
		From("filtered u").
		Join("sponsorship_counts sc ON sc.user_id = u.id").
		CrossJoin("median_cost mc").
		Where(derivedEligibility)

	if f.Search != "" {
		rank, args := SearchRank(f.Search)
		b = b.OrderByClause(rank, args...)
	}

	return b.OrderBy(orderClauses(sorts)...).
		Limit(w.Limit).
		Offset(w.Offset).
		PlaceholderFormat(sq.Dollar), nil
}
