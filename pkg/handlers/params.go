package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sponsorboard/sponsorboard-engine/pkg/query"
)

// ParseUserID extracts and validates the numeric user ID from the request
// path. Returns the parsed ID and true on success, or 0 and false after
// writing an error response.
// Expects path parameter: id
func ParseUserID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		respondError(w, logger, http.StatusBadRequest, "invalid_user_id", "Invalid user ID format")
		return 0, false
	}
	return id, true
}

// intQueryParam parses an integer query parameter, substituting def when the
// parameter is absent. A non-numeric value is a client error: a 400 response
// is written and ok is false.
func intQueryParam(w http.ResponseWriter, r *http.Request, name string, def int, logger *zap.Logger) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, logger, http.StatusBadRequest, "invalid_"+name, "Parameter "+name+" must be an integer")
		return 0, false
	}
	return v, true
}

// parseFilters collects the search string and the whitelisted multi-value
// filters from the query string. Keys outside the whitelist never reach the
// predicate builder.
func parseFilters(r *http.Request) query.Filters {
	q := r.URL.Query()
	return query.Filters{
		Search: q.Get("search"),
		Fields: map[string][]string{
			"gender":   q["gender"],
			"type":     q["type"],
			"location": q["location"],
		},
	}
}

// parseSorts zips repeated sortField and sortOrder parameters into ordered
// sort keys. Unpaired trailing entries are dropped.
func parseSorts(r *http.Request) []query.SortKey {
	q := r.URL.Query()
	fields := q["sortField"]
	orders := q["sortOrder"]

	n := len(fields)
	if len(orders) < n {
		n = len(orders)
	}

	keys := make([]query.SortKey, 0, n)
	for i := 0; i < n; i++ {
		keys = append(keys, query.SortKey{Field: fields[i], Order: orders[i]})
	}
	return keys
}
