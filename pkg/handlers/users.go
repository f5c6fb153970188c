package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sponsorboard/sponsorboard-engine/pkg/apperrors"
	"github.com/sponsorboard/sponsorboard-engine/pkg/leaderboard"
	"github.com/sponsorboard/sponsorboard-engine/pkg/query"
	"github.com/sponsorboard/sponsorboard-engine/pkg/services"
)

// UsersHandler handles the leaderboard and user profile HTTP requests.
type UsersHandler struct {
	leaderboard services.LeaderboardService
	profiles    services.ProfileService
	logger      *zap.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(lb services.LeaderboardService, profiles services.ProfileService, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{
		leaderboard: lb,
		profiles:    profiles,
		logger:      logger,
	}
}

// RegisterRoutes registers the users handler's routes on the given mux.
// exportLimit, when non-nil, wraps the export endpoint.
func (h *UsersHandler) RegisterRoutes(mux *http.ServeMux, exportLimit func(http.HandlerFunc) http.HandlerFunc) {
	export := h.Export
	if exportLimit != nil {
		export = exportLimit(export)
	}

	mux.HandleFunc("GET /api/users", h.List)
	mux.HandleFunc("GET /api/users/export", export)
	mux.HandleFunc("GET /api/users/location", h.Locations)
	mux.HandleFunc("GET /api/user/{id}", h.Detail)
	mux.HandleFunc("GET /api/user/{id}/sponsorship-history", h.Timeline)
}

// List handles GET /api/users
// Returns one page of the ranked, filtered leaderboard plus the total
// matching count.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := intQueryParam(w, r, "page", 1, h.logger)
	if !ok {
		return
	}
	perPage, ok := intQueryParam(w, r, "per_page", 10, h.logger)
	if !ok {
		return
	}

	result, err := h.leaderboard.List(r.Context(), services.ListRequest{
		Filters: parseFilters(r),
		Sorts:   parseSorts(r),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "page and per_page must be at least 1")
			return
		}
		h.logger.Error("Failed to list users", zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "list_failed", "Failed to list users")
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode users response", zap.Error(err))
	}
}

// Export handles GET /api/users/export
// Identical to List apart from windowing: an explicit 1-based start row and
// a row count capped server-side.
func (h *UsersHandler) Export(w http.ResponseWriter, r *http.Request) {
	start, ok := intQueryParam(w, r, "start", 1, h.logger)
	if !ok {
		return
	}
	count, ok := intQueryParam(w, r, "count", query.MaxExportRows, h.logger)
	if !ok {
		return
	}

	result, err := h.leaderboard.Export(r.Context(), services.ExportRequest{
		Filters: parseFilters(r),
		Sorts:   parseSorts(r),
		Start:   start,
		Count:   count,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "count must be at least 1")
			return
		}
		h.logger.Error("Failed to export users", zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "export_failed", "Failed to export users")
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode export response", zap.Error(err))
	}
}

// Locations handles GET /api/users/location
// Returns the distinct, alphabetically sorted list of user locations.
func (h *UsersHandler) Locations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.leaderboard.Locations(r.Context())
	if err != nil {
		h.logger.Error("Failed to get locations", zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "locations_failed", "Failed to get locations")
		return
	}

	if err := WriteJSON(w, http.StatusOK, locations); err != nil {
		h.logger.Error("Failed to encode locations response", zap.Error(err))
	}
}

// Detail handles GET /api/user/{id}
// Returns the user's merged profile, activity summary and sponsor counts.
func (h *UsersHandler) Detail(w http.ResponseWriter, r *http.Request) {
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}

	detail, err := h.profiles.GetDetail(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			respondError(w, h.logger, http.StatusNotFound, "not_found", "User not found")
			return
		}
		h.logger.Error("Failed to get user detail",
			zap.Int64("user_id", userID),
			zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "detail_failed", "Failed to get user")
		return
	}

	if err := WriteJSON(w, http.StatusOK, detail); err != nil {
		h.logger.Error("Failed to encode detail response", zap.Error(err))
	}
}

// Timeline handles GET /api/user/{id}/sponsorship-history
// Returns the user's bucketed sponsorship activity; the interval query
// parameter selects weekly (default) or monthly buckets.
func (h *UsersHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}

	granularity := leaderboard.ParseGranularity(r.URL.Query().Get("interval"))

	buckets, err := h.profiles.Timeline(r.Context(), userID, granularity)
	if err != nil {
		h.logger.Error("Failed to get sponsorship timeline",
			zap.Int64("user_id", userID),
			zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "timeline_failed", "Failed to get sponsorship history")
		return
	}

	if err := WriteJSON(w, http.StatusOK, buckets); err != nil {
		h.logger.Error("Failed to encode timeline response", zap.Error(err))
	}
}
