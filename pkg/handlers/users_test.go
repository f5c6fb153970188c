package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sponsorboard/sponsorboard-engine/pkg/apperrors"
	"github.com/sponsorboard/sponsorboard-engine/pkg/leaderboard"
	"github.com/sponsorboard/sponsorboard-engine/pkg/models"
	"github.com/sponsorboard/sponsorboard-engine/pkg/services"
)

// stubLeaderboardService implements services.LeaderboardService for testing.
type stubLeaderboardService struct {
	page      *models.UserPage
	locations []string
	err       error

	lastList   services.ListRequest
	lastExport services.ExportRequest
}

func (s *stubLeaderboardService) List(_ context.Context, req services.ListRequest) (*models.UserPage, error) {
	s.lastList = req
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

func (s *stubLeaderboardService) Export(_ context.Context, req services.ExportRequest) (*models.UserPage, error) {
	s.lastExport = req
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

func (s *stubLeaderboardService) Locations(_ context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.locations, nil
}

// stubProfileService implements services.ProfileService for testing.
type stubProfileService struct {
	detail  *models.UserDetail
	buckets []models.TimelineBucket
	err     error

	lastUserID      int64
	lastGranularity leaderboard.Granularity
}

func (s *stubProfileService) GetDetail(_ context.Context, userID int64) (*models.UserDetail, error) {
	s.lastUserID = userID
	if s.err != nil {
		return nil, s.err
	}
	return s.detail, nil
}

func (s *stubProfileService) Timeline(_ context.Context, userID int64, g leaderboard.Granularity) ([]models.TimelineBucket, error) {
	s.lastUserID = userID
	s.lastGranularity = g
	if s.err != nil {
		return nil, s.err
	}
	return s.buckets, nil
}

func newTestMux(lb *stubLeaderboardService, profiles *stubProfileService) *http.ServeMux {
	h := NewUsersHandler(lb, profiles, zap.NewNop())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, nil)
	return mux
}

func doGet(t *testing.T, mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestList_Defaults(t *testing.T) {
	lb := &stubLeaderboardService{page: &models.UserPage{Total: 0, Users: []*models.UserView{}}}
	mux := newTestMux(lb, &stubProfileService{})

	rec := doGet(t, mux, "/api/users")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, lb.lastList.Page)
	assert.Equal(t, 10, lb.lastList.PerPage)
}

func TestList_ParsesFiltersAndSorts(t *testing.T) {
	lb := &stubLeaderboardService{page: &models.UserPage{Users: []*models.UserView{}}}
	mux := newTestMux(lb, &stubProfileService{})

	q := url.Values{}
	q.Set("page", "3")
	q.Set("per_page", "25")
	q.Set("search", "linus")
	q.Add("gender", "female")
	q.Add("gender", "None")
	q.Add("sortField", "followers")
	q.Add("sortOrder", "descend")

	rec := doGet(t, mux, "/api/users?"+q.Encode())
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 3, lb.lastList.Page)
	assert.Equal(t, 25, lb.lastList.PerPage)
	assert.Equal(t, "linus", lb.lastList.Filters.Search)
	assert.Equal(t, []string{"female", "None"}, lb.lastList.Filters.Fields["gender"])
	require.Len(t, lb.lastList.Sorts, 1)
	assert.Equal(t, "followers", lb.lastList.Sorts[0].Field)
	assert.Equal(t, "descend", lb.lastList.Sorts[0].Order)
}

func TestList_NonNumericPage(t *testing.T) {
	mux := newTestMux(&stubLeaderboardService{}, &stubProfileService{})

	rec := doGet(t, mux, "/api/users?page=abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_page", errorCode(t, rec))
}

func TestList_InvalidInputFromService(t *testing.T) {
	lb := &stubLeaderboardService{err: fmt.Errorf("page and per_page must be at least 1: %w", apperrors.ErrInvalidInput)}
	mux := newTestMux(lb, &stubProfileService{})

	rec := doGet(t, mux, "/api/users?page=0")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestList_ServiceErrorIsOpaque(t *testing.T) {
	lb := &stubLeaderboardService{err: errors.New("pq: relation users does not exist")}
	mux := newTestMux(lb, &stubProfileService{})

	rec := doGet(t, mux, "/api/users")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation users", "store errors must not leak to clients")
}

func TestList_ResponseBody(t *testing.T) {
	name := "The Octocat"
	lb := &stubLeaderboardService{page: &models.UserPage{
		Total: 1,
		Users: []*models.UserView{{ID: 7, Username: "octocat", Name: &name, TotalSponsors: 3, EstimatedEarnings: 24}},
	}}
	mux := newTestMux(lb, &stubProfileService{})

	rec := doGet(t, mux, "/api/users")
	require.Equal(t, http.StatusOK, rec.Code)

	var page models.UserPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "octocat", page.Users[0].Username)
	assert.Equal(t, 24.0, page.Users[0].EstimatedEarnings)
}

func TestExport_Defaults(t *testing.T) {
	lb := &stubLeaderboardService{page: &models.UserPage{Users: []*models.UserView{}}}
	mux := newTestMux(lb, &stubProfileService{})

	rec := doGet(t, mux, "/api/users/export")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, lb.lastExport.Start)
	assert.Equal(t, 2000, lb.lastExport.Count)
}

func TestExport_PassesWindow(t *testing.T) {
	lb := &stubLeaderboardService{page: &models.UserPage{Users: []*models.UserView{}}}
	mux := newTestMux(lb, &stubProfileService{})

	rec := doGet(t, mux, "/api/users/export?start=101&count=50")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 101, lb.lastExport.Start)
	assert.Equal(t, 50, lb.lastExport.Count)
}

func TestExport_InvalidCount(t *testing.T) {
	lb := &stubLeaderboardService{err: fmt.Errorf("export count must be at least 1: %w", apperrors.ErrInvalidInput)}
	mux := newTestMux(lb, &stubProfileService{})

	rec := doGet(t, mux, "/api/users/export?count=0")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLocations(t *testing.T) {
	lb := &stubLeaderboardService{locations: []string{"Berlin", "Tokyo"}}
	mux := newTestMux(lb, &stubProfileService{})

	rec := doGet(t, mux, "/api/users/location")
	require.Equal(t, http.StatusOK, rec.Code)

	var locations []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &locations))
	assert.Equal(t, []string{"Berlin", "Tokyo"}, locations)
}

func TestDetail_HappyPath(t *testing.T) {
	profiles := &stubProfileService{detail: &models.UserDetail{ID: 7, Username: "octocat", TotalCommits: 200}}
	mux := newTestMux(&stubLeaderboardService{}, profiles)

	rec := doGet(t, mux, "/api/user/7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), profiles.lastUserID)

	var detail models.UserDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "octocat", detail.Username)
	assert.Equal(t, int64(200), detail.TotalCommits)
}

func TestDetail_NotFound(t *testing.T) {
	profiles := &stubProfileService{err: fmt.Errorf("user 99: %w", apperrors.ErrNotFound)}
	mux := newTestMux(&stubLeaderboardService{}, profiles)

	rec := doGet(t, mux, "/api/user/99")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestDetail_InvalidID(t *testing.T) {
	mux := newTestMux(&stubLeaderboardService{}, &stubProfileService{})

	rec := doGet(t, mux, "/api/user/abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_user_id", errorCode(t, rec))
}

func TestTimeline_DefaultsToWeekly(t *testing.T) {
	profiles := &stubProfileService{buckets: []models.TimelineBucket{}}
	mux := newTestMux(&stubLeaderboardService{}, profiles)

	rec := doGet(t, mux, "/api/user/7/sponsorship-history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, leaderboard.Weekly, profiles.lastGranularity)
}

func TestTimeline_MonthlyInterval(t *testing.T) {
	profiles := &stubProfileService{buckets: []models.TimelineBucket{
		{Date: "2024-01-01", ActiveCount: 1, New: 1},
	}}
	mux := newTestMux(&stubLeaderboardService{}, profiles)

	rec := doGet(t, mux, "/api/user/7/sponsorship-history?interval=month")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, leaderboard.Monthly, profiles.lastGranularity)

	var buckets []models.TimelineBucket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buckets))
	require.Len(t, buckets, 1)
	assert.Equal(t, "2024-01-01", buckets[0].Date)
}

func TestRegisterRoutes_ExportLimitApplied(t *testing.T) {
	lb := &stubLeaderboardService{page: &models.UserPage{Users: []*models.UserView{}}}
	h := NewUsersHandler(lb, &stubProfileService{}, zap.NewNop())

	limited := 0
	limit := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			limited++
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux, limit)

	doGet(t, mux, "/api/users/export")
	doGet(t, mux, "/api/users")
	assert.Equal(t, 1, limited, "only the export route is wrapped")
}

func TestParseSorts_DropsUnpairedEntries(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users?sortField=followers&sortField=username&sortOrder=descend", nil)
	sorts := parseSorts(req)
	require.Len(t, sorts, 1)
	assert.Equal(t, "followers", sorts[0].Field)
}
