package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sponsorboard/sponsorboard-engine/pkg/apperrors"
	"github.com/sponsorboard/sponsorboard-engine/pkg/leaderboard"
	"github.com/sponsorboard/sponsorboard-engine/pkg/models"
	"github.com/sponsorboard/sponsorboard-engine/pkg/query"
	"github.com/sponsorboard/sponsorboard-engine/pkg/repositories"
)

// ListRequest is a paged leaderboard request.
type ListRequest struct {
	Filters query.Filters
	Sorts   []query.SortKey
	Page    int
	PerPage int
}

// ExportRequest is a row-windowed leaderboard request. Start is 1-based;
// Count is capped at query.MaxExportRows per call.
type ExportRequest struct {
	Filters query.Filters
	Sorts   []query.SortKey
	Start   int
	Count   int
}

// LeaderboardService serves ranked, filterable, searchable pages of users
// with derived sponsorship metrics.
type LeaderboardService interface {
	List(ctx context.Context, req ListRequest) (*models.UserPage, error)
	Export(ctx context.Context, req ExportRequest) (*models.UserPage, error)
	Locations(ctx context.Context) ([]string, error)
}

// pageStrategy is one of the two mutually exclusive ways to produce a page.
// The stored-attribute strategy windows before aggregating; the aggregate
// strategy must aggregate before it can order. Which one applies is a pure
// function of the requested sort fields.
type pageStrategy interface {
	Plan(ctx context.Context, f query.Filters, sorts []query.SortKey, w query.Window) (*models.UserPage, error)
}

type fastPathStrategy struct {
	repo repositories.LeaderboardRepository
}

func (s *fastPathStrategy) Plan(ctx context.Context, f query.Filters, sorts []query.SortKey, w query.Window) (*models.UserPage, error) {
	users, total, err := s.repo.ListFast(ctx, f, sorts, w)
	if err != nil {
		return nil, err
	}
	return &models.UserPage{Total: total, Users: users, DerivedComputed: false}, nil
}

type derivedPathStrategy struct {
	repo repositories.LeaderboardRepository
}

func (s *derivedPathStrategy) Plan(ctx context.Context, f query.Filters, sorts []query.SortKey, w query.Window) (*models.UserPage, error) {
	users, total, err := s.repo.ListAggregated(ctx, f, sorts, w)
	if err != nil {
		return nil, err
	}
	return &models.UserPage{Total: total, Users: users, DerivedComputed: true}, nil
}

type leaderboardService struct {
	repo    repositories.LeaderboardRepository
	fast    pageStrategy
	derived pageStrategy
	logger  *zap.Logger
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(repo repositories.LeaderboardRepository, logger *zap.Logger) LeaderboardService {
	return &leaderboardService{
		repo:    repo,
		fast:    &fastPathStrategy{repo: repo},
		derived: &derivedPathStrategy{repo: repo},
		logger:  logger.Named("leaderboard-service"),
	}
}

var _ LeaderboardService = (*leaderboardService)(nil)

func (s *leaderboardService) List(ctx context.Context, req ListRequest) (*models.UserPage, error) {
	if req.Page < 1 || req.PerPage < 1 {
		return nil, fmt.Errorf("page and per_page must be at least 1: %w", apperrors.ErrInvalidInput)
	}
	return s.plan(ctx, req.Filters, req.Sorts, query.PageWindow(req.Page, req.PerPage))
}

func (s *leaderboardService) Export(ctx context.Context, req ExportRequest) (*models.UserPage, error) {
	w, err := query.ExportWindow(req.Start, req.Count)
	if err != nil {
		return nil, err
	}
	return s.plan(ctx, req.Filters, req.Sorts, w)
}

// plan selects the execution strategy from the normalized sort set, runs
// it, and assembles the final page.
func (s *leaderboardService) plan(ctx context.Context, f query.Filters, sorts []query.SortKey, w query.Window) (*models.UserPage, error) {
	sorts = query.Normalize(sorts)

	strategy := s.fast
	if query.NeedsAggregates(sorts) {
		strategy = s.derived
	}

	page, err := strategy.Plan(ctx, f, sorts, w)
	if err != nil {
		s.logger.Error("Failed to plan leaderboard page", zap.Error(err))
		return nil, fmt.Errorf("plan leaderboard page: %w", err)
	}

	if err := s.assemble(ctx, page); err != nil {
		return nil, err
	}

	if page.Users == nil {
		page.Users = []*models.UserView{}
	}
	return page, nil
}

// assemble fills in estimated earnings when the strategy did not compute
// them inline. The median is fetched once per request, never per row.
func (s *leaderboardService) assemble(ctx context.Context, page *models.UserPage) error {
	if page.DerivedComputed || len(page.Users) == 0 {
		return nil
	}

	median, err := s.repo.MedianPositiveCost(ctx)
	if err != nil {
		s.logger.Error("Failed to get median sponsor cost", zap.Error(err))
		return fmt.Errorf("get median sponsor cost: %w", err)
	}

	for _, u := range page.Users {
		cost := 0.0
		if u.MinSponsorCost != nil {
			cost = *u.MinSponsorCost
		}
		u.EstimatedEarnings = leaderboard.EstimatedEarnings(cost, median, u.TotalSponsors)
	}
	return nil
}

func (s *leaderboardService) Locations(ctx context.Context) ([]string, error) {
	locations, err := s.repo.DistinctLocations(ctx)
	if err != nil {
		s.logger.Error("Failed to get locations", zap.Error(err))
		return nil, fmt.Errorf("get locations: %w", err)
	}
	return locations, nil
}
