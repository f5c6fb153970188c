package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sponsorboard/sponsorboard-engine/pkg/leaderboard"
	"github.com/sponsorboard/sponsorboard-engine/pkg/models"
	"github.com/sponsorboard/sponsorboard-engine/pkg/repositories"
)

// ProfileService serves a single user's merged detail view and their
// bucketed sponsorship timeline.
type ProfileService interface {
	// GetDetail merges the user's stored attributes with their lifetime
	// activity summary and current sponsor counts. Returns
	// apperrors.ErrNotFound when the user does not exist.
	GetDetail(ctx context.Context, userID int64) (*models.UserDetail, error)

	// Timeline returns the user's bucketed sponsorship activity. A user
	// with no history yields an empty series, not an error.
	Timeline(ctx context.Context, userID int64, g leaderboard.Granularity) ([]models.TimelineBucket, error)
}

type profileService struct {
	repo   repositories.ProfileRepository
	logger *zap.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(repo repositories.ProfileRepository, logger *zap.Logger) ProfileService {
	return &profileService{
		repo:   repo,
		logger: logger.Named("profile-service"),
	}
}

var _ ProfileService = (*profileService)(nil)

func (s *profileService) GetDetail(ctx context.Context, userID int64) (*models.UserDetail, error) {
	detail, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	years, err := s.repo.YearlyActivity(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get user activity",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("get user activity: %w", err)
	}

	for _, y := range years {
		detail.TotalCommits += y.ActivityData["commits"]
		detail.TotalPullRequests += y.ActivityData["pull_requests"]
		detail.TotalIssues += y.ActivityData["issues"]
		detail.TotalReviews += y.ActivityData["reviews"]
	}
	detail.YearlyActivity = years

	counts, err := s.repo.SponsorCounts(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get sponsor counts",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("get sponsor counts: %w", err)
	}
	detail.TotalSponsors = counts.TotalSponsors
	detail.TotalSponsoring = counts.TotalSponsoring

	return detail, nil
}

func (s *profileService) Timeline(ctx context.Context, userID int64, g leaderboard.Granularity) ([]models.TimelineBucket, error) {
	intervals, err := s.repo.SponsorshipIntervals(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get sponsorship intervals",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("get sponsorship intervals: %w", err)
	}

	return leaderboard.Timeline(intervals, g), nil
}
