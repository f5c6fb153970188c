package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sponsorboard/sponsorboard-engine/pkg/apperrors"
	"github.com/sponsorboard/sponsorboard-engine/pkg/database"
	"github.com/sponsorboard/sponsorboard-engine/pkg/models"
)

// ProfileRepository defines read access for a single user's profile,
// activity history and sponsorship intervals.
type ProfileRepository interface {
	// GetByID returns the user's stored attributes, or
	// apperrors.ErrNotFound when no such user exists.
	GetByID(ctx context.Context, userID int64) (*models.UserDetail, error)

	// YearlyActivity returns the user's per-year contribution counters,
	// most recent year first.
	YearlyActivity(ctx context.Context, userID int64) ([]models.YearlyActivity, error)

	// SponsorCounts returns the user's current derived sponsor counts.
	SponsorCounts(ctx context.Context, userID int64) (*models.SponsorCounts, error)

	// SponsorshipIntervals returns the union of the user's closed history
	// records and open intervals synthesized from active sponsorships.
	SponsorshipIntervals(ctx context.Context, userID int64) ([]models.SponsorshipInterval, error)
}

// profileRepository implements ProfileRepository using PostgreSQL.
type profileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *database.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, userID int64) (*models.UserDetail, error) {
	sqlStr := `
		SELECT id, name, username, type, gender, has_pronouns, hireable,
		       location, avatar_url, profile_url, company, bio, twitter_username,
		       following, followers, public_repos, public_gists,
		       min_sponsor_cost, last_scraped, is_enriched
		FROM users
		WHERE id = $1`

	var d models.UserDetail
	err := r.db.QueryRow(ctx, sqlStr, userID).Scan(
		&d.ID, &d.Name, &d.Username, &d.Type, &d.Gender, &d.HasPronouns, &d.Hireable,
		&d.Location, &d.AvatarURL, &d.ProfileURL, &d.Company, &d.Bio, &d.TwitterUsername,
		&d.Following, &d.Followers, &d.PublicRepos, &d.PublicGists,
		&d.MinSponsorCost, &d.LastScraped, &d.IsEnriched,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &d, nil
}

func (r *profileRepository) YearlyActivity(ctx context.Context, userID int64) ([]models.YearlyActivity, error) {
	sqlStr := `
		SELECT year, activity_data
		FROM user_activity
		WHERE user_id = $1
		ORDER BY year DESC`

	rows, err := r.db.Query(ctx, sqlStr, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user activity: %w", err)
	}
	defer rows.Close()

	var years []models.YearlyActivity
	for rows.Next() {
		var y models.YearlyActivity
		if err := rows.Scan(&y.Year, &y.ActivityData); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		years = append(years, y)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}

	return years, nil
}

func (r *profileRepository) SponsorCounts(ctx context.Context, userID int64) (*models.SponsorCounts, error) {
	sqlStr := `
		SELECT COALESCE(COUNT(DISTINCT s1.sponsor_id), 0) + COALESCE(u.private_sponsor_count, 0) AS total_sponsors,
		       COALESCE((SELECT COUNT(DISTINCT s2.sponsored_id) FROM sponsorship s2 WHERE s2.sponsor_id = u.id), 0) AS total_sponsoring
		FROM users u
		LEFT JOIN sponsorship s1 ON s1.sponsored_id = u.id
		WHERE u.id = $1
		GROUP BY u.id, u.private_sponsor_count`

	var counts models.SponsorCounts
	err := r.db.QueryRow(ctx, sqlStr, userID).Scan(&counts.TotalSponsors, &counts.TotalSponsoring)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &models.SponsorCounts{}, nil
		}
		return nil, fmt.Errorf("failed to get sponsor counts: %w", err)
	}

	return &counts, nil
}

func (r *profileRepository) SponsorshipIntervals(ctx context.Context, userID int64) ([]models.SponsorshipInterval, error) {
	// Closed (and historical open) records, plus open intervals derived
	// from currently active sponsorships.
	sqlStr := `
		SELECT h.started_at, h.ended_at
		FROM sponsorship_history h
		WHERE h.sponsored_id = $1
		UNION ALL
		SELECT s.created_at AS started_at, NULL AS ended_at
		FROM sponsorship s
		WHERE s.sponsored_id = $1`

	rows, err := r.db.Query(ctx, sqlStr, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sponsorship history: %w", err)
	}
	defer rows.Close()

	var intervals []models.SponsorshipInterval
	for rows.Next() {
		var iv models.SponsorshipInterval
		if err := rows.Scan(&iv.StartedAt, &iv.EndedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interval: %w", err)
		}
		intervals = append(intervals, iv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating intervals: %w", err)
	}

	return intervals, nil
}

// Ensure profileRepository implements ProfileRepository at compile time.
var _ ProfileRepository = (*profileRepository)(nil)
