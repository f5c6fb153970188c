package repositories

import (
	"context"
	"fmt"

	"github.com/sponsorboard/sponsorboard-engine/pkg/database"
	"github.com/sponsorboard/sponsorboard-engine/pkg/models"
	"github.com/sponsorboard/sponsorboard-engine/pkg/query"
)

// LeaderboardRepository defines read access for the ranked user leaderboard.
// Every method executes against the current stored snapshot; nothing is
// cached between calls.
type LeaderboardRepository interface {
	// ListFast runs the stored-attribute strategy query and returns the
	// windowed rows plus the total matching count. EstimatedEarnings is not
	// populated on the returned rows.
	ListFast(ctx context.Context, f query.Filters, sorts []query.SortKey, w query.Window) ([]*models.UserView, int, error)

	// ListAggregated runs the aggregate strategy query; rows come back with
	// EstimatedEarnings computed inline.
	ListAggregated(ctx context.Context, f query.Filters, sorts []query.SortKey, w query.Window) ([]*models.UserView, int, error)

	// MedianPositiveCost returns the cross-user median of positive minimum
	// sponsorship costs, or 0 when no user has one.
	MedianPositiveCost(ctx context.Context) (float64, error)

	// DistinctLocations returns the deduplicated, alphabetically sorted set
	// of non-null user locations.
	DistinctLocations(ctx context.Context) ([]string, error)
}

// leaderboardRepository implements LeaderboardRepository using PostgreSQL.
type leaderboardRepository struct {
	db *database.DB
}

// NewLeaderboardRepository creates a new leaderboard repository.
func NewLeaderboardRepository(db *database.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) ListFast(ctx context.Context, f query.Filters, sorts []query.SortKey, w query.Window) ([]*models.UserView, int, error) {
	sqlStr, args, err := query.FastQuery(f, sorts, w).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build fast query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.UserView
	total := 0
	for rows.Next() {
		var u models.UserView
		err := rows.Scan(
			&u.ID, &u.Name, &u.Username, &u.Type, &u.AvatarURL, &u.ProfileURL,
			&u.Gender, &u.Location, &u.PublicRepos, &u.PublicGists,
			&u.Followers, &u.Following, &u.Hireable, &u.MinSponsorCost,
			&u.TotalSponsors, &u.TotalSponsoring, &total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}

	return users, total, nil
}

func (r *leaderboardRepository) ListAggregated(ctx context.Context, f query.Filters, sorts []query.SortKey, w query.Window) ([]*models.UserView, int, error) {
	builder, err := query.DerivedQuery(f, sorts, w)
	if err != nil {
		return nil, 0, fmt.Errorf("build aggregate query: %w", err)
	}
	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build aggregate query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.UserView
	total := 0
	for rows.Next() {
		var u models.UserView
		err := rows.Scan(
			&u.ID, &u.Name, &u.Username, &u.Type, &u.AvatarURL, &u.ProfileURL,
			&u.Gender, &u.Location, &u.PublicRepos, &u.PublicGists,
			&u.Followers, &u.Following, &u.Hireable, &u.MinSponsorCost,
			&u.TotalSponsors, &u.TotalSponsoring, &u.EstimatedEarnings, &total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}

	return users, total, nil
}

func (r *leaderboardRepository) MedianPositiveCost(ctx context.Context) (float64, error) {
	var median float64
	err := r.db.QueryRow(ctx, query.MedianQuery()).Scan(&median)
	if err != nil {
		return 0, fmt.Errorf("failed to get median cost: %w", err)
	}
	return median, nil
}

func (r *leaderboardRepository) DistinctLocations(ctx context.Context) ([]string, error) {
	sqlStr := `SELECT DISTINCT location FROM users WHERE location IS NOT NULL ORDER BY location ASC`

	rows, err := r.db.Query(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to get locations: %w", err)
	}
	defer rows.Close()

	locations := []string{}
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}

	return locations, nil
}

// Ensure leaderboardRepository implements LeaderboardRepository at compile time.
var _ LeaderboardRepository = (*leaderboardRepository)(nil)
