package models

import "time"

// UserView is a single leaderboard row: the user's stored attributes plus
// the sponsorship metrics derived for the current snapshot.
type UserView struct {
	ID                int64    `json:"id"`
	Name              *string  `json:"name"`
	Username          string   `json:"username"`
	Type              *string  `json:"type"`
	Gender            *string  `json:"gender"`
	Hireable          *bool    `json:"hireable"`
	Location          *string  `json:"location"`
	AvatarURL         *string  `json:"avatar_url"`
	ProfileURL        *string  `json:"profile_url"`
	Following         int      `json:"following"`
	Followers         int      `json:"followers"`
	PublicRepos       int      `json:"public_repos"`
	PublicGists       int      `json:"public_gists"`
	TotalSponsors     int      `json:"total_sponsors"`
	TotalSponsoring   int      `json:"total_sponsoring"`
	MinSponsorCost    *float64 `json:"min_sponsor_cost"`
	EstimatedEarnings float64  `json:"estimated_earnings"`
}

// UserPage is one bounded window of leaderboard rows plus the total number
// of rows matching the request before windowing.
//
// DerivedComputed records whether EstimatedEarnings was computed inline by
// the query that produced the rows. When false the assembler must fill it
// in with the standalone resolver before the page is returned to a caller.
type UserPage struct {
	Total           int         `json:"total"`
	Users           []*UserView `json:"users"`
	DerivedComputed bool        `json:"-"`
}

// UserDetail merges a user's full stored profile with their lifetime
// activity summary and current sponsor counts.
type UserDetail struct {
	ID              int64      `json:"id"`
	Name            *string    `json:"name"`
	Username        string     `json:"username"`
	Type            *string    `json:"type"`
	Gender          *string    `json:"gender"`
	HasPronouns     *bool      `json:"has_pronouns"`
	Hireable        *bool      `json:"hireable"`
	Location        *string    `json:"location"`
	AvatarURL       *string    `json:"avatar_url"`
	ProfileURL      *string    `json:"profile_url"`
	Company         *string    `json:"company"`
	Bio             *string    `json:"bio"`
	TwitterUsername *string    `json:"twitter_username"`
	Following       int        `json:"following"`
	Followers       int        `json:"followers"`
	PublicRepos     int        `json:"public_repos"`
	PublicGists     int        `json:"public_gists"`
	MinSponsorCost  *float64   `json:"min_sponsor_cost"`
	LastScraped     *time.Time `json:"last_scraped"`
	IsEnriched      bool       `json:"is_enriched"`

	TotalCommits      int64 `json:"total_commits"`
	TotalPullRequests int64 `json:"total_pull_requests"`
	TotalIssues       int64 `json:"total_issues"`
	TotalReviews      int64 `json:"total_reviews"`

	YearlyActivity []YearlyActivity `json:"yearly_activity_data"`

	TotalSponsors   int `json:"total_sponsors"`
	TotalSponsoring int `json:"total_sponsoring"`
}

// YearlyActivity is one year's raw contribution counters.
type YearlyActivity struct {
	Year         int              `json:"year"`
	ActivityData map[string]int64 `json:"activity_data"`
}
