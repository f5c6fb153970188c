package models

import "time"

// SponsorCounts holds the two derived sponsorship metrics for one user.
// TotalSponsors folds the user's undisclosed private sponsor count into the
// distinct count of active sponsors.
type SponsorCounts struct {
	TotalSponsors   int `json:"total_sponsors"`
	TotalSponsoring int `json:"total_sponsoring"`
}

// SponsorshipInterval is one closed or still-open sponsorship of a user.
// A nil EndedAt means the sponsorship is still active.
type SponsorshipInterval struct {
	StartedAt time.Time
	EndedAt   *time.Time
}

// TimelineBucket is one fixed-width period of sponsorship activity.
// ActiveCount is the running total of sponsors at the end of the period,
// never negative.
type TimelineBucket struct {
	Date        string `json:"date"`
	ActiveCount int    `json:"active_count"`
	New         int    `json:"new"`
	Lost        int    `json:"lost"`
}
