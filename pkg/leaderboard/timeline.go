package leaderboard

import (
	"strings"
	"time"

	"github.com/sponsorboard/sponsorboard-engine/pkg/models"
)

// Granularity selects the bucket width of a sponsorship timeline.
type Granularity string

const (
	Weekly  Granularity = "week"
	Monthly Granularity = "month"
)

// ParseGranularity maps a request parameter to a Granularity. "month" or
// "m" (any case) selects monthly buckets; anything else, including the
// empty string, falls back to weekly.
func ParseGranularity(s string) Granularity {
	switch strings.ToLower(s) {
	case "month", "m":
		return Monthly
	}
	return Weekly
}

// Timeline converts a user's sponsorship intervals into a bucketed series
// of new, lost and running active counts. No intervals yields an empty
// series, not an error.
//
// Timestamps are reduced to naive UTC dates before bucketing. Buckets run
// contiguously from the earliest to the latest period touched by any
// interval edge; periods with no activity appear as zero-delta buckets so
// the running sum stays correct. The active count is max(0, cumulative
// new-minus-lost): a data inconsistency where lost events outrun new ones
// is clamped, never surfaced as a negative count.
//
// Intervals whose start is after their end are accepted as-is - validating
// them is the data producer's responsibility - but such rows distort the
// per-bucket counts.
func Timeline(intervals []models.SponsorshipInterval, g Granularity) []models.TimelineBucket {
	if len(intervals) == 0 {
		return []models.TimelineBucket{}
	}

	newCounts := make(map[time.Time]int)
	lostCounts := make(map[time.Time]int)

	var first, last time.Time
	track := func(key time.Time) {
		if first.IsZero() || key.Before(first) {
			first = key
		}
		if last.IsZero() || key.After(last) {
			last = key
		}
	}

	for _, iv := range intervals {
		start := bucketStart(iv.StartedAt, g)
		newCounts[start]++
		track(start)
		if iv.EndedAt != nil {
			end := bucketStart(*iv.EndedAt, g)
			lostCounts[end]++
			track(end)
		}
	}

	var buckets []models.TimelineBucket
	running := 0
	for key := first; !key.After(last); key = nextBucket(key, g) {
		gained := newCounts[key]
		lost := lostCounts[key]
		running += gained - lost

		active := running
		if active < 0 {
			active = 0
		}

		buckets = append(buckets, models.TimelineBucket{
			Date:        key.Format("2006-01-02"),
			ActiveCount: active,
			New:         gained,
			Lost:        lost,
		})
	}
	return buckets
}

// bucketStart strips the timezone and truncates t to the start of its
// period: Monday for weekly buckets, the first of the month for monthly.
func bucketStart(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	if g == Monthly {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
}

func nextBucket(key time.Time, g Granularity) time.Time {
	if g == Monthly {
		return key.AddDate(0, 1, 0)
	}
	return key.AddDate(0, 0, 7)
}
