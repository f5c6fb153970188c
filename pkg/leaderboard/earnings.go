package leaderboard

// EstimatedEarnings computes the estimated minimum monthly earnings for a
// user from their stored minimum sponsorship cost, the cross-user median of
// positive minimum costs, and their total sponsor count.
//
// The stored cost is used when positive, otherwise the median stands in for
// it; either way the effective cost is capped at the median. A median of 0
// (no user has a positive minimum cost) therefore yields 0.
//
// This is the standalone counterpart of the inline SQL expression in the
// aggregate leaderboard query; the two must produce identical values for
// identical inputs.
func EstimatedEarnings(minCost, median float64, totalSponsors int) float64 {
	effective := median
	if minCost > 0 {
		effective = minCost
	}
	if effective > median {
		effective = median
	}
	return effective * float64(totalSponsors)
}
