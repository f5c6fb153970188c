package leaderboard

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimatedEarnings_MedianStandsInForMissingCost(t *testing.T) {
	// No stored cost: the median is the effective per-sponsor value.
	assert.Equal(t, 24.0, EstimatedEarnings(0, 8, 3))
}

func TestEstimatedEarnings_CostCappedAtMedian(t *testing.T) {
	// Stored cost above the median is capped.
	assert.Equal(t, 16.0, EstimatedEarnings(10, 8, 2))
}

func TestEstimatedEarnings_CostBelowMedianUsedAsIs(t *testing.T) {
	assert.Equal(t, 10.0, EstimatedEarnings(5, 8, 2))
}

func TestEstimatedEarnings_ZeroMedianYieldsZero(t *testing.T) {
	assert.Equal(t, 0.0, EstimatedEarnings(0, 0, 5))
	assert.Equal(t, 0.0, EstimatedEarnings(12, 0, 5))
}

func TestEstimatedEarnings_ZeroSponsorsYieldsZero(t *testing.T) {
	assert.Equal(t, 0.0, EstimatedEarnings(5, 8, 0))
}

// inlineEarnings transliterates the aggregate query's SQL expression,
//
//	LEAST(CASE WHEN cost > 0 THEN cost ELSE COALESCE(median, 0) END,
//	      COALESCE(median, 0)) * sponsors
//
// with SQL NULL represented as a nil pointer. Postgres evaluates NULL > 0 as
// unknown, so a NULL cost falls through to the median branch.
func inlineEarnings(cost, median *float64, sponsors int) float64 {
	m := 0.0
	if median != nil {
		m = *median
	}
	effective := m
	if cost != nil && *cost > 0 {
		effective = *cost
	}
	if m < effective {
		effective = m
	}
	return effective * float64(sponsors)
}

func TestEstimatedEarnings_MatchesInlineExpression(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		var cost, median *float64
		if rng.Intn(4) != 0 {
			v := rng.Float64()*60 - 10 // include non-positive costs
			cost = &v
		}
		if rng.Intn(4) != 0 {
			v := rng.Float64() * 50
			median = &v
		}
		sponsors := rng.Intn(100)

		costVal, medianVal := 0.0, 0.0
		if cost != nil {
			costVal = *cost
		}
		if median != nil {
			medianVal = *median
		}

		assert.InDelta(t, inlineEarnings(cost, median, sponsors),
			EstimatedEarnings(costVal, medianVal, sponsors), 1e-9,
			"cost=%v median=%v n=%d", cost, median, sponsors)
	}
}

func TestEstimatedEarnings_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		cost := rng.Float64() * 50
		median := rng.Float64() * 50
		sponsors := rng.Intn(100)

		got := EstimatedEarnings(cost, median, sponsors)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, median*float64(sponsors),
			"earnings may never exceed median x sponsors (cost=%v median=%v n=%d)", cost, median, sponsors)
	}
}
