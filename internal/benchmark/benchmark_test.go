package benchmark

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdullahmohammed1234/repopulse/internal/repometrics"
)

func healthOnly(repo string, health float64) repometrics.Indices {
	return repometrics.Indices{Repository: repo, HealthScore: health}
}

func rowFor(t *testing.T, rows []Row, repo string) Row {
	t.Helper()
	for _, r := range rows {
		if r.Repository == repo {
			return r
		}
	}
	t.Fatalf("no row for %s", repo)
	return Row{}
}

func TestRunSingletonCohort(t *testing.T) {
	rows, distribution := Run([]repometrics.Indices{healthOnly("org/solo", 72)})

	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Rank)

	for _, metric := range metrics {
		assert.Equal(t, 100.0, rows[0].Percentiles[metric], "percentile for %s", metric)
		assert.Equal(t, 0.0, rows[0].ZScores[metric], "z-score for %s", metric)
	}

	total := 0
	for _, b := range distribution {
		total += b.Count
	}
	assert.Equal(t, 1, total)
}

func TestPercentileUsesAtOrBelowConvention(t *testing.T) {
	rows, _ := Run([]repometrics.Indices{
		healthOnly("org/a", 40),
		healthOnly("org/b", 70),
		healthOnly("org/c", 90),
	})

	assert.InDelta(t, 100.0/3, rowFor(t, rows, "org/a").Percentiles[MetricHealth], 1e-9)
	assert.InDelta(t, 200.0/3, rowFor(t, rows, "org/b").Percentiles[MetricHealth], 1e-9)
	assert.InDelta(t, 100.0, rowFor(t, rows, "org/c").Percentiles[MetricHealth], 1e-9)
}

func TestPercentileTiesShareValue(t *testing.T) {
	rows, _ := Run([]repometrics.Indices{
		healthOnly("org/a", 40),
		healthOnly("org/b", 70),
		healthOnly("org/c", 70),
		healthOnly("org/d", 85),
		healthOnly("org/e", 95),
	})

	// Both 70s count each other: 3 of 5 at or below.
	assert.InDelta(t, 60.0, rowFor(t, rows, "org/b").Percentiles[MetricHealth], 1e-9)
	assert.InDelta(t, 60.0, rowFor(t, rows, "org/c").Percentiles[MetricHealth], 1e-9)
}

func TestZScorePopulationSigma(t *testing.T) {
	rows, _ := Run([]repometrics.Indices{
		healthOnly("org/a", 40),
		healthOnly("org/b", 70),
		healthOnly("org/c", 100),
	})

	// mean 70, population sigma sqrt(600)
	sigma := math.Sqrt(600)
	assert.InDelta(t, -30/sigma, rowFor(t, rows, "org/a").ZScores[MetricHealth], 1e-9)
	assert.InDelta(t, 0.0, rowFor(t, rows, "org/b").ZScores[MetricHealth], 1e-9)
	assert.InDelta(t, 30/sigma, rowFor(t, rows, "org/c").ZScores[MetricHealth], 1e-9)
}

func TestZScoreZeroForDegeneratePopulation(t *testing.T) {
	rows, _ := Run([]repometrics.Indices{
		healthOnly("org/a", 55),
		healthOnly("org/b", 55),
	})

	assert.Equal(t, 0.0, rowFor(t, rows, "org/a").ZScores[MetricHealth])
	assert.Equal(t, 0.0, rowFor(t, rows, "org/b").ZScores[MetricHealth])
}

func TestRowsOrderedByHealthThenRepository(t *testing.T) {
	rows, _ := Run([]repometrics.Indices{
		healthOnly("org/zeta", 80),
		healthOnly("org/alpha", 80),
		healthOnly("org/mid", 90),
	})

	require.Len(t, rows, 3)
	assert.Equal(t, "org/mid", rows[0].Repository)
	assert.Equal(t, "org/alpha", rows[1].Repository)
	assert.Equal(t, "org/zeta", rows[2].Repository)

	for i, row := range rows {
		assert.Equal(t, i+1, row.Rank)
	}
}

func TestDistributionBucketEdges(t *testing.T) {
	rows, distribution := Run([]repometrics.Indices{
		healthOnly("org/a", 0),    // 0-10
		healthOnly("org/b", 9.99), // 0-10
		healthOnly("org/c", 10),   // 10-20, lower bound inclusive
		healthOnly("org/d", 89.9), // 80-90
		healthOnly("org/e", 90),   // 90-100
		healthOnly("org/f", 100),  // 90-100, upper bound inclusive in last bucket
	})
	require.Len(t, rows, 6)
	require.Len(t, distribution, 10)

	byRange := make(map[string]int, len(distribution))
	for _, b := range distribution {
		byRange[b.Range] = b.Count
	}

	assert.Equal(t, 2, byRange["0-10"])
	assert.Equal(t, 1, byRange["10-20"])
	assert.Equal(t, 1, byRange["80-90"])
	assert.Equal(t, 2, byRange["90-100"])
	assert.Equal(t, 0, byRange["40-50"])
}

func TestDistributionRangesFixed(t *testing.T) {
	_, distribution := Run(nil)

	require.Len(t, distribution, 10)
	expected := []string{"0-10", "10-20", "20-30", "30-40", "40-50", "50-60", "60-70", "70-80", "80-90", "90-100"}
	for i, b := range distribution {
		assert.Equal(t, expected[i], b.Range)
		assert.Equal(t, 0, b.Count)
	}
}

func TestRunRanksAllFiveMetrics(t *testing.T) {
	rows, _ := Run([]repometrics.Indices{
		{Repository: "org/a", HealthScore: 60, MomentumScore: 70, RiskIndex: 20, VelocityIndex: 40, StabilityIndex: 90},
		{Repository: "org/b", HealthScore: 50, MomentumScore: 30, RiskIndex: 60, VelocityIndex: 70, StabilityIndex: 70},
	})

	for _, row := range rows {
		require.Len(t, row.Percentiles, len(metrics))
		require.Len(t, row.ZScores, len(metrics))
	}

	// org/b has the higher velocity index, so it takes the top percentile
	// there even though org/a leads on health.
	assert.Equal(t, 100.0, rowFor(t, rows, "org/b").Percentiles[MetricVelocity])
	assert.Equal(t, 50.0, rowFor(t, rows, "org/a").Percentiles[MetricVelocity])
}
