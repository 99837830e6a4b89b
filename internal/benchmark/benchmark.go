// Package benchmark ranks a cohort of repositories on their derived indices.
// It is a pure population pass: given the aggregated indices it produces
// ranked rows with percentile and z-score context plus a health-score
// distribution, with no I/O and no retained state between runs.
package benchmark

import (
	"fmt"
	"math"
	"sort"

	"github.com/abdullahmohammed1234/repopulse/internal/repometrics"
)

// bucketWidth and bucketCount define the fixed health-score histogram:
// ten 10-wide buckets spanning 0-100.
const (
	bucketWidth = 10
	bucketCount = 10
)

// Ranked metric names, in the order they appear in row maps' documented
// iteration and in the tests.
const (
	MetricHealth    = "health_score"
	MetricMomentum  = "momentum_score"
	MetricRisk      = "risk_index"
	MetricVelocity  = "velocity_index"
	MetricStability = "stability_index"
)

var metrics = []string{MetricHealth, MetricMomentum, MetricRisk, MetricVelocity, MetricStability}

// Row is one repository's benchmark standing. Percentiles and ZScores are
// keyed by metric name and describe the repository's position within this
// run's cohort only.
type Row struct {
	repometrics.Indices
	Rank        int                `json:"rank"`
	Percentiles map[string]float64 `json:"percentiles"`
	ZScores     map[string]float64 `json:"z_scores"`
}

// DistributionBucket is one histogram bucket over health scores.
type DistributionBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// Run computes the cohort standings. Rows are ordered by health score
// descending with ties broken by repository id ascending; ranks are
// positional (1-based) after that ordering.
func Run(indices []repometrics.Indices) ([]Row, []DistributionBucket) {
	rows := make([]Row, len(indices))
	for i, idx := range indices {
		rows[i] = Row{
			Indices:     idx,
			Percentiles: make(map[string]float64, len(metrics)),
			ZScores:     make(map[string]float64, len(metrics)),
		}
	}

	for _, metric := range metrics {
		values := make([]float64, len(indices))
		for i, idx := range indices {
			values[i] = metricValue(idx, metric)
		}
		mean, sigma := populationStats(values)
		for i := range rows {
			rows[i].Percentiles[metric] = percentile(values, values[i])
			rows[i].ZScores[metric] = zScore(values[i], mean, sigma, len(values))
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].HealthScore != rows[j].HealthScore {
			return rows[i].HealthScore > rows[j].HealthScore
		}
		return rows[i].Repository < rows[j].Repository
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	return rows, distribution(indices)
}

func metricValue(idx repometrics.Indices, metric string) float64 {
	switch metric {
	case MetricHealth:
		return idx.HealthScore
	case MetricMomentum:
		return idx.MomentumScore
	case MetricRisk:
		return idx.RiskIndex
	case MetricVelocity:
		return idx.VelocityIndex
	case MetricStability:
		return idx.StabilityIndex
	}
	return 0
}

// percentile uses the "<=" convention: the share of the population at or
// below the value. Tied repositories share the identical percentile, and a
// single-element population yields 100.
func percentile(values []float64, v float64) float64 {
	if len(values) == 0 {
		return 0
	}
	atOrBelow := 0
	for _, x := range values {
		if x <= v {
			atOrBelow++
		}
	}
	return float64(atOrBelow) / float64(len(values)) * 100
}

// populationStats returns the mean and population standard deviation
// (divisor N).
func populationStats(values []float64) (mean, sigma float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= n

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / n)
}

// zScore is 0 when the population is too small or degenerate to standardize.
func zScore(v, mean, sigma float64, n int) float64 {
	if n < 2 || sigma == 0 {
		return 0
	}
	return (v - mean) / sigma
}

// distribution buckets health scores into fixed 10-wide ranges. Every bucket
// is half-open [lo, hi) except the last, which includes 100.
func distribution(indices []repometrics.Indices) []DistributionBucket {
	buckets := make([]DistributionBucket, bucketCount)
	for i := range buckets {
		lo := i * bucketWidth
		buckets[i].Range = fmt.Sprintf("%d-%d", lo, lo+bucketWidth)
	}
	for _, idx := range indices {
		buckets[bucketFor(idx.HealthScore)].Count++
	}
	return buckets
}

func bucketFor(health float64) int {
	if health < 0 {
		return 0
	}
	i := int(health / bucketWidth)
	if i >= bucketCount {
		return bucketCount - 1
	}
	return i
}
