// Package repometrics turns a repository's PR/commit/file history into the
// derived per-repository indices consumed by the benchmark engine. All
// aggregation is pure: re-running on unchanged history yields bit-identical
// output, and empty history resolves to documented neutral values rather
// than an error.
package repometrics

import (
	"sync"
	"time"

	"github.com/abdullahmohammed1234/repopulse/internal/risk"
	"github.com/abdullahmohammed1234/repopulse/internal/types"
)

// defaultWindowDays is assumed when the history does not carry a window.
const defaultWindowDays = 90

// velocityHalfSat is the merge velocity (merged PRs per week) at which the
// velocity index reaches 50.
const velocityHalfSat = 5.0

// Neutral values for empty history. A repository with no activity is
// neither risky nor fast: momentum sits at the midpoint and stability at
// the maximum, since nothing has churned yet.
const (
	neutralMomentum  = 50.0
	neutralStability = 100.0
)

// Indices are the per-repository derived scores. One row per repository,
// recomputed wholesale on each benchmark run.
type Indices struct {
	Repository     string  `json:"repository"`
	HealthScore    float64 `json:"health_score"`
	MomentumScore  float64 `json:"momentum_score"`
	AvgPRRisk      float64 `json:"avg_pr_risk"`
	MergeVelocity  float64 `json:"merge_velocity"`
	ChurnIndex     float64 `json:"churn_index"`
	AnomalyCount   int     `json:"anomaly_count"`
	RiskIndex      float64 `json:"risk_index"`
	VelocityIndex  float64 `json:"velocity_index"`
	StabilityIndex float64 `json:"stability_index"`
}

// Aggregate computes the indices for one repository.
func Aggregate(history types.RepositoryHistory) Indices {
	windowDays := history.WindowDays
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	avgRisk, highShare := prRiskStats(history.PRs)
	velocity := mergeVelocity(history.PRs, windowDays)
	churn := churnIndex(history.Files)
	momentum := momentumScore(history.Commits, windowDays)
	anomalies := len(history.Anomalies)

	riskIdx := 100 * (0.7*avgRisk + 0.3*highShare)
	velocityIdx := 100 * velocity / (velocity + velocityHalfSat)
	stabilityIdx := stabilityIndex(history, churn, anomalies)
	health := 0.30*(100-riskIdx) + 0.25*velocityIdx + 0.25*stabilityIdx + 0.20*momentum

	return Indices{
		Repository:     history.Repository,
		HealthScore:    health,
		MomentumScore:  momentum,
		AvgPRRisk:      avgRisk,
		MergeVelocity:  velocity,
		ChurnIndex:     churn,
		AnomalyCount:   anomalies,
		RiskIndex:      riskIdx,
		VelocityIndex:  velocityIdx,
		StabilityIndex: stabilityIdx,
	}
}

// AggregateAll fans per-repository aggregation out across goroutines; each
// repository is independent, so there is no shared mutable state. The
// function returns only after every aggregation completes, which is the
// barrier the benchmark pass depends on.
func AggregateAll(histories []types.RepositoryHistory) []Indices {
	out := make([]Indices, len(histories))

	var wg sync.WaitGroup
	for i := range histories {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = Aggregate(histories[i])
		}(i)
	}
	wg.Wait()

	return out
}

// prRiskStats returns the mean stored risk score and the share of PRs
// scored at the high level. Both are 0 for empty history.
func prRiskStats(prs []types.PRRecord) (avg, highShare float64) {
	if len(prs) == 0 {
		return 0, 0
	}
	total := 0.0
	high := 0
	for _, pr := range prs {
		total += pr.RiskScore
		if pr.RiskLevel == string(risk.LevelHigh) {
			high++
		}
	}
	return total / float64(len(prs)), float64(high) / float64(len(prs))
}

// mergeVelocity is merged PRs per week over the window.
func mergeVelocity(prs []types.PRRecord, windowDays int) float64 {
	merged := 0
	for _, pr := range prs {
		if pr.Merged {
			merged++
		}
	}
	weeks := float64(windowDays) / 7
	if weeks <= 0 || merged == 0 {
		return 0
	}
	return float64(merged) / weeks
}

// churnIndex measures modification concentration: the share of recorded
// modifications that touch hotspot files, scaled to 0-100.
func churnIndex(files []types.FileChurnProfile) float64 {
	total := 0
	hotspot := 0
	for _, f := range files {
		total += f.ModificationCount
		if f.IsHotspot {
			hotspot += f.ModificationCount
		}
	}
	if total == 0 {
		return 0
	}
	return 100 * float64(hotspot) / float64(total)
}

// momentumScore compares commit counts between the two halves of the
// window, anchored at the most recent commit so the result depends only on
// the history itself. 50 is the documented neutral for no commits.
func momentumScore(commits []types.CommitRecord, windowDays int) float64 {
	if len(commits) == 0 {
		return neutralMomentum
	}

	var end time.Time
	for _, c := range commits {
		if c.Timestamp.After(end) {
			end = c.Timestamp
		}
	}
	midpoint := end.Add(-time.Duration(windowDays) * 24 * time.Hour / 2)

	recent := 0
	prior := 0
	for _, c := range commits {
		if c.Timestamp.Before(midpoint) {
			prior++
		} else {
			recent++
		}
	}
	return 50 + 50*float64(recent-prior)/float64(recent+prior)
}

// stabilityIndex penalizes churn concentration and anomalies. An empty
// history keeps the neutral maximum.
func stabilityIndex(history types.RepositoryHistory, churn float64, anomalies int) float64 {
	if len(history.PRs) == 0 && len(history.Commits) == 0 && len(history.Files) == 0 && anomalies == 0 {
		return neutralStability
	}
	stability := 100 - 0.5*churn - 4*float64(anomalies)
	if stability < 0 {
		return 0
	}
	if stability > 100 {
		return 100
	}
	return stability
}
