// Package simulate runs the risk model against hypothetical pull-request
// parameters and positions the outcome against the repository's historical
// average. It reuses the extractor and model unchanged: a simulated PR is
// scored exactly like a real one, only the caller-supplied facts differ.
package simulate

import (
	"fmt"
	"math"

	"github.com/abdullahmohammed1234/repopulse/internal/features"
	"github.com/abdullahmohammed1234/repopulse/internal/risk"
	"github.com/abdullahmohammed1234/repopulse/internal/types"
)

// epsilonPct is the band, in percentage points, within which a simulated
// score counts as typical for the repository. Explicit on purpose: the
// "0%" case is a documented band, not accidental float equality.
const epsilonPct = 1.0

// minBaseline is the smallest repo average that supports a relative
// comparison; below it the repository has no meaningful baseline.
const minBaseline = 1e-9

// Relative labels for the simulated score vs the repository average.
const (
	LabelAboveAverage = "above average"
	LabelBelowAverage = "below average"
	LabelTypical      = "typical"
)

// RepoContext supplies the precomputed repository baseline and the active
// weight snapshot for one simulation call.
type RepoContext struct {
	RepoAvgRisk float64
	Config      *risk.Config
}

// ReductionEstimate is the counterfactual improvement available by
// mitigating the single largest risk driver.
type ReductionEstimate struct {
	PotentialReduction float64 `json:"potential_reduction"`
	ReductionPercent   string  `json:"reduction_percent"`
	Message            string  `json:"message"`
}

// Result extends the plain scoring result with repo-relative positioning.
// RiskReductionEstimate is nil when no single-factor mitigation would change
// the risk level: null when inapplicable, never zero.
type Result struct {
	risk.Result
	RiskVsRepoAvg         string             `json:"risk_vs_repo_avg"`
	RelativeLabel         string             `json:"relative_label"`
	RepoAvgRisk           float64            `json:"repo_avg_risk"`
	RiskReductionEstimate *ReductionEstimate `json:"risk_reduction_estimate,omitempty"`
}

// Simulate scores hypothetical facts and annotates the result with the
// repo-relative comparison and reduction estimate. Deterministic: identical
// facts and context always yield an identical Result, which is what makes
// restoring a simulation from history reproducible.
func Simulate(facts types.PullRequestFacts, contributor *types.ContributorProfile, targetFiles []types.FileChurnProfile, repoCtx RepoContext) (Result, error) {
	extracted := features.Extract(facts, contributor, targetFiles)

	scored, err := risk.Score(extracted.Vector, repoCtx.Config)
	if err != nil {
		return Result{}, err
	}

	deltaPct, label := relativePosition(scored.RiskScore, repoCtx.RepoAvgRisk)

	return Result{
		Result:                scored,
		RiskVsRepoAvg:         formatDelta(deltaPct, label),
		RelativeLabel:         label,
		RepoAvgRisk:           repoCtx.RepoAvgRisk,
		RiskReductionEstimate: reductionEstimate(extracted.Vector, scored, repoCtx.Config),
	}, nil
}

// relativePosition computes the signed percentage delta of score from the
// repository average and classifies it against the epsilon band.
func relativePosition(score, repoAvg float64) (float64, string) {
	if repoAvg < minBaseline {
		return 0, LabelTypical
	}
	deltaPct := (score - repoAvg) / repoAvg * 100
	if math.Abs(deltaPct) < epsilonPct {
		return deltaPct, LabelTypical
	}
	if deltaPct > 0 {
		return deltaPct, LabelAboveAverage
	}
	return deltaPct, LabelBelowAverage
}

func formatDelta(deltaPct float64, label string) string {
	if label == LabelTypical {
		return "0%"
	}
	return fmt.Sprintf("%+.0f%%", deltaPct)
}

// reductionEstimate re-scores a counterfactual vector with the largest
// contributing feature zeroed. The estimate is returned only when the
// mitigation would move the score into a lower risk level; otherwise nil.
func reductionEstimate(v features.Vector, original risk.Result, cfg *risk.Config) *ReductionEstimate {
	if len(original.TopFactors) == 0 {
		return nil
	}
	driver := original.TopFactors[0].Feature

	counterfactual := make(features.Vector, len(v))
	for k, val := range v {
		counterfactual[k] = val
	}
	counterfactual[driver] = 0

	// The vector keys are unchanged, so re-scoring cannot fail after the
	// original score succeeded.
	rescored, err := risk.Score(counterfactual, cfg)
	if err != nil {
		return nil
	}
	if rescored.RiskLevel == original.RiskLevel {
		return nil
	}

	reduction := original.RiskScore - rescored.RiskScore
	pct := 0.0
	if original.RiskScore > 0 {
		pct = reduction / original.RiskScore * 100
	}
	return &ReductionEstimate{
		PotentialReduction: reduction,
		ReductionPercent:   fmt.Sprintf("-%.0f%%", pct),
		Message: fmt.Sprintf("Mitigating %s could lower the risk level from %s to %s.",
			driver, original.RiskLevel, rescored.RiskLevel),
	}
}
