package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdullahmohammed1234/repopulse/internal/features"
	"github.com/abdullahmohammed1234/repopulse/internal/risk"
	"github.com/abdullahmohammed1234/repopulse/internal/types"
)

func defaultCtx(repoAvg float64) RepoContext {
	return RepoContext{RepoAvgRisk: repoAvg, Config: risk.DefaultConfig()}
}

// riskyInputs produce a high-level score whose largest factor, once zeroed,
// drops the level to medium.
func riskyInputs() (types.PullRequestFacts, *types.ContributorProfile, []types.FileChurnProfile) {
	facts := types.PullRequestFacts{LinesAdded: 20000, LinesDeleted: 10000, FilesChanged: 300, CommitsCount: 2}
	contributor := &types.ContributorProfile{ExperienceScore: 0, RejectionRate: 1, AnomalyScore: 1}
	files := []types.FileChurnProfile{{Path: "core/engine.go", ChurnScore: 1, IsHotspot: true}}
	return facts, contributor, files
}

func TestSimulateMatchesDirectScoring(t *testing.T) {
	facts := types.PullRequestFacts{LinesAdded: 50, LinesDeleted: 20, FilesChanged: 5, CommitsCount: 3}

	result, err := Simulate(facts, nil, nil, defaultCtx(0.5))
	require.NoError(t, err)

	extracted := features.Extract(facts, nil, nil)
	direct, err := risk.Score(extracted.Vector, risk.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, direct.RiskScore, result.RiskScore)
	assert.Equal(t, direct.RiskLevel, result.RiskLevel)
	assert.Equal(t, direct.TopFactors, result.TopFactors)
}

func TestSimulateDeterministic(t *testing.T) {
	facts, contributor, files := riskyInputs()

	first, err := Simulate(facts, contributor, files, defaultCtx(0.4))
	require.NoError(t, err)
	second, err := Simulate(facts, contributor, files, defaultCtx(0.4))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSimulateSmallChangeBelowRepoAverage(t *testing.T) {
	facts := types.PullRequestFacts{LinesAdded: 50, LinesDeleted: 20, FilesChanged: 5, CommitsCount: 3}

	result, err := Simulate(facts, nil, nil, defaultCtx(0.5))
	require.NoError(t, err)

	assert.Equal(t, risk.LevelLow, result.RiskLevel)
	assert.Equal(t, LabelBelowAverage, result.RelativeLabel)
	assert.Equal(t, byte('-'), result.RiskVsRepoAvg[0])
	assert.Equal(t, 0.5, result.RepoAvgRisk)

	// Zeroing the top driver keeps the level at low, so no estimate.
	assert.Nil(t, result.RiskReductionEstimate)
}

func TestSimulateAboveAverage(t *testing.T) {
	facts, contributor, files := riskyInputs()

	result, err := Simulate(facts, contributor, files, defaultCtx(0.1))
	require.NoError(t, err)

	assert.Equal(t, risk.LevelHigh, result.RiskLevel)
	assert.Equal(t, LabelAboveAverage, result.RelativeLabel)
	assert.Equal(t, byte('+'), result.RiskVsRepoAvg[0])
}

func TestSimulateTypicalBand(t *testing.T) {
	facts := types.PullRequestFacts{LinesAdded: 50, LinesDeleted: 20, FilesChanged: 5, CommitsCount: 3}

	// Score the facts once, then use that exact score as the repo average:
	// the delta is 0, well inside the band.
	baseline, err := Simulate(facts, nil, nil, defaultCtx(0.5))
	require.NoError(t, err)

	result, err := Simulate(facts, nil, nil, defaultCtx(baseline.RiskScore))
	require.NoError(t, err)

	assert.Equal(t, LabelTypical, result.RelativeLabel)
	assert.Equal(t, "0%", result.RiskVsRepoAvg)
}

func TestSimulateNoBaselineIsTypical(t *testing.T) {
	facts := types.PullRequestFacts{LinesAdded: 500, LinesDeleted: 100, FilesChanged: 10, CommitsCount: 2}

	result, err := Simulate(facts, nil, nil, defaultCtx(0))
	require.NoError(t, err)

	assert.Equal(t, LabelTypical, result.RelativeLabel)
	assert.Equal(t, "0%", result.RiskVsRepoAvg)
}

func TestReductionEstimateOnLevelChange(t *testing.T) {
	facts, contributor, files := riskyInputs()

	result, err := Simulate(facts, contributor, files, defaultCtx(0.4))
	require.NoError(t, err)
	require.Equal(t, risk.LevelHigh, result.RiskLevel)

	estimate := result.RiskReductionEstimate
	require.NotNil(t, estimate)

	// The top driver is churn exposure (impact 0.30); removing it lands in
	// the medium band.
	assert.InDelta(t, 0.30, estimate.PotentialReduction, 1e-9)
	assert.Equal(t, byte('-'), estimate.ReductionPercent[0])
	assert.Contains(t, estimate.Message, features.KeyChurnExposure)
	assert.Contains(t, estimate.Message, string(risk.LevelMedium))
}

func TestReductionEstimateNilWhenLevelUnchanged(t *testing.T) {
	// All factors contribute mildly; zeroing the largest cannot cross a
	// threshold downward.
	facts := types.PullRequestFacts{LinesAdded: 100, LinesDeleted: 20, FilesChanged: 3, CommitsCount: 4}

	result, err := Simulate(facts, nil, nil, defaultCtx(0.3))
	require.NoError(t, err)
	require.Equal(t, risk.LevelLow, result.RiskLevel)

	assert.Nil(t, result.RiskReductionEstimate)
}

func TestSimulatePropagatesConfigError(t *testing.T) {
	facts := types.PullRequestFacts{LinesAdded: 10, CommitsCount: 1}
	bad := risk.DefaultConfig()
	bad.Weights["review_latency"] = 0

	_, err := Simulate(facts, nil, nil, RepoContext{RepoAvgRisk: 0.5, Config: bad})
	require.Error(t, err)
	var cfgErr *risk.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
