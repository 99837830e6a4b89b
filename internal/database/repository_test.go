package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db)
}

func TestSaveRiskScoreUpserts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	row := RiskScoreRow{
		ID:              uuid.New().String(),
		Repository:      "org/repo",
		PRNumber:        42,
		RiskScore:       0.55,
		RiskLevel:       "medium",
		TopFactors:      `[]`,
		Recommendations: `[]`,
		CreatedAt:       now,
	}
	require.NoError(t, repo.SaveRiskScore(ctx, row))

	// Re-scoring the same PR replaces the row rather than adding one.
	row.ID = uuid.New().String()
	row.RiskScore = 0.75
	row.RiskLevel = "high"
	require.NoError(t, repo.SaveRiskScore(ctx, row))

	scores, err := repo.ListRiskScores(ctx, "org/repo", 10)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 0.75, scores[0].RiskScore)
	assert.Equal(t, "high", scores[0].RiskLevel)
}

func TestRepoAvgRisk(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	avg, count, err := repo.RepoAvgRisk(ctx, "org/empty")
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, count)

	for i, score := range []float64{0.2, 0.4, 0.6} {
		require.NoError(t, repo.SaveRiskScore(ctx, RiskScoreRow{
			ID:              uuid.New().String(),
			Repository:      "org/repo",
			PRNumber:        i + 1,
			RiskScore:       score,
			RiskLevel:       "medium",
			TopFactors:      `[]`,
			Recommendations: `[]`,
			CreatedAt:       time.Now().UTC(),
		}))
	}

	avg, count, err = repo.RepoAvgRisk(ctx, "org/repo")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, avg, 1e-9)
	assert.Equal(t, 3, count)
}

func TestSimulationRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	row := SimulationRow{
		ID:          uuid.New().String(),
		Repository:  "org/repo",
		RequestedBy: "alice",
		Request:     `{"repository":"org/repo"}`,
		Result:      `{"risk_score":0.3}`,
		RiskScore:   0.3,
		RiskLevel:   "low",
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.SaveSimulation(ctx, row))

	got, err := repo.GetSimulation(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, row.Repository, got.Repository)
	assert.Equal(t, row.RequestedBy, got.RequestedBy)
	assert.Equal(t, row.Result, got.Result)

	list, err := repo.ListSimulations(ctx, "org/repo", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, row.ID, list[0].ID)
}

func TestGetSimulationNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetSimulation(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}
