package risk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdullahmohammed1234/repopulse/internal/features"
)

func writeWeightsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weights.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewStoreMissingFileUsesDefaults(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), store.Current())
}

func TestNewStoreEmptyPathUsesDefaults(t *testing.T) {
	store, err := NewStore("")
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), store.Current())
}

func TestNewStoreLoadsValidFile(t *testing.T) {
	path := writeWeightsFile(t, `{
		"weights": {
			"size": 0.25,
			"churn_exposure": 0.25,
			"commit_density": 0.25,
			"contributor_risk": 0.25
		},
		"thresholds": {"low": 0.30, "high": 0.60}
	}`)

	store, err := NewStore(path)
	require.NoError(t, err)

	cfg := store.Current()
	assert.Equal(t, 0.25, cfg.Weights[features.KeySize])
	assert.Equal(t, Thresholds{Low: 0.30, High: 0.60}, cfg.Thresholds)
}

func TestNewStoreRejectsInvalidFile(t *testing.T) {
	path := writeWeightsFile(t, `{
		"weights": {"size": 1.0},
		"thresholds": {"low": 0.40, "high": 0.70}
	}`)

	_, err := NewStore(path)
	assert.Error(t, err)
}

func TestReloadKeepsPreviousSnapshotOnError(t *testing.T) {
	path := writeWeightsFile(t, `{
		"weights": {
			"size": 0.25,
			"churn_exposure": 0.25,
			"commit_density": 0.25,
			"contributor_risk": 0.25
		},
		"thresholds": {"low": 0.30, "high": 0.60}
	}`)

	store, err := NewStore(path)
	require.NoError(t, err)
	before := store.Current()

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))
	assert.Error(t, store.Reload())

	assert.Same(t, before, store.Current())
}

func TestSwapPublishesCopy(t *testing.T) {
	store, err := NewStore("")
	require.NoError(t, err)

	cfg := DefaultConfig()
	require.NoError(t, store.Swap(cfg))

	// Mutating the caller's map must not reach the published snapshot.
	cfg.Weights[features.KeySize] = 0.99
	assert.Equal(t, 0.35, store.Current().Weights[features.KeySize])
}

func TestSwapRejectsInvalidConfig(t *testing.T) {
	store, err := NewStore("")
	require.NoError(t, err)
	before := store.Current()

	bad := DefaultConfig()
	bad.Weights[features.KeySize] = 0.9

	assert.Error(t, store.Swap(bad))
	assert.Same(t, before, store.Current())
}
