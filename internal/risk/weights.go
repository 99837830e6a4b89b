package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync/atomic"

	"github.com/abdullahmohammed1234/repopulse/internal/features"
)

// weightSumTolerance bounds how far the weight sum may drift from 1.0
// before the configuration is rejected.
const weightSumTolerance = 1e-6

// Thresholds are the risk-level boundaries. The partition of [0,1] is:
// score < Low -> low, Low <= score <= High -> medium, score > High -> high.
// These must match every consumer rendering risk levels; changing them is a
// contract change.
type Thresholds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Config is an immutable weight/threshold snapshot. A snapshot is never
// edited after publication; reloads build a new Config and swap it in
// atomically so a scoring call sees either the old or the new set, never a
// mix.
type Config struct {
	Weights    map[string]float64 `json:"weights"`
	Thresholds Thresholds         `json:"thresholds"`
}

// DefaultConfig returns the built-in weight configuration.
func DefaultConfig() *Config {
	return &Config{
		Weights: map[string]float64{
			features.KeySize:            0.35,
			features.KeyChurnExposure:   0.30,
			features.KeyCommitDensity:   0.15,
			features.KeyContributorRisk: 0.20,
		},
		Thresholds: Thresholds{Low: 0.40, High: 0.70},
	}
}

// Validate checks that the weight keys exactly match the feature set, that
// weights are non-negative and sum to 1, and that thresholds partition (0,1).
func (c *Config) Validate() error {
	var missing, unknown []string
	for _, key := range features.Keys {
		if _, ok := c.Weights[key]; !ok {
			missing = append(missing, key)
		}
	}
	known := make(map[string]bool, len(features.Keys))
	for _, key := range features.Keys {
		known[key] = true
	}
	for key := range c.Weights {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	if len(missing) > 0 || len(unknown) > 0 {
		return &ConfigError{Reason: "weight keys do not match the feature set", Missing: missing, Unknown: unknown}
	}

	sum := 0.0
	for key, w := range c.Weights {
		if w < 0 {
			return &ConfigError{Reason: fmt.Sprintf("weight for %q is negative", key)}
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return &ConfigError{Reason: fmt.Sprintf("weights sum to %.6f, expected 1.0", sum)}
	}

	t := c.Thresholds
	if !(t.Low > 0 && t.Low < t.High && t.High < 1) {
		return &ConfigError{Reason: fmt.Sprintf("thresholds low=%.2f high=%.2f do not partition (0,1)", t.Low, t.High)}
	}
	return nil
}

// clone returns a deep copy so a validated snapshot cannot alias caller maps.
func (c *Config) clone() *Config {
	weights := make(map[string]float64, len(c.Weights))
	for k, v := range c.Weights {
		weights[k] = v
	}
	return &Config{Weights: weights, Thresholds: c.Thresholds}
}

// Store holds the active Config behind an atomic pointer. Readers call
// Current once per scoring run and keep using that snapshot, so a reload
// mid-run never blends weight sets within one score.
type Store struct {
	current atomic.Pointer[Config]
	path    string
}

// NewStore creates a store backed by the given JSON file. A missing file is
// not an error: the built-in defaults are used until the file appears.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		s.current.Store(DefaultConfig())
		return s, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.current.Store(DefaultConfig())
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active snapshot. The returned Config must be treated
// as read-only.
func (s *Store) Current() *Config {
	return s.current.Load()
}

// Reload reads the backing file, validates it, and atomically publishes the
// new snapshot. On any error the previous snapshot stays active.
func (s *Store) Reload() error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open weights file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode weights file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid weights file %s: %w", s.path, err)
	}
	s.current.Store(cfg.clone())
	return nil
}

// Swap validates cfg and publishes it as the active snapshot.
func (s *Store) Swap(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.current.Store(cfg.clone())
	return nil
}
