// Package risk implements the weighted pull-request risk model: a normalized
// weighted sum over the extracted feature vector, fixed level thresholds,
// ranked contributing factors, and deterministic mitigation recommendations.
package risk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abdullahmohammed1234/repopulse/internal/features"
)

// Level is the categorical risk band for a score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// maxTopFactors bounds how many contributing factors a result reports.
const maxTopFactors = 3

// Factor is one feature's contribution to a score. ImpactWeight is
// re-normalized to sum to 1 across the returned factors only; the shown
// percentages describe relative contribution among the displayed subset,
// not absolute share of total risk. Consumers render them that way.
type Factor struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	ImpactWeight float64 `json:"impact_weight"`
}

// Result is an immutable scoring outcome, produced fresh per call.
type Result struct {
	RiskScore       float64  `json:"risk_score"`
	RiskLevel       Level    `json:"risk_level"`
	TopFactors      []Factor `json:"top_factors"`
	Recommendations []string `json:"recommendations"`
}

// ConfigError reports a weight configuration that cannot score the current
// feature set. It is fatal for the scoring call: silently treating an
// unknown feature as zero-weight would misrepresent the score.
type ConfigError struct {
	Reason  string
	Missing []string
	Unknown []string
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf("; missing keys: %s", strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		msg += fmt.Sprintf("; unknown keys: %s", strings.Join(e.Unknown, ", "))
	}
	return msg
}

// Score applies the weight snapshot to a feature vector. The score is the
// weighted sum clamped to [0,1]; features and weights are both normalized so
// the clamp only guards float drift.
func Score(v features.Vector, cfg *Config) (Result, error) {
	if err := checkFeatureSet(v, cfg); err != nil {
		return Result{}, err
	}

	score := 0.0
	for _, key := range features.Keys {
		score += v[key] * cfg.Weights[key]
	}
	score = clamp01(score)

	top := topFactors(v, cfg)
	return Result{
		RiskScore:       score,
		RiskLevel:       LevelFor(score, cfg.Thresholds),
		TopFactors:      top,
		Recommendations: Recommend(top),
	}, nil
}

// LevelFor maps a score to its band. The thresholds partition [0,1] with no
// gap or overlap: [0,low) low, [low,high] medium, (high,1] high.
func LevelFor(score float64, t Thresholds) Level {
	switch {
	case score < t.Low:
		return LevelLow
	case score <= t.High:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// topFactors ranks features by impact (value x weight) descending, ties
// broken by declaration order, keeps at most maxTopFactors entries with
// positive impact, and re-normalizes their impact weights to sum to 1.
func topFactors(v features.Vector, cfg *Config) []Factor {
	factors := make([]Factor, 0, len(features.Keys))
	for _, key := range features.Keys {
		impact := v[key] * cfg.Weights[key]
		if impact <= 0 {
			continue
		}
		factors = append(factors, Factor{Feature: key, Value: v[key], ImpactWeight: impact})
	}

	// Stable sort preserves declaration order for equal impacts.
	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].ImpactWeight > factors[j].ImpactWeight
	})

	if len(factors) > maxTopFactors {
		factors = factors[:maxTopFactors]
	}

	total := 0.0
	for _, f := range factors {
		total += f.ImpactWeight
	}
	if total > 0 {
		for i := range factors {
			factors[i].ImpactWeight /= total
		}
	}
	return factors
}

// checkFeatureSet verifies the vector and weight keys agree exactly.
func checkFeatureSet(v features.Vector, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var missing, unknown []string
	for _, key := range features.Keys {
		if _, ok := v[key]; !ok {
			missing = append(missing, key)
		}
	}
	known := make(map[string]bool, len(features.Keys))
	for _, key := range features.Keys {
		known[key] = true
	}
	for key := range v {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	if len(missing) > 0 || len(unknown) > 0 {
		return &ConfigError{Reason: "feature vector does not match the configured feature set", Missing: missing, Unknown: unknown}
	}
	return nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
