package features

import (
	"math"

	"github.com/abdullahmohammed1234/repopulse/internal/types"
)

// Feature keys form a closed, versioned set. Adding a key is a breaking
// change to every stored weight configuration, so the slice doubles as the
// canonical declaration order used for tie-breaking.
const (
	KeySize            = "size"
	KeyChurnExposure   = "churn_exposure"
	KeyCommitDensity   = "commit_density"
	KeyContributorRisk = "contributor_risk"
)

// Keys lists every feature in declaration order.
var Keys = []string{KeySize, KeyChurnExposure, KeyCommitDensity, KeyContributorRisk}

// Vector is a named mapping of feature key to a value normalized to [0,1].
type Vector map[string]float64

// neutralContributorRisk is used when no contributor profile is supplied.
const neutralContributorRisk = 0.5

// hotspotBonus is added to a file's churn score when the file is flagged as
// a hotspot, capped so per-file exposure stays in [0,1].
const hotspotBonus = 0.25

// commitDensityHalfSat is the average commit size (lines) at which the
// commit-density feature reaches 0.5.
const commitDensityHalfSat = 200.0

// sizeScale normalizes the size feature so it reaches 1.0 exactly at the
// documented input maxima: 2*MaxLines + 10*MaxFilesChanged changed units.
var sizeScale = math.Log1p(float64(2*types.MaxLines + 10*types.MaxFilesChanged))

// Result carries the extracted vector plus the names of any inputs that had
// to be clamped into their documented range. Clamping is defensive only;
// callers are expected to validate before calling and to log the flags.
type Result struct {
	Vector  Vector
	Clamped []string
}

// Extract converts one PR's facts plus optional contributor and target-file
// context into a normalized feature vector. Pure and deterministic: the same
// inputs always produce the same vector, and no input is mutated.
func Extract(facts types.PullRequestFacts, contributor *types.ContributorProfile, targetFiles []types.FileChurnProfile) Result {
	var clamped []string

	la, c := clampInt(facts.LinesAdded, 0, types.MaxLines)
	if c {
		clamped = append(clamped, "lines_added")
	}
	ld, c := clampInt(facts.LinesDeleted, 0, types.MaxLines)
	if c {
		clamped = append(clamped, "lines_deleted")
	}
	fc, c := clampInt(facts.FilesChanged, 0, types.MaxFilesChanged)
	if c {
		clamped = append(clamped, "files_changed")
	}
	cc, c := clampInt(facts.CommitsCount, 0, types.MaxCommits)
	if c {
		clamped = append(clamped, "commits_count")
	}

	v := Vector{
		KeySize:            sizeFeature(la, ld, fc),
		KeyChurnExposure:   churnExposure(targetFiles),
		KeyCommitDensity:   commitDensity(la+ld, cc),
		KeyContributorRisk: contributorRisk(contributor),
	}

	return Result{Vector: v, Clamped: clamped}
}

// sizeFeature combines added+deleted lines and file count on a log scale.
// Monotone increasing in each input; 1.0 at the documented maxima.
func sizeFeature(linesAdded, linesDeleted, filesChanged int) float64 {
	units := float64(linesAdded + linesDeleted + 10*filesChanged)
	return clamp01(math.Log1p(units) / sizeScale)
}

// churnExposure averages per-file exposure over the target files. A file's
// exposure is its churn score plus a hotspot bonus, capped at 1. With no
// file context the exposure is 0; missing data is never a risk signal.
func churnExposure(files []types.FileChurnProfile) float64 {
	if len(files) == 0 {
		return 0
	}
	total := 0.0
	for _, f := range files {
		exposure := clamp01(f.ChurnScore)
		if f.IsHotspot {
			exposure += hotspotBonus
		}
		total += clamp01(exposure)
	}
	return total / float64(len(files))
}

// commitDensity captures the "few large commits" signal: average lines per
// commit with half-saturation at commitDensityHalfSat. Monotone increasing
// in diff size, decreasing in commit count, bounded in [0,1).
func commitDensity(changedLines, commits int) float64 {
	if changedLines == 0 {
		return 0
	}
	perCommit := float64(changedLines) / math.Max(1, float64(commits))
	return perCommit / (perCommit + commitDensityHalfSat)
}

// contributorRisk blends rejection rate, inverted experience, and anomaly
// score. Without a profile it returns the fixed neutral default.
func contributorRisk(p *types.ContributorProfile) float64 {
	if p == nil {
		return neutralContributorRisk
	}
	inexperience := 1 - clamp01(p.ExperienceScore/100)
	return clamp01(0.40*clamp01(p.RejectionRate) + 0.35*inexperience + 0.25*clamp01(p.AnomalyScore))
}

func clampInt(v, lo, hi int) (int, bool) {
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
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
