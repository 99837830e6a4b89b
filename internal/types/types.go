package types

import "time"

// PullRequestFacts holds the raw, caller-validated facts about one pull
// request. It may describe a persisted PR or an ephemeral simulation input;
// the engine treats both identically and never mutates it.
type PullRequestFacts struct {
	LinesAdded   int `json:"lines_added"`
	LinesDeleted int `json:"lines_deleted"`
	FilesChanged int `json:"files_changed"`
	CommitsCount int `json:"commits_count"`
}

// Documented input bounds for PullRequestFacts. Values outside these ranges
// are a caller validation error; the feature extractor clamps defensively
// and flags the clamp.
const (
	MaxLines        = 100000
	MaxFilesChanged = 1000
	MaxCommits      = 500
)

// ContributorProfile carries derived contributor signals. All fields are
// produced elsewhere (tenure/commit history, anomaly detection); the engine
// reads them and never writes.
type ContributorProfile struct {
	ExperienceScore float64 `json:"experience_score"` // 0-100 scale
	RejectionRate   float64 `json:"rejection_rate"`   // 0-1
	AnomalyScore    float64 `json:"anomaly_score"`    // 0-1
}

// FileChurnProfile describes one file targeted by a change.
type FileChurnProfile struct {
	Path              string  `json:"path"`
	ChurnScore        float64 `json:"churn_score"` // 0-1
	IsHotspot         bool    `json:"is_hotspot"`
	ModificationCount int     `json:"modification_count"`
}

// PRRecord is one historical pull request in a repository's history.
type PRRecord struct {
	Number    int        `json:"number"`
	RiskScore float64    `json:"risk_score"`
	RiskLevel string     `json:"risk_level"`
	Merged    bool       `json:"merged"`
	CreatedAt time.Time  `json:"created_at"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
}

// CommitRecord is one historical commit.
type CommitRecord struct {
	SHA       string    `json:"sha"`
	Timestamp time.Time `json:"timestamp"`
}

// AnomalyFlag is an anomaly reported by the external anomaly detector.
type AnomalyFlag struct {
	Contributor string    `json:"contributor"`
	Score       float64   `json:"score"`
	FlaggedAt   time.Time `json:"flagged_at"`
}

// RepositoryHistory is the full typed input for per-repository aggregation.
// Empty slices are a valid, common state for newly analyzed repositories.
type RepositoryHistory struct {
	Repository string             `json:"repository"`
	WindowDays int                `json:"window_days"`
	PRs        []PRRecord         `json:"prs"`
	Commits    []CommitRecord     `json:"commits"`
	Files      []FileChurnProfile `json:"files"`
	Anomalies  []AnomalyFlag      `json:"anomalies"`
}

// PredictRequest is the request body for the risk prediction endpoint.
type PredictRequest struct {
	Facts       PullRequestFacts    `json:"facts" binding:"required"`
	Contributor *ContributorProfile `json:"contributor,omitempty"`
	TargetFiles []FileChurnProfile  `json:"target_files,omitempty"`
	Repository  string              `json:"repository,omitempty"`
	PRNumber    int                 `json:"pr_number,omitempty"`
}

// SimulateRequest is the request body for the simulation endpoint.
type SimulateRequest struct {
	Facts       PullRequestFacts    `json:"facts" binding:"required"`
	Contributor *ContributorProfile `json:"contributor,omitempty"`
	TargetFiles []FileChurnProfile  `json:"target_files,omitempty"`
	Repository  string              `json:"repository" binding:"required"`
	RequestedBy string              `json:"requested_by,omitempty"`
}

// BenchmarkRequest is the request body for a benchmark run over a cohort.
type BenchmarkRequest struct {
	Repositories []RepositoryHistory `json:"repositories" binding:"required"`
}
